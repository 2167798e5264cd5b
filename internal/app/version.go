package app

import (
	"fmt"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/heartmarshall/kwezi-backend/internal/app.Version=...".
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// BuildVersion describes the running binary. Without ldflags the VCS
// revision recorded by the Go toolchain is used.
func BuildVersion() string {
	commit, built := Commit, BuildTime
	if commit == "" || built == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				switch {
				case s.Key == "vcs.revision" && commit == "":
					commit = s.Value
				case s.Key == "vcs.time" && built == "":
					built = s.Value
				}
			}
		}
	}
	if commit == "" {
		commit = "unknown"
	}
	if built == "" {
		built = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, commit, built)
}

// SessionName is the application_name a command's database sessions carry,
// e.g. "kwezi-reconcile/1.4.0".
func SessionName(command string) string {
	return "kwezi-" + command + "/" + Version
}
