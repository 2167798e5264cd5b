package app

import (
	"strings"
	"testing"
)

func TestSessionName(t *testing.T) {
	t.Parallel()

	want := "kwezi-restore/" + Version
	if got := SessionName("restore"); got != want {
		t.Errorf("SessionName = %q, want %q", got, want)
	}
}

func TestBuildVersion_StartsWithVersion(t *testing.T) {
	t.Parallel()

	got := BuildVersion()
	if !strings.HasPrefix(got, Version+" (commit: ") {
		t.Errorf("BuildVersion = %q", got)
	}
	if strings.Contains(got, "commit: ,") || strings.HasSuffix(got, "built: )") {
		t.Errorf("BuildVersion has empty fields: %q", got)
	}
}
