package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validEnv sets the minimum required env vars for a valid config.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "postgres://u:p@localhost:5432/testdb")
}

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{DSN: "postgres://u:p@localhost:5432/testdb", MaxConns: 10, MinConns: 1},
		Log:      LogConfig{Level: "info", Format: "json"},
		Reconcile: ReconcileConfig{
			MinScore: 0.8,
			Workers:  4,
			Reason:   "reconcile",
			Timeout:  30 * time.Minute,
		},
		Assets: AssetsConfig{Backend: AssetBackendLocal, Root: "./assets"},
	}
}

const validYAML = `
database:
  dsn: "postgres://u:p@localhost:5432/testdb"
  max_conns: 8
  min_conns: 2

log:
  level: "debug"
  format: "text"

reconcile:
  min_score: 0.85
  workers: 2
  policy_path: "/etc/kwezi/policy.yaml"
  reason: "nightly"
  timeout: "10m"

assets:
  backend: "gcs"
  bucket: "kwezi-audio"
  prefix: "/audio/"
`

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Database
	if cfg.Database.DSN != "postgres://u:p@localhost:5432/testdb" {
		t.Errorf("database.dsn = %q", cfg.Database.DSN)
	}
	if cfg.Database.MaxConns != 8 {
		t.Errorf("database.max_conns = %d, want 8", cfg.Database.MaxConns)
	}

	// Reconcile
	if cfg.Reconcile.MinScore != 0.85 {
		t.Errorf("reconcile.min_score = %v, want 0.85", cfg.Reconcile.MinScore)
	}
	if cfg.Reconcile.Workers != 2 {
		t.Errorf("reconcile.workers = %d, want 2", cfg.Reconcile.Workers)
	}
	if cfg.Reconcile.PolicyPath != "/etc/kwezi/policy.yaml" {
		t.Errorf("reconcile.policy_path = %q", cfg.Reconcile.PolicyPath)
	}
	if cfg.Reconcile.Reason != "nightly" {
		t.Errorf("reconcile.reason = %q, want nightly", cfg.Reconcile.Reason)
	}
	if cfg.Reconcile.Timeout != 10*time.Minute {
		t.Errorf("reconcile.timeout = %v, want 10m", cfg.Reconcile.Timeout)
	}
	if cfg.Reconcile.DryRun {
		t.Error("reconcile.dry_run should default to false")
	}

	// Assets
	if cfg.Assets.Backend != AssetBackendGCS {
		t.Errorf("assets.backend = %q, want gcs", cfg.Assets.Backend)
	}
	if cfg.Assets.Prefix != "audio" {
		t.Errorf("assets.prefix = %q, want slashes trimmed", cfg.Assets.Prefix)
	}

	// Log
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("RECONCILE_WORKERS", "6")
	t.Setenv("RECONCILE_DRY_RUN", "true")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Reconcile.Workers != 6 {
		t.Errorf("reconcile.workers = %d, want 6 (ENV override)", cfg.Reconcile.Workers)
	}
	if !cfg.Reconcile.DryRun {
		t.Error("reconcile.dry_run should be true (ENV override)")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want %q (ENV override)", cfg.Log.Level, "warn")
	}
}

func TestLoad_NoFile_ENVOnly(t *testing.T) {
	validEnv(t)
	t.Setenv("CONFIG_PATH", "")

	// Run from a temp dir with no config.yaml.
	origDir, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	_ = os.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Reconcile.MinScore != 0.8 {
		t.Errorf("reconcile.min_score = %v, want 0.8 (default)", cfg.Reconcile.MinScore)
	}
	if cfg.Reconcile.Reason != "reconcile" {
		t.Errorf("reconcile.reason = %q, want reconcile (default)", cfg.Reconcile.Reason)
	}
	if cfg.Assets.Backend != AssetBackendLocal || cfg.Assets.Root != "./assets" {
		t.Errorf("assets = %+v, want local ./assets (default)", cfg.Assets)
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, `{{{invalid yaml`)
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MinScoreBounds(t *testing.T) {
	for _, score := range []float64{0, 0.5, 0.79, 1.01} {
		cfg := validConfig()
		cfg.Reconcile.MinScore = score
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for min_score %v", score)
		}
	}

	for _, score := range []float64{0.8, 0.9, 1} {
		cfg := validConfig()
		cfg.Reconcile.MinScore = score
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error for min_score %v: %v", score, err)
		}
	}
}

func TestValidate_Workers(t *testing.T) {
	for _, n := range []int{0, -1, maxWorkers + 1} {
		cfg := validConfig()
		cfg.Reconcile.Workers = n
		if err := cfg.Validate(); err == nil {
			t.Errorf("expected error for workers %d", n)
		}
	}
}

func TestValidate_TimeoutZero(t *testing.T) {
	cfg := validConfig()
	cfg.Reconcile.Timeout = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}

func TestValidate_BlankReasonDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Reconcile.Reason = "  "

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Reconcile.Reason != "reconcile" {
		t.Errorf("reason = %q, want reconcile", cfg.Reconcile.Reason)
	}
}

func TestValidate_Assets(t *testing.T) {
	tests := []struct {
		name    string
		assets  AssetsConfig
		wantErr bool
	}{
		{name: "local", assets: AssetsConfig{Backend: "local", Root: "/srv/audio"}},
		{name: "local upper case", assets: AssetsConfig{Backend: " LOCAL ", Root: "/srv/audio"}},
		{name: "local without root", assets: AssetsConfig{Backend: "local"}, wantErr: true},
		{name: "gcs", assets: AssetsConfig{Backend: "gcs", Bucket: "kwezi-audio"}},
		{name: "gcs without bucket", assets: AssetsConfig{Backend: "gcs"}, wantErr: true},
		{name: "unknown", assets: AssetsConfig{Backend: "s3", Bucket: "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Assets = tt.assets
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
