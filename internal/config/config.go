package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Assets    AssetsConfig    `yaml:"assets"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// ReconcileConfig holds reconciliation run settings.
type ReconcileConfig struct {
	MinScore   float64       `yaml:"min_score"   env:"RECONCILE_MIN_SCORE"   env-default:"0.8"`
	Workers    int           `yaml:"workers"     env:"RECONCILE_WORKERS"     env-default:"4"`
	PolicyPath string        `yaml:"policy_path" env:"RECONCILE_POLICY_PATH"`
	DryRun     bool          `yaml:"dry_run"     env:"RECONCILE_DRY_RUN"     env-default:"false"`
	Reason     string        `yaml:"reason"      env:"RECONCILE_REASON"      env-default:"reconcile"`
	Timeout    time.Duration `yaml:"timeout"     env:"RECONCILE_TIMEOUT"     env-default:"30m"`
}

// Asset storage backends.
const (
	AssetBackendLocal = "local"
	AssetBackendGCS   = "gcs"
)

// AssetsConfig selects where audio files live. Category directories sit
// directly under Root (local) or Prefix (gcs).
type AssetsConfig struct {
	Backend         string `yaml:"backend"          env:"ASSETS_BACKEND"          env-default:"local"`
	Root            string `yaml:"root"             env:"ASSETS_ROOT"             env-default:"./assets"`
	Bucket          string `yaml:"bucket"           env:"ASSETS_BUCKET"`
	Prefix          string `yaml:"prefix"           env:"ASSETS_PREFIX"`
	CredentialsFile string `yaml:"credentials_file" env:"ASSETS_CREDENTIALS_FILE"`
}
