package config

import (
	"fmt"
	"strings"
)

// minScoreFloor mirrors the matcher's lower bound; below it short unrelated
// words start to pair up.
const minScoreFloor = 0.80

// maxWorkers caps per-category matching goroutines.
const maxWorkers = 64

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Reconcile.validate(); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	if err := c.Assets.validate(); err != nil {
		return fmt.Errorf("assets: %w", err)
	}

	return nil
}

func (r *ReconcileConfig) validate() error {
	if r.MinScore < minScoreFloor || r.MinScore > 1 {
		return fmt.Errorf("min_score must be within [%.2f, 1] (got %v)", minScoreFloor, r.MinScore)
	}
	if r.Workers < 1 || r.Workers > maxWorkers {
		return fmt.Errorf("workers must be within [1, %d] (got %d)", maxWorkers, r.Workers)
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", r.Timeout)
	}
	if strings.TrimSpace(r.Reason) == "" {
		r.Reason = "reconcile"
	}
	return nil
}

func (a *AssetsConfig) validate() error {
	a.Backend = strings.ToLower(strings.TrimSpace(a.Backend))
	switch a.Backend {
	case AssetBackendLocal:
		if a.Root == "" {
			return fmt.Errorf("root is required for the local backend")
		}
	case AssetBackendGCS:
		if a.Bucket == "" {
			return fmt.Errorf("bucket is required for the gcs backend")
		}
		a.Prefix = strings.Trim(a.Prefix, "/")
	default:
		return fmt.Errorf("backend must be %q or %q (got %q)", AssetBackendLocal, AssetBackendGCS, a.Backend)
	}
	return nil
}
