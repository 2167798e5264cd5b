package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/kwezi-backend/internal/config"
)

// requiredTables must exist before a run may start. A missing table means
// migrations were not applied.
var requiredTables = []string{"dictionary_records", "record_snapshots"}

// NewPool opens the record store pool. Connections are tagged with
// application_name so a long reconcile or restore is visible in
// pg_stat_activity. The pool is returned only once the server answers and
// the schema is in place.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, appName string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = min(cfg.MinConns, cfg.MaxConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	if appName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = appName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := CheckSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// CheckSchema reports an error unless every table the engine writes to
// exists in the current schema.
func CheckSchema(ctx context.Context, db Querier) error {
	var found int
	err := db.QueryRow(ctx,
		`SELECT count(*) FROM information_schema.tables
		 WHERE table_schema = current_schema() AND table_name = ANY($1)`,
		requiredTables,
	).Scan(&found)
	if err != nil {
		return fmt.Errorf("check schema: %w", err)
	}
	if found != len(requiredTables) {
		return fmt.Errorf("check schema: found %d of %d tables %v, apply migrations first",
			found, len(requiredTables), requiredTables)
	}
	return nil
}
