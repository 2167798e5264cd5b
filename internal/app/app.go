package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/kwezi-backend/internal/adapter/assetfs"
	"github.com/heartmarshall/kwezi-backend/internal/adapter/assetfs/gcs"
	"github.com/heartmarshall/kwezi-backend/internal/adapter/postgres"
	"github.com/heartmarshall/kwezi-backend/internal/adapter/postgres/record"
	snapshotrepo "github.com/heartmarshall/kwezi-backend/internal/adapter/postgres/snapshot"
	"github.com/heartmarshall/kwezi-backend/internal/config"
	"github.com/heartmarshall/kwezi-backend/internal/service/reconcile"
	"github.com/heartmarshall/kwezi-backend/internal/service/snapshot"
)

// App holds the wired services shared by the command-line tools.
type App struct {
	Log       *slog.Logger
	Pool      *pgxpool.Pool
	Snapshots *snapshot.Service
	Reconcile *reconcile.Service
	// SnapshotRepo lists stored snapshots without decoding them.
	SnapshotRepo *snapshotrepo.Repo

	closers []func()
}

// Open connects to the database and the asset store and wires every service.
// name identifies the calling command in logs and database sessions. The
// caller must call Close.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, name string) (*App, error) {
	logger.Info("starting",
		slog.String("command", name),
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("assets_backend", cfg.Assets.Backend),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database, SessionName(name))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a := &App{Log: logger, Pool: pool, closers: []func(){pool.Close}}

	records := record.New(pool)
	blobs := snapshotrepo.New(pool)
	tx := postgres.NewTxManager(pool)

	a.SnapshotRepo = blobs
	a.Snapshots = snapshot.NewService(logger, records, blobs, tx)

	assets, err := a.openAssets(ctx, cfg.Assets)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Reconcile, err = reconcile.NewService(logger, records, assets, a.Snapshots, tx, cfg.Reconcile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("reconcile service: %w", err)
	}
	return a, nil
}

type assetStore interface {
	ListFiles(ctx context.Context, category string) ([]string, error)
	ReadFile(ctx context.Context, category, filename string) ([]byte, error)
	CopyFile(ctx context.Context, srcCategory, filename, dstCategory string) error
}

func (a *App) openAssets(ctx context.Context, cfg config.AssetsConfig) (assetStore, error) {
	switch cfg.Backend {
	case config.AssetBackendGCS:
		b, err := gcs.New(ctx, gcs.Options{
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("open asset bucket: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := b.Close(); err != nil {
				a.Log.Warn("close asset bucket", slog.String("error", err.Error()))
			}
		})
		return b, nil
	default:
		return assetfs.New(cfg.Root), nil
	}
}

// Close releases every resource opened by Open, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
