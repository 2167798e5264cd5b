// Package reconcile runs one reconciliation pass over the dictionary:
// snapshot, duplicate collapse, per-category asset matching, review report
// and the final bulk write.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/kwezi-backend/internal/config"
	"github.com/heartmarshall/kwezi-backend/internal/domain"
	"github.com/heartmarshall/kwezi-backend/internal/service/reconcile/assetmatch"
	"github.com/heartmarshall/kwezi-backend/internal/service/reconcile/dedup"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type recordRepo interface {
	ListRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.DictionaryRecord, error)
	BulkUpdate(ctx context.Context, records []domain.DictionaryRecord) (int, error)
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int, error)
}

type assetStore interface {
	ListFiles(ctx context.Context, category string) ([]string, error)
	ReadFile(ctx context.Context, category, filename string) ([]byte, error)
	CopyFile(ctx context.Context, srcCategory, filename, dstCategory string) error
}

type snapshotter interface {
	Capture(ctx context.Context, reason string) (domain.SnapshotHandle, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service orchestrates reconciliation runs. One Service may execute many
// runs; runs share no mutable state.
type Service struct {
	log       *slog.Logger
	records   recordRepo
	assets    assetStore
	snapshots snapshotter
	tx        txManager
	resolver  *dedup.Resolver
	matcher   *assetmatch.Matcher
	cfg       config.ReconcileConfig
	now       func() time.Time
}

// NewService creates a reconciliation service. The duplicate policy is read
// from cfg.PolicyPath when set, the embedded default policy otherwise.
func NewService(
	logger *slog.Logger,
	records recordRepo,
	assets assetStore,
	snapshots snapshotter,
	tx txManager,
	cfg config.ReconcileConfig,
) (*Service, error) {
	policy := dedup.DefaultPolicy()
	if cfg.PolicyPath != "" {
		p, err := dedup.LoadPolicy(cfg.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("load policy: %w", err)
		}
		policy = p
	}

	resolver, err := dedup.NewResolver(policy)
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	matcher, err := assetmatch.New(cfg.MinScore)
	if err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Reason == "" {
		cfg.Reason = defaultReason
	}

	return &Service{
		log:       logger.With("service", "reconcile"),
		records:   records,
		assets:    assets,
		snapshots: snapshots,
		tx:        tx,
		resolver:  resolver,
		matcher:   matcher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// PolicyVersion returns the version of the duplicate policy in use.
func (s *Service) PolicyVersion() string { return s.resolver.PolicyVersion() }
