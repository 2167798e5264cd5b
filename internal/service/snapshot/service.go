// Package snapshot captures and restores full copies of the dictionary.
// Every bulk mutation is preceded by a capture so that the run can be
// rolled back from its handle.
package snapshot

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type recordStore interface {
	ListRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.DictionaryRecord, error)
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int, error)
	Upsert(ctx context.Context, records []domain.DictionaryRecord) (int, error)
}

type blobStore interface {
	InsertSnapshot(ctx context.Context, blob domain.SnapshotBlob) (domain.SnapshotHandle, error)
	ReadSnapshot(ctx context.Context, handle domain.SnapshotHandle) (domain.SnapshotBlob, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service implements snapshot capture and restore.
type Service struct {
	log     *slog.Logger
	records recordStore
	blobs   blobStore
	tx      txManager
	now     func() time.Time
}

// NewService creates a new snapshot service.
func NewService(logger *slog.Logger, records recordStore, blobs blobStore, tx txManager) *Service {
	return &Service{
		log:     logger.With("service", "snapshot"),
		records: records,
		blobs:   blobs,
		tx:      tx,
		now:     func() time.Time { return time.Now().UTC() },
	}
}
