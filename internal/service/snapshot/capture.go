package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

// Capture stores a copy of every record and returns its handle. The blob is
// read back and checked before the handle is handed out, so a returned
// handle is always restorable. Every failure is a *domain.StorageError.
func (s *Service) Capture(ctx context.Context, reason string) (domain.SnapshotHandle, error) {
	records, err := s.records.ListRecords(ctx, domain.RecordFilter{})
	if err != nil {
		return domain.NilSnapshot, domain.NewStorageError("snapshot list records", err)
	}

	snap := domain.Snapshot{
		Handle:  domain.SnapshotHandle(uuid.New()),
		TakenAt: s.now(),
		Reason:  reason,
		Records: records,
	}
	payload, sum, err := encode(snap)
	if err != nil {
		return domain.NilSnapshot, domain.NewStorageError("snapshot encode", err)
	}

	handle, err := s.blobs.InsertSnapshot(ctx, domain.SnapshotBlob{
		Handle:      snap.Handle,
		Reason:      reason,
		TakenAt:     snap.TakenAt,
		RecordCount: len(records),
		Checksum:    sum,
		Payload:     payload,
	})
	if err != nil {
		return domain.NilSnapshot, domain.NewStorageError("snapshot insert", err)
	}

	stored, err := s.blobs.ReadSnapshot(ctx, handle)
	if err != nil {
		return domain.NilSnapshot, domain.NewStorageError("snapshot verify", err)
	}
	if stored.Checksum != sum || checksum(stored.Payload) != sum {
		return domain.NilSnapshot, domain.NewStorageError("snapshot verify",
			fmt.Errorf("%w for %s", errChecksumMismatch, handle))
	}

	s.log.InfoContext(ctx, "snapshot captured",
		slog.String("handle", handle.String()),
		slog.String("reason", reason),
		slog.Int("records", len(records)),
		slog.Int("bytes", len(payload)),
	)
	return handle, nil
}

// Load decodes a snapshot without touching the live records.
func (s *Service) Load(ctx context.Context, handle domain.SnapshotHandle) (*domain.Snapshot, error) {
	if handle.IsNil() {
		return nil, domain.NewValidationError("snapshot", "handle is required")
	}

	blob, err := s.blobs.ReadSnapshot(ctx, handle)
	if err != nil {
		return nil, domain.NewStorageError("snapshot read", err)
	}
	snap, err := decode(blob)
	if err != nil {
		return nil, domain.NewStorageError("snapshot decode", err)
	}
	return snap, nil
}
