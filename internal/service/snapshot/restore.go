package snapshot

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

// Restore replaces the live record set with the snapshot's contents in a
// single transaction: records absent from the snapshot are deleted, every
// snapshot record is upserted. Restoring the same handle twice yields the
// same end state.
func (s *Service) Restore(ctx context.Context, handle domain.SnapshotHandle) error {
	snap, err := s.Load(ctx, handle)
	if err != nil {
		return err
	}

	keep := make(map[uuid.UUID]struct{}, len(snap.Records))
	for _, r := range snap.Records {
		keep[r.ID] = struct{}{}
	}

	var deleted, upserted int
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.records.ListRecords(ctx, domain.RecordFilter{})
		if err != nil {
			return domain.NewStorageError("restore list records", err)
		}

		var stale []uuid.UUID
		for _, r := range current {
			if _, ok := keep[r.ID]; !ok {
				stale = append(stale, r.ID)
			}
		}

		if len(stale) > 0 {
			deleted, err = s.records.BulkDelete(ctx, stale)
			if err != nil {
				return domain.NewStorageError("restore delete", err)
			}
			if deleted != len(stale) {
				return &domain.PartialWriteError{Op: "restore delete", Requested: len(stale), Modified: deleted, Handle: handle}
			}
		}

		if len(snap.Records) > 0 {
			upserted, err = s.records.Upsert(ctx, snap.Records)
			if err != nil {
				return domain.NewStorageError("restore upsert", err)
			}
			if upserted != len(snap.Records) {
				return &domain.PartialWriteError{Op: "restore upsert", Requested: len(snap.Records), Modified: upserted, Handle: handle}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "snapshot restored",
		slog.String("handle", handle.String()),
		slog.Int("deleted", deleted),
		slog.Int("upserted", upserted),
	)
	return nil
}
