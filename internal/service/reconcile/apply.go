package reconcile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

// apply performs the writes of a reviewed run. Inherited files are copied
// first; the record update and the duplicate delete then share one
// transaction, so a short count rolls both back.
func (s *Service) apply(ctx context.Context, handle domain.SnapshotHandle, p *plan, rep *Report) error {
	var (
		kept []inheritance
		skip = make([]bool, len(rep.Inherited))
	)
	for _, in := range p.inherit {
		if in.needsCopy {
			err := s.assets.CopyFile(ctx, in.srcDir, in.ref.Filename, in.dstDir)
			switch {
			case err == nil:
				rep.Applied.Copied++
				rep.Inherited[in.reportIdx].Copied = true
			case errors.Is(err, domain.ErrAlreadyExists):
				// Appeared since listing; the canonical category has its own file.
				skip[in.reportIdx] = true
				continue
			case errors.Is(err, domain.ErrNotFound):
				rep.AssetErrors = append(rep.AssetErrors, AssetError{
					Category: in.srcDir,
					Filename: in.ref.Filename,
					Error:    err.Error(),
				})
				skip[in.reportIdx] = true
				continue
			default:
				return &domain.AssetIOError{Category: in.dstDir, Filename: in.ref.Filename, Err: err}
			}
		}
		kept = append(kept, in)
	}
	rep.Inherited = dropSkipped(rep.Inherited, skip)

	index := make(map[uuid.UUID]int, len(p.merged))
	for i, rec := range p.merged {
		index[rec.ID] = i
	}
	for _, in := range kept {
		ref := in.ref
		p.merged[index[in.target.id]].SetAsset(in.target.lang, &ref)
	}

	var changed []domain.DictionaryRecord
	for i := range p.merged {
		if !sameAssets(p.original[i], p.merged[i]) {
			changed = append(changed, p.merged[i])
		}
	}

	var updated, deleted int
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if len(changed) > 0 {
			n, err := s.records.BulkUpdate(ctx, changed)
			if err != nil {
				return asStorage("bulk update", err)
			}
			if n != len(changed) {
				return &domain.PartialWriteError{Op: "bulk update", Requested: len(changed), Modified: n, Handle: handle}
			}
			updated = n
		}
		if len(p.remove) > 0 {
			n, err := s.records.BulkDelete(ctx, p.remove)
			if err != nil {
				return asStorage("bulk delete", err)
			}
			if n != len(p.remove) {
				return &domain.PartialWriteError{Op: "bulk delete", Requested: len(p.remove), Modified: n, Handle: handle}
			}
			deleted = n
		}
		return nil
	})
	if err != nil {
		return err
	}

	rep.Applied.Updated = updated
	rep.Applied.Deleted = deleted
	s.log.InfoContext(ctx, "reconcile applied",
		slog.Int("updated", updated),
		slog.Int("deleted", deleted),
		slog.Int("copied", rep.Applied.Copied),
	)
	return nil
}

func dropSkipped(in []InheritedAsset, skip []bool) []InheritedAsset {
	out := make([]InheritedAsset, 0, len(in))
	for i, a := range in {
		if !skip[i] {
			out = append(out, a)
		}
	}
	return out
}
