// Package snapshot stores encoded record snapshots in PostgreSQL.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/kwezi-backend/internal/adapter/postgres"
	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

const entity = "record_snapshot"

// Repo provides snapshot blob persistence. Rows are write-once.
type Repo struct {
	db postgres.Querier
}

// New creates a new snapshot repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// InsertSnapshot writes a new blob and returns its handle.
func (r *Repo) InsertSnapshot(ctx context.Context, blob domain.SnapshotBlob) (domain.SnapshotHandle, error) {
	if blob.Handle.IsNil() {
		blob.Handle = domain.SnapshotHandle(uuid.New())
	}

	_, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx,
		`INSERT INTO record_snapshots (id, reason, taken_at, record_count, checksum, payload)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(blob.Handle), blob.Reason, blob.TakenAt.UTC(), blob.RecordCount, blob.Checksum, blob.Payload,
	)
	if err != nil {
		return domain.NilSnapshot, postgres.MapError(err, entity, blob.Handle.String())
	}
	return blob.Handle, nil
}

// ReadSnapshot loads a blob by handle. Returns domain.ErrNotFound for an
// unknown handle.
func (r *Repo) ReadSnapshot(ctx context.Context, handle domain.SnapshotHandle) (domain.SnapshotBlob, error) {
	var (
		blob domain.SnapshotBlob
		id   uuid.UUID
	)
	err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx,
		`SELECT id, reason, taken_at, record_count, checksum, payload
		   FROM record_snapshots WHERE id = $1`,
		uuid.UUID(handle),
	).Scan(&id, &blob.Reason, &blob.TakenAt, &blob.RecordCount, &blob.Checksum, &blob.Payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SnapshotBlob{}, fmt.Errorf("%s %s: %w", entity, handle, domain.ErrNotFound)
		}
		return domain.SnapshotBlob{}, postgres.MapError(err, entity, handle.String())
	}

	blob.Handle = domain.SnapshotHandle(id)
	blob.TakenAt = blob.TakenAt.UTC()
	return blob, nil
}

// ListSnapshots returns the most recent snapshots newest first. Payloads are
// not loaded.
func (r *Repo) ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotBlob, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx,
		`SELECT id, reason, taken_at, record_count, checksum
		   FROM record_snapshots ORDER BY taken_at DESC, id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, postgres.MapError(err, entity, "list")
	}
	defer rows.Close()

	var out []domain.SnapshotBlob
	for rows.Next() {
		var (
			blob domain.SnapshotBlob
			id   uuid.UUID
		)
		if err := rows.Scan(&id, &blob.Reason, &blob.TakenAt, &blob.RecordCount, &blob.Checksum); err != nil {
			return nil, postgres.MapError(err, entity, "list")
		}
		blob.Handle = domain.SnapshotHandle(id)
		blob.TakenAt = blob.TakenAt.UTC()
		out = append(out, blob)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, entity, "list")
	}
	return out, nil
}
