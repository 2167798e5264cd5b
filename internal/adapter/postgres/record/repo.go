// Package record implements the dictionary record repository using PostgreSQL.
package record

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/kwezi-backend/internal/adapter/postgres"
	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

const entity = "dictionary_record"

var columns = []string{
	"id", "headword", "category", "translation_a", "translation_b",
	"audio_a_filename", "audio_a_score", "audio_a_matched_at",
	"audio_b_filename", "audio_b_score", "audio_b_matched_at",
	"created_at", "updated_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repo provides dictionary record persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new record repository. db is normally a *pgxpool.Pool.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ListRecords returns records matching filter ordered by creation time.
// The zero filter returns the whole dictionary.
func (r *Repo) ListRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.DictionaryRecord, error) {
	query := psql.Select(columns...).From("dictionary_records")
	if len(filter.IDs) > 0 {
		query = query.Where("id = ANY(?)", filter.IDs)
	}
	if filter.Category != nil {
		query = query.Where(sq.Eq{"category": *filter.Category})
	}
	if filter.HeadwordNormalized != nil {
		query = query.Where(sq.Eq{"headword_normalized": *filter.HeadwordNormalized})
	}
	query = query.OrderBy("created_at", "id")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, entity, "list")
	}
	defer rows.Close()

	var out []domain.DictionaryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, postgres.MapError(err, entity, "list")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, entity, "list")
	}

	return out, nil
}

// BulkUpdate rewrites the content and asset columns of existing records by
// id. Returns the number of rows actually modified; ids that no longer exist
// are not counted.
func (r *Repo) BulkUpdate(ctx context.Context, records []domain.DictionaryRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		a, b := assetColumns(rec.Asset(domain.LangA)), assetColumns(rec.Asset(domain.LangB))
		batch.Queue(
			`UPDATE dictionary_records
			    SET headword = $2, headword_normalized = $3, category = $4,
			        translation_a = $5, translation_b = $6,
			        audio_a_filename = $7, audio_a_score = $8, audio_a_matched_at = $9,
			        audio_b_filename = $10, audio_b_score = $11, audio_b_matched_at = $12,
			        updated_at = now()
			  WHERE id = $1`,
			rec.ID, rec.Headword, domain.Normalize(rec.Headword), rec.Category,
			rec.Translation(domain.LangA), rec.Translation(domain.LangB),
			a.filename, a.score, a.matchedAt,
			b.filename, b.score, b.matchedAt,
		)
	}

	n, err := r.sendBatchExec(ctx, batch)
	if err != nil {
		return n, postgres.MapError(err, entity, "bulk_update")
	}
	return n, nil
}

// BulkDelete removes records by id and returns the number deleted.
func (r *Repo) BulkDelete(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx,
		`DELETE FROM dictionary_records WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, postgres.MapError(err, entity, "bulk_delete")
	}
	return int(tag.RowsAffected()), nil
}

// Upsert inserts records, overwriting any existing row with the same id.
// created_at is kept from the record when set. Returns the number of rows
// written.
func (r *Repo) Upsert(ctx context.Context, records []domain.DictionaryRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		a, b := assetColumns(rec.Asset(domain.LangA)), assetColumns(rec.Asset(domain.LangB))
		created := rec.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		batch.Queue(
			`INSERT INTO dictionary_records
			   (id, headword, headword_normalized, category, translation_a, translation_b,
			    audio_a_filename, audio_a_score, audio_a_matched_at,
			    audio_b_filename, audio_b_score, audio_b_matched_at,
			    created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
			 ON CONFLICT (id) DO UPDATE SET
			    headword = EXCLUDED.headword,
			    headword_normalized = EXCLUDED.headword_normalized,
			    category = EXCLUDED.category,
			    translation_a = EXCLUDED.translation_a,
			    translation_b = EXCLUDED.translation_b,
			    audio_a_filename = EXCLUDED.audio_a_filename,
			    audio_a_score = EXCLUDED.audio_a_score,
			    audio_a_matched_at = EXCLUDED.audio_a_matched_at,
			    audio_b_filename = EXCLUDED.audio_b_filename,
			    audio_b_score = EXCLUDED.audio_b_score,
			    audio_b_matched_at = EXCLUDED.audio_b_matched_at,
			    created_at = EXCLUDED.created_at,
			    updated_at = now()`,
			rec.ID, rec.Headword, domain.Normalize(rec.Headword), rec.Category,
			rec.Translation(domain.LangA), rec.Translation(domain.LangB),
			a.filename, a.score, a.matchedAt,
			b.filename, b.score, b.matchedAt,
			created,
		)
	}

	n, err := r.sendBatchExec(ctx, batch)
	if err != nil {
		return n, postgres.MapError(err, entity, "upsert")
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (r *Repo) sendBatchExec(ctx context.Context, batch *pgx.Batch) (int, error) {
	results := postgres.QuerierFromCtx(ctx, r.db).SendBatch(ctx, batch)
	defer results.Close()

	var affected int
	for range batch.Len() {
		tag, err := results.Exec()
		if err != nil {
			return affected, fmt.Errorf("batch exec: %w", err)
		}
		affected += int(tag.RowsAffected())
	}

	return affected, nil
}

type assetCols struct {
	filename  *string
	score     *float64
	matchedAt *time.Time
}

func assetColumns(ref *domain.AssetRef) assetCols {
	if ref == nil || ref.Filename == "" {
		return assetCols{}
	}
	matched := ref.MatchedAt
	if matched.IsZero() {
		matched = time.Now().UTC()
	}
	return assetCols{filename: &ref.Filename, score: &ref.Confidence, matchedAt: &matched}
}

func scanRecord(row pgx.Row) (domain.DictionaryRecord, error) {
	var (
		rec          domain.DictionaryRecord
		trA, trB     string
		aFile, bFile *string
		aScore       *float64
		bScore       *float64
		aAt, bAt     *time.Time
	)
	err := row.Scan(
		&rec.ID, &rec.Headword, &rec.Category, &trA, &trB,
		&aFile, &aScore, &aAt,
		&bFile, &bScore, &bAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return domain.DictionaryRecord{}, err
	}

	rec.Translations = map[domain.Language]string{domain.LangA: trA, domain.LangB: trB}
	rec.SetAsset(domain.LangA, toAssetRef(aFile, aScore, aAt))
	rec.SetAsset(domain.LangB, toAssetRef(bFile, bScore, bAt))
	return rec, nil
}

func toAssetRef(filename *string, score *float64, at *time.Time) *domain.AssetRef {
	if filename == nil || *filename == "" {
		return nil
	}
	ref := &domain.AssetRef{Filename: *filename}
	if score != nil {
		ref.Confidence = *score
	}
	if at != nil {
		ref.MatchedAt = at.UTC()
	}
	return ref
}
