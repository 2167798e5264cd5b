package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/kwezi-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// UniqueCategory returns a category name no other test uses, so tests
// sharing the container can filter on it.
func UniqueCategory(prefix string) string {
	return prefix + "-" + uniqueSuffix()
}

// SeedRecord inserts a dictionary record without assets.
// Returns the filled domain.DictionaryRecord.
func SeedRecord(t *testing.T, pool *pgxpool.Pool, headword, category, langA, langB string) domain.DictionaryRecord {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	rec := domain.DictionaryRecord{
		ID:           uuid.New(),
		Headword:     headword,
		Category:     category,
		Translations: map[domain.Language]string{domain.LangA: langA, domain.LangB: langB},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO dictionary_records
		   (id, headword, headword_normalized, category, translation_a, translation_b, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Headword, domain.Normalize(rec.Headword), rec.Category, langA, langB, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedRecord insert: %v", err)
	}

	return rec
}

// SeedRecordWithAsset inserts a record whose lang slot already references filename.
func SeedRecordWithAsset(t *testing.T, pool *pgxpool.Pool, headword, category, langA, langB string, lang domain.Language, filename string) domain.DictionaryRecord {
	t.Helper()

	rec := SeedRecord(t, pool, headword, category, langA, langB)
	ref := &domain.AssetRef{Filename: filename, Confidence: 1, MatchedAt: rec.CreatedAt}

	col := "a"
	if lang == domain.LangB {
		col = "b"
	}
	_, err := pool.Exec(context.Background(),
		`UPDATE dictionary_records
		    SET audio_`+col+`_filename = $2, audio_`+col+`_score = $3, audio_`+col+`_matched_at = $4
		  WHERE id = $1`,
		rec.ID, ref.Filename, ref.Confidence, ref.MatchedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedRecordWithAsset update: %v", err)
	}

	rec.SetAsset(lang, ref)
	return rec
}
