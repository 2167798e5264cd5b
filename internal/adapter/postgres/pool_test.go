package postgres_test

import (
	"context"
	"strings"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/heartmarshall/kwezi-backend/internal/adapter/postgres"
	"github.com/heartmarshall/kwezi-backend/internal/adapter/postgres/testhelper"
)

const schemaQuery = `SELECT count\(\*\) FROM information_schema.tables`

func TestCheckSchema_Mock_AllTablesPresent(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	mock.ExpectQuery(schemaQuery).
		WithArgs([]string{"dictionary_records", "record_snapshots"}).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	if err := postgres.CheckSchema(context.Background(), mock); err != nil {
		t.Fatalf("CheckSchema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCheckSchema_Mock_MissingTable(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	mock.ExpectQuery(schemaQuery).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	err := postgres.CheckSchema(context.Background(), mock)
	if err == nil {
		t.Fatal("expected error for a missing table")
	}
	if !strings.Contains(err.Error(), "apply migrations") {
		t.Errorf("err = %v, want a hint to apply migrations", err)
	}
}

func TestCheckSchema_MigratedDatabase(t *testing.T) {
	pool := testhelper.SetupTestDB(t)

	if err := postgres.CheckSchema(context.Background(), pool); err != nil {
		t.Fatalf("CheckSchema on migrated database: %v", err)
	}
}
