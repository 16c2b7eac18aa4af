package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/shoptalk/shoptalk/internal/history"
)

func TestRecordInsertsEntry(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO ask_history (question, sql_text, status, error_code, row_count, duration_ms, session_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING history_id, created_at`)).
		WithArgs("Show all orders for John Doe", "SELECT 1", "answered", "", 3, int64(250), "sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"history_id", "created_at"}).AddRow(int64(7), now))

	entry, err := repo.Record(context.Background(), history.RecordInput{
		Question:  "Show all orders for John Doe",
		SQL:       "SELECT 1",
		Status:    "answered",
		RowCount:  3,
		Duration:  250 * time.Millisecond,
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.ID != 7 {
		t.Fatalf("ID = %d", entry.ID)
	}
	if entry.DurationMS != 250 {
		t.Fatalf("DurationMS = %d", entry.DurationMS)
	}
	if !entry.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %v", entry.CreatedAt)
	}
	assertSQLMock(t, mock)
}

func TestRecentListsNewestFirst(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT history_id, question, sql_text, status, error_code, row_count, duration_ms, session_id, created_at
FROM ask_history
ORDER BY history_id DESC
LIMIT $1`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"history_id", "question", "sql_text", "status", "error_code", "row_count", "duration_ms", "session_id", "created_at"}).
			AddRow(int64(9), "q2", "SELECT 2", "rejected", "FORBIDDEN_OPERATION", 0, int64(10), "", now).
			AddRow(int64(8), "q1", "SELECT 1", "answered", "", 5, int64(120), "sess-1", now.Add(-time.Minute)))

	entries, err := repo.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entry count = %d", len(entries))
	}
	if entries[0].ID != 9 || entries[0].ErrorCode != "FORBIDDEN_OPERATION" {
		t.Fatalf("entries[0] = %#v", entries[0])
	}
	if entries[1].Status != "answered" || entries[1].RowCount != 5 {
		t.Fatalf("entries[1] = %#v", entries[1])
	}
	assertSQLMock(t, mock)
}

func TestRecentDefaultsLimit(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $1`)).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"history_id", "question", "sql_text", "status", "error_code", "row_count", "duration_ms", "session_id", "created_at"}))

	entries, err := repo.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entry count = %d", len(entries))
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
