package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shoptalk/shoptalk/internal/history"
)

const defaultRecentLimit = 20

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, in history.RecordInput) (history.Entry, error) {
	query := `
INSERT INTO ask_history (question, sql_text, status, error_code, row_count, duration_ms, session_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING history_id, created_at`

	entry := history.Entry{
		Question:   in.Question,
		SQL:        in.SQL,
		Status:     in.Status,
		ErrorCode:  in.ErrorCode,
		RowCount:   in.RowCount,
		DurationMS: in.Duration.Milliseconds(),
		SessionID:  in.SessionID,
	}
	if err := r.db.QueryRowContext(ctx, query,
		in.Question,
		in.SQL,
		in.Status,
		in.ErrorCode,
		in.RowCount,
		in.Duration.Milliseconds(),
		in.SessionID,
	).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return history.Entry{}, fmt.Errorf("record history entry: %w", err)
	}
	return entry, nil
}

func (r *Repository) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	query := `
SELECT history_id, question, sql_text, status, error_code, row_count, duration_ms, session_id, created_at
FROM ask_history
ORDER BY history_id DESC
LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]history.Entry, 0, limit)
	for rows.Next() {
		var entry history.Entry
		var createdAt time.Time
		if err := rows.Scan(
			&entry.ID,
			&entry.Question,
			&entry.SQL,
			&entry.Status,
			&entry.ErrorCode,
			&entry.RowCount,
			&entry.DurationMS,
			&entry.SessionID,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entry.CreatedAt = createdAt
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
