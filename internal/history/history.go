package history

import (
	"context"
	"time"
)

type Entry struct {
	ID         int64     `json:"id"`
	Question   string    `json:"question"`
	SQL        string    `json:"sql,omitempty"`
	Status     string    `json:"status"`
	ErrorCode  string    `json:"error_code,omitempty"`
	RowCount   int       `json:"row_count"`
	DurationMS int64     `json:"duration_ms"`
	SessionID  string    `json:"session_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type RecordInput struct {
	Question  string
	SQL       string
	Status    string
	ErrorCode string
	RowCount  int
	Duration  time.Duration
	SessionID string
}

type Repository interface {
	Record(ctx context.Context, in RecordInput) (Entry, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
