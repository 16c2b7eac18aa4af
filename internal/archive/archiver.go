package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shoptalk/shoptalk/internal/observability"
	"github.com/shoptalk/shoptalk/internal/storage"
)

// Record is one answered question with its result set.
type Record struct {
	Question string
	SQL      string
	Columns  []string
	Rows     [][]any
	TraceID  string
	AskedAt  time.Time
}

// Archiver writes answered result sets to the object store in the
// background. Failures are logged and counted, never surfaced to the
// caller; the answer has already been delivered by then.
type Archiver struct {
	Store   storage.ObjectStore
	Timeout time.Duration
	Logger  *slog.Logger

	sequence atomic.Int64
}

func (a *Archiver) Submit(rec Record) {
	if a == nil || a.Store == nil {
		return
	}
	if len(rec.Rows) == 0 {
		return
	}
	go a.archive(rec)
}

func (a *Archiver) archive(rec Record) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := a.write(ctx, rec)
	observability.ObserveArchiveWrite(err)
	if err != nil && a.Logger != nil {
		a.Logger.Warn("answer archive write failed", slog.Any("error", err))
	}
}

func (a *Archiver) write(ctx context.Context, rec Record) error {
	encoded, err := EncodeAnswer(rec)
	if err != nil {
		return fmt.Errorf("encode answer to parquet: %w", err)
	}

	askedAt := rec.AskedAt
	if askedAt.IsZero() {
		askedAt = time.Now().UTC()
	}
	key, err := storage.BuildAnswerFilePath(sanitizeTraceID(rec.TraceID), askedAt, a.sequence.Add(1))
	if err != nil {
		return fmt.Errorf("build answer file path: %w", err)
	}

	if _, err := a.Store.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		return fmt.Errorf("put answer object: %w", err)
	}
	return nil
}

var traceCharPattern = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeTraceID keeps client-supplied trace headers from breaking the
// object key.
func sanitizeTraceID(traceID string) string {
	cleaned := traceCharPattern.ReplaceAllString(strings.TrimSpace(traceID), "")
	cleaned = strings.TrimLeft(cleaned, "._-")
	if len(cleaned) > 64 {
		cleaned = cleaned[:64]
	}
	if cleaned == "" {
		return "untraced"
	}
	return cleaned
}
