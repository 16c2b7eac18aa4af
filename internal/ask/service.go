package ask

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shoptalk/shoptalk/internal/answer"
	"github.com/shoptalk/shoptalk/internal/archive"
	"github.com/shoptalk/shoptalk/internal/history"
	"github.com/shoptalk/shoptalk/internal/nl2sql"
	"github.com/shoptalk/shoptalk/internal/observability"
	"github.com/shoptalk/shoptalk/internal/query"
	"github.com/shoptalk/shoptalk/internal/schema"
	"github.com/shoptalk/shoptalk/internal/sqlguard"
)

const (
	StatusAnswered = "answered"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

const (
	codeGenerationFailed = "GENERATION_FAILED"
	codeExecutionFailed  = "EXECUTION_FAILED"
	codeExecutionTimeout = "EXECUTION_TIMEOUT"
)

type Request struct {
	Question  string
	SessionID string
}

type Outcome struct {
	Status       string
	Answer       string
	SQL          string
	Columns      []string
	Rows         [][]any
	RowCount     int
	Truncated    bool
	Suggestions  []string
	Attempts     int
	Duration     time.Duration
	ErrorCode    string
	ErrorMessage string
}

type SchemaSource interface {
	Current() schema.Context
}

type Archiver interface {
	Submit(rec archive.Record)
}

type Config struct {
	MaxAttempts  int
	MaxRows      int
	QueryTimeout time.Duration
}

type Dependencies struct {
	Generator nl2sql.Generator
	Schema    SchemaSource
	Engine    query.Engine
	Formatter *answer.Formatter
	History   history.Repository
	Archiver  Archiver
	Logger    *slog.Logger
}

// Service sequences generate, validate, execute and format for one question.
// Generation failures are retried with feedback; validator rejections and
// executor errors are terminal for the request.
type Service struct {
	cfg    Config
	policy sqlguard.Policy
	deps   Dependencies

	startedAt time.Time

	mu          sync.Mutex
	total       int64
	answered    int64
	rejected    int64
	failed      int64
	durationSum time.Duration
	lastQueryAt time.Time
}

func NewService(cfg Config, policy sqlguard.Policy, deps Dependencies) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 100
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	if deps.Formatter == nil {
		deps.Formatter = answer.NewFormatter(nil)
	}
	return &Service{
		cfg:       cfg,
		policy:    policy,
		deps:      deps,
		startedAt: time.Now().UTC(),
	}
}

// Ask runs the full pipeline. The returned error is non-nil only when the
// caller's context was cancelled; every other failure is an Outcome.
func (s *Service) Ask(ctx context.Context, req Request) (Outcome, error) {
	start := time.Now()
	schemaCtx := s.deps.Schema.Current()

	genResult, attempts, genErr := s.generate(ctx, req.Question, schemaCtx)
	if genErr != nil {
		outcome := Outcome{
			Status:       StatusFailed,
			Attempts:     attempts,
			ErrorCode:    codeGenerationFailed,
			ErrorMessage: "could not generate a query for that question",
		}
		if s.deps.Logger != nil {
			s.deps.Logger.ErrorContext(ctx, "sql generation failed",
				slog.Int("attempts", attempts),
				slog.Any("error", genErr))
		}
		return s.finish(ctx, req, outcome, start), ctx.Err()
	}

	verdict, err := sqlguard.ValidateAgainstSchema(s.policy, genResult.SQL, schemaCtx.TableNames())
	if err != nil {
		var rej *sqlguard.Rejection
		if !errors.As(err, &rej) {
			rej = &sqlguard.Rejection{Code: sqlguard.CodeOperationNotAllowed, Detail: "statement was not accepted"}
		}
		observability.ObserveValidationRejection(string(rej.Code))
		if s.deps.Logger != nil {
			s.deps.Logger.WarnContext(ctx, "candidate sql rejected",
				slog.String("code", string(rej.Code)),
				slog.String("detail", rej.Detail))
		}
		outcome := Outcome{
			Status:       StatusRejected,
			SQL:          genResult.SQL,
			Attempts:     attempts,
			ErrorCode:    string(rej.Code),
			ErrorMessage: rej.Detail,
		}
		return s.finish(ctx, req, outcome, start), nil
	}
	if len(verdict.Warnings) > 0 && s.deps.Logger != nil {
		s.deps.Logger.InfoContext(ctx, "schema warnings on accepted sql", slog.Any("warnings", verdict.Warnings))
	}

	result, err := s.deps.Engine.Execute(ctx, query.Request{
		SQL:     verdict.SQL,
		MaxRows: s.cfg.MaxRows,
		Timeout: s.cfg.QueryTimeout,
	})
	if err != nil {
		code, message := codeExecutionFailed, "could not run that query"
		var execErr *query.ExecutionError
		if errors.As(err, &execErr) && execErr.Timeout {
			code, message = codeExecutionTimeout, "the query took too long to run"
		}
		if s.deps.Logger != nil {
			s.deps.Logger.ErrorContext(ctx, "query execution failed",
				slog.String("sql", verdict.SQL),
				slog.Any("error", err))
		}
		outcome := Outcome{
			Status:       StatusFailed,
			SQL:          verdict.SQL,
			Attempts:     attempts,
			ErrorCode:    code,
			ErrorMessage: message,
		}
		return s.finish(ctx, req, outcome, start), ctx.Err()
	}

	formatted := s.deps.Formatter.Format(ctx, answer.Request{
		Question: req.Question,
		SQL:      verdict.SQL,
		Result:   result,
	})

	outcome := Outcome{
		Status:      StatusAnswered,
		Answer:      formatted.Text,
		SQL:         verdict.SQL,
		Columns:     result.Columns,
		Rows:        result.Rows,
		RowCount:    result.RowCount,
		Truncated:   result.Truncated,
		Suggestions: formatted.Suggestions,
		Attempts:    attempts,
	}

	if s.deps.Archiver != nil {
		s.deps.Archiver.Submit(archive.Record{
			Question: req.Question,
			SQL:      verdict.SQL,
			Columns:  result.Columns,
			Rows:     result.Rows,
			TraceID:  observability.TraceIDFromContext(ctx),
			AskedAt:  time.Now().UTC(),
		})
	}

	return s.finish(ctx, req, outcome, start), nil
}

func (s *Service) generate(ctx context.Context, question string, schemaCtx schema.Context) (nl2sql.Result, int, error) {
	feedback := ""
	attempts := 0
	for {
		attempts++
		result, err := s.deps.Generator.Generate(ctx, nl2sql.Request{
			Question: question,
			Schema:   schemaCtx,
			Feedback: feedback,
		})
		if err == nil {
			return result, attempts, nil
		}
		if ctx.Err() != nil || attempts >= s.cfg.MaxAttempts {
			return nl2sql.Result{}, attempts, err
		}
		feedback = err.Error()
		if s.deps.Logger != nil {
			s.deps.Logger.WarnContext(ctx, "sql generation attempt failed",
				slog.Int("attempt", attempts),
				slog.Any("error", err))
		}
	}
}

func (s *Service) finish(ctx context.Context, req Request, outcome Outcome, start time.Time) Outcome {
	outcome.Duration = time.Since(start)
	if outcome.Suggestions == nil {
		outcome.Suggestions = answer.Suggest(req.Question, 3)
	}

	s.mu.Lock()
	s.total++
	switch outcome.Status {
	case StatusAnswered:
		s.answered++
	case StatusRejected:
		s.rejected++
	case StatusFailed:
		s.failed++
	}
	s.durationSum += outcome.Duration
	s.lastQueryAt = time.Now().UTC()
	s.mu.Unlock()

	observability.ObserveAsk(outcome.Status, outcome.Attempts, outcome.Duration)
	s.recordHistory(req, outcome)
	return outcome
}

func (s *Service) recordHistory(req Request, outcome Outcome) {
	if s.deps.History == nil {
		return
	}
	in := history.RecordInput{
		Question:  req.Question,
		SQL:       outcome.SQL,
		Status:    outcome.Status,
		ErrorCode: outcome.ErrorCode,
		RowCount:  outcome.RowCount,
		Duration:  outcome.Duration,
		SessionID: req.SessionID,
	}
	go func() {
		recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.deps.History.Record(recordCtx, in); err != nil && s.deps.Logger != nil {
			s.deps.Logger.Warn("history record failed", slog.Any("error", err))
		}
	}()
}

type Stats struct {
	UptimeSeconds     float64   `json:"uptime_seconds"`
	TotalQueries      int64     `json:"total_queries"`
	AnsweredQueries   int64     `json:"answered_queries"`
	RejectedQueries   int64     `json:"rejected_queries"`
	FailedQueries     int64     `json:"failed_queries"`
	SuccessRate       float64   `json:"success_rate"`
	AverageDurationMS float64   `json:"average_duration_ms"`
	QueriesPerMinute  float64   `json:"queries_per_minute"`
	LastQueryAt       time.Time `json:"last_query_at"`
}

func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	uptime := time.Since(s.startedAt)
	stats := Stats{
		UptimeSeconds:   uptime.Seconds(),
		TotalQueries:    s.total,
		AnsweredQueries: s.answered,
		RejectedQueries: s.rejected,
		FailedQueries:   s.failed,
		LastQueryAt:     s.lastQueryAt,
	}
	if s.total > 0 {
		stats.SuccessRate = float64(s.answered) / float64(s.total)
		stats.AverageDurationMS = float64(s.durationSum.Milliseconds()) / float64(s.total)
	}
	if minutes := uptime.Minutes(); minutes > 0 {
		stats.QueriesPerMinute = float64(s.total) / minutes
	}
	return stats
}
