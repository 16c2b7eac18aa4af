package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/shoptalk/shoptalk/internal/ask"
	"github.com/shoptalk/shoptalk/internal/auth"
	"github.com/shoptalk/shoptalk/internal/observability"
)

type queryRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	Status      string   `json:"status"`
	Answer      string   `json:"answer,omitempty"`
	SQL         string   `json:"sql,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	Rows        [][]any  `json:"rows,omitempty"`
	RowCount    int      `json:"row_count"`
	Truncated   bool     `json:"truncated,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Attempts    int      `json:"attempts,omitempty"`
	ErrorCode   string   `json:"error_code,omitempty"`
	Message     string   `json:"message,omitempty"`
	DurationMS  int64    `json:"duration_ms"`
	TraceID     string   `json:"trace_id"`
}

// handleQuery answers one natural language question. Rejected and failed
// outcomes are part of the contract, so they respond 200 with a status
// field rather than an HTTP error.
func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Ask == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask service is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}

	question := strings.TrimSpace(request.Question)
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}
	maxLength := deps.MaxQuestionLength
	if maxLength <= 0 {
		maxLength = 1000
	}
	if utf8.RuneCountInString(question) > maxLength {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_TOO_LONG", fmt.Sprintf("question must be at most %d characters", maxLength), false, nil)
		return
	}

	outcome, err := deps.Ask.Ask(r.Context(), ask.Request{
		Question:  question,
		SessionID: strings.TrimSpace(request.SessionID),
	})
	if err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "REQUEST_CANCELLED", "request was cancelled before completion", true, nil)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Status:      outcome.Status,
		Answer:      outcome.Answer,
		SQL:         outcome.SQL,
		Columns:     outcome.Columns,
		Rows:        outcome.Rows,
		RowCount:    outcome.RowCount,
		Truncated:   outcome.Truncated,
		Suggestions: outcome.Suggestions,
		Attempts:    outcome.Attempts,
		ErrorCode:   outcome.ErrorCode,
		Message:     outcome.ErrorMessage,
		DurationMS:  outcome.Duration.Milliseconds(),
		TraceID:     observability.TraceIDFromContext(r.Context()),
	})
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}
