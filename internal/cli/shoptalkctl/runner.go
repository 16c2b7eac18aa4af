package shoptalkctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	SessionID  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

type askResponse struct {
	Status      string   `json:"status"`
	Answer      string   `json:"answer"`
	SQL         string   `json:"sql"`
	Columns     []string `json:"columns"`
	Rows        [][]any  `json:"rows"`
	RowCount    int      `json:"row_count"`
	Truncated   bool     `json:"truncated"`
	Suggestions []string `json:"suggestions"`
	Attempts    int      `json:"attempts"`
	Message     string   `json:"message"`
	DurationMS  int64    `json:"duration_ms"`
	TraceID     string   `json:"trace_id"`
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("shoptalkctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "ShopTalk API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	session := fs.String("session", defaults.SessionID, "session ID sent with ask requests")
	limit := fs.Int("limit", 20, "number of history entries to fetch")
	jsonOut := fs.Bool("json", false, "print the raw JSON response")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 30s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	method := ""
	path := ""
	var payload []byte
	switch command {
	case "ask":
		question := strings.TrimSpace(strings.Join(fs.Args()[1:], " "))
		if question == "" {
			_, _ = fmt.Fprintln(stderr, `ask needs a question, e.g. shoptalkctl ask "top products by revenue"`)
			return 2
		}
		body, err := json.Marshal(askRequest{Question: question, SessionID: strings.TrimSpace(*session)})
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "encode request: %v\n", err)
			return 1
		}
		method, path, payload = http.MethodPost, "/v1/query", body
	case "health":
		method, path = http.MethodGet, "/v1/health"
	case "ready":
		method, path = http.MethodGet, "/v1/ready"
	case "stats":
		method, path = http.MethodGet, "/v1/stats"
	case "schema":
		method, path = http.MethodGet, "/v1/schema"
	case "schema-refresh":
		method, path = http.MethodPost, "/v1/schema/refresh"
	case "examples":
		method, path = http.MethodGet, "/v1/examples"
	case "history":
		method, path = http.MethodGet, "/v1/history?limit="+strconv.Itoa(*limit)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + path
	code, responseBody, err := doRequest(ctx, client, method, endpoint, *apiKey, payload)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if command == "ask" && !*jsonOut {
		return renderAsk(stdout, responseBody)
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

// renderAsk prints the answer the way a person wants to read it. Scripts
// should pass -json and parse the envelope instead.
func renderAsk(stdout io.Writer, raw []byte) int {
	var resp askResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		_, _ = fmt.Fprintln(stdout, string(raw))
		return 0
	}

	if resp.Status != "answered" {
		_, _ = fmt.Fprintln(stdout, firstNonEmpty(resp.Message, "the question could not be answered"))
		if len(resp.Suggestions) > 0 {
			_, _ = fmt.Fprintf(stdout, "try instead: %s\n", strings.Join(resp.Suggestions, " | "))
		}
		return 1
	}

	_, _ = fmt.Fprintln(stdout, resp.Answer)
	if resp.SQL != "" {
		_, _ = fmt.Fprintf(stdout, "\nsql: %s\n", resp.SQL)
	}
	if len(resp.Columns) > 0 && len(resp.Rows) > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		writeRowTable(stdout, resp.Columns, resp.Rows)
	}
	meta := fmt.Sprintf("%d rows in %dms", resp.RowCount, resp.DurationMS)
	if resp.Attempts > 1 {
		meta += fmt.Sprintf(" after %d attempts", resp.Attempts)
	}
	if resp.Truncated {
		meta += " (truncated)"
	}
	_, _ = fmt.Fprintf(stdout, "\n%s\n", meta)
	if len(resp.Suggestions) > 0 {
		_, _ = fmt.Fprintf(stdout, "try next: %s\n", strings.Join(resp.Suggestions, " | "))
	}
	return 0
}

func writeRowTable(w io.Writer, columns []string, rows [][]any) {
	widths := make([]int, len(columns))
	for i, name := range columns {
		widths[i] = len(name)
	}
	rendered := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, len(columns))
		for i := range columns {
			if i < len(row) {
				line[i] = formatCell(row[i])
			}
			if len(line[i]) > widths[i] {
				widths[i] = len(line[i])
			}
		}
		rendered = append(rendered, line)
	}

	writeLine := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = pad(cell, widths[i])
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
	writeLine(columns)
	separators := make([]string, len(columns))
	for i := range columns {
		separators[i] = strings.Repeat("-", widths[i])
	}
	writeLine(separators)
	for _, line := range rendered {
		writeLine(line)
	}
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func pad(value string, width int) string {
	if len(value) >= width {
		return value
	}
	return value + strings.Repeat(" ", width-len(value))
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: shoptalkctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, `  ask <question>   POST /v1/query and print the answer`)
	_, _ = fmt.Fprintln(w, "  health           GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready            GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  stats            GET /v1/stats")
	_, _ = fmt.Fprintln(w, "  schema           GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  schema-refresh   POST /v1/schema/refresh")
	_, _ = fmt.Fprintln(w, "  examples         GET /v1/examples")
	_, _ = fmt.Fprintln(w, "  history          GET /v1/history (-limit controls the page size)")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
