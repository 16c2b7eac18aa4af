package answer

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shoptalk/shoptalk/internal/llm"
	"github.com/shoptalk/shoptalk/internal/observability"
	"github.com/shoptalk/shoptalk/internal/query"
)

const previewRowLimit = 10

const formatSystemPrompt = `You are a helpful customer service assistant for an e-commerce company. You turn SQL query results into a clear, friendly answer for a customer service agent.

Instructions:
- Write a natural, conversational response.
- Use customer names instead of ids; NEVER show raw ids unless specifically asked.
- Show order dates in a readable format (e.g. "July 18th, 2025") and amounts with a currency symbol.
- Use bullet points or lists for multiple items and group related information together.
- If no results were found, explain this clearly.
- Use a friendly, professional tone and keep the response concise but informative.`

type Request struct {
	Question string
	SQL      string
	Result   query.Result
}

type Answer struct {
	Text        string
	Fallback    bool
	Suggestions []string
}

// Formatter produces the final natural language answer. A nil or failing
// completer degrades to the deterministic fallback; fetched rows are never
// discarded over a formatting problem.
type Formatter struct {
	completer llm.Completer
}

func NewFormatter(completer llm.Completer) *Formatter {
	return &Formatter{completer: completer}
}

func (f *Formatter) Format(ctx context.Context, req Request) Answer {
	suggestions := Suggest(req.Question, 3)
	preview := renderTable(req.Result.Columns, req.Result.Rows, previewRowLimit)

	if f.completer != nil {
		start := time.Now()
		resp, err := f.completer.Complete(ctx, llm.Request{
			System: formatSystemPrompt,
			User:   buildFormatPrompt(req, preview),
		})
		observability.ObserveLLMCall("format", time.Since(start), err)
		if err == nil {
			if text := strings.TrimSpace(resp.Text); text != "" {
				return Answer{Text: text, Suggestions: suggestions}
			}
		}
	}

	return Answer{Text: fallbackText(req.Result, preview), Fallback: true, Suggestions: suggestions}
}

func buildFormatPrompt(req Request, preview string) string {
	var b strings.Builder
	b.WriteString("ORIGINAL QUESTION:\n")
	b.WriteString(strings.TrimSpace(req.Question))
	b.WriteString("\n\nSQL QUERY USED:\n")
	b.WriteString(req.SQL)
	fmt.Fprintf(&b, "\n\nQUERY RESULTS (%d rows", req.Result.RowCount)
	if req.Result.Truncated {
		b.WriteString(", truncated")
	}
	b.WriteString("):\n")
	if req.Result.RowCount == 0 {
		b.WriteString("(no rows)\n")
	} else {
		b.WriteString(preview)
	}
	return b.String()
}

func fallbackText(result query.Result, preview string) string {
	if result.RowCount == 0 {
		return "The query returned no results."
	}

	var b strings.Builder
	if result.Truncated {
		fmt.Fprintf(&b, "The query returned the first %d rows (more are available).", result.RowCount)
	} else if result.RowCount == 1 {
		b.WriteString("The query returned 1 row.")
	} else {
		fmt.Fprintf(&b, "The query returned %d rows.", result.RowCount)
	}
	b.WriteString("\n\n")
	b.WriteString(preview)
	return strings.TrimRight(b.String(), "\n")
}

func renderTable(columns []string, rows [][]any, limit int) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))

	shown := rows
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, row := range shown {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = formatCell(value)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()

	if remaining := len(rows) - len(shown); remaining > 0 {
		fmt.Fprintf(&b, "... and %d more rows\n", remaining)
	}
	return b.String()
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", v)
	}
}
