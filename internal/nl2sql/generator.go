package nl2sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shoptalk/shoptalk/internal/llm"
	"github.com/shoptalk/shoptalk/internal/observability"
)

const systemPromptTemplate = `You are an expert PostgreSQL database analyst for an e-commerce company. You convert natural language questions into a single PostgreSQL SELECT query.

Rules:
- Use ONLY SELECT statements. Never INSERT, UPDATE, DELETE, DROP, ALTER or TRUNCATE.
- ALWAYS use JOINs to include descriptive information instead of raw ids: join orders with customers for customer names, join reviews with customers and products, join support tickets with customers.
- Select columns that are meaningful to users; avoid raw ids unless asked.
- Add a LIMIT clause (max %d) to queries that might return many rows.
- Use table and column names exactly as shown in the schema.
- Use PostgreSQL date functions for date comparisons.
- Return ONLY the raw SQL query. No markdown, no comments, no explanation.

Examples:
Question: "Show all orders for John Doe"
SQL: SELECT o.order_date, o.status, o.total_amount, c.name, c.email FROM orders o JOIN customers c ON o.customer_id = c.customer_id WHERE c.name = 'John Doe'

Question: "Show product reviews"
SQL: SELECT c.name AS reviewer, p.name AS product_name, r.rating, r.comment, r.created_at FROM reviews r JOIN customers c ON r.customer_id = c.customer_id JOIN products p ON r.product_id = p.product_id ORDER BY r.created_at DESC LIMIT 100`

// CompleterGenerator turns questions into candidate SQL through a single
// chat completion.
type CompleterGenerator struct {
	completer llm.Completer
	maxRows   int
}

func NewCompleterGenerator(completer llm.Completer, maxRows int) *CompleterGenerator {
	if maxRows <= 0 {
		maxRows = 100
	}
	return &CompleterGenerator{completer: completer, maxRows: maxRows}
}

func (g *CompleterGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	resp, err := g.completer.Complete(ctx, llm.Request{
		System: fmt.Sprintf(systemPromptTemplate, g.maxRows),
		User:   buildUserPrompt(req),
	})
	observability.ObserveLLMCall("generate", time.Since(start), err)
	if err != nil {
		return Result{}, &GenerationError{Err: err}
	}

	sqlText := stripTrailingSemicolons(stripMarkdownSQL(resp.Text))
	if sqlText == "" {
		return Result{}, &GenerationError{Err: fmt.Errorf("model returned empty SQL")}
	}
	return Result{SQL: sqlText, Model: resp.Model}, nil
}

func buildUserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("DATABASE SCHEMA:\n")
	b.WriteString(req.Schema.Render())
	b.WriteString("\nUSER QUESTION:\n")
	b.WriteString(strings.TrimSpace(req.Question))
	if feedback := strings.TrimSpace(req.Feedback); feedback != "" {
		b.WriteString("\n\nYOUR PREVIOUS ATTEMPT FAILED:\n")
		b.WriteString(feedback)
		b.WriteString("\nGenerate a corrected query.")
	}
	return b.String()
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
