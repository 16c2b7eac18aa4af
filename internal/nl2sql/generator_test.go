package nl2sql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shoptalk/shoptalk/internal/llm"
	"github.com/shoptalk/shoptalk/internal/schema"
)

func TestGeneratePassesSchemaAndQuestion(t *testing.T) {
	completer := &fakeCompleter{response: llm.Response{Text: "SELECT name FROM customers", Model: "m1"}}
	gen := NewCompleterGenerator(completer, 100)

	result, err := gen.Generate(context.Background(), Request{
		Question: "Who are our customers?",
		Schema: schema.Context{Tables: []schema.Table{{
			Name:    "customers",
			Columns: []schema.Column{{Name: "name", DataType: "text"}},
		}}},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.SQL != "SELECT name FROM customers" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.Model != "m1" {
		t.Fatalf("Model = %q", result.Model)
	}
	if !strings.Contains(completer.lastRequest.User, "TABLE customers") {
		t.Fatalf("user prompt missing schema:\n%s", completer.lastRequest.User)
	}
	if !strings.Contains(completer.lastRequest.User, "Who are our customers?") {
		t.Fatalf("user prompt missing question:\n%s", completer.lastRequest.User)
	}
	if !strings.Contains(completer.lastRequest.System, "SELECT") {
		t.Fatalf("system prompt = %q", completer.lastRequest.System)
	}
	if strings.Contains(completer.lastRequest.User, "PREVIOUS ATTEMPT") {
		t.Fatal("feedback block present without feedback")
	}
}

func TestGenerateIncludesFeedbackOnRetry(t *testing.T) {
	completer := &fakeCompleter{response: llm.Response{Text: "SELECT 1"}}
	gen := NewCompleterGenerator(completer, 100)

	_, err := gen.Generate(context.Background(), Request{
		Question: "q",
		Feedback: `forbidden keyword "DELETE"`,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(completer.lastRequest.User, "PREVIOUS ATTEMPT FAILED") {
		t.Fatalf("user prompt missing feedback block:\n%s", completer.lastRequest.User)
	}
	if !strings.Contains(completer.lastRequest.User, "DELETE") {
		t.Fatalf("user prompt missing feedback detail:\n%s", completer.lastRequest.User)
	}
}

func TestGenerateStripsMarkdownAndSemicolons(t *testing.T) {
	completer := &fakeCompleter{response: llm.Response{Text: "```sql\nSELECT 1;\n```"}}
	gen := NewCompleterGenerator(completer, 100)

	result, err := gen.Generate(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.SQL != "SELECT 1" {
		t.Fatalf("SQL = %q", result.SQL)
	}
}

func TestGenerateWrapsCompleterFailure(t *testing.T) {
	cause := errors.New("upstream down")
	completer := &fakeCompleter{err: cause}
	gen := NewCompleterGenerator(completer, 100)

	_, err := gen.Generate(context.Background(), Request{Question: "q"})
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error type = %T", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want wrapped %v", err, cause)
	}
}

func TestGenerateRejectsEmptyModelOutput(t *testing.T) {
	for _, text := range []string{"", "   ", "```sql\n\n```", ";;"} {
		completer := &fakeCompleter{response: llm.Response{Text: text}}
		gen := NewCompleterGenerator(completer, 100)
		_, err := gen.Generate(context.Background(), Request{Question: "q"})
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			t.Fatalf("Generate(%q) error type = %T", text, err)
		}
	}
}

func TestStripMarkdownSQL(t *testing.T) {
	got := stripMarkdownSQL("```sql\nSELECT 1;\n```")
	if got != "SELECT 1;" {
		t.Fatalf("stripMarkdownSQL() = %q", got)
	}
}

type fakeCompleter struct {
	response    llm.Response
	err         error
	lastRequest llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.lastRequest = req
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return f.response, nil
}
