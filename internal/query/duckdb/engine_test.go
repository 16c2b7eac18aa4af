package duckdb

import (
	"context"
	"errors"
	"testing"

	"github.com/shoptalk/shoptalk/internal/query"
)

func TestEngineExecutesAgainstInMemoryDatabase(t *testing.T) {
	engine := openTestEngine(t)

	mustExec(t, engine, "CREATE TABLE customers (customer_id INTEGER, name VARCHAR)")
	mustExec(t, engine, "INSERT INTO customers VALUES (1, 'John Doe'), (2, 'Jane Smith')")

	result, err := engine.Execute(context.Background(), query.Request{SQL: "SELECT name FROM customers ORDER BY customer_id;", MaxRows: 10})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.RowCount != 2 || result.Truncated {
		t.Fatalf("RowCount = %d, Truncated = %v", result.RowCount, result.Truncated)
	}
	if result.Columns[0] != "name" {
		t.Fatalf("Columns = %v", result.Columns)
	}
	if result.Rows[0][0] != "John Doe" {
		t.Fatalf("Rows[0][0] = %#v", result.Rows[0][0])
	}
}

func TestEngineExecuteCapsRows(t *testing.T) {
	engine := openTestEngine(t)

	mustExec(t, engine, "CREATE TABLE numbers (n INTEGER)")
	mustExec(t, engine, "INSERT INTO numbers SELECT * FROM range(10)")

	result, err := engine.Execute(context.Background(), query.Request{SQL: "SELECT n FROM numbers", MaxRows: 3})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.RowCount != 3 || !result.Truncated {
		t.Fatalf("RowCount = %d, Truncated = %v", result.RowCount, result.Truncated)
	}
}

func TestEngineExecuteReportsSQLErrors(t *testing.T) {
	engine := openTestEngine(t)

	_, err := engine.Execute(context.Background(), query.Request{SQL: "SELECT * FROM missing_table"})
	var execErr *query.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error type = %T", err)
	}
	if execErr.Timeout {
		t.Fatal("Timeout should be false")
	}
}

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func mustExec(t *testing.T, engine *Engine, sqlText string) {
	t.Helper()
	if _, err := engine.DB().Exec(sqlText); err != nil {
		t.Fatalf("exec %q: %v", sqlText, err)
	}
}
