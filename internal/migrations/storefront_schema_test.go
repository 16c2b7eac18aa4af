package migrations

import (
	"strings"
	"testing"
)

func TestStorefrontMigrationContainsRequiredTablesAndIndexes(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000001_storefront.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	sql := string(body)
	requiredSnippets := []string{
		"CREATE TABLE customers",
		"CREATE TABLE products",
		"CREATE TABLE orders",
		"CREATE TABLE order_items",
		"CREATE TABLE reviews",
		"CREATE TABLE support_tickets",
		"REFERENCES customers (customer_id)",
		"REFERENCES orders (order_id)",
		"REFERENCES products (product_id)",
		"CHECK (rating BETWEEN 1 AND 5)",
		"CREATE INDEX idx_orders_customer_date",
		"CREATE INDEX idx_order_items_order",
		"CREATE INDEX idx_reviews_product",
		"CREATE INDEX idx_support_tickets_customer_status",
	}

	for _, snippet := range requiredSnippets {
		if !strings.Contains(sql, snippet) {
			t.Fatalf("migration missing required snippet: %s", snippet)
		}
	}
}

func TestHistoryMigrationMatchesRepositoryColumns(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000002_ask_history.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	sql := string(body)
	requiredSnippets := []string{
		"CREATE TABLE ask_history",
		"history_id BIGSERIAL PRIMARY KEY",
		"question TEXT NOT NULL",
		"sql_text TEXT NOT NULL",
		"error_code TEXT NOT NULL",
		"row_count INTEGER NOT NULL",
		"duration_ms BIGINT NOT NULL",
		"session_id TEXT NOT NULL",
		"CREATE INDEX idx_ask_history_created_at",
	}

	for _, snippet := range requiredSnippets {
		if !strings.Contains(sql, snippet) {
			t.Fatalf("migration missing required snippet: %s", snippet)
		}
	}
}
