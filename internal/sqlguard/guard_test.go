package sqlguard

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAcceptsSimpleSelect(t *testing.T) {
	verdict, err := Validate(DefaultPolicy(), "SELECT * FROM orders WHERE customer_id = 1")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if verdict.SQL != "SELECT * FROM orders WHERE customer_id = 1" {
		t.Fatalf("Validate() SQL = %q", verdict.SQL)
	}
	if len(verdict.Warnings) != 0 {
		t.Fatalf("Validate() warnings = %v", verdict.Warnings)
	}
}

func TestValidateTrimsButNeverRewrites(t *testing.T) {
	verdict, err := Validate(DefaultPolicy(), "  \n\tSELECT id, total FROM orders  \n")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if verdict.SQL != "SELECT id, total FROM orders" {
		t.Fatalf("Validate() SQL = %q", verdict.SQL)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	first, err := Validate(DefaultPolicy(), "  SELECT name FROM customers;  ")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	second, err := Validate(DefaultPolicy(), first.SQL)
	if err != nil {
		t.Fatalf("Validate() second pass error = %v", err)
	}
	if second.SQL != first.SQL {
		t.Fatalf("second pass SQL = %q, want %q", second.SQL, first.SQL)
	}
}

func TestValidateRejectsEmptyQuery(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t  \n"} {
		_, err := Validate(DefaultPolicy(), input)
		rej := asRejection(t, err)
		if rej.Code != CodeEmptyQuery {
			t.Fatalf("Validate(%q) code = %s", input, rej.Code)
		}
	}
}

func TestValidateRejectsForbiddenVerbs(t *testing.T) {
	inputs := []string{
		"DROP TABLE customers",
		"drop table customers",
		"  DeLeTe FROM orders",
		"UPDATE orders SET total = 0",
		"insert into orders values (1)",
		"\tALTER TABLE orders ADD COLUMN x int",
		"TRUNCATE orders",
	}
	for _, input := range inputs {
		_, err := Validate(DefaultPolicy(), input)
		rej := asRejection(t, err)
		if rej.Code != CodeOperationNotAllowed {
			t.Fatalf("Validate(%q) code = %s", input, rej.Code)
		}
	}
}

func TestValidateRejectionNamesTheVerb(t *testing.T) {
	_, err := Validate(DefaultPolicy(), "DROP TABLE customers")
	rej := asRejection(t, err)
	if !strings.Contains(rej.Detail, "DROP") {
		t.Fatalf("Detail = %q, want it to name DROP", rej.Detail)
	}
}

func TestValidateRejectsMultiStatementBeforeKeywordScan(t *testing.T) {
	_, err := Validate(DefaultPolicy(), "SELECT * FROM orders; DELETE FROM orders")
	rej := asRejection(t, err)
	if rej.Code != CodeMultiStatement {
		t.Fatalf("code = %s, want %s", rej.Code, CodeMultiStatement)
	}
}

func TestValidateAllowsTrailingSemicolon(t *testing.T) {
	verdict, err := Validate(DefaultPolicy(), "SELECT 1;")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if verdict.SQL != "SELECT 1;" {
		t.Fatalf("Validate() SQL = %q", verdict.SQL)
	}
}

func TestValidateRejectsEmbeddedForbiddenKeyword(t *testing.T) {
	_, err := Validate(DefaultPolicy(), "WITH x AS (SELECT 1) INSERT INTO orders SELECT * FROM x")
	rej := asRejection(t, err)
	if rej.Code != CodeForbiddenOperation {
		t.Fatalf("code = %s", rej.Code)
	}
	if !strings.Contains(rej.Detail, "INSERT") {
		t.Fatalf("Detail = %q, want it to name INSERT", rej.Detail)
	}
}

func TestValidateRejectsCommentMarkers(t *testing.T) {
	tests := []struct {
		input  string
		marker string
	}{
		{"SELECT * FROM orders -- hidden", "--"},
		{"SELECT /* sneaky */ 1", "/*"},
	}
	for _, tt := range tests {
		_, err := Validate(DefaultPolicy(), tt.input)
		rej := asRejection(t, err)
		if rej.Code != CodeForbiddenOperation {
			t.Fatalf("Validate(%q) code = %s", tt.input, rej.Code)
		}
		if !strings.Contains(rej.Detail, tt.marker) {
			t.Fatalf("Validate(%q) Detail = %q", tt.input, rej.Detail)
		}
	}
}

func TestValidateDoesNotMatchKeywordsInsideIdentifiers(t *testing.T) {
	verdict, err := Validate(DefaultPolicy(), "SELECT created_at, updated_at FROM order_updates")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if verdict.SQL == "" {
		t.Fatal("expected accepted statement")
	}
}

func TestValidateAllowsUnion(t *testing.T) {
	_, err := Validate(DefaultPolicy(), "SELECT name FROM customers UNION SELECT name FROM products")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateHonorsCustomAllowedVerbs(t *testing.T) {
	policy := DefaultPolicy()
	policy.AllowedVerbs = []string{"select"}
	_, err := Validate(policy, "WITH recent AS (SELECT 1) SELECT * FROM recent")
	rej := asRejection(t, err)
	if rej.Code != CodeOperationNotAllowed {
		t.Fatalf("code = %s", rej.Code)
	}
	if !strings.Contains(rej.Detail, "WITH") {
		t.Fatalf("Detail = %q", rej.Detail)
	}
}

func TestValidateHonorsCustomForbiddenKeywords(t *testing.T) {
	policy := DefaultPolicy()
	policy.ForbiddenKeywords = append(policy.ForbiddenKeywords, "union")
	_, err := Validate(policy, "SELECT name FROM customers UNION SELECT name FROM products")
	rej := asRejection(t, err)
	if rej.Code != CodeForbiddenOperation {
		t.Fatalf("code = %s", rej.Code)
	}
}

func TestValidateAgainstSchemaWarnsOnUnknownTable(t *testing.T) {
	verdict, err := ValidateAgainstSchema(DefaultPolicy(), "SELECT * FROM shipments", []string{"customers", "orders"})
	if err != nil {
		t.Fatalf("ValidateAgainstSchema() error = %v", err)
	}
	if len(verdict.Warnings) != 1 || !strings.Contains(verdict.Warnings[0], "shipments") {
		t.Fatalf("warnings = %v", verdict.Warnings)
	}
}

func TestValidateAgainstSchemaStrictRejectsUnknownTable(t *testing.T) {
	policy := DefaultPolicy()
	policy.StrictSchema = true
	_, err := ValidateAgainstSchema(policy, "SELECT * FROM shipments", []string{"customers", "orders"})
	rej := asRejection(t, err)
	if rej.Code != CodeUnknownSchemaReference {
		t.Fatalf("code = %s", rej.Code)
	}
	if !strings.Contains(rej.Detail, "shipments") {
		t.Fatalf("Detail = %q", rej.Detail)
	}
}

func TestValidateAgainstSchemaAcceptsKnownTablesAndJoins(t *testing.T) {
	sqlText := "SELECT c.name, o.total FROM customers c JOIN orders o ON o.customer_id = c.id"
	verdict, err := ValidateAgainstSchema(DefaultPolicy(), sqlText, []string{"customers", "orders"})
	if err != nil {
		t.Fatalf("ValidateAgainstSchema() error = %v", err)
	}
	if len(verdict.Warnings) != 0 {
		t.Fatalf("warnings = %v", verdict.Warnings)
	}
}

func TestValidateAgainstSchemaTreatsCTENamesAsKnown(t *testing.T) {
	sqlText := "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent"
	verdict, err := ValidateAgainstSchema(DefaultPolicy(), sqlText, []string{"orders"})
	if err != nil {
		t.Fatalf("ValidateAgainstSchema() error = %v", err)
	}
	if len(verdict.Warnings) != 0 {
		t.Fatalf("warnings = %v", verdict.Warnings)
	}
}

func TestValidateAgainstSchemaIgnoresQualifiedPrefix(t *testing.T) {
	verdict, err := ValidateAgainstSchema(DefaultPolicy(), "SELECT * FROM public.orders", []string{"orders"})
	if err != nil {
		t.Fatalf("ValidateAgainstSchema() error = %v", err)
	}
	if len(verdict.Warnings) != 0 {
		t.Fatalf("warnings = %v", verdict.Warnings)
	}
}

func TestValidateSkipsSchemaCheckWithoutTables(t *testing.T) {
	verdict, err := Validate(DefaultPolicy(), "SELECT * FROM shipments")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(verdict.Warnings) != 0 {
		t.Fatalf("warnings = %v", verdict.Warnings)
	}
}

func TestRejectionErrorMentionsCodeAndDetail(t *testing.T) {
	err := error(&Rejection{Code: CodeForbiddenOperation, Detail: `forbidden keyword "DROP"`})
	if !strings.Contains(err.Error(), string(CodeForbiddenOperation)) || !strings.Contains(err.Error(), "DROP") {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func asRejection(t *testing.T, err error) *Rejection {
	t.Helper()
	if err == nil {
		t.Fatal("expected rejection")
	}
	var rej *Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("error type = %T", err)
	}
	return rej
}
