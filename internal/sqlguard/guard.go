package sqlguard

import (
	"fmt"
	"regexp"
	"strings"
)

type Code string

const (
	CodeEmptyQuery             Code = "EMPTY_QUERY"
	CodeOperationNotAllowed    Code = "OPERATION_NOT_ALLOWED"
	CodeForbiddenOperation     Code = "FORBIDDEN_OPERATION"
	CodeMultiStatement         Code = "MULTI_STATEMENT"
	CodeUnknownSchemaReference Code = "UNKNOWN_SCHEMA_REFERENCE"
)

// Policy is a pure description of what a candidate statement may do. The
// zero value allows nothing; DefaultPolicy holds the read-only defaults.
type Policy struct {
	AllowedVerbs      []string
	ForbiddenKeywords []string
	CommentMarkers    []string
	StrictSchema      bool
}

func DefaultPolicy() Policy {
	return Policy{
		AllowedVerbs: []string{"select", "with"},
		ForbiddenKeywords: []string{
			"drop", "delete", "update", "insert", "alter", "truncate",
			"create", "grant", "revoke", "exec", "execute", "merge",
		},
		CommentMarkers: []string{"--", "/*", "*/"},
	}
}

// Verdict carries the trimmed original text of an accepted statement. The
// statement is never rewritten beyond trimming surrounding whitespace.
type Verdict struct {
	SQL      string
	Warnings []string
}

type Rejection struct {
	Code   Code
	Detail string
}

func (e *Rejection) Error() string {
	return fmt.Sprintf("query rejected (%s): %s", e.Code, e.Detail)
}

var (
	leadingWordPattern = regexp.MustCompile(`^[A-Za-z_]+`)
	tableRefPattern    = regexp.MustCompile(`(?i)\b(?:from|join)\s+([A-Za-z_][A-Za-z0-9_.]*)`)
	cteNamePattern     = regexp.MustCompile(`(?i)\b([A-Za-z_][A-Za-z0-9_]*)\s+as\s*\(`)
)

func Validate(policy Policy, sqlText string) (Verdict, error) {
	return ValidateAgainstSchema(policy, sqlText, nil)
}

// ValidateAgainstSchema runs the policy checks and, when the known table list
// is non-empty, compares table references against it. Unknown references are
// warnings unless policy.StrictSchema is set.
func ValidateAgainstSchema(policy Policy, sqlText string, tables []string) (Verdict, error) {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return Verdict{}, &Rejection{Code: CodeEmptyQuery, Detail: "query is empty"}
	}

	verb := leadingWordPattern.FindString(trimmed)
	if !verbAllowed(policy.AllowedVerbs, verb) {
		detail := "statement does not begin with an operation"
		if verb != "" {
			detail = fmt.Sprintf("operation %q is not allowed", strings.ToUpper(verb))
		}
		return Verdict{}, &Rejection{Code: CodeOperationNotAllowed, Detail: detail}
	}

	// A trailing semicolon is tolerated; anything after one is a second statement.
	if idx := strings.Index(trimmed, ";"); idx >= 0 && strings.TrimSpace(trimmed[idx+1:]) != "" {
		return Verdict{}, &Rejection{Code: CodeMultiStatement, Detail: "only one statement may run per request"}
	}

	if pattern := forbiddenPattern(policy); pattern != nil {
		if match := pattern.FindString(trimmed); match != "" {
			return Verdict{}, &Rejection{Code: CodeForbiddenOperation, Detail: fmt.Sprintf("forbidden keyword %q", strings.ToUpper(match))}
		}
	}

	verdict := Verdict{SQL: trimmed}
	if len(tables) > 0 {
		unknown := unknownTableRefs(trimmed, tables)
		if len(unknown) > 0 && policy.StrictSchema {
			return Verdict{}, &Rejection{Code: CodeUnknownSchemaReference, Detail: fmt.Sprintf("unknown table %q", unknown[0])}
		}
		for _, name := range unknown {
			verdict.Warnings = append(verdict.Warnings, fmt.Sprintf("unknown table %q", name))
		}
	}
	return verdict, nil
}

func verbAllowed(allowed []string, verb string) bool {
	if verb == "" {
		return false
	}
	lowered := strings.ToLower(verb)
	for _, candidate := range allowed {
		if strings.ToLower(candidate) == lowered {
			return true
		}
	}
	return false
}

// forbiddenPattern joins the policy's keywords and comment markers into one
// case-insensitive alternation. Keywords match whole tokens only, so a column
// named created_at does not trip "create".
func forbiddenPattern(policy Policy) *regexp.Regexp {
	patterns := make([]string, 0, len(policy.ForbiddenKeywords)+len(policy.CommentMarkers))
	for _, keyword := range policy.ForbiddenKeywords {
		patterns = append(patterns, `\b`+regexp.QuoteMeta(keyword)+`\b`)
	}
	for _, marker := range policy.CommentMarkers {
		patterns = append(patterns, regexp.QuoteMeta(marker))
	}
	if len(patterns) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)(` + strings.Join(patterns, "|") + `)`)
}

// unknownTableRefs inspects identifiers following FROM and JOIN. Column names
// are deliberately not checked; aliases and computed expressions would produce
// false rejections. CTE names count as known tables.
func unknownTableRefs(sqlText string, tables []string) []string {
	known := make(map[string]struct{}, len(tables))
	for _, name := range tables {
		known[strings.ToLower(name)] = struct{}{}
	}
	for _, match := range cteNamePattern.FindAllStringSubmatch(sqlText, -1) {
		known[strings.ToLower(match[1])] = struct{}{}
	}

	var unknown []string
	seen := make(map[string]struct{})
	for _, match := range tableRefPattern.FindAllStringSubmatch(sqlText, -1) {
		ref := strings.ToLower(match[1])
		if dot := strings.LastIndex(ref, "."); dot >= 0 {
			ref = ref[dot+1:]
		}
		if ref == "" {
			continue
		}
		if _, ok := known[ref]; ok {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		unknown = append(unknown, ref)
	}
	return unknown
}
