package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Introspector loads the schema context from information_schema. The foreign
// key pass is best-effort; engines without the constraint views log and skip.
// ExcludeTables keeps bookkeeping tables such as ask_history out of the
// context handed to the model.
type Introspector struct {
	DB            *sql.DB
	SchemaName    string
	SampleRows    int
	ExcludeTables []string
	Logger        *slog.Logger
}

func (i *Introspector) Load(ctx context.Context) (Context, error) {
	if i.DB == nil {
		return Context{}, fmt.Errorf("db handle is required")
	}
	schemaName := i.SchemaName
	if schemaName == "" {
		schemaName = "public"
	}

	names, err := i.loadTableNames(ctx, schemaName)
	if err != nil {
		return Context{}, err
	}
	byName, err := i.loadColumns(ctx, schemaName)
	if err != nil {
		return Context{}, err
	}
	if err := i.loadForeignKeys(ctx, schemaName, byName); err != nil {
		if i.Logger != nil {
			i.Logger.WarnContext(ctx, "foreign key introspection failed", slog.Any("error", err))
		}
	}

	excluded := make(map[string]struct{}, len(i.ExcludeTables))
	for _, name := range i.ExcludeTables {
		excluded[strings.ToLower(name)] = struct{}{}
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		if _, skip := excluded[strings.ToLower(name)]; skip {
			continue
		}
		table := Table{Name: name}
		if cols, ok := byName[name]; ok {
			table.Columns = cols
		}
		if i.SampleRows > 0 {
			table.SampleRows = i.loadSampleRows(ctx, name)
		}
		tables = append(tables, table)
	}
	return Context{Tables: tables, LoadedAt: time.Now().UTC()}, nil
}

func (i *Introspector) loadTableNames(ctx context.Context, schemaName string) ([]string, error) {
	query := `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`

	rows, err := i.DB.QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (i *Introspector) loadColumns(ctx context.Context, schemaName string) (map[string][]Column, error) {
	query := `
SELECT table_name, column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = $1
ORDER BY table_name, ordinal_position`

	rows, err := i.DB.QueryContext(ctx, query, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byName := make(map[string][]Column)
	for rows.Next() {
		var tableName, nullable string
		var col Column
		if err := rows.Scan(&tableName, &col.Name, &col.DataType, &nullable); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		col.Nullable = nullable == "YES"
		byName[tableName] = append(byName[tableName], col)
	}
	return byName, rows.Err()
}

func (i *Introspector) loadForeignKeys(ctx context.Context, schemaName string, byName map[string][]Column) error {
	query := `
SELECT tc.table_name, kcu.column_name, ccu.table_name AS referenced_table, ccu.column_name AS referenced_column
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
    ON tc.constraint_name = kcu.constraint_name
    AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
    ON ccu.constraint_name = tc.constraint_name
    AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1`

	rows, err := i.DB.QueryContext(ctx, query, schemaName)
	if err != nil {
		return fmt.Errorf("list foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var tableName, columnName, refTable, refColumn string
		if err := rows.Scan(&tableName, &columnName, &refTable, &refColumn); err != nil {
			return fmt.Errorf("scan foreign key: %w", err)
		}
		cols := byName[tableName]
		for idx := range cols {
			if cols[idx].Name == columnName {
				cols[idx].References = refTable + "(" + refColumn + ")"
			}
		}
	}
	return rows.Err()
}

func (i *Introspector) loadSampleRows(ctx context.Context, tableName string) [][]string {
	rows, err := i.DB.QueryContext(ctx, "SELECT * FROM "+quoteIdent(tableName)+" LIMIT "+strconv.Itoa(i.SampleRows))
	if err != nil {
		return nil
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil
	}

	var samples [][]string
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for idx := range values {
			pointers[idx] = &values[idx]
		}
		if err := rows.Scan(pointers...); err != nil {
			return samples
		}
		row := make([]string, len(columns))
		for idx, value := range values {
			row[idx] = stringifyValue(value)
		}
		samples = append(samples, row)
	}
	return samples
}

func stringifyValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
