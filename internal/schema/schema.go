package schema

import (
	"fmt"
	"strings"
	"time"
)

type Column struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	Nullable   bool   `json:"nullable"`
	References string `json:"references,omitempty"`
}

type Table struct {
	Name       string     `json:"name"`
	Columns    []Column   `json:"columns"`
	SampleRows [][]string `json:"sample_rows,omitempty"`
}

// Context is the read-only schema description handed to the language model.
type Context struct {
	Tables   []Table   `json:"tables"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (c Context) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for _, table := range c.Tables {
		names = append(names, table.Name)
	}
	return names
}

// Render produces the textual schema block embedded in prompts.
func (c Context) Render() string {
	var b strings.Builder
	for i, table := range c.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "TABLE %s\n", table.Name)
		for _, col := range table.Columns {
			b.WriteString("  " + col.Name + " " + col.DataType)
			if !col.Nullable {
				b.WriteString(" NOT NULL")
			}
			if col.References != "" {
				b.WriteString(" REFERENCES " + col.References)
			}
			b.WriteString("\n")
		}
		if len(table.SampleRows) > 0 {
			b.WriteString("  sample rows:\n")
			for _, row := range table.SampleRows {
				b.WriteString("    " + strings.Join(row, " | ") + "\n")
			}
		}
	}
	return b.String()
}
