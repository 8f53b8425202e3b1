// Package contextdata holds the data-source-agnostic shapes the orchestrator
// and agent client consume: the discovered schema and the optional lineage
// graph. These are opaque to the core except for the operations named in
// spec.md §3.1 and §6.1: render-for-prompt and is-empty.
package contextdata

import (
	"fmt"
	"strings"
)

// ColumnType is the closed set of normalized column types every data-source
// adapter must map its own type system onto (spec.md §6.1).
type ColumnType string

const (
	ColumnString    ColumnType = "string"
	ColumnInteger   ColumnType = "integer"
	ColumnFloat     ColumnType = "float"
	ColumnDecimal   ColumnType = "decimal"
	ColumnBoolean   ColumnType = "boolean"
	ColumnDate      ColumnType = "date"
	ColumnDateTime  ColumnType = "datetime"
	ColumnTime      ColumnType = "time"
	ColumnTimestamp ColumnType = "timestamp"
	ColumnBinary    ColumnType = "binary"
	ColumnJSON      ColumnType = "json"
	ColumnArray     ColumnType = "array"
	ColumnMap       ColumnType = "map"
	ColumnStruct    ColumnType = "struct"
	ColumnUnknown   ColumnType = "unknown"
)

// Column describes one column of one table.
type Column struct {
	Name     string
	DataType ColumnType
}

// Table describes one discovered table and its columns.
type Table struct {
	Name    string
	Columns []Column
}

// SchemaContext is the normalized, adapter-agnostic view of a warehouse's
// schema, as produced by a data-source adapter's get_schema operation.
type SchemaContext struct {
	Tables []Table
}

// TableCount returns the number of discovered tables.
func (s *SchemaContext) TableCount() int {
	if s == nil {
		return 0
	}
	return len(s.Tables)
}

// IsEmpty reports whether zero tables were discovered — the fail-fast
// condition the context engine checks (spec.md §4.3).
func (s *SchemaContext) IsEmpty() bool {
	return s.TableCount() == 0
}

// TableNames returns the qualified names of every table, used in the query
// generation system prompt (spec.md §4.4b).
func (s *SchemaContext) TableNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// ToPromptString renders the schema for inclusion in an LLM prompt.
func (s *SchemaContext) ToPromptString() string {
	if s.IsEmpty() {
		return "(no tables discovered)"
	}
	var b strings.Builder
	for _, t := range s.Tables {
		fmt.Fprintf(&b, "%s:\n", t.Name)
		for _, c := range t.Columns {
			fmt.Fprintf(&b, "  - %s (%s)\n", c.Name, c.DataType)
		}
	}
	return b.String()
}

// LineageContext is the upstream/downstream dependency view of one target
// dataset, reduced to qualified names (spec.md §4.3 step 3, §6.2).
type LineageContext struct {
	Target     string
	Upstream   []string
	Downstream []string
}

// ToPromptString renders the lineage for inclusion in an LLM prompt.
func (l *LineageContext) ToPromptString() string {
	if l == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Target: %s\n", l.Target)
	if len(l.Upstream) > 0 {
		fmt.Fprintf(&b, "Upstream: %s\n", strings.Join(l.Upstream, ", "))
	}
	if len(l.Downstream) > 0 {
		fmt.Fprintf(&b, "Downstream: %s\n", strings.Join(l.Downstream, ", "))
	}
	return b.String()
}
