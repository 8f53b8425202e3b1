package adapters

import (
	"fmt"
	"strings"

	"github.com/dataing-sh/investigator/pkg/discovery/contextdata"
)

const maxSummaryRows = 20

func summarizeRows(columns []contextdata.Column, rows []Row, rowCount int, truncated bool) string {
	var b strings.Builder
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	fmt.Fprintf(&b, "columns: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "row_count: %d", rowCount)
	if truncated {
		b.WriteString(" (truncated)")
	}
	b.WriteString("\n")

	limit := len(rows)
	if limit > maxSummaryRows {
		limit = maxSummaryRows
	}
	for i := 0; i < limit; i++ {
		fmt.Fprintf(&b, "%v\n", rows[i])
	}
	if len(rows) > limit {
		fmt.Fprintf(&b, "... (%d more rows omitted)\n", len(rows)-limit)
	}
	return b.String()
}
