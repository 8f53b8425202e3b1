package prompt

import (
	"fmt"
	"strings"

	"github.com/dataing-sh/investigator/pkg/discovery/contextdata"
	"github.com/dataing-sh/investigator/pkg/domain"
)

const querySystemTemplate = `You are a SQL expert generating investigative queries.

CRITICAL RULES:
1. Use ONLY tables from the schema: %s
2. Use ONLY columns that exist in those tables
3. SELECT queries ONLY - no mutations
4. Always include LIMIT clause (max 10000)
5. Use fully qualified table names (schema.table)

INVESTIGATION TECHNIQUES:
- Use GROUP BY on categorical columns to find patterns (channel, platform, version, region, etc.)
- Segment analysis often reveals root causes faster than aggregate counts
- If issues cluster in one segment, that segment IS the root cause
- Compare affected vs unaffected segments to isolate the problem

SCHEMA:
%s`

// QuerySystem builds the system prompt for generate_query (spec.md §4.4b).
func QuerySystem(schema *contextdata.SchemaContext) string {
	return fmt.Sprintf(querySystemTemplate, strings.Join(schema.TableNames(), ", "), schema.ToPromptString())
}

// QueryUser builds the user prompt for the first (non-reflexion) attempt at
// generating a query for a hypothesis.
func QueryUser(h domain.Hypothesis) string {
	return fmt.Sprintf(`Generate a SQL query to test this hypothesis:

Hypothesis: %s
Category: %s
Reasoning: %s

Generate a query that would confirm or refute this hypothesis.`, h.Title, h.Category, h.Reasoning)
}
