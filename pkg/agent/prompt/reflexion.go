package prompt

import (
	"fmt"
	"strings"

	"github.com/dataing-sh/investigator/pkg/discovery/contextdata"
	"github.com/dataing-sh/investigator/pkg/domain"
)

const reflexionSystemTemplate = `You are a SQL expert fixing a failed query.

The previous query failed. Analyze the error and generate a corrected query.

CRITICAL RULES:
1. Use ONLY tables from the schema: %s
2. Use ONLY columns that exist in those tables
3. SELECT queries ONLY - no mutations
4. Always include LIMIT clause (max 10000)
5. Use fully qualified table names (schema.table)

COMMON FIXES:
- Column/table not found: re-check the schema for the correct name or qualification
- Syntax error: re-check quoting, commas, and clause ordering
- Type mismatch: cast explicitly or compare against a literal of the matching type
- Timeout: narrow the time range, add a more selective WHERE clause, or reduce the LIMIT

SCHEMA:
%s`

// ReflexionSystem builds the system prompt for the reflexion-mode retry of
// generate_query, used after a query_failed event (spec.md §4.4b, §4.6.2).
func ReflexionSystem(schema *contextdata.SchemaContext) string {
	return fmt.Sprintf(reflexionSystemTemplate, strings.Join(schema.TableNames(), ", "), schema.ToPromptString())
}

// ReflexionUser builds the user prompt for the reflexion retry, including the
// previous query and the error it produced.
func ReflexionUser(h domain.Hypothesis, previousQuery, previousError string) string {
	return fmt.Sprintf(`Generate a corrected SQL query to test this hypothesis:

Hypothesis: %s
Category: %s
Reasoning: %s

The previous query failed:
--- Previous Query ---
%s
--- Error ---
%s
----------------------

Fix the error and generate a corrected query that would confirm or refute this hypothesis.`,
		h.Title, h.Category, h.Reasoning, previousQuery, previousError)
}
