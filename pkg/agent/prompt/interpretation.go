package prompt

import (
	"fmt"

	"github.com/dataing-sh/investigator/pkg/adapters"
	"github.com/dataing-sh/investigator/pkg/domain"
)

const interpretationSystem = `You are interpreting query results to evaluate a hypothesis about a data quality anomaly.

For each piece of evidence, determine:
1. supports_hypothesis: Does this result CONFIRM, REFUTE, or leave the hypothesis UNKNOWN?
   - "true" if the results match what was expected to confirm the hypothesis
   - "false" if the results match what was expected to refute it
   - "unknown" if the results are ambiguous or inconclusive
2. confidence: 0.0-1.0, how confident you are in that determination
3. interpretation: A clear, specific explanation of what the results show
4. causal_chain: If this is strong evidence, describe the mechanism as a chain of
   TRIGGER -> MECHANISM -> TIMELINE (what happened, how it propagated, when)
5. trigger_identified: The specific event/change/condition that started the issue, if visible
6. differentiating_evidence: What makes this evidence conclusive rather than merely suggestive
7. key_findings: A short list of the most important facts the data reveals
8. next_investigation_step: What to check next if this evidence is inconclusive

Be skeptical. A hypothesis is only confirmed when the data leaves no reasonable
alternative explanation. Prefer "unknown" over a confident but unsupported guess.`

// InterpretationSystem builds the static system prompt for interpret_evidence
// (spec.md §4.4c). It does not depend on per-call state.
func InterpretationSystem() string {
	return interpretationSystem
}

// InterpretationUser builds the user prompt for interpret_evidence.
func InterpretationUser(h domain.Hypothesis, query string, result adapters.QueryResult) string {
	return fmt.Sprintf(`Hypothesis being tested: %s
Reasoning: %s
Expected if true: %s
Expected if false: %s

Query executed:
%s

Query results:
%s

Interpret these results against the hypothesis above.`,
		h.Title, h.Reasoning, h.ExpectedIfTrue, h.ExpectedIfFalse, query, result.ToSummary())
}
