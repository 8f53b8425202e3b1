package prompt

import (
	"fmt"
	"strings"

	"github.com/dataing-sh/investigator/pkg/domain"
)

const synthesisSystem = `You are synthesizing investigation findings into a final root cause determination.

CRITICAL RULES:
1. The root cause MUST be an upstream cause, not a downstream symptom.
   "null_count increased" is a symptom, not a root cause. "upstream ETL job silently
   dropped the email field on 2024-01-15 deploy" is a root cause.
2. causal_chain must have 2-6 steps, each describing one link from trigger to symptom.
3. Only declare a root cause when the evidence leaves no reasonable alternative
   explanation. Otherwise return an inconclusive finding with next-step recommendations.
4. confidence should reflect how directly the evidence supports the chain:
   - 0.9+: strong, direct evidence with an identified trigger
   - 0.7-0.9: likely; strong circumstantial evidence, trigger plausible but not directly observed
   - 0.5-0.7: uncertain; the chain fits the evidence but alternatives remain
   - below 0.5: set root_cause to null and return an inconclusive finding
5. recommendations must be concrete and actionable (e.g. "add a NOT NULL constraint on
   orders.email" not "investigate further").

Weigh confirming evidence more heavily than refuting evidence from a different hypothesis,
and prefer the hypothesis with the most differentiating evidence when several are plausible.`

// SynthesisSystem builds the static system prompt for synthesize_findings
// (spec.md §4.4d).
func SynthesisSystem() string {
	return synthesisSystem
}

// SynthesisUser builds the user prompt for synthesize_findings, reusing
// metricContext from hypothesis.go the same way the original
// synthesis.py imports _build_metric_context from hypothesis.py.
func SynthesisUser(alert domain.AnomalyAlert, evidence []domain.Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, `## Anomaly Alert
- Dataset: %s
- Metric: %s
- Anomaly Type: %s
- Expected: %v
- Actual: %v
- Deviation: %v%%
- Anomaly Date: %s
- Severity: %s

## What Was Investigated
%s

## Evidence Gathered
`,
		alert.DatasetID, alert.MetricSpec.DisplayName, alert.AnomalyType,
		alert.ExpectedValue, alert.ActualValue, alert.DeviationPct, alert.AnomalyDate, alert.Severity,
		metricContext(alert.MetricSpec, alert.DatasetID))

	for i, e := range evidence {
		fmt.Fprintf(&b, `
### Evidence %d (hypothesis: %s)
Query: %s
Supports hypothesis: %v
Confidence: %.2f
Interpretation: %s
Trigger identified: %s
Differentiating evidence: %s
`, i+1, e.HypothesisID, e.Query, e.SupportsHypothesis, e.Confidence, e.Interpretation,
			e.TriggerIdentified, e.DifferentiatingEvidence)
	}

	b.WriteString(`
Synthesize this evidence into a final root cause determination. If no hypothesis has
conclusive support, return an inconclusive finding with next-step recommendations instead
of guessing.`)

	return b.String()
}
