// Package quality implements the LLM-as-judge rubric that scores each
// interpretation and synthesis output along three dimensions and turns that
// score into a training signal (spec.md §4.5), grounded on
// original_source/dataing/src/dataing/core/quality/judge.py.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dataing-sh/investigator/pkg/agent"
	"github.com/dataing-sh/investigator/pkg/domain"
)

// DefaultPassThreshold is the minimum composite score required to pass
// (spec.md §4.5).
const DefaultPassThreshold = 0.6

const judgeSystemPrompt = `You evaluate root cause analysis quality on three dimensions.

## Causal Depth

CRITICAL DISTINCTION:
- "ETL job failed" is NOT a root cause - it's a HYPOTHESIS
- "ETL job failed because the source API returned 429 rate limit errors" IS a root cause

A true causal chain must include:
1. The TRIGGER (what changed? API error, config change, deploy, etc.)
2. The MECHANISM (how did the trigger cause the symptom?)
3. The TIMELINE (when did each step occur?)

Scoring:
- 0.0-0.2: Just confirms symptom exists ("NULLs appeared on Jan 10")
- 0.3-0.4: Names a cause category without evidence ("ETL failure", "data corruption")
- 0.5-0.6: Names a specific component but no trigger ("users ETL job stopped")
- 0.7-0.8: Has trigger + mechanism but vague timing ("API timeout caused ETL to fail")
- 0.9-1.0: Complete: trigger + mechanism + timeline
  ("API rate limit at 03:14 -> ETL timeout -> users table stale -> JOIN NULLs")

RED FLAGS (cap score at 0.4):
- Uses vague cause categories: "data corruption", "infrastructure failure", "ETL malfunction"
- Says "suggests", "indicates", "consistent with" without concrete evidence
- No specific component names (which job? which table? which API?)
- No timestamps more precise than the day
- trigger_identified field is empty or vague

## Specificity
Evaluate key_findings and supporting evidence:
- 0.0-0.2: No concrete data
- 0.3-0.4: Vague quantities ("many rows")
- 0.5-0.6: Some numbers but no timestamps
- 0.7-0.8: Numbers + timestamps OR entity names
- 0.9-1.0: Timestamps + counts + specific table/column names

## Actionability
Evaluate recommendations:
- 0.0-0.2: "Investigate the issue"
- 0.3-0.4: "Check the ETL job"
- 0.5-0.6: "Check the stg_users ETL job logs"
- 0.7-0.8: "Check CloudWatch for stg_users job failures around 03:14 UTC"
- 0.9-1.0: "Run: airflow trigger_dag stg_users --conf '{\"backfill\": true}'"

## Differentiating Evidence
Report whether differentiating_evidence is present and, if so, whether it is
specific and unique ("Error code ETL-5012 in job logs") or merely vague
("Pattern matches known failure signature").

Be calibrated: most responses score 0.3-0.6. Reserve 0.8+ for responses with
concrete triggers, mechanisms, and timelines. Be HARSH on vague cause categories.

Return numeric scores for causal_depth, specificity, and actionability in
[0, 1], the differentiation verdict, and a specific improvement_suggestion of
at least 20 characters explaining how to improve the weakest dimension.`

// judgeResponse is the judge model's structured output. The composite score,
// lowest dimension, and pass/fail are derived deterministically in Go
// (scoreFrom) rather than trusted from the model, so the weighting formula in
// spec.md §4.5 is enforced exactly regardless of what the judge emits.
type judgeResponse struct {
	CausalDepth             float64 `json:"causal_depth"`
	Specificity             float64 `json:"specificity"`
	Actionability           float64 `json:"actionability"`
	DifferentiationPresent  bool    `json:"differentiation_present"`
	DifferentiationSpecific bool    `json:"differentiation_specific"`
	ImprovementSuggestion   string  `json:"improvement_suggestion"`
}

// Validator scores agent outputs via an LLM judge and never blocks the
// investigation it is validating — every public method swallows its own
// errors and logs them (spec.md §4.5).
type Validator struct {
	Provider      agent.Provider
	PassThreshold float64
	MaxRetries    int
	Logger        *slog.Logger
}

// New builds a Validator with spec.md §4.5's default pass_threshold.
func New(provider agent.Provider, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{Provider: provider, PassThreshold: DefaultPassThreshold, MaxRetries: 2, Logger: logger}
}

func scoreFrom(r judgeResponse, confidence, passThreshold float64) domain.QualityAssessment {
	composite := 0.5*r.CausalDepth + 0.3*r.Specificity + 0.2*r.Actionability
	switch {
	case r.DifferentiationPresent && r.DifferentiationSpecific:
		composite += 0.1
	case !r.DifferentiationPresent && confidence > 0.7:
		composite -= 0.1
	}
	if composite < 0 {
		composite = 0
	}
	if composite > 1 {
		composite = 1
	}

	lowest := "causal_depth"
	lowestScore := r.CausalDepth
	if r.Specificity < lowestScore {
		lowest, lowestScore = "specificity", r.Specificity
	}
	if r.Actionability < lowestScore {
		lowest = "actionability"
	}

	return domain.QualityAssessment{
		CausalDepth:           r.CausalDepth,
		Specificity:           r.Specificity,
		Actionability:         r.Actionability,
		CompositeScore:        composite,
		LowestDimension:       lowest,
		ImprovementSuggestion: r.ImprovementSuggestion,
		Passed:                composite >= passThreshold,
	}
}

func (v *Validator) judge(ctx context.Context, userPrompt string) (judgeResponse, error) {
	req := agent.Request{SystemPrompt: judgeSystemPrompt, UserPrompt: userPrompt}
	var resp judgeResponse
	if _, err := agent.CallStructured(ctx, v.Provider, req, v.MaxRetries, &resp); err != nil {
		return judgeResponse{}, err
	}
	return resp, nil
}

// ValidateInterpretation scores one piece of Evidence against the hypothesis
// and query it tested. A judge failure is logged and yields a zero-value,
// failing assessment rather than propagating (spec.md §4.5).
func (v *Validator) ValidateInterpretation(ctx context.Context, e domain.Evidence, hypothesisTitle, query string) domain.QualityAssessment {
	prompt := fmt.Sprintf(`Evaluate this interpretation:

HYPOTHESIS TESTED: %s
QUERY RUN: %s

RESPONSE:
- interpretation: %s
- causal_chain: %s
- trigger_identified: %s
- differentiating_evidence: %s
- confidence: %.2f
- key_findings: %s
- supports_hypothesis: %s

Score each dimension and identify what needs improvement.`,
		hypothesisTitle, query, e.Interpretation, e.CausalChain, orNotProvided(e.TriggerIdentified),
		orNotProvided(e.DifferentiatingEvidence), e.Confidence, strings.Join(e.KeyFindings, "; "), e.SupportsHypothesis)

	resp, err := v.judge(ctx, prompt)
	if err != nil {
		v.Logger.Warn("interpretation quality validation failed", "hypothesis_id", e.HypothesisID, "error", err)
		return domain.QualityAssessment{}
	}
	return scoreFrom(resp, e.Confidence, v.PassThreshold)
}

// ValidateSynthesis scores a Finding against the original anomaly alert
// summary. A judge failure is logged and yields a zero-value, failing
// assessment rather than propagating (spec.md §4.5).
func (v *Validator) ValidateSynthesis(ctx context.Context, f domain.Finding, alertSummary string) domain.QualityAssessment {
	rootCause := "null"
	if f.RootCause != nil {
		rootCause = *f.RootCause
	}
	prompt := fmt.Sprintf(`Evaluate this root cause analysis:

ORIGINAL ANOMALY: %s

RESPONSE:
- root_cause: %s
- confidence: %.2f
- causal_chain: %s
- estimated_onset: %s
- affected_scope: %s
- recommendations: %s

Score each dimension and identify what needs improvement.`,
		alertSummary, rootCause, f.Confidence, strings.Join(f.CausalChain, " -> "),
		f.EstimatedOnset, f.AffectedScope, strings.Join(f.Recommendations, "; "))

	resp, err := v.judge(ctx, prompt)
	if err != nil {
		v.Logger.Warn("synthesis quality validation failed", "investigation_id", f.InvestigationID, "error", err)
		return domain.QualityAssessment{}
	}
	return scoreFrom(resp, f.Confidence, v.PassThreshold)
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return "NOT PROVIDED"
	}
	return s
}
