// Package domain holds the immutable value types shared by every stage of
// an investigation: the input alert, the hypotheses generated from it, the
// evidence gathered while testing them, and the final finding.
package domain

import (
	"fmt"
	"strings"
)

// MetricType is the closed set of ways a MetricSpec can describe what is
// anomalous.
type MetricType string

const (
	MetricTypeColumn        MetricType = "column"
	MetricTypeSQLExpression MetricType = "sql_expression"
	MetricTypeDBTMetric     MetricType = "dbt_metric"
	MetricTypeDescription   MetricType = "description"
)

// MetricSpec is a tagged variant over exactly one way of describing what is
// anomalous. Exactly one of the type-specific fields is populated,
// determined by Type.
type MetricSpec struct {
	Type MetricType

	// DisplayName is always present, regardless of Type.
	DisplayName string

	// Expression holds the column name (Type == column), the SQL
	// expression text (Type == sql_expression), the dbt metric name
	// (Type == dbt_metric), or the free-text description
	// (Type == description).
	Expression string

	// ColumnsReferenced is populated only for Type == sql_expression.
	ColumnsReferenced []string

	// SourceURL is an optional link to the metric's definition, used only
	// for Type == dbt_metric.
	SourceURL string
}

// NewColumnMetricSpec builds a MetricSpec describing a single column.
func NewColumnMetricSpec(column string) MetricSpec {
	return MetricSpec{Type: MetricTypeColumn, DisplayName: column, Expression: column}
}

// Validate checks the tagged-union shape invariants.
func (m MetricSpec) Validate() error {
	switch m.Type {
	case MetricTypeColumn, MetricTypeSQLExpression, MetricTypeDBTMetric, MetricTypeDescription:
	default:
		return fmt.Errorf("metric spec: unknown type %q", m.Type)
	}
	if strings.TrimSpace(m.DisplayName) == "" {
		return fmt.Errorf("metric spec: display_name is required")
	}
	if strings.TrimSpace(m.Expression) == "" {
		return fmt.Errorf("metric spec: expression is required")
	}
	return nil
}

// AnomalyAlert is the input that starts one investigation.
type AnomalyAlert struct {
	DatasetID      string
	MetricSpec     MetricSpec
	AnomalyType    string
	ExpectedValue  float64
	ActualValue    float64
	DeviationPct   float64
	AnomalyDate    string // YYYY-MM-DD
	Severity       string
	SourceSystem   string
	SourceAlertID  string
	SourceURL      string
	Metadata       map[string]string
}

// Validate checks the required fields of an AnomalyAlert.
func (a AnomalyAlert) Validate() error {
	if strings.TrimSpace(a.DatasetID) == "" {
		return fmt.Errorf("anomaly alert: dataset_id is required")
	}
	if err := a.MetricSpec.Validate(); err != nil {
		return fmt.Errorf("anomaly alert: %w", err)
	}
	if strings.TrimSpace(a.AnomalyType) == "" {
		return fmt.Errorf("anomaly alert: anomaly_type is required")
	}
	if strings.TrimSpace(a.AnomalyDate) == "" {
		return fmt.Errorf("anomaly alert: anomaly_date is required")
	}
	return nil
}

// HypothesisCategory is the closed set of causal categories a Hypothesis may
// fall into.
type HypothesisCategory string

const (
	CategoryUpstreamDependency HypothesisCategory = "upstream_dependency"
	CategoryTransformationBug  HypothesisCategory = "transformation_bug"
	CategoryDataQuality        HypothesisCategory = "data_quality"
	CategoryInfrastructure     HypothesisCategory = "infrastructure"
	CategoryExpectedVariance   HypothesisCategory = "expected_variance"
)

func validCategory(c HypothesisCategory) bool {
	switch c {
	case CategoryUpstreamDependency, CategoryTransformationBug, CategoryDataQuality,
		CategoryInfrastructure, CategoryExpectedVariance:
		return true
	default:
		return false
	}
}

// Hypothesis is a potential cause of the anomaly, paired with a testable
// query and a falsifiability contract.
type Hypothesis struct {
	ID               string
	Title            string
	Category         HypothesisCategory
	Reasoning        string
	SuggestedQuery   string
	ExpectedIfTrue   string
	ExpectedIfFalse  string
}

// Validate enforces the field-length and category constraints spec.md §3.1
// places on a Hypothesis. A Hypothesis failing validation is dropped by the
// agent client rather than handed to the orchestrator.
func (h Hypothesis) Validate() error {
	if strings.TrimSpace(h.ID) == "" {
		return fmt.Errorf("hypothesis: id is required")
	}
	if l := len(h.Title); l < 10 || l > 200 {
		return fmt.Errorf("hypothesis %s: title must be 10-200 chars, got %d", h.ID, l)
	}
	if !validCategory(h.Category) {
		return fmt.Errorf("hypothesis %s: unknown category %q", h.ID, h.Category)
	}
	if len(h.Reasoning) < 20 {
		return fmt.Errorf("hypothesis %s: reasoning must be >= 20 chars", h.ID)
	}
	if strings.TrimSpace(h.SuggestedQuery) == "" {
		return fmt.Errorf("hypothesis %s: suggested_query is required", h.ID)
	}
	if strings.TrimSpace(h.ExpectedIfTrue) == "" {
		return fmt.Errorf("hypothesis %s: expected_if_true is required", h.ID)
	}
	if strings.TrimSpace(h.ExpectedIfFalse) == "" {
		return fmt.Errorf("hypothesis %s: expected_if_false is required", h.ID)
	}
	return nil
}

// SupportsHypothesis is a tri-valued verdict: a query's results can confirm,
// refute, or leave open whether a Hypothesis explains the anomaly.
type SupportsHypothesis int

const (
	SupportsUnknown SupportsHypothesis = iota
	SupportsTrue
	SupportsFalse
)

func (s SupportsHypothesis) String() string {
	switch s {
	case SupportsTrue:
		return "true"
	case SupportsFalse:
		return "false"
	default:
		return "unknown"
	}
}

// Evidence is one tested fact about a Hypothesis: the query that ran and
// the LLM's interpretation of its results.
type Evidence struct {
	HypothesisID           string
	Query                  string
	ResultSummary          string
	RowCount               int
	SupportsHypothesis     SupportsHypothesis
	Confidence             float64
	Interpretation         string
	CausalChain            string
	TriggerIdentified      string
	DifferentiatingEvidence string
	KeyFindings            []string
	NextInvestigationStep  string
}

// FindingStatus is the closed set of terminal states a Finding can carry.
type FindingStatus string

const (
	FindingCompleted    FindingStatus = "completed"
	FindingInconclusive FindingStatus = "inconclusive"
	FindingFailed       FindingStatus = "failed"
)

// Finding is the terminal output of one investigation.
type Finding struct {
	InvestigationID string
	Status          FindingStatus
	RootCause       *string
	Confidence      float64
	Evidence        []Evidence
	Recommendations []string
	DurationSeconds float64
	CausalChain     []string
	EstimatedOnset  string
	AffectedScope   string
}

// statusFromRootCause enforces spec.md invariant I8:
// status == completed iff root_cause != nil iff confidence >= 0.5.
func statusFromRootCause(rootCause *string) FindingStatus {
	if rootCause != nil && strings.TrimSpace(*rootCause) != "" {
		return FindingCompleted
	}
	return FindingInconclusive
}

// clampRootCause nulls out rootCause when confidence falls below the
// threshold I8 ties to FindingCompleted. The synthesis prompt instructs the
// model to leave root_cause unset in that case, but a payload that violates
// its own instructions (root_cause present, confidence < 0.5) must not be
// allowed to produce a FindingCompleted Finding with sub-threshold
// confidence, so the clamp holds regardless of what the model returns.
func clampRootCause(rootCause *string, confidence float64) *string {
	if confidence < 0.5 {
		return nil
	}
	return rootCause
}

// NewSynthesizedFinding builds a Finding from a synthesis result, deriving
// Status per invariant I8 rather than trusting a caller-supplied value.
func NewSynthesizedFinding(investigationID string, rootCause *string, confidence float64, evidence []Evidence, recommendations []string, causalChain []string, estimatedOnset, affectedScope string) Finding {
	rootCause = clampRootCause(rootCause, confidence)
	return Finding{
		InvestigationID: investigationID,
		Status:          statusFromRootCause(rootCause),
		RootCause:       rootCause,
		Confidence:      confidence,
		Evidence:        evidence,
		Recommendations: recommendations,
		CausalChain:     causalChain,
		EstimatedOnset:  estimatedOnset,
		AffectedScope:   affectedScope,
	}
}

// FailedFinding builds the partial Finding returned when the circuit breaker
// trips or an unhandled fault aborts the run (spec.md §4.2, §7).
func FailedFinding(investigationID, reason string, durationSeconds float64) Finding {
	return Finding{
		InvestigationID: investigationID,
		Status:          FindingFailed,
		Confidence:      0,
		Evidence:        nil,
		Recommendations: []string{reason},
		DurationSeconds: durationSeconds,
	}
}

// QualityAssessment is the output of the quality validator's rubric scoring
// for one interpretation or synthesis.
type QualityAssessment struct {
	CausalDepth           float64
	Specificity           float64
	Actionability         float64
	CompositeScore        float64
	LowestDimension       string
	ImprovementSuggestion string
	Passed                bool
}
