package orchestrator

import (
	"context"

	"github.com/dataing-sh/investigator/pkg/adapters"
	"github.com/dataing-sh/investigator/pkg/agent"
	"github.com/dataing-sh/investigator/pkg/discovery"
	"github.com/dataing-sh/investigator/pkg/discovery/contextdata"
	"github.com/dataing-sh/investigator/pkg/domain"
)

// AgentClient is the subset of *agent.Client the orchestrator depends on: the
// four structured-output roles of spec.md §4.4. It is an interface so tests
// can stub each role independently of any real agent.Provider.
type AgentClient interface {
	GenerateHypotheses(ctx context.Context, alert domain.AnomalyAlert, investCtx discovery.InvestigationContext, handlers *agent.StreamHandlers) ([]domain.Hypothesis, error)
	GenerateQuery(ctx context.Context, schema *contextdata.SchemaContext, h domain.Hypothesis, handlers *agent.StreamHandlers) (string, error)
	GenerateReflexionQuery(ctx context.Context, schema *contextdata.SchemaContext, h domain.Hypothesis, previousQuery, previousError string, handlers *agent.StreamHandlers) (string, error)
	InterpretEvidence(ctx context.Context, h domain.Hypothesis, query string, result adapters.QueryResult, handlers *agent.StreamHandlers) domain.Evidence
	SynthesizeFindings(ctx context.Context, investigationID string, alert domain.AnomalyAlert, evidence []domain.Evidence, handlers *agent.StreamHandlers) (domain.Finding, error)
}

// ContextGatherer is the subset of *discovery.Engine the orchestrator
// depends on (spec.md §4.3).
type ContextGatherer interface {
	Gather(ctx context.Context, alert domain.AnomalyAlert, adapter adapters.DataSourceAdapter) (discovery.InvestigationContext, error)
}

// QualityValidator is the subset of *quality.Validator the orchestrator
// depends on (spec.md §4.5). A nil QualityValidator disables validation
// regardless of Config.ValidationEnabled.
type QualityValidator interface {
	ValidateInterpretation(ctx context.Context, e domain.Evidence, hypothesisTitle, query string) domain.QualityAssessment
	ValidateSynthesis(ctx context.Context, f domain.Finding, alertSummary string) domain.QualityAssessment
}

// TrainingSignalSink persists the dimensional breakdown a QualityValidator
// produces, the supplemented training-signal surface of SPEC_FULL.md §12.3.
// Writes are best-effort; a failing sink must never affect a Finding.
type TrainingSignalSink interface {
	Record(ctx context.Context, kind string, assessment domain.QualityAssessment, meta map[string]any) error
}
