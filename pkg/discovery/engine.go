// Package discovery implements the context engine: the component that
// gathers an investigation's InvestigationContext (schema + optional
// lineage) from external adapters, failing fast on an empty schema
// (spec.md §4.3). It is named discovery rather than context to avoid
// shadowing the standard library's context package in any file that needs
// both.
package discovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dataing-sh/investigator/pkg/adapters"
	"github.com/dataing-sh/investigator/pkg/discovery/contextdata"
	"github.com/dataing-sh/investigator/pkg/domain"
)

// ErrSchemaDiscovery is the terminal input failure of spec.md §7: the
// warehouse was unreachable or returned an empty schema. This is always
// fatal to the run and is propagated to the caller, never converted into a
// partial Finding.
type ErrSchemaDiscovery struct {
	Message string
	Cause   error
}

func (e *ErrSchemaDiscovery) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ErrSchemaDiscovery) Unwrap() error { return e.Cause }

// InvestigationContext is the schema+lineage bundle the orchestrator and
// agent client consume (spec.md §3.1).
type InvestigationContext struct {
	Schema  *contextdata.SchemaContext
	Lineage *contextdata.LineageContext

	// Enriched is populated by Gather whenever the Engine carries an
	// AnomalyConfirm or Correlate collaborator; nil when neither is
	// configured (SPEC_FULL.md §12.1 supplement).
	Enriched *EnrichedContext
}

// Engine is the thin coordinator described in spec.md §4.3, grounded on
// original_source/dataing/src/dataing/adapters/context/engine.py's
// ContextEngine.
type Engine struct {
	Lineage adapters.LineageAdapter
	Logger  *slog.Logger

	// AnomalyConfirm and Correlate are optional best-effort collaborators
	// Gather layers on top of the base schema/lineage context (SPEC_FULL.md
	// §12.1). Either may be nil, in which case that enrichment is skipped.
	AnomalyConfirm AnomalyConfirmer
	Correlate      Correlator
}

// AnomalyConfirmer re-queries the warehouse to confirm an anomaly is still
// observable, per the supplemented enriched-context path.
type AnomalyConfirmer interface {
	Confirm(ctx context.Context, adapter adapters.DataSourceAdapter, alert domain.AnomalyAlert) (AnomalyConfirmation, error)
}

// Correlator finds other metrics that moved at the same time as the
// anomaly, per the supplemented enriched-context path.
type Correlator interface {
	FindCorrelations(ctx context.Context, adapter adapters.DataSourceAdapter, alert domain.AnomalyAlert, schema *contextdata.SchemaContext) ([]Correlation, error)
}

// AnomalyConfirmation records whether the anomaly was verified in the data.
type AnomalyConfirmation struct {
	Exists bool
	Detail string
}

// Correlation is one cross-table pattern found by the (optional) correlation
// pass.
type Correlation struct {
	Table       string
	Description string
}

// EnrichedContext extends InvestigationContext with anomaly confirmation and
// correlations (SPEC_FULL.md §12.1). Both fields are best-effort: a failure
// in either leaves the field at its zero value and is only logged, never
// escalated.
type EnrichedContext struct {
	AnomalyConfirmed bool
	Confirmation     *AnomalyConfirmation
	Correlations     []Correlation
}

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

// Gather builds the InvestigationContext per spec.md §4.3: schema is
// required and fails fast when empty; lineage is optional and any failure
// is logged and swallowed. It also layers on the best-effort enriched
// context supplement of SPEC_FULL.md §12.1 — anomaly confirmation and
// cross-metric correlation — whenever AnomalyConfirm/Correlate are
// configured; a failure in either supplementary step is logged and never
// escalated to ErrSchemaDiscovery, and both are silently skipped when their
// collaborator is nil.
func (e *Engine) Gather(ctx context.Context, alert domain.AnomalyAlert, adapter adapters.DataSourceAdapter) (InvestigationContext, error) {
	log := logger(e.Logger).With("dataset", alert.DatasetID)
	log.Info("gathering_context")

	schema, err := adapter.GetSchema(ctx, nil)
	if err != nil {
		log.Error("schema_discovery_failed", "error", err)
		return InvestigationContext{}, &ErrSchemaDiscovery{Message: "failed to discover schema", Cause: err}
	}
	if schema.IsEmpty() {
		log.Error("no_tables_discovered")
		return InvestigationContext{}, &ErrSchemaDiscovery{
			Message: "no tables discovered; check database connectivity and permissions - investigation cannot proceed without schema",
		}
	}
	log.Info("schema_discovered", "tables_count", schema.TableCount())

	var lineage *contextdata.LineageContext
	if e.Lineage != nil {
		log.Info("discovering_lineage")
		l, lerr := e.fetchLineage(ctx, alert.DatasetID)
		if lerr != nil {
			log.Warn("lineage_discovery_failed", "error", lerr)
		} else {
			lineage = l
			log.Info("lineage_discovered", "upstream_count", len(l.Upstream), "downstream_count", len(l.Downstream))
		}
	}

	investCtx := InvestigationContext{Schema: schema, Lineage: lineage}

	if e.AnomalyConfirm != nil || e.Correlate != nil {
		investCtx.Enriched = e.gatherEnrichment(ctx, log, alert, adapter, schema)
	}

	return investCtx, nil
}

// gatherEnrichment runs the optional anomaly-confirmation and correlation
// passes. Both are best-effort: a failure in either leaves that field at
// its zero value and is only logged.
func (e *Engine) gatherEnrichment(ctx context.Context, log *slog.Logger, alert domain.AnomalyAlert, adapter adapters.DataSourceAdapter, schema *contextdata.SchemaContext) *EnrichedContext {
	enriched := &EnrichedContext{}

	if e.AnomalyConfirm != nil {
		log.Info("confirming_anomaly")
		confirmation, cerr := e.AnomalyConfirm.Confirm(ctx, adapter, alert)
		if cerr != nil {
			log.Warn("anomaly_confirmation_failed", "error", cerr)
		} else {
			enriched.Confirmation = &confirmation
			enriched.AnomalyConfirmed = confirmation.Exists
			log.Info("anomaly_confirmation", "confirmed", confirmation.Exists)
		}
	}

	if e.Correlate != nil {
		log.Info("finding_correlations")
		correlations, cerr := e.Correlate.FindCorrelations(ctx, adapter, alert, schema)
		if cerr != nil {
			log.Warn("correlation_analysis_failed", "error", cerr)
		} else {
			enriched.Correlations = correlations
			log.Info("correlations_found", "count", len(correlations))
		}
	}

	return enriched
}

func (e *Engine) fetchLineage(ctx context.Context, datasetID string) (*contextdata.LineageContext, error) {
	upstream, err := e.Lineage.GetUpstream(ctx, datasetID, 1)
	if err != nil {
		return nil, fmt.Errorf("get_upstream: %w", err)
	}
	downstream, err := e.Lineage.GetDownstream(ctx, datasetID, 1)
	if err != nil {
		return nil, fmt.Errorf("get_downstream: %w", err)
	}
	return &contextdata.LineageContext{
		Target:     datasetID,
		Upstream:   names(upstream),
		Downstream: names(downstream),
	}, nil
}

func names(ds []adapters.Dataset) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.QualifiedName
	}
	return out
}
