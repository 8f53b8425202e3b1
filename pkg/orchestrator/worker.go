package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dataing-sh/investigator/pkg/adapters"
	"github.com/dataing-sh/investigator/pkg/domain"
	"github.com/dataing-sh/investigator/pkg/state"
)

// runWorker is one hypothesis's investigation loop (spec.md §4.6.2): up to
// MaxQueriesPerHypothesis rounds of circuit-breaker check, query
// generation, duplicate-query short-circuit, execution, and
// interpret-or-reflex. It returns the Evidence collected before either
// exhausting its iteration budget, hitting a high-confidence stop, running
// out of retries, or finding a duplicate query. A non-nil error here is
// always a *safety.TrippedError — every other fault is absorbed locally per
// spec.md §4.6.5.
func (o *Orchestrator) runWorker(ctx context.Context, rs *runState, alert domain.AnomalyAlert, adapter adapters.DataSourceAdapter, h domain.Hypothesis) ([]domain.Evidence, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.runWorker", trace.WithAttributes(
		attribute.String("hypothesis_id", h.ID),
		attribute.String("category", string(h.Category)),
	))
	defer span.End()

	var evidence []domain.Evidence

	for i := 0; i < o.Config.MaxQueriesPerHypothesis; i++ {
		if ctx.Err() != nil {
			return evidence, nil
		}

		snapshot := rs.snapshot()
		if err := o.Breaker.Check(snapshot, h.ID, time.Now()); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "circuit breaker")
			return evidence, err
		}

		sql, err := o.generateQuery(ctx, snapshot, h)
		if err != nil {
			o.Logger.Error("generate query failed", "hypothesis_id", h.ID, "error", err)
			return evidence, nil
		}

		if containsString(snapshot.AllQueries(h.ID), sql) {
			return evidence, nil
		}

		// Re-check the breaker and append under one lock so concurrent workers
		// cannot all pass the total-query limit on the same stale snapshot.
		rs.mu.Lock()
		if err := o.Breaker.Check(rs.state, h.ID, time.Now()); err != nil {
			rs.mu.Unlock()
			span.RecordError(err)
			span.SetStatus(codes.Error, "circuit breaker")
			return evidence, err
		}
		rs.state = rs.state.AppendEvent(state.NewEvent(state.EventQuerySubmitted, time.Now(), map[string]any{"hypothesis_id": h.ID, "query": sql}))
		rs.mu.Unlock()

		queryCtx, cancel := context.WithTimeout(ctx, time.Duration(o.Config.QueryTimeoutSeconds)*time.Second)
		limit := 10000
		result, execErr := adapter.ExecuteQuery(queryCtx, sql, nil, o.Config.QueryTimeoutSeconds, &limit)
		cancel()

		if execErr != nil {
			rs.appendEvent(state.EventQueryFailed, map[string]any{"hypothesis_id": h.ID, "query": sql, "error": execErr.Error()})

			afterFailure := rs.snapshot()
			if afterFailure.RetryCount(h.ID) >= o.Config.MaxRetriesPerHypothesis {
				return evidence, nil
			}
			rs.appendEvent(state.EventReflexionAttempted, map[string]any{
				"hypothesis_id": h.ID, "retry_number": afterFailure.RetryCount(h.ID) + 1,
			})
			continue
		}

		rs.appendEvent(state.EventQuerySucceeded, map[string]any{"hypothesis_id": h.ID, "row_count": result.RowCount})

		ev := o.Agent.InterpretEvidence(ctx, h, sql, result, nil)
		evidence = append(evidence, ev)

		if o.Validator != nil && o.Config.ValidationEnabled {
			go func(ev domain.Evidence) {
				assessment := o.Validator.ValidateInterpretation(context.Background(), ev, h.Title, sql)
				o.recordSignal("interpretation", assessment, map[string]any{"hypothesis_id": h.ID})
			}(ev)
		}

		o.recordHypothesisVerdict(rs, h, ev)

		if ev.Confidence > o.Config.HighConfidenceThreshold {
			return evidence, nil
		}
	}
	return evidence, nil
}

// generateQuery picks the fresh or reflexion-mode prompt depending on
// whether h has a prior query_failed event (spec.md §4.6.2 steps 2-3).
func (o *Orchestrator) generateQuery(ctx context.Context, snapshot state.InvestigationState, h domain.Hypothesis) (string, error) {
	if prevQuery, prevErr, ok := snapshot.LastFailedQuery(h.ID); ok {
		return o.Agent.GenerateReflexionQuery(ctx, snapshot.SchemaContext, h, prevQuery, prevErr, nil)
	}
	return o.Agent.GenerateQuery(ctx, snapshot.SchemaContext, h, nil)
}

// recordHypothesisVerdict emits hypothesis_confirmed/hypothesis_rejected
// once interpret_evidence reaches a high-confidence tri-valued verdict.
// Neither spec.md §4.6.1 nor §4.6.2 names the emission point for these two
// event types explicitly (they only appear in the closed set, §4.1); this
// is the natural point given their names and is documented as an Open
// Question resolution in DESIGN.md.
func (o *Orchestrator) recordHypothesisVerdict(rs *runState, h domain.Hypothesis, ev domain.Evidence) {
	if ev.Confidence <= o.Config.HighConfidenceThreshold {
		return
	}
	switch ev.SupportsHypothesis {
	case domain.SupportsTrue:
		rs.appendEvent(state.EventHypothesisConfirmed, map[string]any{"hypothesis_id": h.ID, "confidence": ev.Confidence})
	case domain.SupportsFalse:
		rs.appendEvent(state.EventHypothesisRejected, map[string]any{"hypothesis_id": h.ID, "confidence": ev.Confidence})
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
