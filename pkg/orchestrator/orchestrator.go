// Package orchestrator drives one investigation end to end: context
// gathering, hypothesis generation, a bounded-parallel per-hypothesis
// worker pool, and fan-in synthesis (spec.md §4.6, §5), grounded on
// original_source/dataing/src/dataing/core/orchestrator.py for sequencing
// and codeready-toolchain-tarsy/pkg/agent/orchestrator/runner.go for the Go
// concurrency mechanics (mutex-guarded shared state, per-call timeouts
// derived from a parent context, panic containment per worker).
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dataing-sh/investigator/pkg/adapters"
	"github.com/dataing-sh/investigator/pkg/discovery/contextdata"
	"github.com/dataing-sh/investigator/pkg/domain"
	"github.com/dataing-sh/investigator/pkg/safety"
	"github.com/dataing-sh/investigator/pkg/state"
)

// tracer emits one span per investigation run and one per hypothesis worker
// (SPEC_FULL.md §11 DOMAIN STACK), matching the teacher's practice of
// instrumenting its own long-running execution paths with otel spans.
var tracer = otel.Tracer("github.com/dataing-sh/investigator/pkg/orchestrator")

// Orchestrator wires the circuit breaker, context engine, agent client, and
// quality validator together into the single state machine described in
// spec.md §4.6. It holds no per-investigation state itself — a single
// Orchestrator is shared across concurrently running investigations (the
// API wires exactly one into every request), so each call to Run owns a
// private *runState that is threaded through fanOut/runWorker by pointer,
// never stored on the receiver; this mirrors
// original_source/.../orchestrator.py, where state is a local passed
// between _gather_context/_investigate_parallel/_synthesize and never held
// on the orchestrator object itself. The zero value is not usable; build
// one via New.
type Orchestrator struct {
	Config    Config
	Breaker   *safety.Breaker
	Context   ContextGatherer
	Agent     AgentClient
	Validator QualityValidator
	Signals   TrainingSignalSink
	Feedback  adapters.FeedbackEmitter
	Logger    *slog.Logger
}

// runState is the mutable event log for one in-flight investigation. It is
// created fresh by Run and passed by pointer to every helper that appends
// to it, so concurrent investigations on the same Orchestrator never share
// a log, a circuit-breaker view, or duplicate-query history.
type runState struct {
	mu    sync.Mutex
	state state.InvestigationState
}

func newRunState(investigationID, tenantID string) *runState {
	return &runState{state: state.New(investigationID, tenantID)}
}

func (rs *runState) snapshot() state.InvestigationState {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.state
}

// appendEvent is the general path through which events enter the log
// (runWorker appends query_submitted itself, under the same mutex, together
// with a circuit-breaker re-check), guaranteeing the total-append-order
// guarantee of spec.md §5 without a dedicated mailbox channel: every caller,
// including hypothesis-worker goroutines investigating the same run,
// funnels through this one mutex.
func (rs *runState) appendEvent(typ state.EventType, data map[string]any) state.Event {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	ev := state.NewEvent(typ, time.Now(), data)
	rs.state = rs.state.AppendEvent(ev)
	return ev
}

func (rs *runState) withContext(schema *contextdata.SchemaContext, lineage *contextdata.LineageContext) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.state = rs.state.WithContext(schema, lineage)
}

// New builds an Orchestrator. Validator, Signals, and Feedback may be nil —
// each is consulted defensively and its absence only disables the
// corresponding best-effort side channel.
func New(cfg Config, breaker *safety.Breaker, ctxEngine ContextGatherer, agentClient AgentClient, validator QualityValidator, signals TrainingSignalSink, feedback adapters.FeedbackEmitter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Config:    cfg,
		Breaker:   breaker,
		Context:   ctxEngine,
		Agent:     agentClient,
		Validator: validator,
		Signals:   signals,
		Feedback:  feedback,
		Logger:    logger,
	}
}

func (o *Orchestrator) emitFeedback(tenantID, eventType string, data map[string]any, investigationID string) {
	if o.Feedback == nil {
		return
	}
	go func() {
		invID := investigationID
		if err := o.Feedback.Emit(context.Background(), tenantID, eventType, data, &invID, nil, nil, "system"); err != nil {
			o.Logger.Warn("feedback emit failed", "event_type", eventType, "error", err)
		}
	}()
}

func (o *Orchestrator) recordSignal(kind string, assessment domain.QualityAssessment, meta map[string]any) {
	if o.Signals == nil {
		return
	}
	if err := o.Signals.Record(context.Background(), kind, assessment, meta); err != nil {
		o.Logger.Warn("training signal record failed", "kind", kind, "error", err)
	}
}

// Result is the outcome of Run: exactly one of Finding or Err is
// meaningful. Err is only set for a SchemaDiscoveryError or a fatal
// synthesis failure — every other failure mode (circuit breaker trip,
// empty hypothesis list) is expressed as Finding.Status == "failed" with a
// nil Err, matching spec.md §7's "a Finding is always returned unless
// schema discovery failed" rule. FinalState is this run's own event log,
// private to the call that produced it — it is never shared with any
// other concurrent Run on the same Orchestrator.
type Result struct {
	Finding    domain.Finding
	Err        error
	FinalState state.InvestigationState
}

// Run drives one investigation from alert to Finding. It is safe to call
// concurrently on the same Orchestrator: every event appended during this
// call lives on a runState private to this invocation, never on the
// receiver.
func (o *Orchestrator) Run(ctx context.Context, investigationID, tenantID string, alert domain.AnomalyAlert, adapter adapters.DataSourceAdapter) Result {
	ctx, span := tracer.Start(ctx, "orchestrator.Run", trace.WithAttributes(
		attribute.String("investigation_id", investigationID),
		attribute.String("tenant_id", tenantID),
		attribute.String("dataset_id", alert.DatasetID),
	))
	defer span.End()

	start := time.Now()
	rs := newRunState(investigationID, tenantID)
	rs.appendEvent(state.EventInvestigationStarted, map[string]any{"dataset_id": alert.DatasetID})
	o.emitFeedback(tenantID, "investigation_started", map[string]any{"dataset_id": alert.DatasetID}, investigationID)

	investCtx, err := o.Context.Gather(ctx, alert, adapter)
	if err != nil {
		rs.appendEvent(state.EventSchemaDiscoveryFailed, map[string]any{"error": err.Error()})
		span.RecordError(err)
		span.SetStatus(codes.Error, "gather context")
		return Result{Err: fmt.Errorf("gather context: %w", err), FinalState: rs.snapshot()}
	}
	rs.withContext(investCtx.Schema, investCtx.Lineage)
	rs.appendEvent(state.EventContextGathered, map[string]any{
		"tables_found": investCtx.Schema.TableCount(),
		"has_lineage":  investCtx.Lineage != nil,
	})
	o.emitFeedback(tenantID, "context_gathered", map[string]any{"tables_found": investCtx.Schema.TableCount()}, investigationID)

	hypotheses, err := o.Agent.GenerateHypotheses(ctx, alert, investCtx, nil)
	if err != nil {
		rs.appendEvent(state.EventInvestigationFailed, map[string]any{"error": err.Error()})
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate hypotheses")
		return Result{
			Finding:    domain.FailedFinding(investigationID, "Hypothesis generation failed", time.Since(start).Seconds()),
			FinalState: rs.snapshot(),
		}
	}
	if len(hypotheses) > o.Config.MaxHypotheses {
		hypotheses = hypotheses[:o.Config.MaxHypotheses]
	}
	for _, h := range hypotheses {
		rs.appendEvent(state.EventHypothesisGenerated, map[string]any{
			"hypothesis_id": h.ID, "title": h.Title, "category": string(h.Category),
		})
	}

	evidence, tripErr := o.fanOut(ctx, rs, alert, adapter, hypotheses)
	if tripErr != nil {
		rs.appendEvent(state.EventInvestigationFailed, map[string]any{"error": tripErr.Error()})
		o.emitFeedback(tenantID, "investigation_completed", map[string]any{"status": "failed"}, investigationID)
		span.RecordError(tripErr)
		span.SetStatus(codes.Error, "circuit breaker tripped")
		return Result{
			Finding:    domain.FailedFinding(investigationID, "Investigation was stopped due to safety limits", time.Since(start).Seconds()),
			FinalState: rs.snapshot(),
		}
	}

	finding, err := o.Agent.SynthesizeFindings(ctx, investigationID, alert, evidence, nil)
	if err != nil {
		rs.appendEvent(state.EventInvestigationFailed, map[string]any{"error": err.Error()})
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesize findings")
		return Result{Err: fmt.Errorf("synthesize findings: %w", err), FinalState: rs.snapshot()}
	}
	finding.InvestigationID = investigationID
	finding.DurationSeconds = time.Since(start).Seconds()
	rs.appendEvent(state.EventSynthesisCompleted, map[string]any{"root_cause": finding.RootCause, "confidence": finding.Confidence})

	if o.Validator != nil && o.Config.ValidationEnabled {
		go func() {
			assessment := o.Validator.ValidateSynthesis(context.Background(), finding, alertSummary(alert))
			o.recordSignal("synthesis", assessment, map[string]any{"investigation_id": investigationID})
		}()
	}
	o.emitFeedback(tenantID, "investigation_completed", map[string]any{"status": string(finding.Status), "confidence": finding.Confidence}, investigationID)

	return Result{Finding: finding, FinalState: rs.snapshot()}
}

// fanOut runs one worker per hypothesis concurrently (spec.md §4.6.1 step 4,
// §5). A CircuitBreakerTripped observed by any worker cancels the shared
// context so every other worker stops at its next suspension point; the
// first trip observed is returned to the caller. A panicking worker is
// contained, logged, and contributes no evidence — it never aborts the run
// (spec.md §4.6.5). rs is this run's own state, shared only among the
// workers fanOut itself spawns.
func (o *Orchestrator) fanOut(ctx context.Context, rs *runState, alert domain.AnomalyAlert, adapter adapters.DataSourceAdapter, hypotheses []domain.Hypothesis) ([]domain.Evidence, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([][]domain.Evidence, len(hypotheses))
	var tripMu sync.Mutex
	var tripErr error

	var wg sync.WaitGroup
	for i, h := range hypotheses {
		wg.Add(1)
		go func(i int, h domain.Hypothesis) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.Logger.Error("hypothesis worker panicked", "hypothesis_id", h.ID, "panic", r)
				}
			}()

			ev, err := o.runWorker(runCtx, rs, alert, adapter, h)
			if err != nil {
				var te *safety.TrippedError
				if errors.As(err, &te) {
					tripMu.Lock()
					if tripErr == nil {
						tripErr = err
						cancel()
					}
					tripMu.Unlock()
					return
				}
				o.Logger.Error("hypothesis worker failed", "hypothesis_id", h.ID, "error", err)
				return
			}
			results[i] = ev
		}(i, h)
	}
	wg.Wait()

	if tripErr != nil {
		return nil, tripErr
	}
	var all []domain.Evidence
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

func alertSummary(alert domain.AnomalyAlert) string {
	return fmt.Sprintf("dataset=%s metric=%s type=%s expected=%v actual=%v deviation=%v%% date=%s severity=%s",
		alert.DatasetID, alert.MetricSpec.DisplayName, alert.AnomalyType,
		alert.ExpectedValue, alert.ActualValue, alert.DeviationPct, alert.AnomalyDate, alert.Severity)
}
