package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataing-sh/investigator/pkg/adapters"
	"github.com/dataing-sh/investigator/pkg/agent"
	"github.com/dataing-sh/investigator/pkg/discovery"
	"github.com/dataing-sh/investigator/pkg/discovery/contextdata"
	"github.com/dataing-sh/investigator/pkg/domain"
	"github.com/dataing-sh/investigator/pkg/safety"
	"github.com/dataing-sh/investigator/pkg/state"
)

func testAlert() domain.AnomalyAlert {
	return domain.AnomalyAlert{
		DatasetID:     "sales.orders",
		MetricSpec:    domain.NewColumnMetricSpec("user_id"),
		AnomalyType:   "null_rate",
		ExpectedValue: 0.5,
		ActualValue:   12.3,
		DeviationPct:  2360,
		AnomalyDate:   "2024-01-15",
		Severity:      "high",
	}
}

func twoTableSchema() *contextdata.SchemaContext {
	return &contextdata.SchemaContext{Tables: []contextdata.Table{
		{Name: "sales.orders", Columns: []contextdata.Column{{Name: "user_id", DataType: contextdata.ColumnString}}},
		{Name: "sales.stg_users", Columns: []contextdata.Column{{Name: "id", DataType: contextdata.ColumnString}}},
	}}
}

type stubContextGatherer struct {
	ctx discovery.InvestigationContext
	err error
}

func (s stubContextGatherer) Gather(ctx context.Context, alert domain.AnomalyAlert, adapter adapters.DataSourceAdapter) (discovery.InvestigationContext, error) {
	return s.ctx, s.err
}

type stubAdapter struct {
	result adapters.QueryResult
	err    error
}

func (a stubAdapter) ExecuteQuery(ctx context.Context, sql string, params map[string]any, timeoutSeconds int, limit *int) (adapters.QueryResult, error) {
	return a.result, a.err
}

func (a stubAdapter) GetSchema(ctx context.Context, filter *adapters.SchemaFilter) (*contextdata.SchemaContext, error) {
	return twoTableSchema(), nil
}

// stubAgent implements AgentClient with scripted, deterministic responses.
type stubAgent struct {
	hypotheses    []domain.Hypothesis
	hypothesesErr error
	query         string
	evidence      domain.Evidence
	finding       domain.Finding
	findingErr    error
}

func (a *stubAgent) GenerateHypotheses(ctx context.Context, alert domain.AnomalyAlert, investCtx discovery.InvestigationContext, handlers *agent.StreamHandlers) ([]domain.Hypothesis, error) {
	return a.hypotheses, a.hypothesesErr
}

func (a *stubAgent) GenerateQuery(ctx context.Context, schema *contextdata.SchemaContext, h domain.Hypothesis, handlers *agent.StreamHandlers) (string, error) {
	return a.query, nil
}

func (a *stubAgent) GenerateReflexionQuery(ctx context.Context, schema *contextdata.SchemaContext, h domain.Hypothesis, previousQuery, previousError string, handlers *agent.StreamHandlers) (string, error) {
	return a.query + " -- fixed", nil
}

func (a *stubAgent) InterpretEvidence(ctx context.Context, h domain.Hypothesis, query string, result adapters.QueryResult, handlers *agent.StreamHandlers) domain.Evidence {
	ev := a.evidence
	ev.HypothesisID = h.ID
	return ev
}

func (a *stubAgent) SynthesizeFindings(ctx context.Context, investigationID string, alert domain.AnomalyAlert, evidence []domain.Evidence, handlers *agent.StreamHandlers) (domain.Finding, error) {
	if a.findingErr != nil {
		return domain.Finding{}, a.findingErr
	}
	f := a.finding
	f.Evidence = evidence
	return f, nil
}

func hypothesis(id string) domain.Hypothesis {
	return domain.Hypothesis{
		ID: id, Title: "stg_users ETL job stalled overnight", Category: domain.CategoryUpstreamDependency,
		Reasoning: "the upstream users table looks stale based on lineage", SuggestedQuery: "SELECT 1",
		ExpectedIfTrue: "no recent rows in stg_users", ExpectedIfFalse: "stg_users is current",
	}
}

func newTestOrchestrator(agentClient AgentClient, cfg Config) *Orchestrator {
	return New(cfg, safety.New(safety.DefaultConfig()), stubContextGatherer{
		ctx: discovery.InvestigationContext{Schema: twoTableSchema()},
	}, agentClient, nil, nil, nil, nil)
}

func TestRunHappyPathStopsOnHighConfidence(t *testing.T) {
	root := "stg_users ETL job stalled at 03:14 UTC"
	a := &stubAgent{
		hypotheses: []domain.Hypothesis{hypothesis("h1"), hypothesis("h2"), hypothesis("h3")},
		query:      "SELECT * FROM sales.orders WHERE user_id IS NULL LIMIT 100",
		evidence:   domain.Evidence{SupportsHypothesis: domain.SupportsTrue, Confidence: 0.92, Interpretation: "NULLs cluster at 03:14"},
		finding:    domain.NewSynthesizedFinding("", &root, 0.88, nil, []string{"backfill stg_users"}, []string{"t1", "t2"}, "2024-01-15T03:14:00Z", "all orders"),
	}
	o := newTestOrchestrator(a, DefaultConfig())

	result := o.Run(context.Background(), "inv1", "tenant1", testAlert(), stubAdapter{result: adapters.QueryResult{RowCount: 42}})

	require.NoError(t, result.Err)
	assert.Equal(t, domain.FindingCompleted, result.Finding.Status)
	assert.InDelta(t, 0.88, result.Finding.Confidence, 1e-9)
	assert.GreaterOrEqual(t, len(result.Finding.Evidence), 1)

	snap := result.FinalState
	assert.Equal(t, 3, countEvents(snap, state.EventHypothesisGenerated))
	// Each worker stops after its first successful, high-confidence query.
	for _, h := range a.hypotheses {
		assert.LessOrEqual(t, snap.HypothesisQueryCount(h.ID), 1)
	}
}

func TestRunFailsFastOnEmptySchema(t *testing.T) {
	a := &stubAgent{}
	o := New(DefaultConfig(), safety.New(safety.DefaultConfig()), stubContextGatherer{
		err: &discovery.ErrSchemaDiscovery{Message: "No tables discovered"},
	}, a, nil, nil, nil, nil)

	result := o.Run(context.Background(), "inv2", "tenant1", testAlert(), stubAdapter{})

	require.Error(t, result.Err)
	assert.Equal(t, domain.Finding{}, result.Finding)
	snap := result.FinalState
	assert.Equal(t, 0, countEvents(snap, state.EventHypothesisGenerated))
	assert.Equal(t, 1, countEvents(snap, state.EventSchemaDiscoveryFailed))
}

func TestRunTripsCircuitBreakerOnTotalQueries(t *testing.T) {
	a := &stubAgent{
		hypotheses: []domain.Hypothesis{hypothesis("h1"), hypothesis("h2"), hypothesis("h3")},
		query:      "SELECT 1",
		evidence:   domain.Evidence{SupportsHypothesis: domain.SupportsUnknown, Confidence: 0.2},
	}
	cfg := DefaultConfig()
	tightBreaker := safety.New(safety.Config{
		MaxTotalQueries: 2, MaxQueriesPerHypothesis: 5, MaxRetriesPerHypothesis: 2,
		MaxConsecutiveFailures: 3, MaxDurationSeconds: 600,
	})
	o := New(cfg, tightBreaker, stubContextGatherer{ctx: discovery.InvestigationContext{Schema: twoTableSchema()}}, a, nil, nil, nil, nil)

	result := o.Run(context.Background(), "inv3", "tenant1", testAlert(), stubAdapter{result: adapters.QueryResult{RowCount: 1}})

	require.NoError(t, result.Err)
	assert.Equal(t, domain.FindingFailed, result.Finding.Status)
	assert.Equal(t, []string{"Investigation was stopped due to safety limits"}, result.Finding.Recommendations)

	snap := result.FinalState
	assert.LessOrEqual(t, countEvents(snap, state.EventQuerySubmitted), 2)
}

func TestRunInconclusiveSynthesisPreservesEvidence(t *testing.T) {
	a := &stubAgent{
		hypotheses: []domain.Hypothesis{hypothesis("h1"), hypothesis("h2"), hypothesis("h3")},
		query:      "SELECT 1",
		evidence:   domain.Evidence{SupportsHypothesis: domain.SupportsFalse, Confidence: 0.3},
		finding:    domain.NewSynthesizedFinding("", nil, 0.4, nil, []string{"gather more evidence"}, nil, "", ""),
	}
	o := newTestOrchestrator(a, DefaultConfig())

	result := o.Run(context.Background(), "inv4", "tenant1", testAlert(), stubAdapter{result: adapters.QueryResult{RowCount: 3}})

	require.NoError(t, result.Err)
	assert.Equal(t, domain.FindingInconclusive, result.Finding.Status)
	assert.Nil(t, result.Finding.RootCause)
	assert.Equal(t, 3, len(result.Finding.Evidence))
}

func TestRunSynthesisFailureIsFatal(t *testing.T) {
	a := &stubAgent{
		hypotheses: []domain.Hypothesis{hypothesis("h1")},
		query:      "SELECT 1",
		evidence:   domain.Evidence{SupportsHypothesis: domain.SupportsUnknown, Confidence: 0.3},
		findingErr: assert.AnError,
	}
	o := newTestOrchestrator(a, DefaultConfig())

	result := o.Run(context.Background(), "inv5", "tenant1", testAlert(), stubAdapter{result: adapters.QueryResult{RowCount: 1}})

	require.Error(t, result.Err)
	snap := result.FinalState
	assert.Equal(t, 1, countEvents(snap, state.EventInvestigationFailed))
}

// TestRunIsSafeForConcurrentInvocations guards against the Orchestrator
// storing per-investigation state on the receiver: two investigations
// launched concurrently on the same *Orchestrator must each see only their
// own event log, never a merged or clobbered one (spec.md §5's
// per-investigation isolation, exercised here the way the API actually
// drives it — one shared Orchestrator, one goroutine per POST).
func TestRunIsSafeForConcurrentInvocations(t *testing.T) {
	a := &stubAgent{
		hypotheses: []domain.Hypothesis{hypothesis("h1"), hypothesis("h2")},
		query:      "SELECT 1",
		evidence:   domain.Evidence{SupportsHypothesis: domain.SupportsTrue, Confidence: 0.95},
		finding:    domain.NewSynthesizedFinding("", nil, 0.6, nil, nil, nil, "", ""),
	}
	o := newTestOrchestrator(a, DefaultConfig())

	const runs = 8
	results := make([]Result, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			investigationID := fmt.Sprintf("inv-concurrent-%d", i)
			results[i] = o.Run(context.Background(), investigationID, "tenant1", testAlert(), stubAdapter{result: adapters.QueryResult{RowCount: 1}})
		}(i)
	}
	wg.Wait()

	for i, result := range results {
		require.NoError(t, result.Err)
		wantID := fmt.Sprintf("inv-concurrent-%d", i)
		assert.Equal(t, wantID, result.FinalState.ID)
		assert.Equal(t, 2, countEvents(result.FinalState, state.EventHypothesisGenerated))
	}
}

func countEvents(s state.InvestigationState, typ state.EventType) int {
	n := 0
	for _, e := range s.Events {
		if e.Type == typ {
			n++
		}
	}
	return n
}
