package safety

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataing-sh/investigator/pkg/state"
)

func event(typ state.EventType, t time.Time, kv ...any) state.Event {
	data := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		data[kv[i].(string)] = kv[i+1]
	}
	return state.NewEvent(typ, t, data)
}

func TestBreakerTripsOnTotalQueries(t *testing.T) {
	now := time.Now()
	b := New(Config{MaxTotalQueries: 2, MaxQueriesPerHypothesis: 100, MaxRetriesPerHypothesis: 100, MaxConsecutiveFailures: 100, MaxDurationSeconds: 10000})

	s := state.New("inv1", "t1").
		AppendEvent(event(state.EventInvestigationStarted, now)).
		AppendEvent(event(state.EventQuerySubmitted, now, "hypothesis_id", "h1", "query", "q1")).
		AppendEvent(event(state.EventQuerySubmitted, now, "hypothesis_id", "h2", "query", "q2"))

	err := b.Check(s, "h3", now)
	require.Error(t, err)
	var tripErr *TrippedError
	require.True(t, errors.As(err, &tripErr))
	assert.Equal(t, "max_total_queries", tripErr.Limit)
}

func TestBreakerTripsOnDuplicateQuery(t *testing.T) {
	now := time.Now()
	b := New(DefaultConfig())
	s := state.New("inv1", "t1").
		AppendEvent(event(state.EventQuerySubmitted, now, "hypothesis_id", "h1", "query", "SELECT 1")).
		AppendEvent(event(state.EventQuerySubmitted, now, "hypothesis_id", "h1", "query", "SELECT 1"))

	err := b.Check(s, "h1", now)
	require.Error(t, err)
	var tripErr *TrippedError
	require.True(t, errors.As(err, &tripErr))
	assert.Equal(t, "duplicate_query", tripErr.Limit)
}

func TestBreakerTripsOnConsecutiveFailures(t *testing.T) {
	now := time.Now()
	b := New(Config{MaxTotalQueries: 1000, MaxQueriesPerHypothesis: 1000, MaxRetriesPerHypothesis: 1000, MaxConsecutiveFailures: 2, MaxDurationSeconds: 10000})
	s := state.New("inv1", "t1").
		AppendEvent(event(state.EventQueryFailed, now, "hypothesis_id", "h1")).
		AppendEvent(event(state.EventQueryFailed, now, "hypothesis_id", "h2"))

	err := b.Check(s, "", now)
	require.Error(t, err)
	var tripErr *TrippedError
	require.True(t, errors.As(err, &tripErr))
	assert.Equal(t, "max_consecutive_failures", tripErr.Limit)
}

func TestBreakerTripsOnDuration(t *testing.T) {
	start := time.Now().Add(-20 * time.Minute)
	b := New(Config{MaxTotalQueries: 1000, MaxQueriesPerHypothesis: 1000, MaxRetriesPerHypothesis: 1000, MaxConsecutiveFailures: 1000, MaxDurationSeconds: 600})
	s := state.New("inv1", "t1").AppendEvent(event(state.EventInvestigationStarted, start))

	err := b.Check(s, "", time.Now())
	require.Error(t, err)
	var tripErr *TrippedError
	require.True(t, errors.As(err, &tripErr))
	assert.Equal(t, "max_duration_seconds", tripErr.Limit)
}

func TestBreakerPassesWithinLimits(t *testing.T) {
	now := time.Now()
	b := New(DefaultConfig())
	s := state.New("inv1", "t1").AppendEvent(event(state.EventInvestigationStarted, now))
	assert.NoError(t, b.Check(s, "h1", now))
}

func TestBreakerRetryLimitScopedToHypothesis(t *testing.T) {
	now := time.Now()
	b := New(Config{MaxTotalQueries: 1000, MaxQueriesPerHypothesis: 1000, MaxRetriesPerHypothesis: 1, MaxConsecutiveFailures: 1000, MaxDurationSeconds: 10000})
	s := state.New("inv1", "t1").AppendEvent(event(state.EventReflexionAttempted, now, "hypothesis_id", "h1", "retry_number", 1))

	assert.Error(t, b.Check(s, "h1", now))
	assert.NoError(t, b.Check(s, "h2", now), "retry count is per-hypothesis")
}
