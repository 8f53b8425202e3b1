package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(typ EventType, t time.Time, kv ...any) Event {
	data := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		data[kv[i].(string)] = kv[i+1]
	}
	return NewEvent(typ, t, data)
}

func TestAppendEventIsAppendOnly(t *testing.T) {
	now := time.Now()
	s0 := New("inv1", "tenant1")
	s1 := s0.AppendEvent(ev(EventInvestigationStarted, now))

	require.Len(t, s1.Events, 1)
	assert.Empty(t, s0.Events, "receiver must not be mutated")

	s2 := s1.AppendEvent(ev(EventContextGathered, now.Add(time.Second), "tables_found", 2))
	assert.Len(t, s2.Events, 2)
	assert.Len(t, s1.Events, 1, "prior state must remain untouched")
}

func TestDerivedCountersArePure(t *testing.T) {
	now := time.Now()
	s := New("inv1", "tenant1").
		AppendEvent(ev(EventInvestigationStarted, now)).
		AppendEvent(ev(EventQuerySubmitted, now, "hypothesis_id", "h1", "query", "SELECT 1")).
		AppendEvent(ev(EventQueryFailed, now, "hypothesis_id", "h1", "query", "SELECT 1", "error", "boom")).
		AppendEvent(ev(EventReflexionAttempted, now, "hypothesis_id", "h1", "retry_number", 1)).
		AppendEvent(ev(EventQuerySubmitted, now, "hypothesis_id", "h1", "query", "SELECT 2")).
		AppendEvent(ev(EventQuerySucceeded, now, "hypothesis_id", "h1", "row_count", 5))

	assert.Equal(t, 1, s.RetryCount("h1"))
	assert.Equal(t, 2, s.QueryCount())
	assert.Equal(t, 2, s.HypothesisQueryCount("h1"))
	assert.Equal(t, 0, s.ConsecutiveFailures(), "a later success resets the streak")
	assert.Equal(t, []string{"SELECT 1"}, s.FailedQueries("h1"))
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, s.AllQueries("h1"))

	// Idempotence: re-reading the same state produces the same counters.
	assert.Equal(t, s.RetryCount("h1"), s.RetryCount("h1"))
}

func TestConsecutiveFailuresCountsFromTail(t *testing.T) {
	now := time.Now()
	s := New("inv1", "tenant1").
		AppendEvent(ev(EventQueryFailed, now, "hypothesis_id", "h1")).
		AppendEvent(ev(EventQueryFailed, now, "hypothesis_id", "h2")).
		AppendEvent(ev(EventQueryFailed, now, "hypothesis_id", "h1"))

	assert.Equal(t, 3, s.ConsecutiveFailures())
}

func TestLastTwoQueriesEqual(t *testing.T) {
	now := time.Now()
	s := New("inv1", "tenant1").
		AppendEvent(ev(EventQuerySubmitted, now, "hypothesis_id", "h1", "query", "SELECT 1")).
		AppendEvent(ev(EventQuerySubmitted, now, "hypothesis_id", "h1", "query", "SELECT 1"))

	assert.True(t, s.LastTwoQueriesEqual("h1"))

	s2 := s.AppendEvent(ev(EventQuerySubmitted, now, "hypothesis_id", "h1", "query", "SELECT 2"))
	assert.False(t, s2.LastTwoQueriesEqual("h1"))
}

func TestStatusDerivation(t *testing.T) {
	now := time.Now()
	s := New("inv1", "tenant1")
	assert.Equal(t, StatusStarted, s.Status())

	s = s.AppendEvent(ev(EventInvestigationStarted, now))
	assert.Equal(t, StatusInProgress, s.Status())

	s = s.AppendEvent(ev(EventContextGathered, now))
	assert.Equal(t, StatusGathering, s.Status())

	s = s.AppendEvent(ev(EventSynthesisCompleted, now))
	assert.Equal(t, StatusSynthesized, s.Status())
}

func TestWithContextOnlyTouchesContextFields(t *testing.T) {
	s := New("inv1", "tenant1").AppendEvent(ev(EventInvestigationStarted, time.Now()))
	next := s.WithContext(nil, nil)
	assert.Equal(t, s.Events, next.Events)
}
