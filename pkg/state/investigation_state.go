package state

import (
	"time"

	"github.com/dataing-sh/investigator/pkg/discovery/contextdata"
)

// Status is the coarse lifecycle phase of an investigation, derived from the
// tail of the event log (spec.md §3.3).
type Status string

const (
	StatusStarted    Status = "started"
	StatusGathering  Status = "context_gathered"
	StatusInProgress Status = "in_progress"
	StatusSynthesized Status = "synthesized"
	StatusFailed     Status = "failed"
)

// InvestigationState is a value object: the identity of one run, its
// append-only events, and the context gathered once. It does not hold the
// alert; callers pass the alert alongside it. Every mutation
// method returns a *new* InvestigationState; nothing here is ever mutated
// in place (spec.md §3.1, §8.2 append-only law).
type InvestigationState struct {
	ID       string
	TenantID string
	Events   []Event

	SchemaContext  *contextdata.SchemaContext
	LineageContext *contextdata.LineageContext
}

// New creates the initial state for a fresh investigation: no events, no
// context. Callers append investigation_started themselves via AppendEvent
// so that the timestamp source stays in the caller's control (spec.md §3.3).
func New(id, tenantID string) InvestigationState {
	return InvestigationState{ID: id, TenantID: tenantID, Events: nil}
}

// AppendEvent returns a new state with e appended. The receiver is left
// unchanged.
func (s InvestigationState) AppendEvent(e Event) InvestigationState {
	next := s
	next.Events = make([]Event, len(s.Events)+1)
	copy(next.Events, s.Events)
	next.Events[len(s.Events)] = e
	return next
}

// WithContext returns a new state with SchemaContext/LineageContext set.
// schema_context is expected to be written at most once per investigation
// (spec.md §3.2); callers that violate this are not prevented here — the
// invariant is documented, not enforced, per spec.md's own wording.
func (s InvestigationState) WithContext(schema *contextdata.SchemaContext, lineage *contextdata.LineageContext) InvestigationState {
	next := s
	next.SchemaContext = schema
	next.LineageContext = lineage
	return next
}

// Status derives the coarse lifecycle phase from the tail of the event log.
func (s InvestigationState) Status() Status {
	if len(s.Events) == 0 {
		return StatusStarted
	}
	switch s.Events[len(s.Events)-1].Type {
	case EventInvestigationFailed, EventSchemaDiscoveryFailed:
		return StatusFailed
	case EventSynthesisCompleted:
		return StatusSynthesized
	case EventContextGathered:
		return StatusGathering
	default:
		return StatusInProgress
	}
}

// StartedAt returns the timestamp of the investigation_started event, used
// by the circuit breaker's wall-clock check. The zero time is returned if
// no such event exists yet.
func (s InvestigationState) StartedAt() time.Time {
	for _, e := range s.Events {
		if e.Type == EventInvestigationStarted {
			return e.Timestamp
		}
	}
	return time.Time{}
}

// RetryCount is the number of reflexion_attempted events recorded for h.
func (s InvestigationState) RetryCount(h string) int {
	n := 0
	for _, e := range s.Events {
		if e.Type != EventReflexionAttempted {
			continue
		}
		if id, ok := e.hypothesisID(); ok && id == h {
			n++
		}
	}
	return n
}

// QueryCount is the number of query_submitted events across the whole run.
func (s InvestigationState) QueryCount() int {
	n := 0
	for _, e := range s.Events {
		if e.Type == EventQuerySubmitted {
			n++
		}
	}
	return n
}

// HypothesisQueryCount is the number of query_submitted events for h.
func (s InvestigationState) HypothesisQueryCount(h string) int {
	n := 0
	for _, e := range s.Events {
		if e.Type != EventQuerySubmitted {
			continue
		}
		if id, ok := e.hypothesisID(); ok && id == h {
			n++
		}
	}
	return n
}

// FailedQueries returns the SQL text of every query_failed event for h, in
// append order, for use as reflexion context.
func (s InvestigationState) FailedQueries(h string) []string {
	var out []string
	for _, e := range s.Events {
		if e.Type != EventQueryFailed {
			continue
		}
		id, ok := e.hypothesisID()
		if !ok || id != h {
			continue
		}
		if q, ok := e.query(); ok {
			out = append(out, q)
		}
	}
	return out
}

// AllQueries returns the SQL text of every query_submitted event for h, in
// append order, for the duplicate-query short-circuit (spec.md §4.6.2).
func (s InvestigationState) AllQueries(h string) []string {
	var out []string
	for _, e := range s.Events {
		if e.Type != EventQuerySubmitted {
			continue
		}
		id, ok := e.hypothesisID()
		if !ok || id != h {
			continue
		}
		if q, ok := e.query(); ok {
			out = append(out, q)
		}
	}
	return out
}

// ConsecutiveFailures scans the event log from the tail, counting
// query_failed events across all hypotheses until a query_succeeded is
// seen (spec.md §4.1).
func (s InvestigationState) ConsecutiveFailures() int {
	n := 0
	for i := len(s.Events) - 1; i >= 0; i-- {
		switch s.Events[i].Type {
		case EventQueryFailed:
			n++
		case EventQuerySucceeded:
			return n
		}
	}
	return n
}

// LastFailedQuery returns the error text of the most recent query_failed
// event for h, used as previous_error when retrying (spec.md §4.6.2 step 2).
func (s InvestigationState) LastFailedQuery(h string) (sql string, errText string, ok bool) {
	for i := len(s.Events) - 1; i >= 0; i-- {
		e := s.Events[i]
		if e.Type != EventQueryFailed {
			continue
		}
		id, idOK := e.hypothesisID()
		if !idOK || id != h {
			continue
		}
		q, _ := e.query()
		errVal, _ := e.Data["error"].(string)
		return q, errVal, true
	}
	return "", "", false
}

// LastTwoQueriesEqual reports whether the last two query_submitted events
// for h carry identical SQL text (spec.md §4.6.4's deliberate raw-string
// duplicate-query check).
func (s InvestigationState) LastTwoQueriesEqual(h string) bool {
	q := s.AllQueries(h)
	if len(q) < 2 {
		return false
	}
	return q[len(q)-1] == q[len(q)-2]
}
