// Package safety implements the circuit breaker: a pure, stateless set of
// checks over an investigation's event log that stop a run before it
// consumes unbounded resources (spec.md §4.2).
package safety

import (
	"fmt"
	"time"

	"github.com/dataing-sh/investigator/pkg/state"
)

// Config holds the per-run safety limits. Defaults match spec.md §4.2 /
// §6.5 exactly, grounded on
// original_source/backend/src/dataing/safety/circuit_breaker.py's
// CircuitBreakerConfig.
type Config struct {
	MaxTotalQueries         int
	MaxQueriesPerHypothesis int
	MaxRetriesPerHypothesis int
	MaxConsecutiveFailures  int
	MaxDurationSeconds      int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxTotalQueries:         50,
		MaxQueriesPerHypothesis: 5,
		MaxRetriesPerHypothesis: 2,
		MaxConsecutiveFailures:  3,
		MaxDurationSeconds:      600,
	}
}

// TrippedError reports the specific limit that fired. It wraps no
// underlying error — it is itself the terminal fault of spec.md §7's
// "safety trip" kind.
type TrippedError struct {
	Limit   string
	Message string
}

func (e *TrippedError) Error() string { return e.Message }

func tripped(limit, format string, args ...any) error {
	return &TrippedError{Limit: limit, Message: fmt.Sprintf(format, args...)}
}

// Breaker checks every circuit-breaker condition before a query or LLM call.
type Breaker struct {
	Config Config
}

// New builds a Breaker with the given config.
func New(cfg Config) *Breaker {
	return &Breaker{Config: cfg}
}

// Check runs every applicable condition against s, scoped to hypothesisID
// when non-empty. now is the caller's wall-clock reading, used for the
// max_duration_seconds check. The first tripped condition is returned;
// spec.md's open question on check ordering says any order is acceptable
// as long as all are checked, so this runs the run-wide checks (total
// queries, consecutive failures, duration) first, then the
// hypothesis-scoped ones (duplicate query, per-hypothesis queries, retries).
func (b *Breaker) Check(s state.InvestigationState, hypothesisID string, now time.Time) error {
	if err := b.checkTotalQueries(s); err != nil {
		return err
	}
	if err := b.checkConsecutiveFailures(s); err != nil {
		return err
	}
	if err := b.checkDuration(s, now); err != nil {
		return err
	}
	if hypothesisID != "" {
		if err := b.checkDuplicateQuery(s, hypothesisID); err != nil {
			return err
		}
		if err := b.checkHypothesisQueries(s, hypothesisID); err != nil {
			return err
		}
		if err := b.checkHypothesisRetries(s, hypothesisID); err != nil {
			return err
		}
	}
	return nil
}

func (b *Breaker) checkTotalQueries(s state.InvestigationState) error {
	count := s.QueryCount()
	if count >= b.Config.MaxTotalQueries {
		return tripped("max_total_queries", "Total query limit reached: %d/%d", count, b.Config.MaxTotalQueries)
	}
	return nil
}

func (b *Breaker) checkHypothesisQueries(s state.InvestigationState, h string) error {
	count := s.HypothesisQueryCount(h)
	if count >= b.Config.MaxQueriesPerHypothesis {
		return tripped("max_queries_per_hypothesis", "Hypothesis query limit reached: %d/%d", count, b.Config.MaxQueriesPerHypothesis)
	}
	return nil
}

func (b *Breaker) checkHypothesisRetries(s state.InvestigationState, h string) error {
	count := s.RetryCount(h)
	if count >= b.Config.MaxRetriesPerHypothesis {
		return tripped("max_retries_per_hypothesis", "Hypothesis retry limit reached: %d/%d", count, b.Config.MaxRetriesPerHypothesis)
	}
	return nil
}

func (b *Breaker) checkConsecutiveFailures(s state.InvestigationState) error {
	consecutive := s.ConsecutiveFailures()
	if consecutive >= b.Config.MaxConsecutiveFailures {
		return tripped("max_consecutive_failures", "Consecutive failure limit reached: %d", consecutive)
	}
	return nil
}

// checkDuplicateQuery detects the LLM repeatedly generating the same query
// for one hypothesis (the last two submitted queries are identical, whether
// or not they failed) — a stall condition, not merely the orchestrator's
// own short-circuit (spec.md §4.2 last row). The orchestrator's worker loop
// also short-circuits on this directly (spec.md §4.6.2 step 4); this check
// exists so the breaker alone is sufficient to catch it if a caller invokes
// it out of the orchestrator's usual sequencing.
func (b *Breaker) checkDuplicateQuery(s state.InvestigationState, h string) error {
	if s.LastTwoQueriesEqual(h) {
		return tripped("duplicate_query", "Duplicate query detected - investigation stalled")
	}
	return nil
}

// checkDuration enforces max_duration_seconds against the
// investigation_started event's timestamp. This check is absent from the
// original Python CircuitBreaker.check() despite being documented there;
// spec.md §4.2 requires it, so it is implemented here for real
// (see DESIGN.md / SPEC_FULL.md §12.2).
func (b *Breaker) checkDuration(s state.InvestigationState, now time.Time) error {
	started := s.StartedAt()
	if started.IsZero() {
		return nil
	}
	elapsed := now.Sub(started)
	limit := time.Duration(b.Config.MaxDurationSeconds) * time.Second
	if elapsed >= limit {
		return tripped("max_duration_seconds", "Investigation duration limit reached: %.0fs/%ds", elapsed.Seconds(), b.Config.MaxDurationSeconds)
	}
	return nil
}
