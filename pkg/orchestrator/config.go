package orchestrator

// Config is the OrchestratorConfig value object of spec.md §6.5. It is
// distinct from safety.Config: the two share a similarly named field
// (max_queries_per_hypothesis) but the limits are set independently and
// serve different purposes — this one bounds the per-hypothesis worker
// loop's iteration count, the breaker's bounds a global safety ceiling.
type Config struct {
	MaxHypotheses           int
	MaxQueriesPerHypothesis int
	MaxRetriesPerHypothesis int
	QueryTimeoutSeconds     int
	HighConfidenceThreshold float64
	ValidationEnabled       bool
	ValidationPassThreshold float64
	ValidationMaxRetries    int
}

// DefaultConfig returns the documented defaults (spec.md §6.5).
func DefaultConfig() Config {
	return Config{
		MaxHypotheses:           5,
		MaxQueriesPerHypothesis: 3,
		MaxRetriesPerHypothesis: 2,
		QueryTimeoutSeconds:     30,
		HighConfidenceThreshold: 0.85,
		ValidationEnabled:       true,
		ValidationPassThreshold: 0.6,
		ValidationMaxRetries:    2,
	}
}
