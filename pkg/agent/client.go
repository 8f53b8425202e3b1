package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dataing-sh/investigator/pkg/adapters"
	"github.com/dataing-sh/investigator/pkg/agent/prompt"
	"github.com/dataing-sh/investigator/pkg/discovery"
	"github.com/dataing-sh/investigator/pkg/discovery/contextdata"
	"github.com/dataing-sh/investigator/pkg/domain"
)

// Config bounds the retry behavior of every structured-output call a Client
// makes (spec.md §4.4, §9).
type Config struct {
	MaxRetries    int
	NumHypotheses int
}

// DefaultConfig mirrors the original implementation's agent defaults.
func DefaultConfig() Config {
	return Config{MaxRetries: 2, NumHypotheses: 5}
}

// Client is the facade over a Provider exposing the four structured-output
// investigation roles (spec.md §4.4). It never talks to the provider
// directly outside of callStructured, so every role shares the same
// retry/parse contract.
type Client struct {
	Provider Provider
	Config   Config
	Logger   *slog.Logger
}

// New builds a Client. A nil logger falls back to slog.Default().
func New(provider Provider, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{Provider: provider, Config: cfg, Logger: logger}
}

type hypothesesPayload struct {
	Hypotheses []domain.Hypothesis `json:"hypotheses"`
}

// GenerateHypotheses calls the hypothesize role and drops any hypothesis
// that fails domain.Hypothesis.Validate. An empty surviving list is a fatal,
// non-retryable LLMError — the orchestrator cannot proceed without at least
// one hypothesis (spec.md §4.4a, §7).
func (c *Client) GenerateHypotheses(ctx context.Context, alert domain.AnomalyAlert, investCtx discovery.InvestigationContext, handlers *StreamHandlers) ([]domain.Hypothesis, error) {
	req := Request{
		SystemPrompt: prompt.HypothesisSystem(c.Config.NumHypotheses),
		UserPrompt:   prompt.HypothesisUser(alert, investCtx),
		Handlers:     handlers,
	}
	var payload hypothesesPayload
	if _, err := callStructured(ctx, c.Provider, req, c.Config.MaxRetries, &payload); err != nil {
		return nil, fmt.Errorf("generate hypotheses: %w", err)
	}

	valid := make([]domain.Hypothesis, 0, len(payload.Hypotheses))
	for _, h := range payload.Hypotheses {
		if err := h.Validate(); err != nil {
			c.Logger.Warn("dropping invalid hypothesis", "error", err)
			continue
		}
		valid = append(valid, h)
	}
	if len(valid) == 0 {
		return nil, newLLMError(false, nil, "no valid hypotheses survived validation")
	}
	return valid, nil
}

type queryPayload struct {
	SQL string `json:"sql"`
}

// GenerateQuery calls the query role for the first attempt at a hypothesis.
func (c *Client) GenerateQuery(ctx context.Context, schema *contextdata.SchemaContext, h domain.Hypothesis, handlers *StreamHandlers) (string, error) {
	req := Request{
		SystemPrompt: prompt.QuerySystem(schema),
		UserPrompt:   prompt.QueryUser(h),
		Handlers:     handlers,
	}
	var payload queryPayload
	if _, err := callStructured(ctx, c.Provider, req, c.Config.MaxRetries, &payload); err != nil {
		return "", fmt.Errorf("generate query: %w", err)
	}
	return payload.SQL, nil
}

// GenerateReflexionQuery calls the query role in reflexion mode, after a
// previous attempt for the same hypothesis failed (spec.md §4.6.2).
func (c *Client) GenerateReflexionQuery(ctx context.Context, schema *contextdata.SchemaContext, h domain.Hypothesis, previousQuery, previousError string, handlers *StreamHandlers) (string, error) {
	req := Request{
		SystemPrompt: prompt.ReflexionSystem(schema),
		UserPrompt:   prompt.ReflexionUser(h, previousQuery, previousError),
		Handlers:     handlers,
	}
	var payload queryPayload
	if _, err := callStructured(ctx, c.Provider, req, c.Config.MaxRetries, &payload); err != nil {
		return "", fmt.Errorf("generate reflexion query: %w", err)
	}
	return payload.SQL, nil
}

type interpretationPayload struct {
	SupportsHypothesis      string   `json:"supports_hypothesis"`
	Confidence              float64  `json:"confidence"`
	Interpretation          string   `json:"interpretation"`
	CausalChain             string   `json:"causal_chain"`
	TriggerIdentified       string   `json:"trigger_identified"`
	DifferentiatingEvidence string   `json:"differentiating_evidence"`
	KeyFindings             []string `json:"key_findings"`
	NextInvestigationStep   string   `json:"next_investigation_step"`
}

func supportsFromString(s string) domain.SupportsHypothesis {
	switch s {
	case "true":
		return domain.SupportsTrue
	case "false":
		return domain.SupportsFalse
	default:
		return domain.SupportsUnknown
	}
}

// InterpretEvidence calls the interpret role. On failure it does not
// propagate the error — it degrades to a low-confidence placeholder
// Evidence so one bad interpretation never aborts an investigation
// (spec.md §4.4c, §7).
func (c *Client) InterpretEvidence(ctx context.Context, h domain.Hypothesis, query string, result adapters.QueryResult, handlers *StreamHandlers) domain.Evidence {
	req := Request{
		SystemPrompt: prompt.InterpretationSystem(),
		UserPrompt:   prompt.InterpretationUser(h, query, result),
		Handlers:     handlers,
	}
	var payload interpretationPayload
	if _, err := callStructured(ctx, c.Provider, req, c.Config.MaxRetries, &payload); err != nil {
		c.Logger.Warn("interpretation failed, degrading to placeholder evidence", "hypothesis_id", h.ID, "error", err)
		return domain.Evidence{
			HypothesisID:          h.ID,
			Query:                 query,
			ResultSummary:         result.ToSummary(),
			RowCount:              result.RowCount,
			SupportsHypothesis:    domain.SupportsUnknown,
			Confidence:            0.3,
			Interpretation:        fmt.Sprintf("interpretation unavailable: %v", err),
			NextInvestigationStep: "retry interpretation or investigate manually",
		}
	}
	return domain.Evidence{
		HypothesisID:            h.ID,
		Query:                   query,
		ResultSummary:           result.ToSummary(),
		RowCount:                result.RowCount,
		SupportsHypothesis:      supportsFromString(payload.SupportsHypothesis),
		Confidence:              payload.Confidence,
		Interpretation:          payload.Interpretation,
		CausalChain:             payload.CausalChain,
		TriggerIdentified:       payload.TriggerIdentified,
		DifferentiatingEvidence: payload.DifferentiatingEvidence,
		KeyFindings:             payload.KeyFindings,
		NextInvestigationStep:   payload.NextInvestigationStep,
	}
}

type synthesisPayload struct {
	RootCause       *string  `json:"root_cause"`
	Confidence      float64  `json:"confidence"`
	Recommendations []string `json:"recommendations"`
	CausalChain     []string `json:"causal_chain"`
	EstimatedOnset  string   `json:"estimated_onset"`
	AffectedScope   string   `json:"affected_scope"`
}

// SynthesizeFindings calls the synthesis role. Failure here is fatal: the
// investigation cannot produce a Finding without it (spec.md §4.4d, §7).
func (c *Client) SynthesizeFindings(ctx context.Context, investigationID string, alert domain.AnomalyAlert, evidence []domain.Evidence, handlers *StreamHandlers) (domain.Finding, error) {
	req := Request{
		SystemPrompt: prompt.SynthesisSystem(),
		UserPrompt:   prompt.SynthesisUser(alert, evidence),
		Handlers:     handlers,
	}
	var payload synthesisPayload
	if _, err := callStructured(ctx, c.Provider, req, c.Config.MaxRetries, &payload); err != nil {
		return domain.Finding{}, fmt.Errorf("synthesize findings: %w", err)
	}
	return domain.NewSynthesizedFinding(investigationID, payload.RootCause, payload.Confidence, evidence,
		payload.Recommendations, payload.CausalChain, payload.EstimatedOnset, payload.AffectedScope), nil
}
