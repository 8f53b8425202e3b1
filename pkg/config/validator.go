package config

import "fmt"

// Validator performs structural validation over a loaded AppConfig,
// grounded on codeready-toolchain-tarsy/pkg/config/validator.go's
// ValidateAll entry point and per-component validate* method split.
type Validator struct {
	cfg *AppConfig
}

// NewValidator constructs a Validator bound to cfg.
func NewValidator(cfg *AppConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every validation pass, aggregating all failures rather
// than stopping at the first one so an operator sees every problem at once.
func (v *Validator) ValidateAll() error {
	var errs []error
	errs = append(errs, v.validateOrchestrator()...)
	errs = append(errs, v.validateCircuitBreaker()...)
	errs = append(errs, v.validateDatabase()...)
	errs = append(errs, v.validateAPI()...)
	errs = append(errs, v.validateLLMProviders()...)

	if len(errs) == 0 {
		return nil
	}
	msg := fmt.Sprintf("%d configuration error(s):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%w: %s", ErrValidationFailed, msg)
}

func (v *Validator) validateOrchestrator() []error {
	o := v.cfg.Orchestrator
	var errs []error
	if o.MaxHypotheses < 1 {
		errs = append(errs, NewValidationError("orchestrator", "-", "max_hypotheses", fmt.Errorf("%w: must be at least 1", ErrInvalidValue)))
	}
	if o.MaxQueriesPerHypothesis < 1 {
		errs = append(errs, NewValidationError("orchestrator", "-", "max_queries_per_hypothesis", fmt.Errorf("%w: must be at least 1", ErrInvalidValue)))
	}
	if o.QueryTimeoutSeconds < 1 {
		errs = append(errs, NewValidationError("orchestrator", "-", "query_timeout_seconds", fmt.Errorf("%w: must be at least 1", ErrInvalidValue)))
	}
	if o.HighConfidenceThreshold <= 0 || o.HighConfidenceThreshold > 1 {
		errs = append(errs, NewValidationError("orchestrator", "-", "high_confidence_threshold", fmt.Errorf("%w: must be in (0,1]", ErrInvalidValue)))
	}
	if o.ValidationPassThreshold <= 0 || o.ValidationPassThreshold > 1 {
		errs = append(errs, NewValidationError("orchestrator", "-", "validation_pass_threshold", fmt.Errorf("%w: must be in (0,1]", ErrInvalidValue)))
	}
	return errs
}

func (v *Validator) validateCircuitBreaker() []error {
	b := v.cfg.CircuitBreaker
	var errs []error
	if b.MaxTotalQueries < 1 {
		errs = append(errs, NewValidationError("circuit_breaker", "-", "max_total_queries", fmt.Errorf("%w: must be at least 1", ErrInvalidValue)))
	}
	if b.MaxDurationSeconds < 1 {
		errs = append(errs, NewValidationError("circuit_breaker", "-", "max_duration_seconds", fmt.Errorf("%w: must be at least 1", ErrInvalidValue)))
	}
	return errs
}

func (v *Validator) validateDatabase() []error {
	d := v.cfg.Database
	var errs []error
	if d.Host == "" {
		errs = append(errs, NewValidationError("database", "-", "host", ErrMissingRequiredField))
	}
	if d.Database == "" {
		errs = append(errs, NewValidationError("database", "-", "database", ErrMissingRequiredField))
	}
	if d.MaxConns < 1 {
		errs = append(errs, NewValidationError("database", "-", "max_conns", fmt.Errorf("%w: must be at least 1", ErrInvalidValue)))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, NewValidationError("database", "-", "min_conns", fmt.Errorf("%w: cannot exceed max_conns", ErrInvalidValue)))
	}
	return errs
}

func (v *Validator) validateAPI() []error {
	var errs []error
	if v.cfg.API.ListenAddr == "" {
		errs = append(errs, NewValidationError("api", "-", "listen_addr", ErrMissingRequiredField))
	}
	return errs
}

func (v *Validator) validateLLMProviders() []error {
	var errs []error
	if v.cfg.LLMProviders.Len() == 0 {
		errs = append(errs, NewValidationError("llm_providers", "-", "-", fmt.Errorf("%w: at least one provider must be configured", ErrMissingRequiredField)))
		return errs
	}
	if v.cfg.ActiveLLMProvider == "" {
		errs = append(errs, NewValidationError("llm_providers", "-", "active_llm_provider", ErrMissingRequiredField))
		return errs
	}
	if !v.cfg.LLMProviders.Has(v.cfg.ActiveLLMProvider) {
		errs = append(errs, NewValidationError("llm_providers", v.cfg.ActiveLLMProvider, "active_llm_provider", ErrLLMProviderNotFound))
	}
	for name, p := range v.cfg.LLMProviders.GetAll() {
		if p.Model == "" {
			errs = append(errs, NewValidationError("llm_provider", name, "model", ErrMissingRequiredField))
		}
	}
	return errs
}
