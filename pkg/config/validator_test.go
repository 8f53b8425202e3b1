package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dataing-sh/investigator/pkg/orchestrator"
	"github.com/dataing-sh/investigator/pkg/safety"
)

func validConfig() *AppConfig {
	return &AppConfig{
		Orchestrator:   orchestrator.DefaultConfig(),
		CircuitBreaker: safety.DefaultConfig(),
		Database: DatabaseConfig{
			Host:     "localhost",
			Database: "investigator",
			MaxConns: 10,
			MinConns: 1,
		},
		API:               APIConfig{ListenAddr: ":8080"},
		ActiveLLMProvider: "anthropic",
		LLMProviders: NewLLMProviderRegistry(map[string]*LLMProviderConfig{
			"anthropic": {Type: LLMProviderAnthropic, Model: "claude-sonnet"},
		}),
	}
}

func TestValidateAllPassesForWellFormedConfig(t *testing.T) {
	assert.NoError(t, NewValidator(validConfig()).ValidateAll())
}

func TestValidateAllRejectsZeroMaxHypotheses(t *testing.T) {
	cfg := validConfig()
	cfg.Orchestrator.MaxHypotheses = 0
	assert.Error(t, NewValidator(cfg).ValidateAll())
}

func TestValidateAllRejectsMinConnsExceedingMaxConns(t *testing.T) {
	cfg := validConfig()
	cfg.Database.MinConns = 20
	cfg.Database.MaxConns = 10
	assert.Error(t, NewValidator(cfg).ValidateAll())
}

func TestValidateAllRejectsUnknownActiveProvider(t *testing.T) {
	cfg := validConfig()
	cfg.ActiveLLMProvider = "openai"
	err := NewValidator(cfg).ValidateAll()
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateAllRejectsNoProvidersConfigured(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProviders = NewLLMProviderRegistry(nil)
	assert.Error(t, NewValidator(cfg).ValidateAll())
}

func TestValidateAllRejectsProviderMissingModel(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProviders = NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"anthropic": {Type: LLMProviderAnthropic},
	})
	assert.Error(t, NewValidator(cfg).ValidateAll())
}
