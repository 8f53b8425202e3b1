package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLLMProviderReturnsConfiguredProvider(t *testing.T) {
	cfg := &AppConfig{
		LLMProviders: NewLLMProviderRegistry(map[string]*LLMProviderConfig{
			"anthropic": {Type: LLMProviderAnthropic, Model: "claude-sonnet"},
		}),
	}

	p, err := cfg.GetLLMProvider("anthropic")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet", p.Model)
}

func TestGetLLMProviderReturnsErrorForUnknownName(t *testing.T) {
	cfg := &AppConfig{LLMProviders: NewLLMProviderRegistry(nil)}

	_, err := cfg.GetLLMProvider("missing")
	assert.ErrorIs(t, err, ErrLLMProviderNotFound)
}

func TestConfigDirReturnsLoadedPath(t *testing.T) {
	cfg := &AppConfig{configDir: "/etc/investigator"}
	assert.Equal(t, "/etc/investigator", cfg.ConfigDir())
}
