package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestInitializeAppliesDefaultsWhenSectionsAbsent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "llm-providers.yaml", `
llm_providers:
  anthropic:
    type: anthropic
    model: claude-sonnet
`)
	writeFile(t, dir, "investigator.yaml", `
active_llm_provider: anthropic
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Orchestrator.MaxHypotheses)
	assert.Equal(t, 50, cfg.CircuitBreaker.MaxTotalQueries)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Equal(t, "anthropic", cfg.ActiveLLMProvider)
}

func TestInitializeOverridesDefaultsFromYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "llm-providers.yaml", `
llm_providers:
  anthropic:
    type: anthropic
    model: claude-sonnet
`)
	writeFile(t, dir, "investigator.yaml", `
active_llm_provider: anthropic
database:
  host: db.internal
  database: prod
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "prod", cfg.Database.Database)
}

func TestInitializeFailsValidationWithoutLLMProviders(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "investigator.yaml", `active_llm_provider: anthropic`)

	_, err := Initialize(context.Background(), dir)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestInitializeFailsOnInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "investigator.yaml", "not: [valid yaml")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}
