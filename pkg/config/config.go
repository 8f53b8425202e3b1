// Package config loads, merges, and validates the investigator's
// configuration, grounded on codeready-toolchain-tarsy/pkg/config's
// loader/validator/merge split (env-expanded YAML + mergo overlay +
// hand-written validation), adapted from tarsy's agent/chain/MCP-server
// registries onto this system's orchestrator/circuit-breaker/database/LLM
// surface (SPEC_FULL.md §10.3).
package config

import (
	"github.com/dataing-sh/investigator/pkg/orchestrator"
	"github.com/dataing-sh/investigator/pkg/safety"
)

// AppConfig is the umbrella configuration object returned by Initialize
// and threaded through cmd/investigator's wiring.
type AppConfig struct {
	configDir string

	Orchestrator   orchestrator.Config
	CircuitBreaker safety.Config
	Database       DatabaseConfig
	API            APIConfig
	LLMProviders   *LLMProviderRegistry

	// ActiveLLMProvider names the entry in LLMProviders the agent client
	// should be constructed against.
	ActiveLLMProvider string
}

// DatabaseConfig mirrors persistence.Config's shape so investigator.yaml
// can configure the store through the same loader/validator pipeline as
// everything else; cmd/investigator copies this into a persistence.Config
// once DB_PASSWORD has been read from the environment.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`

	MaxConns int32 `yaml:"max_conns"`
	MinConns int32 `yaml:"min_conns"`
}

// APIConfig configures the HTTP surface (pkg/api).
type APIConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ConfigDir returns the configuration directory path.
func (c *AppConfig) ConfigDir() string {
	return c.configDir
}

// GetLLMProvider retrieves an LLM provider configuration by name.
func (c *AppConfig) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviders.Get(name)
}
