package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/dataing-sh/investigator/pkg/orchestrator"
	"github.com/dataing-sh/investigator/pkg/safety"
)

// investigatorYAMLConfig represents the complete investigator.yaml file
// structure.
type investigatorYAMLConfig struct {
	Orchestrator   *orchestrator.Config `yaml:"orchestrator"`
	CircuitBreaker *safety.Config       `yaml:"circuit_breaker"`
	Database       *DatabaseConfig      `yaml:"database"`
	API            *APIConfig           `yaml:"api"`
	ActiveProvider string               `yaml:"active_llm_provider"`
}

// llmProvidersYAMLConfig represents the complete llm-providers.yaml file
// structure.
type llmProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in defaults with user-defined overrides
//  5. Build the LLM provider registry
//  6. Validate all configuration
//  7. Return AppConfig ready for use
func Initialize(ctx context.Context, configDir string) (*AppConfig, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized successfully",
		"llm_providers", cfg.LLMProviders.Len(),
		"active_llm_provider", cfg.ActiveLLMProvider)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*AppConfig, error) {
	loader := &configLoader{configDir: configDir}

	fileCfg, err := loader.loadInvestigatorYAML()
	if err != nil {
		return nil, NewLoadError("investigator.yaml", err)
	}

	llmProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	orchestratorCfg := orchestrator.DefaultConfig()
	if fileCfg.Orchestrator != nil {
		if err := mergo.Merge(&orchestratorCfg, fileCfg.Orchestrator, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge orchestrator config: %w", err)
		}
	}

	breakerCfg := safety.DefaultConfig()
	if fileCfg.CircuitBreaker != nil {
		if err := mergo.Merge(&breakerCfg, fileCfg.CircuitBreaker, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge circuit breaker config: %w", err)
		}
	}

	dbCfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "investigator",
		Database: "investigator",
		SSLMode:  "disable",
		MaxConns: 25,
		MinConns: 2,
	}
	if fileCfg.Database != nil {
		if err := mergo.Merge(&dbCfg, fileCfg.Database, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge database config: %w", err)
		}
	}

	apiCfg := APIConfig{ListenAddr: ":8080"}
	if fileCfg.API != nil {
		if err := mergo.Merge(&apiCfg, fileCfg.API, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge API config: %w", err)
		}
	}

	providers := make(map[string]*LLMProviderConfig, len(llmProviders))
	for name, p := range llmProviders {
		providerCopy := p
		providers[name] = &providerCopy
	}

	return &AppConfig{
		configDir:         configDir,
		Orchestrator:      orchestratorCfg,
		CircuitBreaker:    breakerCfg,
		Database:          dbCfg,
		API:               apiCfg,
		LLMProviders:      NewLLMProviderRegistry(providers),
		ActiveLLMProvider: fileCfg.ActiveProvider,
	}, nil
}

func validate(cfg *AppConfig) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand {{.VAR}} environment placeholders. Missing variables expand
	// to empty string; validation catches required fields left empty.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

func (l *configLoader) loadInvestigatorYAML() (*investigatorYAMLConfig, error) {
	var cfg investigatorYAMLConfig
	if err := l.loadYAML("investigator.yaml", &cfg); err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return &investigatorYAMLConfig{}, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var cfg llmProvidersYAMLConfig
	cfg.LLMProviders = make(map[string]LLMProviderConfig)

	if err := l.loadYAML("llm-providers.yaml", &cfg); err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return cfg.LLMProviders, nil
		}
		return nil, err
	}
	return cfg.LLMProviders, nil
}
