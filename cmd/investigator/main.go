// The investigator binary wires the root-cause-analysis orchestrator to an
// HTTP API, a Postgres-backed store, and a pluggable LLM provider and data
// source adapter, grounded on codeready-toolchain-tarsy/cmd/tarsy/main.go's
// flag/env/config/database/server wiring sequence.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/dataing-sh/investigator/pkg/adapters"
	"github.com/dataing-sh/investigator/pkg/agent"
	"github.com/dataing-sh/investigator/pkg/api"
	"github.com/dataing-sh/investigator/pkg/config"
	"github.com/dataing-sh/investigator/pkg/discovery"
	"github.com/dataing-sh/investigator/pkg/orchestrator"
	"github.com/dataing-sh/investigator/pkg/persistence"
	"github.com/dataing-sh/investigator/pkg/quality"
	"github.com/dataing-sh/investigator/pkg/safety"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	appCfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}

	dbPassword := os.Getenv("DB_PASSWORD")
	dbCfg := persistence.Config{
		Host:            appCfg.Database.Host,
		Port:            appCfg.Database.Port,
		User:            appCfg.Database.User,
		Password:        dbPassword,
		Database:        appCfg.Database.Database,
		SSLMode:         appCfg.Database.SSLMode,
		MaxConns:        appCfg.Database.MaxConns,
		MinConns:        appCfg.Database.MinConns,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 15 * time.Minute,
	}

	store, err := persistence.NewStore(ctx, dbCfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	log.Println("Connected to Postgres and applied migrations")

	providerCfg, err := appCfg.GetLLMProvider(appCfg.ActiveLLMProvider)
	if err != nil {
		log.Fatalf("Failed to resolve active LLM provider: %v", err)
	}
	provider, err := newLLMProvider(providerCfg)
	if err != nil {
		log.Fatalf("Failed to construct LLM provider %q: %v", appCfg.ActiveLLMProvider, err)
	}

	agentCfg := agent.DefaultConfig()
	if providerCfg.MaxRetries > 0 {
		agentCfg.MaxRetries = providerCfg.MaxRetries
	}
	agentClient := agent.New(provider, agentCfg, logger)
	validator := quality.New(provider, logger)
	breaker := safety.New(appCfg.CircuitBreaker)
	ctxEngine := &discovery.Engine{Logger: logger}

	orch := orchestrator.New(
		appCfg.Orchestrator,
		breaker,
		ctxEngine,
		agentClient,
		validator,
		store,
		store,
		logger,
	)

	dataAdapter, err := newDataSourceAdapter()
	if err != nil {
		log.Fatalf("Failed to construct data source adapter: %v", err)
	}

	server := api.NewServer(orch, store, dataAdapter, logger)

	log.Printf("HTTP server listening on %s", appCfg.API.ListenAddr)
	if err := server.Start(appCfg.API.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newLLMProvider constructs the concrete agent.Provider for the configured
// backend. A real deployment wires an HTTP client to a hosted model or a
// local model runner here; that adapter is outside this system's core
// scope (SPEC_FULL.md §11.1), so this stub fails fast until one is wired.
func newLLMProvider(cfg *config.LLMProviderConfig) (agent.Provider, error) {
	return nil, &unimplementedProviderError{providerType: string(cfg.Type)}
}

type unimplementedProviderError struct {
	providerType string
}

func (e *unimplementedProviderError) Error() string {
	return "no agent.Provider implementation wired for type " + e.providerType + "; see SPEC_FULL.md §11.1"
}

// newDataSourceAdapter constructs the concrete adapters.DataSourceAdapter
// for the configured warehouse. SQL-dialect specifics are outside this
// system's core scope (spec.md §1), so this stub fails fast until one is
// wired for the target warehouse.
func newDataSourceAdapter() (adapters.DataSourceAdapter, error) {
	return nil, errUnimplementedAdapter
}

var errUnimplementedAdapter = &unimplementedAdapterError{}

type unimplementedAdapterError struct{}

func (e *unimplementedAdapterError) Error() string {
	return "no adapters.DataSourceAdapter implementation wired; see spec.md §1"
}
