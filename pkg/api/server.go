// Package api provides the HTTP surface for starting and polling
// investigations, grounded on codeready-toolchain-tarsy/pkg/api's
// gin-based Server (pkg/api/handlers.go, cmd/tarsy/main.go's gin.SetMode
// wiring) rather than its later echo v5 rewrite — gin is the stack this
// module actually carries in go.mod.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dataing-sh/investigator/pkg/adapters"
)

// Server is the HTTP API server for submitting and polling investigations.
type Server struct {
	engine       *gin.Engine
	httpServer   *http.Server
	orchestrator Investigator
	store        FindingStore
	adapter      adapters.DataSourceAdapter
	logger       *slog.Logger

	mu      sync.RWMutex
	running map[string]bool // investigationID -> still in flight
}

// NewServer wires a gin.Engine with the investigation start/poll/health
// routes.
func NewServer(orch Investigator, store FindingStore, adapter adapters.DataSourceAdapter, logger *slog.Logger) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		engine:       engine,
		orchestrator: orch,
		store:        store,
		adapter:      adapter,
		logger:       logger,
		running:      make(map[string]bool),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)

	v1 := s.engine.Group("/api/v1")
	v1.POST("/investigations", s.startInvestigationHandler)
	v1.GET("/investigations/:id", s.getInvestigationHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener, used
// by tests to bind an OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}
