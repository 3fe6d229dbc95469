package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-factcheck/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-factcheck/internal/runtime"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	// Services
	authService      driving.AuthService
	factCheckService driving.FactCheckService
	ingestionService driving.IngestionService
	services         *runtime.Services

	// Infrastructure
	taskQueue driven.TaskQueue

	allowedOrigins []string
	checkRate      float64
	checkBurst     int
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	CheckRate      float64 // Fact-check requests per second, 0 disables limiting
	CheckBurst     int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		AllowedOrigins: []string{"*"},
		CheckRate:      5,
		CheckBurst:     10,
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	factCheckService driving.FactCheckService,
	ingestionService driving.IngestionService,
	services *runtime.Services,
	taskQueue driven.TaskQueue,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		logger:           logger,
		authService:      authService,
		factCheckService: factCheckService,
		ingestionService: ingestionService,
		services:         services,
		taskQueue:        taskQueue,
		allowedOrigins:   cfg.AllowedOrigins,
		checkRate:        cfg.CheckRate,
		checkBurst:       cfg.CheckBurst,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes and the middleware chain
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	checkLimiter := NewRateLimitMiddleware(s.checkRate, s.checkBurst)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Fact-check endpoints (public, rate limited)
	s.router.Handle("POST /api/v1/factcheck",
		checkLimiter.Handler(http.HandlerFunc(s.handleFactCheck)))

	// Corpus endpoints (public)
	s.router.HandleFunc("GET /api/v1/stats", s.handleStats)
	s.router.HandleFunc("GET /api/v1/stats/overview", s.handleStatsOverview)
	s.router.HandleFunc("GET /api/v1/sources/{name}", s.handleGetSource)

	// Admin endpoints (admin-only)
	s.router.Handle("POST /api/v1/admin/sweep",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleTriggerSweep))))
	s.router.Handle("POST /api/v1/admin/rebuild",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleTriggerRebuild))))
	s.router.Handle("GET /api/v1/admin/sweep",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleLastSweep))))

	// Outermost first: recovery sees panics from every layer
	var h http.Handler = s.router
	h = NewCORSMiddleware(s.allowedOrigins).Handler(h)
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = NewRequestIDMiddleware().Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	s.handler = h
}

// Handler returns the root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
