package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/authhub-labs/authhub-core/internal/core/ports/driven"
	"github.com/authhub-labs/authhub-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	logger     *slog.Logger
	version    string

	// Services
	oauthService        driving.OAuthFlowService
	accessRequests      driving.AccessRequestService
	verificationService driving.VerificationService
	authService         driving.AuthService

	// Infrastructure
	authAdapter driven.AuthAdapter
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
	Logger  *slog.Logger

	// AllowedOrigins configures CORS for the dashboard. The callback and
	// verification endpoints are same-origin redirects or server-to-server
	// calls, so "*" is only the development default.
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		AllowedOrigins: []string{"*"},
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	oauthService driving.OAuthFlowService,
	accessRequests driving.AccessRequestService,
	verificationService driving.VerificationService,
	authService driving.AuthService,
	authAdapter driven.AuthAdapter,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:              http.NewServeMux(),
		logger:              logger,
		version:             cfg.Version,
		oauthService:        oauthService,
		accessRequests:      accessRequests,
		verificationService: verificationService,
		authService:         authService,
		authAdapter:         authAdapter,
		db:                  db,
		redisClient:         redisClient,
	}

	s.setupRoutes()

	// Recovery sits outermost so panics anywhere below it, logging
	// included, still produce a 500. CORS runs innermost so preflights
	// are answered after the request is logged.
	handler := NewCORSMiddleware(cfg.AllowedOrigins).Handler(s.router)
	handler = NewLoggingMiddleware(logger).Handler(handler)
	s.handler = NewRecoveryMiddleware(logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authAdapter)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Dashboard authentication. Login is public; user provisioning is
	// reserved for agency admins.
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.Handle("POST /api/v1/users",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleCreateUser))))

	// OAuth flow endpoints (agency dashboard, admin-only for initiation)
	s.router.Handle("POST /api/v1/oauth/{platform}/initiate",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleOAuthInitiate))))
	// Callback is public - receives redirects from OAuth providers
	s.router.HandleFunc("GET /api/v1/oauth/{platform}/callback", s.handleOAuthCallback)

	// Connection revocation (admin-only)
	s.router.Handle("DELETE /api/v1/connections/{id}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleRevokeConnection))))

	// Access request endpoints (agency dashboard)
	s.router.Handle("POST /api/v1/access-requests",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCreateAccessRequest)))
	s.router.Handle("GET /api/v1/access-requests/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetAccessRequest)))

	// Client-facing verification endpoints. Public: clients authenticate
	// with the access-request token, not a dashboard session.
	s.router.HandleFunc("POST /api/v1/verify-authorization", s.handleVerifyAuthorization)
	s.router.HandleFunc("GET /api/v1/verification-status/{id}", s.handleVerificationStatus)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	<-stop
	s.logger.Info("shutting down server")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}
