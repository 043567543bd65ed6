package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/socialsync/socialsync/internal/ai"
	"github.com/socialsync/socialsync/internal/analytics"
	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/connect"
	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/logging"
	"github.com/socialsync/socialsync/internal/metrics"
	"github.com/socialsync/socialsync/internal/middleware"
	"github.com/socialsync/socialsync/internal/store"
	"github.com/socialsync/socialsync/internal/telegram"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Dependencies are the services the handlers call. Metrics and Logger are
// created when nil; Notifier and AI may be nil.
type Dependencies struct {
	Store     store.Store
	Connect   *connect.Orchestrator
	Analytics *analytics.Aggregator
	AI        *ai.Client
	Metrics   *metrics.Metrics
	Logger    *logging.Logger
	Notifier  *telegram.Notifier
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	config      config.ServerConfig
	apiConfig   config.APIConfig
	store       store.Store
	connect     *connect.Orchestrator
	analytics   *analytics.Aggregator
	ai          *ai.Client
	metrics     *metrics.Metrics
	logger      *logging.Logger
	notifier    *telegram.Notifier
	rateLimiter *IPRateLimiter

	mu         sync.Mutex
	httpServer *http.Server
}

// Router returns the gin router for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Metrics returns the registry-backed metrics the server records into.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	m := deps.Metrics
	if m == nil {
		m = metrics.NewMetrics("socialsync")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewLogger()
	}

	maxBody := cfg.API.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	server := &Server{
		router:      gin.New(),
		config:      cfg.Server,
		apiConfig:   cfg.API,
		store:       deps.Store,
		connect:     deps.Connect,
		analytics:   deps.Analytics,
		ai:          deps.AI,
		metrics:     m,
		logger:      logger,
		notifier:    deps.Notifier,
		rateLimiter: newIPRateLimiter(cfg.API.RateLimit.RequestsPerMinute, cfg.API.RateLimit.Burst),
	}
	server.router.HandleMethodNotAllowed = true

	server.router.Use(gin.Recovery())
	server.router.Use(loggingMiddleware(logger))
	server.router.Use(corsMiddleware(cfg.API.CORS.Origins))
	server.router.Use(rateLimitMiddleware(server.rateLimiter))
	server.router.Use(bodyLimitMiddleware(maxBody))
	server.router.Use(metrics.Middleware(m, logger))

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	authMiddleware := JWTAuth(s.apiConfig.Auth, s.logger)
	accessAudit := middleware.AuditAccess(s.logger)

	authGroup := s.router.Group("/api/auth")
	{
		authGroup.GET("/:platform/connect", authMiddleware,
			middleware.AuditAction(s.logger, logging.AccountConnect, "connect.begin"), s.handleConnect)
		// The provider redirects the browser here; the stored state identifies the user.
		authGroup.GET("/:platform/callback", s.handleCallback)
	}

	accounts := s.router.Group("/api/accounts", authMiddleware, accessAudit)
	{
		accounts.GET("", s.handleListAccounts)
		accounts.GET("/:platform", s.handleGetAccount)
		accounts.DELETE("/:platform", s.handleDisconnect)
	}

	analyticsGroup := s.router.Group("/api/analytics", authMiddleware, accessAudit)
	{
		analyticsGroup.GET("/overview", s.handleOverview)
		analyticsGroup.GET("/performance", s.handlePerformance)
		analyticsGroup.GET("/sentiment", s.handleSentiment)
		analyticsGroup.GET("/history", s.handleHistory)
		analyticsGroup.GET("/meta", s.handleMetaInsights)
		analyticsGroup.GET("/meta/:platform", s.handleMetaInsights)
	}

	aiGroup := s.router.Group("/api/ai", authMiddleware, accessAudit)
	{
		aiGroup.POST("/generate-post", s.handleGeneratePost)
		aiGroup.POST("/chat", s.handleChat)
		aiGroup.POST("/analyze-sentiment", s.handleAnalyzeSentiment)
	}
}

// Run starts the HTTP or HTTPS server based on TLS configuration
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.HTTPPort)

	var (
		srv *http.Server
		err error
	)
	if s.config.TLS.Enabled {
		srv, err = NewHTTPSServer(addr, s.config.TLS.CertFile, s.config.TLS.KeyFile, s.config.TLS.MinVersion, s.router)
		if err != nil {
			return &errors.ErrServerStart{Addr: addr, Err: err}
		}
	} else {
		srv = NewHTTPServer(addr, s.router)
	}

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.notifier.ServerStarted(addr)
	s.logger.Info("starting HTTP server", "addr", addr, "tls", s.config.TLS.Enabled)

	if s.config.TLS.Enabled {
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return &errors.ErrServerStart{Addr: addr, Err: err}
	}
	return nil
}

// Shutdown stops accepting requests, drains in-flight ones, then stops the
// notifier and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	var errs []error

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err.Error())
			errs = append(errs, &errors.ErrServerShutdown{Err: err})
		}
	}

	if err := s.notifier.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("notifier stop: %w", err))
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}
	}

	if len(errs) > 0 {
		return stderrors.Join(errs...)
	}
	s.logger.Info("graceful shutdown completed")
	return nil
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "SocialSync API Server",
		"version": Version,
		"endpoints": gin.H{
			"auth":      "/api/auth",
			"ai":        "/api/ai",
			"accounts":  "/api/accounts",
			"analytics": "/api/analytics",
		},
	})
}

// handleHealth also samples the stored account count into the gauge.
func (s *Server) handleHealth(c *gin.Context) {
	if s.store != nil {
		if stats, err := s.store.Stats(c.Request.Context()); err == nil {
			s.metrics.SetConnectedAccounts(stats.AccountCount)
		} else {
			s.logger.WarnWithContext(c.Request.Context(), "store stats failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "UNAVAILABLE",
				"message":   "Store is not reachable",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"message":   "SocialSync Backend is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// respondError maps err onto a status. Server-side failures get the generic
// message; client errors carry the error text, which never includes tokens.
func (s *Server) respondError(c *gin.Context, err error, generic string) {
	status := errors.HTTPStatus(err)
	var aggErr *errors.ErrAnalyticsAggregation
	if stderrors.As(err, &aggErr) {
		status = http.StatusInternalServerError
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		message = generic
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   errorCode(status),
		Message: message,
		Code:    status,
	})
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusUnprocessableEntity:
		return "unprocessable"
	default:
		return "internal_error"
	}
}
