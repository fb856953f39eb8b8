package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/stakerise/internal/domain"
	"github.com/alanyoungcy/stakerise/internal/server/handler"
	"github.com/alanyoungcy/stakerise/internal/server/middleware"
	"github.com/alanyoungcy/stakerise/internal/server/ws"
)

const healthPath = "/api/health"

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per RateWindow per client; 0 disables
	RateWindow  time.Duration
}

// Handlers aggregates the HTTP handlers to register. Nil handlers leave
// their routes unregistered, except Health and Catalog which are required.
type Handlers struct {
	Health      *handler.HealthHandler
	Status      *handler.StatusHandler
	Catalog     *handler.CatalogHandler
	Projections *handler.ProjectionHandler
	Wallets     *handler.WalletHandler
	Statements  *handler.StatementHandler
	Pool        *handler.PoolHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route and wraps the mux in CORS, logging, auth
// and rate limiting, outermost first. limiter and wsHub may be nil.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "http_server"))
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+healthPath, handlers.Health.HealthCheck)
	if handlers.Status != nil {
		mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)
	}

	mux.HandleFunc("GET /api/catalog", handlers.Catalog.ListTokens)
	mux.HandleFunc("GET /api/catalog/{asset}", handlers.Catalog.GetToken)

	if handlers.Projections != nil {
		mux.HandleFunc("POST /api/projections", handlers.Projections.Project)
		mux.HandleFunc("GET /api/projections/{asset}/compare", handlers.Projections.Compare)
	}

	if handlers.Wallets != nil {
		mux.HandleFunc("GET /api/wallets/{address}/stakes", handlers.Wallets.ListStakes)
		mux.HandleFunc("GET /api/wallets/{address}/summary", handlers.Wallets.GetSummary)
		mux.HandleFunc("GET /api/wallets/{address}/activity", handlers.Wallets.ListActivity)
	}

	if handlers.Statements != nil {
		mux.HandleFunc("POST /api/wallets/{address}/statements", handlers.Statements.Export)
		mux.HandleFunc("GET /api/wallets/{address}/statements", handlers.Statements.List)
		mux.HandleFunc("GET /api/statements/{path...}", handlers.Statements.Download)
	}

	if handlers.Pool != nil {
		mux.HandleFunc("GET /api/pool", handlers.Pool.GetPool)
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger, healthPath)(h)
	h = middleware.Auth(cfg.APIKey, healthPath)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
