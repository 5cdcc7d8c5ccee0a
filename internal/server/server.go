// Package server exposes the read-only monitoring API: scanner status,
// recorded opportunities, live book state, archived market data files, and
// a WebSocket stream of top-of-book updates.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/crossarb/internal/server/handler"
	"github.com/alanyoungcy/crossarb/internal/server/middleware"
	"github.com/alanyoungcy/crossarb/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps requests per client IP per minute. Applied only when a
	// limiter is provided; zero disables the middleware.
	RateLimit int
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health        *handler.HealthHandler
	Status        *handler.StatusHandler
	Opportunities *handler.OpportunityHandler
	Books         *handler.BookHandler
	Archives      *handler.ArchiveHandler
}

// Server is the monitoring HTTP + WebSocket server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. limiter and wsHub
// may be nil; the corresponding middleware and /ws route are then skipped.
func NewServer(cfg Config, handlers Handlers, limiter middleware.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)
	mux.HandleFunc("GET /api/status/failures", handlers.Status.ListPartialFailures)

	mux.HandleFunc("GET /api/opportunities", handlers.Opportunities.ListRecent)
	mux.HandleFunc("GET /api/opportunities/{id}", handlers.Opportunities.GetByID)

	mux.HandleFunc("GET /api/books", handlers.Books.ListBooks)
	mux.HandleFunc("GET /api/books/{id}", handlers.Books.GetBook)

	mux.HandleFunc("GET /api/archives", handlers.Archives.ListArchives)
	mux.HandleFunc("GET /api/archives/{name}", handlers.Archives.DownloadArchive)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, time.Minute)(h)
	}
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
