// Package httpserver exposes the negotiation API: run management, event
// streaming over SSE and WebSocket, health probes and metrics.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/pkg/healthprobe"
	"github.com/haggleworks/negotiator/pkg/types"
)

// RunService is the application surface the server exposes. The server never
// touches orchestration internals directly.
type RunService interface {
	// StartRun validates the request and launches a negotiation run,
	// returning its ID.
	StartRun(ctx context.Context, req *StartRunRequest) (string, error)

	// RunInfo reports a run's current state.
	RunInfo(runID string) (*RunInfo, bool)

	// ListRuns reports every run known to this process.
	ListRuns() []RunInfo

	// CancelRun requests cooperative cancellation.
	CancelRun(runID string) bool

	// Subscribe attaches to a run's event stream: a replay of events so far
	// plus a live channel. The unsubscribe func must be called when the
	// consumer detaches; the channel is closed when the run ends.
	Subscribe(runID string) (replay []types.Event, live <-chan types.Event, unsubscribe func(), ok bool)
}

// RunInfo is the wire form of a run's status.
type RunInfo struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Events    int       `json:"events"`
}

// Server provides HTTP endpoints for the negotiation API, metrics and health
// checks.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Runs          RunService
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	if cfg.Runs != nil {
		runsHandler := NewRunsHandler(cfg.Runs, cfg.Logger)
		streamHandler := NewStreamHandler(cfg.Runs, cfg.Logger)

		// Run management is wrapped in a timeout; the streaming endpoints
		// are long-lived and must not be.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Post("/api/runs", runsHandler.HandleStartRun)
			r.Get("/api/runs", runsHandler.HandleListRuns)
			r.Get("/api/runs/{runID}", runsHandler.HandleGetRun)
			r.Post("/api/runs/{runID}/cancel", runsHandler.HandleCancelRun)
		})

		r.Get("/api/runs/{runID}/events", streamHandler.HandleSSE)
		r.Get("/ws/runs/{runID}", streamHandler.HandleWebSocket)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }
