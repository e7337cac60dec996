// Package health serves the aggregator's operational HTTP surface: liveness,
// scraper run statuses, correlated events, odds history, live heartbeat state
// and the manual cycle trigger. It is an ops surface, not the product API.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oddspulse/oddspulse/internal/heartbeat"
	"github.com/oddspulse/oddspulse/internal/pkg/config"
	"github.com/oddspulse/oddspulse/internal/pkg/models"
	"github.com/oddspulse/oddspulse/internal/pkg/storage"
)

// StatusSource exposes the latest run outcome per bookmaker.
type StatusSource interface {
	Snapshot() []models.ScraperRunStatus
}

// EventSource exposes the correlated event store.
type EventSource interface {
	CurrentEvents() []models.CanonicalEvent
	Event(id int64) *models.CanonicalEvent
}

// HeartbeatSource exposes the live tracker state.
type HeartbeatSource interface {
	Snapshot() heartbeat.TrackerSnapshot
	History(eventID string) []heartbeat.Sample
	Uptime(eventID string) heartbeat.UptimeStats
}

// Deps carries everything the handlers read. Statuses and Events are
// required; the rest may be nil, and the matching endpoints answer 503.
type Deps struct {
	Statuses StatusSource
	Events   EventSource
	History  storage.OddsHistoryStorage
	Live     HeartbeatSource
	Trigger  func() bool
	Registry *prometheus.Registry
}

type Server struct {
	cfg  *config.HealthConfig
	deps Deps
	log  *slog.Logger
}

func New(cfg *config.HealthConfig, deps Deps, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{cfg: cfg, deps: deps, log: log}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("Health server listening", "addr", srv.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve health endpoints: %w", err)
		}
		return nil
	}
}

// Routes builds the ops mux. Exported so tests drive handlers without a
// listener.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /events/{id}/history", s.handleEventHistory)
	mux.HandleFunc("GET /live", s.handleLive)
	mux.HandleFunc("GET /live/{id}/history", s.handleLiveHistory)
	mux.HandleFunc("GET /live/{id}/uptime", s.handleLiveUptime)
	mux.HandleFunc("POST /trigger", s.handleTrigger)
	if s.deps.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))
	}
	return mux
}
