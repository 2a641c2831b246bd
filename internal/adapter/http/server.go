// Package http serves the event query API alongside health, readiness and
// metrics endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/berlin-events-service/internal/domain"
	"github.com/couchcryptid/berlin-events-service/internal/pipeline"
	"github.com/couchcryptid/berlin-events-service/internal/store"
)

// EventReader is the read side of the event store.
type EventReader interface {
	All() []domain.Event
	ByProvider(providerID string) []domain.Event
	Status() []store.ProviderStatus
}

// ProviderSource returns the current provider configuration.
type ProviderSource interface {
	Providers() ([]domain.ProviderConfig, error)
}

// CycleRunner runs one refresh cycle on demand.
type CycleRunner interface {
	RunCycle(ctx context.Context, force bool) pipeline.CycleResult
}

// CacheStats reports the size of the coordinate cache.
type CacheStats interface {
	Len() int
}

// Backend groups the services the API reads from. Cache may be nil when
// geocoding is disabled.
type Backend struct {
	Events    EventReader
	Providers ProviderSource
	Refresher CycleRunner
	Cache     CacheStats
	Ready     sharedobs.ReadinessChecker
}

// Server exposes the event API plus /healthz, /readyz and /metrics.
type Server struct {
	httpServer *http.Server
	backend    Backend
	logger     *slog.Logger
	baseCtx    context.Context
	refreshing atomic.Bool
}

// NewServer creates the HTTP server. Manual refreshes run detached from the
// request under baseCtx so they stop when the service shuts down.
func NewServer(baseCtx context.Context, addr string, backend Backend, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		backend: backend,
		logger:  logger,
		baseCtx: baseCtx,
	}

	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /providers", s.handleProviders)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(backend.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var events []domain.Event
	if id := r.URL.Query().Get("provider_id"); id != "" {
		events = s.backend.Events.ByProvider(id)
	} else {
		events = s.backend.Events.All()
	}
	if events == nil {
		events = []domain.Event{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, events)
}

// loadProviders reads the configuration, tolerating partial errors.
func (s *Server) loadProviders() []domain.ProviderConfig {
	configs, err := s.backend.Providers.Providers()
	if err != nil {
		s.logger.Warn("provider configuration problems", "error", err)
	}
	return configs
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	configs := s.loadProviders()
	out := make([]domain.ProviderConfig, 0, len(configs))
	for _, c := range configs {
		if c.Enabled {
			c.Module = "***"
			out = append(out, c)
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

type statusResponse struct {
	Status           string                 `json:"status"`
	ProvidersLoaded  int                    `json:"providers_loaded"`
	Providers        []store.ProviderStatus `json:"providers"`
	GeocodingEnabled bool                   `json:"geocoding_enabled"`
	GeocacheEntries  int                    `json:"geocache_entries"`
	Refreshing       bool                   `json:"refreshing"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Status:           "running",
		ProvidersLoaded:  len(s.loadProviders()),
		Providers:        s.backend.Events.Status(),
		GeocodingEnabled: s.backend.Cache != nil,
		Refreshing:       s.refreshing.Load(),
	}
	if s.backend.Cache != nil {
		resp.GeocacheEntries = s.backend.Cache.Len()
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

// handleRefresh starts a forced cycle in the background. Only one manual
// refresh runs at a time.
func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	if !s.refreshing.CompareAndSwap(false, true) {
		sharedobs.WriteJSON(w, http.StatusConflict, map[string]string{"status": "refresh already running"})
		return
	}

	go func() {
		defer s.refreshing.Store(false)
		res := s.backend.Refresher.RunCycle(s.baseCtx, true)
		s.logger.Info("manual refresh finished", "cycle_id", res.CycleID, "refreshed", len(res.Refreshed))
	}()

	sharedobs.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}
