// Package metrics serves the Prometheus scrape endpoint and the readiness
// probe of the push worker.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Check reports whether one dependency is ready.
type Check func() bool

// Server exposes /metrics and /healthz.
type Server struct {
	router *mux.Router
	srv    *http.Server
	checks map[string]Check
	logger zerolog.Logger
}

// NewServer builds a server gathering from gatherer. checks are evaluated on
// every /healthz request; the probe fails when any of them reports false.
func NewServer(addr string, gatherer prometheus.Gatherer, checks map[string]Check, logger zerolog.Logger) *Server {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	s := &Server{
		router: mux.NewRouter(),
		checks: checks,
		logger: logger.With().Str("component", "metrics_server").Logger(),
	}
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("metrics: listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// Shutdown stops the listener and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type healthReport struct {
	Status string          `json:"status"`
	Checks map[string]bool `json:"checks,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	report := healthReport{Status: "ok", Checks: make(map[string]bool, len(s.checks))}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ok := s.checks[name]()
		report.Checks[name] = ok
		if !ok {
			report.Status = "unavailable"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if report.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(report)
}
