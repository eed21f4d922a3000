// Package server exposes the station's last report, a health probe and the
// Prometheus endpoint over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/san-kum/liftsim/internal/report"
	"github.com/san-kum/liftsim/internal/sim"
)

const shutdownTimeout = 5 * time.Second

type statusBody struct {
	sim.Report
	Status string `json:"status"`
	Line   string `json:"line"`
}

// Server is a sim.Sink; each report replaces the one served on /status.
type Server struct {
	router *mux.Router
	log    zerolog.Logger

	mu   sync.RWMutex
	last *sim.Report
}

// New builds the router. metrics may be nil, in which case /metrics is not
// mounted.
func New(metrics http.Handler, log zerolog.Logger) *Server {
	s := &Server{router: mux.NewRouter(), log: log}
	s.router.HandleFunc("/status", s.status).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	if metrics != nil {
		s.router.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	return s
}

func (s *Server) Report(_ context.Context, r sim.Report) {
	s.mu.Lock()
	s.last = &r
	s.mu.Unlock()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	if last == nil {
		http.Error(w, "no segment committed yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	body := statusBody{Report: *last, Status: report.Status(*last), Line: report.FormatStatus(*last)}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn().Err(err).Msg("encode status")
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
