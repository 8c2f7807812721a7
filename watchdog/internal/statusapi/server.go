// Package statusapi serves the monitor's state over HTTP: liveness, the
// latest cycle, recorded history, Prometheus metrics and a websocket stream.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// StatusSource reports the live monitor state.
type StatusSource interface {
	State() report.State
	Last() *report.Cycle
}

// History is the recorded past. The history store implements it.
type History interface {
	Recent(ctx context.Context, limit int) ([]report.Cycle, error)
	Attempts(ctx context.Context, limit int) ([]report.Attempt, error)
}

// Config configures a Server.
type Config struct {
	Status       StatusSource
	History      History      // optional; /history answers 404 without it
	Metrics      http.Handler // optional; /metrics answers 404 without it
	Hub          *Hub         // optional; /ws answers 404 without it
	PollInterval time.Duration
	Logger       *slog.Logger
}

func (c *Config) defaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 8 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server is the status API.
type Server struct {
	cfg     Config
	router  chi.Router
	started time.Time
	now     func() time.Time
}

// New builds the router.
func New(cfg Config) *Server {
	cfg.defaults()
	s := &Server{cfg: cfg, started: time.Now(), now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer, middleware.GetHead, lockDown, requestLog(cfg.Logger))

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/history", s.handleHistory)
	r.Get("/history/attempts", s.handleAttempts)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.Hub != nil {
		r.Method(http.MethodGet, "/ws", cfg.Hub)
	}
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.cfg.Logger.Info("statusapi: listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type healthResponse struct {
	Status    string       `json:"status"` // ok | starting | stale | stopped
	State     report.State `json:"state"`
	LastCycle int64        `json:"last_cycle,omitempty"` // epoch milliseconds
	AgeMs     int64        `json:"age_ms,omitempty"`
}

// handleHealth answers 503 when the monitor stopped or its last cycle is
// older than three poll intervals.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	limit := 3 * s.cfg.PollInterval
	resp := healthResponse{State: s.cfg.Status.State()}

	code := http.StatusOK
	switch last := s.cfg.Status.Last(); {
	case resp.State == report.StateStopped:
		resp.Status, code = "stopped", http.StatusServiceUnavailable
	case last == nil:
		resp.Status = "starting"
		if now.Sub(s.started) > limit {
			resp.Status, code = "stale", http.StatusServiceUnavailable
		}
	default:
		// A restart cycle completes long after extraction; age counts from
		// completion.
		done := max(last.Timestamp, last.FinishedAt)
		resp.LastCycle = done
		age := now.Sub(time.UnixMilli(done))
		resp.AgeMs = age.Milliseconds()
		resp.Status = "ok"
		// A restart attempt legitimately holds the loop for the settle time.
		if age > limit && resp.State != report.StateRestarting {
			resp.Status, code = "stale", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, r, code, resp)
}

type statusResponse struct {
	State report.State  `json:"state"`
	Last  *report.Cycle `json:"last,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, statusResponse{State: s.cfg.Status.State(), Last: s.cfg.Status.Last()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		http.NotFound(w, r)
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	cycles, err := s.cfg.History.Recent(r.Context(), limit)
	if err != nil {
		GetLogger(r.Context()).Error("statusapi: history", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if cycles == nil {
		cycles = []report.Cycle{}
	}
	writeJSON(w, r, http.StatusOK, cycles)
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		http.NotFound(w, r)
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	attempts, err := s.cfg.History.Attempts(r.Context(), limit)
	if err != nil {
		GetLogger(r.Context()).Error("statusapi: attempts", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if attempts == nil {
		attempts = []report.Attempt{}
	}
	writeJSON(w, r, http.StatusOK, attempts)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 50, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 1000 {
		http.Error(w, "limit must be between 1 and 1000", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		GetLogger(r.Context()).Warn("statusapi: encode", "error", err)
	}
}
