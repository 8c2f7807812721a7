package watchdog

import (
	"log/slog"

	"github.com/hazyhaar/panelwatch/watchdog/internal/metrics"
	"github.com/hazyhaar/panelwatch/watchdog/internal/statusapi"
	"github.com/hazyhaar/panelwatch/watchdog/internal/store"
)

// Store is the SQLite history of cycles and restart attempts. It is a Sink.
type Store = store.Store

// StoreStats summarises the history.
type StoreStats = store.Stats

// OpenStore opens (creating if needed) the history database at path.
func OpenStore(path string) (*Store, error) {
	return store.Open(path, store.WithMkdirAll())
}

// Metrics exposes Prometheus collectors fed from cycles. It is a Sink.
type Metrics = metrics.Metrics

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	return metrics.New()
}

// Hub streams cycles to websocket clients. It is a Sink.
type Hub = statusapi.Hub

// NewHub creates an empty websocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return statusapi.NewHub(logger)
}

// StatusServer is the HTTP status API.
type StatusServer = statusapi.Server

// NewStatusServer serves m's state. st, met and hub are optional; their
// endpoints answer 404 when nil.
func NewStatusServer(m *Monitor, st *Store, met *Metrics, hub *Hub, logger *slog.Logger) *StatusServer {
	cfg := statusapi.Config{
		Status:       m,
		Hub:          hub,
		PollInterval: m.cfg.Monitor.PollInterval,
		Logger:       logger,
	}
	if st != nil {
		cfg.History = st
	}
	if met != nil {
		cfg.Metrics = met.Handler()
	}
	return statusapi.New(cfg)
}
