// Package metrics exposes poll cycles as Prometheus metrics. Metrics is a
// sink: every cycle delivered to it updates the gauges and counters.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazyhaar/panelwatch/watchdog/report"
)

const namespace = "panelwatch"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	attempts      *prometheus.CounterVec
	players       prometheus.Gauge
	playersKnown  prometheus.Gauge
	timerSeconds  prometheus.Gauge
	timerPresent  prometheus.Gauge
	lastCycle     prometheus.Gauge
	attemptLength prometheus.Histogram
	logins        prometheus.Counter
}

// New creates the collectors and registers them with Go and process
// collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cycles_total",
			Help: "Poll cycles by classification.",
		}, []string{"class"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "restart_attempts_total",
			Help: "Restart attempts by outcome.",
		}, []string{"outcome"}),
		players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "players",
			Help: "Player count read in the last cycle (0 when unread).",
		}),
		playersKnown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "players_known",
			Help: "1 when the last player count was read from the page.",
		}),
		timerSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "timer_seconds",
			Help: "Shutdown countdown read in the last cycle.",
		}),
		timerPresent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "timer_present",
			Help: "1 when a countdown was visible in the last cycle.",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_cycle_timestamp_seconds",
			Help: "Unix time of the last completed cycle.",
		}),
		attemptLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "restart_attempt_duration_seconds",
			Help:    "Wall time of restart attempts, settle included.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "logins_total",
			Help: "Successful panel logins.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cycles, m.attempts, m.players, m.playersKnown,
		m.timerSeconds, m.timerPresent, m.lastCycle, m.attemptLength, m.logins,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

func (m *Metrics) Send(_ context.Context, c report.Cycle) error {
	m.cycles.WithLabelValues(string(c.Decision.Class)).Inc()
	m.players.Set(float64(c.Facts.Players))
	m.playersKnown.Set(boolFloat(c.Facts.PlayersKnown))
	if secs, ok := c.Facts.TimerSeconds(); ok {
		m.timerSeconds.Set(float64(secs))
		m.timerPresent.Set(1)
	} else {
		m.timerSeconds.Set(0)
		m.timerPresent.Set(0)
	}
	m.lastCycle.Set(float64(c.Timestamp) / 1000)
	if a := c.Attempt; a != nil {
		m.attempts.WithLabelValues(string(a.Outcome)).Inc()
		m.attemptLength.Observe((time.Duration(a.FinishedAt-a.StartedAt) * time.Millisecond).Seconds())
	}
	return nil
}

func (m *Metrics) SendEvent(_ context.Context, ev report.Event) error {
	if ev.Type == report.EventLogin {
		m.logins.Inc()
	}
	return nil
}

func (m *Metrics) Close() error { return nil }

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
