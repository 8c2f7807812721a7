// CLAUDE:SUMMARY Monitor: login bootstrap, fixed-interval polling loop, per-cycle extract/decide/report and the restart sub-protocol.
// Package watchdog keeps a web-hosted game server alive. A Monitor logs into
// the control panel once, then polls the page: it reads the player count and
// the shutdown countdown, decides whether the server is about to stop with
// nobody connected, and if so clicks the panel's restart control.
//
// Everything the monitor does to the page goes through page.Page, so the
// same loop runs against Chrome (rod, chromedp, playwright) or a static HTML
// document.
package watchdog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/panelwatch/watchdog/internal/config"
	"github.com/hazyhaar/panelwatch/watchdog/internal/decide"
	"github.com/hazyhaar/panelwatch/watchdog/internal/extract"
	"github.com/hazyhaar/panelwatch/watchdog/internal/locate"
	"github.com/hazyhaar/panelwatch/watchdog/internal/sink"
	"github.com/hazyhaar/panelwatch/watchdog/page"
	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// Report delivery bounds. Deliveries run inline with polling, so a slow sink
// must not eat into the restart window. Once the monitor's context is
// cancelled, pending and later deliveries get DefaultSinkGrace at most.
const (
	DefaultSinkTimeout = 2 * time.Second
	DefaultSinkGrace   = 500 * time.Millisecond
)

// Monitor is the polling orchestrator. It drives exactly one page and is not
// safe for concurrent Run calls; State and Last may be called from any
// goroutine.
type Monitor struct {
	cfg       *config.Config
	page      page.Page
	locator   *locate.Locator
	extractor *extract.Extractor
	policy    decide.Policy
	sinks     *sink.Router
	extra     []Sink
	sleeper   Sleeper
	logger    *slog.Logger
	now       func() time.Time

	sinkTimeout time.Duration
	sinkGrace   time.Duration

	mu      sync.RWMutex
	state   report.State
	last    *report.Cycle
	seq     uint64
	pageURL string
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithSleeper replaces the real timer, typically with a fake clock in tests.
func WithSleeper(s Sleeper) Option {
	return func(m *Monitor) { m.sleeper = s }
}

// WithSinks adds report sinks.
func WithSinks(sinks ...Sink) Option {
	return func(m *Monitor) { m.extra = append(m.extra, sinks...) }
}

// WithSinkTimeout bounds each report delivery, all sinks and retries
// included. Default: monitor.sink_timeout, else DefaultSinkTimeout.
func WithSinkTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.sinkTimeout = d }
}

// WithLocator replaces the default locator chain.
func WithLocator(lc *locate.Locator) Option {
	return func(m *Monitor) { m.locator = lc }
}

// New creates a Monitor driving p. A nil cfg means DefaultConfig().
func New(cfg *Config, p page.Page, opts ...Option) *Monitor {
	if cfg == nil {
		cfg = config.Default()
	}
	m := &Monitor{
		cfg:     cfg,
		page:    p,
		sleeper: RealSleeper,
		logger:  slog.Default(),
		now:     time.Now,
		state:   report.StateIdle,

		sinkTimeout: cfg.Monitor.SinkTimeout,
		sinkGrace:   DefaultSinkGrace,
		policy: decide.Policy{
			ThresholdSeconds: cfg.Monitor.RestartThreshold,
			StrictPlayers:    cfg.Monitor.StrictPlayers,
		},
	}
	for _, o := range opts {
		o(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.sinkTimeout <= 0 {
		m.sinkTimeout = DefaultSinkTimeout
	}
	if m.locator == nil {
		m.locator = locate.New(locate.WithLogger(m.logger))
	}
	m.extractor = extract.New(m.logger)
	m.sinks = sink.NewRouter(m.logger, m.extra...)
	return m
}

// State returns the current loop state.
func (m *Monitor) State() report.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Last returns a copy of the latest cycle, or nil before the first poll.
func (m *Monitor) Last() *report.Cycle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return nil
	}
	c := *m.last
	return &c
}

func (m *Monitor) setState(ctx context.Context, s report.State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	if prev == s {
		return
	}
	m.logger.Debug("watchdog: state", "from", prev, "to", s)
	m.emit(ctx, report.Event{
		Type:      report.EventState,
		State:     s,
		Timestamp: m.now().UnixMilli(),
	})
}

// deliver runs fn on a context detached from ctx and bounded by the sink
// timeout. Cancelling ctx cuts the remaining time down to the grace period,
// so the final cycle and the stopped event still get a short chance to land.
func (m *Monitor) deliver(ctx context.Context, fn func(context.Context) error) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.sinkTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		t := time.NewTimer(m.sinkGrace)
		defer t.Stop()
		select {
		case <-t.C:
			cancel()
		case <-dctx.Done():
		}
	})
	defer stop()
	if err := fn(dctx); err != nil && dctx.Err() != nil {
		m.logger.Warn("watchdog: report delivery cut short", "error", err)
	}
}

func (m *Monitor) emit(ctx context.Context, ev report.Event) {
	m.deliver(ctx, func(dctx context.Context) error { return m.sinks.SendEvent(dctx, ev) })
}

// Run polls until ctx is cancelled: wait one interval, read the page, decide,
// restart when needed. Cancellation is the normal way to stop and returns
// nil. Per-cycle failures are logged and never end the loop.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.cfg.Monitor.PollInterval
	m.setState(ctx, report.StatePolling)
	m.logger.Info("watchdog: monitoring started",
		"interval", interval, "threshold", m.policy.ThresholdSeconds, "strict_players", m.policy.StrictPlayers)

	for ctx.Err() == nil {
		if err := m.sleeper.Sleep(ctx, interval); err != nil {
			break
		}
		m.Cycle(ctx)
	}

	m.setState(ctx, report.StateStopped)
	m.emit(ctx, report.Event{
		Type:      report.EventStopped,
		State:     report.StateStopped,
		Timestamp: m.now().UnixMilli(),
	})
	m.logger.Info("watchdog: monitoring stopped")
	return nil
}

// Cycle runs one poll: extract, decide, restart if needed, report. It never
// fails; errors degrade to fail-open facts or a failed attempt.
func (m *Monitor) Cycle(ctx context.Context) report.Cycle {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	pageURL := m.pageURL
	m.mu.Unlock()

	ts := m.now().UnixMilli()
	facts := m.extractor.Facts(ctx, m.page)
	decision := m.policy.Evaluate(facts)

	m.logger.Info("watchdog: poll",
		"seq", seq,
		"players", facts.Players,
		"players_known", facts.PlayersKnown,
		"timer", facts.TimerDisplay(),
		"class", decision.Class,
	)

	cycle := report.Cycle{
		ID:        report.NewID(),
		Seq:       seq,
		PageURL:   pageURL,
		Facts:     facts,
		Decision:  decision,
		Timestamp: ts,
	}

	if decision.Restart && ctx.Err() == nil {
		m.setState(ctx, report.StateRestarting)
		a := m.restart(ctx)
		cycle.Attempt = &a
		m.setState(ctx, report.StatePolling)
	}
	cycle.FinishedAt = m.now().UnixMilli()

	m.mu.Lock()
	m.last = &cycle
	m.mu.Unlock()

	m.deliver(ctx, func(dctx context.Context) error { return m.sinks.Send(dctx, cycle) })
	return cycle
}

// Close closes every sink.
func (m *Monitor) Close() error {
	return m.sinks.Close()
}
