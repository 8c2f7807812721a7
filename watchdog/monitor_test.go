package watchdog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/panelwatch/watchdog/internal/static"
	"github.com/hazyhaar/panelwatch/watchdog/page"
	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// fakeSleeper records every wait and returns immediately. When cancel is
// set it is called on the cancelAt-th wait.
type fakeSleeper struct {
	mu       sync.Mutex
	waits    []time.Duration
	cancelAt int
	cancel   context.CancelFunc
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.waits = append(f.waits, d)
	n := len(f.waits)
	f.mu.Unlock()
	if f.cancel != nil && n >= f.cancelAt {
		f.cancel()
	}
	return ctx.Err()
}

func (f *fakeSleeper) Waits() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.waits...)
}

// recorder collects everything the monitor reports.
type recorder struct {
	mu     sync.Mutex
	cycles []report.Cycle
	events []report.Event
}

func (r *recorder) sink() Sink {
	return NewCallbackSink(
		func(_ context.Context, c report.Cycle) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.cycles = append(r.cycles, c)
			return nil
		},
		func(_ context.Context, ev report.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, ev)
			return nil
		},
	)
}

func (r *recorder) eventTypes() []report.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []report.EventType
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Monitor.ScreenshotPath = filepath.Join(t.TempDir(), "debug-screenshot.png")
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMonitor(t *testing.T, cfg *Config, p page.Page, sl Sleeper) (*Monitor, *recorder) {
	t.Helper()
	rec := &recorder{}
	m := New(cfg, p, WithSleeper(sl), WithLogger(quietLogger()), WithSinks(rec.sink()))
	return m, rec
}

func panel(t *testing.T, body string) *static.Page {
	t.Helper()
	p, err := static.ParseString("<html><body>" + body + "</body></html>")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCycle_RestartWithoutConfirmation(t *testing.T) {
	p := panel(t, `<p>Players: 0/20</p><span>0:12</span><button>Start</button>`)
	sl := &fakeSleeper{}
	m, rec := newTestMonitor(t, testConfig(t), p, sl)

	c := m.Cycle(context.Background())

	if !c.Decision.Restart || c.Decision.Class != report.ClassRestartTriggered {
		t.Fatalf("decision: got %+v", c.Decision)
	}
	if c.Attempt == nil {
		t.Fatal("no attempt recorded")
	}
	if c.Attempt.Outcome != report.OutcomeClicked {
		t.Errorf("outcome: got %s, want %s", c.Attempt.Outcome, report.OutcomeClicked)
	}
	if c.Attempt.ActionStrategy != "text" || c.Attempt.ActionLabel != "start" {
		t.Errorf("action: got %s/%s, want text/start", c.Attempt.ActionStrategy, c.Attempt.ActionLabel)
	}
	want := []time.Duration{500 * time.Millisecond, 3 * time.Second, 15 * time.Second}
	if got := sl.Waits(); !slices.Equal(got, want) {
		t.Errorf("waits: got %v, want %v", got, want)
	}
	if clicks := p.Clicks(); len(clicks) != 1 || clicks[0].Text != "Start" {
		t.Errorf("clicks: got %+v", clicks)
	}
	if m.State() != report.StatePolling {
		t.Errorf("state after restart: got %s", m.State())
	}
	if len(rec.cycles) != 1 || rec.cycles[0].Attempt == nil {
		t.Errorf("sinks: got %d cycles", len(rec.cycles))
	}
}

func TestCycle_RestartConfirmed(t *testing.T) {
	p := panel(t, `<p>0 / 20</p><div>0:05</div><button>Restart</button><button>Yes</button>`)
	m, _ := newTestMonitor(t, testConfig(t), p, &fakeSleeper{})

	c := m.Cycle(context.Background())

	if c.Attempt == nil || c.Attempt.Outcome != report.OutcomeConfirmed {
		t.Fatalf("attempt: got %+v", c.Attempt)
	}
	if c.Attempt.ConfirmLabel != "yes" {
		t.Errorf("confirm label: got %q, want yes", c.Attempt.ConfirmLabel)
	}
	clicks := p.Clicks()
	if len(clicks) != 2 || clicks[0].Text != "Restart" || clicks[1].Text != "Yes" {
		t.Errorf("clicks: got %+v", clicks)
	}
}

func TestCycle_NoRestart(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		class report.Class
	}{
		{"safe margin", `<p>0/20</p><span>0:45</span><button>Start</button>`, report.ClassTimerSafeMargin},
		{"players online", `<p>3/20</p><span>0:12</span><button>Start</button>`, report.ClassPlayersOnline},
		{"no timer", `<p>Players: 0</p><button>Start</button>`, report.ClassTimerNotDetected},
		{"zero timer", `<p>0/20</p><span>0:00</span><button>Start</button>`, report.ClassTimerSafeMargin},
		{"window bound", `<p>0/20</p><span>0:31</span><button>Start</button>`, report.ClassTimerSafeMargin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := panel(t, tt.body)
			sl := &fakeSleeper{}
			m, _ := newTestMonitor(t, testConfig(t), p, sl)

			c := m.Cycle(context.Background())

			if c.Decision.Restart || c.Decision.Class != tt.class {
				t.Errorf("decision: got %+v, want class %s", c.Decision, tt.class)
			}
			if c.Attempt != nil {
				t.Errorf("unexpected attempt: %+v", c.Attempt)
			}
			if len(p.Clicks()) != 0 || len(sl.Waits()) != 0 {
				t.Errorf("page touched: clicks=%v waits=%v", p.Clicks(), sl.Waits())
			}
		})
	}
}

func TestCycle_ControlMissingTakesScreenshot(t *testing.T) {
	cfg := testConfig(t)
	p := panel(t, `<p>0/20</p><span>0:12</span><a href="/help">Help</a>`)
	sl := &fakeSleeper{}
	m, _ := newTestMonitor(t, cfg, p, sl)

	c := m.Cycle(context.Background())

	if c.Attempt == nil || c.Attempt.Outcome != report.OutcomeNoControl {
		t.Fatalf("attempt: got %+v", c.Attempt)
	}
	if c.Attempt.Screenshot != cfg.Monitor.ScreenshotPath {
		t.Errorf("screenshot: got %q", c.Attempt.Screenshot)
	}
	if shots := p.Screenshots(); len(shots) != 1 || shots[0] != cfg.Monitor.ScreenshotPath {
		t.Errorf("screenshots: got %v", shots)
	}
	if w := sl.Waits(); len(w) != 0 {
		t.Errorf("no settle expected after a miss, got waits %v", w)
	}
}

// brokenPage fails every evaluation.
type brokenPage struct{ page.Page }

var errBroken = errors.New("target closed")

func (brokenPage) Text(context.Context) (string, error) { return "", errBroken }
func (brokenPage) MatchText(context.Context, string, string) (string, bool, error) {
	return "", false, errBroken
}
func (brokenPage) Query(context.Context, string) (page.Element, error) { return nil, errBroken }

func TestCycle_ExtractionErrorsFailOpen(t *testing.T) {
	m, rec := newTestMonitor(t, testConfig(t), brokenPage{}, &fakeSleeper{})

	c := m.Cycle(context.Background())

	if c.Facts.Players != 0 || c.Facts.PlayersKnown || c.Facts.PlayerSource != report.PlayerSourceDefault {
		t.Errorf("players: got %+v", c.Facts)
	}
	if c.Facts.Timer != nil {
		t.Errorf("timer: got %+v, want nil", c.Facts.Timer)
	}
	if c.Decision.Class != report.ClassTimerNotDetected || c.Attempt != nil {
		t.Errorf("cycle: got %+v", c)
	}
	if len(rec.cycles) != 1 {
		t.Errorf("cycle not reported")
	}
}

func TestCycle_UnreadPlayers(t *testing.T) {
	body := `<p>Server stops soon</p><span>0:12</span><a href="#">Help</a>`

	p := panel(t, body)
	m, _ := newTestMonitor(t, testConfig(t), p, &fakeSleeper{})
	if c := m.Cycle(context.Background()); !c.Decision.Restart || c.Facts.PlayersKnown {
		t.Errorf("fail-open: got %+v", c)
	}

	cfg := testConfig(t)
	cfg.Monitor.StrictPlayers = true
	p = panel(t, body)
	m, _ = newTestMonitor(t, cfg, p, &fakeSleeper{})
	c := m.Cycle(context.Background())
	if c.Decision.Restart || c.Decision.Class != report.ClassPlayersUnread {
		t.Errorf("strict: got %+v", c.Decision)
	}
	if c.Attempt != nil {
		t.Errorf("strict: unexpected attempt %+v", c.Attempt)
	}
}

func TestCycle_CancelledBeforeClick(t *testing.T) {
	p := panel(t, `<p>0/20</p><span>0:12</span><button>Restart</button>`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sl := &fakeSleeper{cancelAt: 1, cancel: cancel}
	m, _ := newTestMonitor(t, testConfig(t), p, sl)

	c := m.Cycle(ctx)

	if c.Attempt == nil || c.Attempt.Outcome != report.OutcomeAborted {
		t.Fatalf("attempt: got %+v", c.Attempt)
	}
	if len(p.Clicks()) != 0 {
		t.Errorf("clicked after cancellation: %+v", p.Clicks())
	}
}

func TestCycle_CancelledDuringSettleKeepsOutcome(t *testing.T) {
	p := panel(t, `<p>0/20</p><span>0:12</span><button>Start</button>`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sl := &fakeSleeper{cancelAt: 3, cancel: cancel}
	m, _ := newTestMonitor(t, testConfig(t), p, sl)

	c := m.Cycle(ctx)

	if c.Attempt == nil || c.Attempt.Outcome != report.OutcomeClicked {
		t.Fatalf("attempt: got %+v", c.Attempt)
	}
}

func TestCycle_SequenceAndLast(t *testing.T) {
	p := panel(t, `<p>0/20</p><span>1:30</span>`)
	m, _ := newTestMonitor(t, testConfig(t), p, &fakeSleeper{})
	if m.Last() != nil {
		t.Fatal("Last before first poll: want nil")
	}
	first := m.Cycle(context.Background())
	second := m.Cycle(context.Background())
	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("seq: got %d, %d", first.Seq, second.Seq)
	}
	if first.ID == second.ID {
		t.Error("cycle IDs must differ")
	}
	last := m.Last()
	if last == nil || last.Seq != 2 {
		t.Fatalf("Last: got %+v", last)
	}
	last.Seq = 99
	if m.Last().Seq != 2 {
		t.Error("Last must return a copy")
	}
	if got := second.Facts.TimerDisplay(); got != "1m 30s" {
		t.Errorf("timer display: got %q", got)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	p := panel(t, `<p>0/20</p><span>0:45</span>`)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sl := &fakeSleeper{cancelAt: 3, cancel: cancel}
	m, rec := newTestMonitor(t, testConfig(t), p, sl)

	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.cycles) != 2 {
		t.Errorf("cycles: got %d, want 2", len(rec.cycles))
	}
	for _, w := range sl.Waits() {
		if w != 8*time.Second {
			t.Errorf("poll wait: got %v, want 8s", w)
		}
	}
	if m.State() != report.StateStopped {
		t.Errorf("state: got %s", m.State())
	}
	types := rec.eventTypes()
	if len(types) == 0 || types[len(types)-1] != report.EventStopped {
		t.Errorf("events: got %v, want trailing stopped", types)
	}
}

func TestRun_AlreadyCancelled(t *testing.T) {
	p := panel(t, `<p>0/20</p><span>0:12</span><button>Start</button>`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, rec := newTestMonitor(t, testConfig(t), p, &fakeSleeper{})

	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.cycles) != 0 || len(p.Clicks()) != 0 {
		t.Errorf("work done after cancellation: cycles=%d clicks=%d", len(rec.cycles), len(p.Clicks()))
	}
}

const (
	loginHTML = `<html><body><form>
		<input type="text" autocomplete="username">
		<input type="password">
		<button type="submit">Sign in</button>
	</form></body></html>`
	serverHTML = `<html><body><p>0/20</p><span>2:00</span><button>Start</button></body></html>`
)

func loginPage(t *testing.T, pages map[string]string) *static.Page {
	t.Helper()
	p := panel(t, "")
	p.Load = func(_ context.Context, url string) (io.ReadCloser, error) {
		html, ok := pages[url]
		if !ok {
			return nil, errors.New("net::ERR_NAME_NOT_RESOLVED")
		}
		return io.NopCloser(strings.NewReader(html)), nil
	}
	return p
}

func loginConfig(t *testing.T) *Config {
	cfg := testConfig(t)
	cfg.Panel.LoginURL = "https://panel.test/go/"
	cfg.Panel.ServerURL = "https://panel.test/server"
	return cfg
}

var creds = Credentials{Username: "alice", Password: "s3cret-pw"}

func TestLogin(t *testing.T) {
	cfg := loginConfig(t)
	p := loginPage(t, map[string]string{
		cfg.Panel.LoginURL:  loginHTML,
		cfg.Panel.ServerURL: serverHTML,
	})
	var logs bytes.Buffer
	sl := &fakeSleeper{}
	rec := &recorder{}
	m := New(cfg, p, WithSleeper(sl), WithSinks(rec.sink()),
		WithLogger(slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	if err := m.Login(context.Background(), creds); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if v, _ := p.Typed(cfg.Panel.UsernameSelector); v != "alice" {
		t.Errorf("username: got %q", v)
	}
	if v, _ := p.Typed(cfg.Panel.PasswordSelector); v != "s3cret-pw" {
		t.Error("password not typed")
	}
	if clicks := p.Clicks(); len(clicks) != 1 || clicks[0].Text != "Sign in" {
		t.Errorf("clicks: got %+v", clicks)
	}
	if p.URL() != cfg.Panel.ServerURL {
		t.Errorf("URL: got %q", p.URL())
	}
	if got, want := sl.Waits(), []time.Duration{2 * time.Second, 5 * time.Second}; !slices.Equal(got, want) {
		t.Errorf("waits: got %v, want %v", got, want)
	}
	if !slices.Contains(rec.eventTypes(), report.EventLogin) {
		t.Errorf("events: got %v, want login", rec.eventTypes())
	}
	if strings.Contains(logs.String(), "s3cret-pw") || strings.Contains(logs.String(), "alice") {
		t.Errorf("credentials leaked into logs: %s", logs.String())
	}

	c := m.Cycle(context.Background())
	if c.PageURL != cfg.Panel.ServerURL || c.Decision.Class != report.ClassTimerSafeMargin {
		t.Errorf("first cycle after login: got %+v", c)
	}
}

func TestLogin_SubmitFallback(t *testing.T) {
	cfg := loginConfig(t)
	cfg.Panel.ServerURL = ""
	p := loginPage(t, map[string]string{cfg.Panel.LoginURL: strings.Replace(loginHTML, "Sign in", "Go", 1)})
	m, _ := newTestMonitor(t, cfg, p, &fakeSleeper{})

	if err := m.Login(context.Background(), creds); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if clicks := p.Clicks(); len(clicks) != 1 || clicks[0].Text != "Go" {
		t.Errorf("clicks: got %+v", clicks)
	}
	if p.URL() != cfg.Panel.LoginURL {
		t.Errorf("URL: got %q, want login page", p.URL())
	}
}

func TestLogin_Failures(t *testing.T) {
	cfg := loginConfig(t)
	noButton := `<html><body><input type="text"><input type="password"></body></html>`
	noPassword := `<html><body><input type="text"><button>Sign in</button></body></html>`

	tests := []struct {
		name  string
		pages map[string]string
		creds Credentials
		want  error
	}{
		{"missing credentials", map[string]string{cfg.Panel.LoginURL: loginHTML}, Credentials{Username: "alice"}, ErrMissingCredentials},
		{"no login control", map[string]string{cfg.Panel.LoginURL: noButton}, creds, ErrLoginControl},
		{"no password field", map[string]string{cfg.Panel.LoginURL: noPassword}, creds, page.ErrNoElement},
		{"navigation failed", map[string]string{}, creds, nil},
		{"server page failed", map[string]string{cfg.Panel.LoginURL: loginHTML}, creds, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := loginPage(t, tt.pages)
			m, rec := newTestMonitor(t, cfg, p, &fakeSleeper{})
			err := m.Login(context.Background(), tt.creds)
			if err == nil {
				t.Fatal("Login: want error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Login: got %v, want %v", err, tt.want)
			}
			if slices.Contains(rec.eventTypes(), report.EventLogin) {
				t.Error("login event emitted on failure")
			}
		})
	}
}

func TestSinksFromConfig(t *testing.T) {
	var buf bytes.Buffer
	sinks, err := SinksFromConfig([]SinkConfig{
		{Type: "console"}, {Type: "stdout"}, {Type: "log"},
		{Type: "webhook", URL: "https://hooks.test/x", MaxRetries: 1},
	}, nil, &buf, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(sinks) != 4 {
		t.Errorf("sinks: got %d, want 4", len(sinks))
	}

	if _, err := SinksFromConfig([]SinkConfig{{Type: "store"}}, nil, &buf, nil); err == nil {
		t.Error("store sink without a store: want error")
	}
	if _, err := SinksFromConfig([]SinkConfig{{Type: "carrier-pigeon"}}, nil, &buf, nil); err == nil {
		t.Error("unknown sink: want error")
	}
}

func TestRealSleeper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := RealSleeper.Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled sleep: got %v", err)
	}
	if err := RealSleeper.Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("short sleep: got %v", err)
	}
}

// faultyControlPage hands out controls whose scroll or click fails.
type faultyControlPage struct {
	*static.Page
	scrollErr, clickErr, textErr error
}

func (f *faultyControlPage) Nth(ctx context.Context, selector string, i int) (page.Element, error) {
	el, err := f.Page.Nth(ctx, selector, i)
	if el == nil || err != nil {
		return el, err
	}
	return &faultyElement{Element: el, scrollErr: f.scrollErr, clickErr: f.clickErr, textErr: f.textErr}, nil
}

type faultyElement struct {
	page.Element
	scrollErr, clickErr, textErr error
}

func (e *faultyElement) Text(ctx context.Context) (string, error) {
	if e.textErr != nil {
		return "", e.textErr
	}
	return e.Element.Text(ctx)
}

func (e *faultyElement) ScrollIntoView(ctx context.Context) error {
	if e.scrollErr != nil {
		return e.scrollErr
	}
	return e.Element.ScrollIntoView(ctx)
}

func (e *faultyElement) Click(ctx context.Context) error {
	if e.clickErr != nil {
		return e.clickErr
	}
	return e.Element.Click(ctx)
}

func TestCycle_ClickFailed(t *testing.T) {
	sp := panel(t, `<p>0/20</p><span>0:12</span><button>Restart</button>`)
	p := &faultyControlPage{Page: sp, clickErr: errors.New("node detached")}
	sl := &fakeSleeper{}
	m, rec := newTestMonitor(t, testConfig(t), p, sl)

	c := m.Cycle(context.Background())

	if c.Attempt == nil || c.Attempt.Outcome != report.OutcomeClickFailed {
		t.Fatalf("attempt: got %+v", c.Attempt)
	}
	if c.Attempt.Error != "node detached" {
		t.Errorf("error: got %q", c.Attempt.Error)
	}
	if got := sl.Waits(); !slices.Equal(got, []time.Duration{500 * time.Millisecond}) {
		t.Errorf("waits: got %v, want only the scroll settle", got)
	}
	if len(sp.Clicks()) != 0 {
		t.Errorf("clicks: got %+v", sp.Clicks())
	}
	if m.State() != report.StatePolling {
		t.Errorf("state: got %s, want polling", m.State())
	}
	if len(rec.cycles) != 1 {
		t.Errorf("cycles reported: got %d", len(rec.cycles))
	}
}

func TestCycle_ScrollFailed(t *testing.T) {
	sp := panel(t, `<p>0/20</p><span>0:12</span><button>Restart</button>`)
	p := &faultyControlPage{Page: sp, scrollErr: errors.New("element not visible")}
	sl := &fakeSleeper{}
	m, _ := newTestMonitor(t, testConfig(t), p, sl)

	c := m.Cycle(context.Background())

	if c.Attempt == nil || c.Attempt.Outcome != report.OutcomeScrollFailed {
		t.Fatalf("attempt: got %+v", c.Attempt)
	}
	if c.Attempt.Error != "element not visible" {
		t.Errorf("error: got %q", c.Attempt.Error)
	}
	if got := sl.Waits(); len(got) != 0 {
		t.Errorf("waits: got %v, want none", got)
	}
	if len(sp.Clicks()) != 0 {
		t.Errorf("clicks: got %+v", sp.Clicks())
	}
	if m.State() != report.StatePolling {
		t.Errorf("state: got %s, want polling", m.State())
	}

	// The loop carries on with the next poll.
	if next := m.Cycle(context.Background()); next.Seq != 2 {
		t.Errorf("next cycle: got seq %d", next.Seq)
	}
}

func TestCycle_FinishedAtCoversRestart(t *testing.T) {
	p := panel(t, `<p>0/20</p><span>0:12</span><button>Start</button>`)
	var mu sync.Mutex
	clock := time.UnixMilli(1_000_000)
	sl := SleeperFunc(func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
		return ctx.Err()
	})
	m, _ := newTestMonitor(t, testConfig(t), p, sl)
	m.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}

	c := m.Cycle(context.Background())

	if c.Timestamp != 1_000_000 {
		t.Errorf("timestamp: got %d", c.Timestamp)
	}
	if got := c.FinishedAt - c.Timestamp; got != 18_500 {
		t.Errorf("finished after %dms, want 18500", got)
	}
	if last := m.Last(); last == nil || last.FinishedAt != c.FinishedAt {
		t.Errorf("Last: got %+v", last)
	}
}

func TestCycle_SlowWebhookDoesNotStallPolling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	body := `<p>0/20</p><span>1:30</span>`

	m := New(cfg, panel(t, body), WithSleeper(&fakeSleeper{}), WithLogger(quietLogger()),
		WithSinks(NewWebhookSink(srv.URL, 3, quietLogger())), WithSinkTimeout(200*time.Millisecond))
	start := time.Now()
	m.Cycle(context.Background())
	if took := time.Since(start); took > time.Second {
		t.Errorf("live cycle took %v with a 200ms sink timeout", took)
	}

	m = New(cfg, panel(t, body), WithSleeper(&fakeSleeper{}), WithLogger(quietLogger()),
		WithSinks(NewWebhookSink(srv.URL, 3, quietLogger())))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start = time.Now()
	m.Cycle(ctx)
	if took := time.Since(start); took > DefaultSinkGrace+500*time.Millisecond {
		t.Errorf("cancelled cycle took %v, want about %v", took, DefaultSinkGrace)
	}
}
