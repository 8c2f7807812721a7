package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/panelwatch/watchdog/report"
)

func cycle(seq uint64, ts int64, attempt *report.Attempt) report.Cycle {
	c := report.Cycle{
		ID:        report.NewID(),
		Seq:       seq,
		PageURL:   "https://aternos.org/server/",
		Facts:     report.Facts{PlayersKnown: true, PlayerSource: "pattern:0"},
		Decision:  report.Decision{Class: report.ClassTimerNotDetected},
		Timestamp: ts,
	}
	if attempt != nil {
		c.Facts.Timer = &report.Timer{Seconds: 12, Total: 12, Raw: "0:12"}
		c.Decision = report.Decision{Restart: true, Class: report.ClassRestartTriggered}
		c.Attempt = attempt
	}
	return c
}

func TestSendAndRecent(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	a := &report.Attempt{
		ID: report.NewID(), Outcome: report.OutcomeConfirmed,
		ActionStrategy: "text", ActionLabel: "restart",
		ConfirmStrategy: "text", ConfirmLabel: "confirm",
		StartedAt: 2000, FinishedAt: 20500,
	}
	c2in := cycle(2, 2000, a)
	c2in.FinishedAt = 20500
	for _, c := range []report.Cycle{cycle(1, 1000, nil), c2in, cycle(3, 3000, nil)} {
		if err := s.Send(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Seq != 3 || got[1].Seq != 2 {
		t.Fatalf("Recent: got %+v", got)
	}
	if got[0].Facts.Timer != nil || got[0].Attempt != nil {
		t.Errorf("cycle 3: unexpected timer or attempt: %+v", got[0])
	}
	c2 := got[1]
	if c2.Facts.Timer == nil || c2.Facts.Timer.Total != 12 || c2.Facts.Timer.Raw != "0:12" {
		t.Errorf("cycle 2 timer: got %+v", c2.Facts.Timer)
	}
	if !c2.Decision.Restart || c2.Decision.Class != report.ClassRestartTriggered {
		t.Errorf("cycle 2 decision: got %+v", c2.Decision)
	}
	if c2.Attempt == nil || *c2.Attempt != *a {
		t.Errorf("cycle 2 attempt: got %+v, want %+v", c2.Attempt, a)
	}
	if c2.FinishedAt != 20500 || got[0].FinishedAt != 0 {
		t.Errorf("finished_at: got %d and %d, want 20500 and 0", c2.FinishedAt, got[0].FinishedAt)
	}
	if !c2.Facts.PlayersKnown || c2.Facts.PlayerSource != "pattern:0" {
		t.Errorf("cycle 2 facts: got %+v", c2.Facts)
	}
}

func TestLast(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	last, err := s.Last(ctx)
	if err != nil || last != nil {
		t.Fatalf("Last on empty store: got (%v, %v)", last, err)
	}
	s.Send(ctx, cycle(1, 1000, nil))
	s.Send(ctx, cycle(2, 5000, nil))
	last, err = s.Last(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || last.Seq != 2 {
		t.Errorf("Last: got %+v, want seq 2", last)
	}
}

func TestAttemptsAndStats(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	ok := &report.Attempt{ID: report.NewID(), Outcome: report.OutcomeClicked, StartedAt: 1000, FinishedAt: 2000}
	miss := &report.Attempt{ID: report.NewID(), Outcome: report.OutcomeNoControl,
		Screenshot: "debug-screenshot.png", StartedAt: 3000, FinishedAt: 3100}
	s.Send(ctx, cycle(1, 1000, ok))
	s.Send(ctx, cycle(2, 3000, miss))
	s.Send(ctx, cycle(3, 4000, nil))

	attempts, err := s.Attempts(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 2 || attempts[0].Outcome != report.OutcomeNoControl || attempts[0].Screenshot != "debug-screenshot.png" {
		t.Errorf("Attempts: got %+v", attempts)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{Cycles: 3, Restarts: 1, FailedAttempts: 1, LastRestartAt: 1000}
	if st != want {
		t.Errorf("Stats: got %+v, want %+v", st, want)
	}
}

func TestCleanup(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	old := now.Add(-40 * 24 * time.Hour).UnixMilli()
	recent := now.Add(-time.Hour).UnixMilli()
	s.Send(ctx, cycle(1, old, &report.Attempt{ID: report.NewID(), Outcome: report.OutcomeClicked, StartedAt: old, FinishedAt: old}))
	s.Send(ctx, cycle(2, recent, nil))
	s.SendEvent(ctx, report.Event{Type: report.EventLogin, Timestamp: old})

	n, err := s.Cleanup(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Cleanup: removed %d, want 1", n)
	}
	st, _ := s.Stats(ctx)
	if st.Cycles != 1 || st.Restarts != 0 {
		t.Errorf("after cleanup: %+v", st)
	}
	var events int
	s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM monitor_events`).Scan(&events)
	if events != 0 {
		t.Errorf("events after cleanup: got %d, want 0", events)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "history.db")
	s, err := Open(path, WithMkdirAll())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Send(context.Background(), cycle(1, 1000, nil)); err != nil {
		t.Fatal(err)
	}
	var mode string
	s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode)
	if mode != "wal" {
		t.Errorf("journal_mode: got %q, want wal", mode)
	}
}

func TestIsBusy(t *testing.T) {
	if IsBusy(nil) {
		t.Error("IsBusy(nil)")
	}
	if !IsBusy(errString("database is locked (5) (SQLITE_BUSY)")) {
		t.Error("IsBusy: locked error not detected")
	}
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	var v int
	s.DB().QueryRow("PRAGMA user_version").Scan(&v)
	if v != schemaVersion {
		t.Errorf("user_version: got %d, want %d", v, schemaVersion)
	}
	if _, err := s.DB().Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	_, err = Open(path)
	if err == nil || !strings.Contains(err.Error(), "newer") {
		t.Errorf("Open newer schema: got %v", err)
	}
}

func TestWithBusyRetry(t *testing.T) {
	ctx := context.Background()
	calls := 0
	v, err := withBusyRetry(ctx, "test", func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errString("database is locked")
		}
		return 7, nil
	})
	if err != nil || v != 7 || calls != 2 {
		t.Errorf("busy then ok: got (%d, %v) after %d calls", v, err, calls)
	}

	calls = 0
	boom := errors.New("boom")
	if _, err := withBusyRetry(ctx, "test", func() (int, error) { calls++; return 0, boom }); err != boom || calls != 1 {
		t.Errorf("non-busy: got %v after %d calls", err, calls)
	}

	calls = 0
	_, err = withBusyRetry(ctx, "test", func() (int, error) { calls++; return 0, errString("SQLITE_BUSY") })
	if !IsBusy(err) || calls != len(busyBackoff)+1 {
		t.Errorf("always busy: got %v after %d calls", err, calls)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = withBusyRetry(cctx, "test", func() (int, error) { return 0, errString("SQLITE_BUSY") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: got %v", err)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
