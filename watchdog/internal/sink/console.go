// CLAUDE:SUMMARY Human-readable status lines, one per poll cycle, plus restart attempt outcomes.
package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// Console writes one status line per cycle for an operator watching the
// terminal, followed by a classification line.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a Console sink. If w is nil, os.Stdout is used.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Send(_ context.Context, cycle report.Cycle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, FormatCycle(cycle))
	return err
}

func (c *Console) SendEvent(_ context.Context, ev report.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var line string
	switch ev.Type {
	case report.EventLogin:
		line = "Logged in, monitoring started\n"
	case report.EventStopped:
		line = "Monitor stopped\n"
	default:
		return nil
	}
	_, err := io.WriteString(c.w, line)
	return err
}

func (c *Console) Close() error { return nil }

// FormatCycle renders a cycle as console text.
func FormatCycle(cycle report.Cycle) string {
	f := cycle.Facts
	players := fmt.Sprint(f.Players)
	if !f.PlayersKnown {
		players += " (unread)"
	}
	s := fmt.Sprintf("[#%s] Players: %s | Timer: %s\n", humanize.Comma(int64(cycle.Seq)), players, f.TimerDisplay())

	secs, _ := f.TimerSeconds()
	switch cycle.Decision.Class {
	case report.ClassRestartTriggered:
		s += fmt.Sprintf("AUTO-RESTART TRIGGERED (%ds left, 0 players)\n", secs)
	case report.ClassPlayersOnline:
		s += "Players online, safe (no restart)\n"
	case report.ClassTimerNotDetected:
		s += "Timer not detected\n"
	case report.ClassTimerSafeMargin:
		s += fmt.Sprintf("Timer safe (%ds)\n", secs)
	case report.ClassPlayersUnread:
		s += fmt.Sprintf("Restart withheld: %ds left but player count unread\n", secs)
	}
	if a := cycle.Attempt; a != nil {
		s += formatAttempt(a)
	}
	return s
}

func formatAttempt(a *report.Attempt) string {
	took := time.Duration(a.FinishedAt-a.StartedAt) * time.Millisecond
	switch a.Outcome {
	case report.OutcomeConfirmed:
		return fmt.Sprintf("Restart clicked (%s) and confirmed (%s), took %s\n", a.ActionLabel, a.ConfirmLabel, took)
	case report.OutcomeClicked:
		return fmt.Sprintf("Restart clicked (%s), no confirmation shown, took %s\n", a.ActionLabel, took)
	case report.OutcomeNoControl:
		return fmt.Sprintf("Restart button not found, screenshot saved: %s\n", a.Screenshot)
	case report.OutcomeAborted:
		return "Restart attempt interrupted\n"
	default:
		return fmt.Sprintf("Restart failed (%s): %s\n", a.Outcome, a.Error)
	}
}
