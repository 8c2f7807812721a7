// Package report defines the structured types emitted by the watchdog.
// These are the public API contract: sinks, the history store and the status
// API all consume them. A Cycle is recomputed from scratch every poll; nothing
// here is merged with a previous cycle.
package report

import (
	"fmt"

	"github.com/google/uuid"
)

// Class is the one-line classification of a poll cycle.
type Class string

const (
	ClassPlayersOnline    Class = "players-online-safe"
	ClassRestartTriggered Class = "restart-triggered"
	ClassTimerNotDetected Class = "timer-not-detected"
	ClassTimerSafeMargin  Class = "timer-safe-margin" // timer visible but outside the restart window

	// ClassPlayersUnread: the timer is inside the window but strict mode
	// withholds the restart because the player count was not read.
	ClassPlayersUnread Class = "restart-withheld-players-unread"
)

// State is the monitor's position in its polling state machine.
type State string

const (
	StateIdle       State = "idle"
	StatePolling    State = "polling"
	StateRestarting State = "restarting"
	StateStopped    State = "stopped"
)

// PlayerSourceDefault marks a player count that could not be read and fell
// back to zero.
const PlayerSourceDefault = "default"

// Timer is a parsed countdown such as "2:05".
type Timer struct {
	Minutes int    `json:"minutes"`
	Seconds int    `json:"seconds"`
	Total   int    `json:"total"` // minutes*60 + seconds
	Raw     string `json:"raw"`
}

// Display renders the timer as "2m 5s", or "15s" under a minute.
func (t Timer) Display() string {
	if t.Minutes > 0 {
		return fmt.Sprintf("%dm %ds", t.Minutes, t.Seconds)
	}
	return fmt.Sprintf("%ds", t.Seconds)
}

// Facts is what the extractor read from the page in one cycle.
//
// Players is fail-open: when nothing could be read it is 0 and PlayersKnown
// is false. Timer is nil when no countdown was visible; nil is never zero.
type Facts struct {
	Players      int    `json:"players"`
	PlayersKnown bool   `json:"players_known"`
	PlayerSource string `json:"player_source"`
	Timer        *Timer `json:"timer,omitempty"`
}

// TimerDisplay returns the timer display string or "N/A".
func (f Facts) TimerDisplay() string {
	if f.Timer == nil {
		return "N/A"
	}
	return f.Timer.Display()
}

// TimerSeconds returns the countdown in seconds and whether one was present.
func (f Facts) TimerSeconds() (int, bool) {
	if f.Timer == nil {
		return 0, false
	}
	return f.Timer.Total, true
}

// Decision is the outcome of the restart predicate for one set of facts.
type Decision struct {
	Restart bool  `json:"restart"`
	Class   Class `json:"class"`
}

// Outcome describes how a restart attempt ended.
type Outcome string

const (
	OutcomeNoControl    Outcome = "no-control"    // locator miss, screenshot taken
	OutcomeScrollFailed Outcome = "scroll-failed" // action control could not be scrolled into view
	OutcomeClickFailed  Outcome = "click-failed"
	OutcomeClicked      Outcome = "clicked"   // action clicked, no confirmation control
	OutcomeConfirmed    Outcome = "confirmed" // action and confirmation clicked
	OutcomeAborted      Outcome = "aborted"   // context cancelled mid-attempt
)

// Succeeded reports whether the action control was clicked.
func (o Outcome) Succeeded() bool {
	return o == OutcomeClicked || o == OutcomeConfirmed
}

// Attempt records one pass through the restart sub-protocol.
type Attempt struct {
	ID              string  `json:"id"` // UUIDv7
	Outcome         Outcome `json:"outcome"`
	ActionStrategy  string  `json:"action_strategy,omitempty"`
	ActionLabel     string  `json:"action_label,omitempty"`
	ConfirmStrategy string  `json:"confirm_strategy,omitempty"`
	ConfirmLabel    string  `json:"confirm_label,omitempty"`
	Error           string  `json:"error,omitempty"`
	Screenshot      string  `json:"screenshot,omitempty"`
	StartedAt       int64   `json:"started_at"`  // epoch milliseconds
	FinishedAt      int64   `json:"finished_at"` // epoch milliseconds
}

// Cycle is the atomic unit emitted by the monitor: one poll, its facts, its
// decision and the restart attempt it triggered, if any.
type Cycle struct {
	ID        string   `json:"id"`  // UUIDv7
	Seq       uint64   `json:"seq"` // monotonically increasing per monitor
	PageURL   string   `json:"page_url,omitempty"`
	Facts     Facts    `json:"facts"`
	Decision  Decision `json:"decision"`
	Attempt   *Attempt `json:"attempt,omitempty"`
	Timestamp int64    `json:"timestamp"` // epoch milliseconds at extraction

	// FinishedAt is when the cycle, restart attempt included, completed.
	FinishedAt int64 `json:"finished_at,omitempty"`
}

// NewID returns a time-sortable UUIDv7 string.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// EventType names a lifecycle event.
type EventType string

const (
	EventLogin   EventType = "login"   // session established
	EventState   EventType = "state"   // monitor state changed
	EventStopped EventType = "stopped" // Run returned
)

// Event is a monitor lifecycle notification, emitted outside poll cycles.
type Event struct {
	Type      EventType `json:"type"`
	State     State     `json:"state,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp int64     `json:"timestamp"` // epoch milliseconds
}
