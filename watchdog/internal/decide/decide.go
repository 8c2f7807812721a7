// Package decide holds the restart predicate. Everything here is pure.
package decide

import "github.com/hazyhaar/panelwatch/watchdog/report"

// DefaultThreshold is the restart window upper bound, in seconds.
const DefaultThreshold = 30

// ShouldRestart reports whether the server should be restarted: nobody
// online and a visible countdown in (0, 30] seconds.
func ShouldRestart(players int, timer *report.Timer) bool {
	return Policy{}.restart(players, true, timer)
}

// Policy parameterises the predicate.
type Policy struct {
	// ThresholdSeconds is the inclusive upper bound of the restart window.
	// Zero means DefaultThreshold.
	ThresholdSeconds int

	// StrictPlayers refuses to restart when the player count could not be
	// read. By default an unreadable count is treated as zero.
	StrictPlayers bool
}

func (p Policy) threshold() int {
	if p.ThresholdSeconds <= 0 {
		return DefaultThreshold
	}
	return p.ThresholdSeconds
}

func (p Policy) inWindow(timer *report.Timer) bool {
	return timer != nil && timer.Total > 0 && timer.Total <= p.threshold()
}

func (p Policy) restart(players int, known bool, timer *report.Timer) bool {
	if players != 0 || (p.StrictPlayers && !known) {
		return false
	}
	return p.inWindow(timer)
}

// Evaluate decides and classifies one set of facts. Classification order:
// restart, withheld for an unread count (strict mode only), players online,
// no timer, safe margin.
func (p Policy) Evaluate(f report.Facts) report.Decision {
	switch {
	case p.restart(f.Players, f.PlayersKnown, f.Timer):
		return report.Decision{Restart: true, Class: report.ClassRestartTriggered}
	case p.StrictPlayers && !f.PlayersKnown && f.Players == 0 && p.inWindow(f.Timer):
		return report.Decision{Class: report.ClassPlayersUnread}
	case f.Players > 0:
		return report.Decision{Class: report.ClassPlayersOnline}
	case f.Timer == nil:
		return report.Decision{Class: report.ClassTimerNotDetected}
	default:
		return report.Decision{Class: report.ClassTimerSafeMargin}
	}
}
