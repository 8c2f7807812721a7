// CLAUDE:SUMMARY In-process callback sink delivering poll cycles and events via Go function calls.
package sink

import (
	"context"

	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// CycleFunc is called for each poll cycle.
type CycleFunc func(ctx context.Context, cycle report.Cycle) error

// EventFunc is called for each lifecycle event.
type EventFunc func(ctx context.Context, ev report.Event) error

// Callback delivers reports via Go function calls, for embedding the
// monitor in another program.
type Callback struct {
	onCycle CycleFunc
	onEvent EventFunc
}

// NewCallback creates a Callback sink. Either handler may be nil.
func NewCallback(onCycle CycleFunc, onEvent EventFunc) *Callback {
	return &Callback{onCycle: onCycle, onEvent: onEvent}
}

func (c *Callback) Send(ctx context.Context, cycle report.Cycle) error {
	if c.onCycle != nil {
		return c.onCycle(ctx, cycle)
	}
	return nil
}

func (c *Callback) SendEvent(ctx context.Context, ev report.Event) error {
	if c.onEvent != nil {
		return c.onEvent(ctx, ev)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
