// Package sink defines output backends for watchdog reports.
package sink

import (
	"context"

	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// Sink is the output interface. Implementations deliver poll cycles and
// lifecycle events to different backends (console, stdout, webhook, slog,
// in-process callback, history store, metrics, websocket).
type Sink interface {
	Send(ctx context.Context, cycle report.Cycle) error
	SendEvent(ctx context.Context, ev report.Event) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
