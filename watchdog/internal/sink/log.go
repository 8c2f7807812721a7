package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// Log writes every report as a structured slog record.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a Log sink. A nil logger means slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Send(ctx context.Context, cycle report.Cycle) error {
	attrs := []any{
		"seq", cycle.Seq,
		"players", cycle.Facts.Players,
		"players_known", cycle.Facts.PlayersKnown,
		"timer", cycle.Facts.TimerDisplay(),
		"class", cycle.Decision.Class,
	}
	level := slog.LevelInfo
	if a := cycle.Attempt; a != nil {
		attrs = append(attrs, "outcome", a.Outcome)
		if !a.Outcome.Succeeded() {
			level = slog.LevelWarn
			attrs = append(attrs, "attempt_error", a.Error)
		}
	}
	l.logger.Log(ctx, level, "watchdog: cycle", attrs...)
	return nil
}

func (l *Log) SendEvent(ctx context.Context, ev report.Event) error {
	l.logger.InfoContext(ctx, "watchdog: event", "type", ev.Type, "state", ev.State, "detail", ev.Detail)
	return nil
}

func (l *Log) Close() error { return nil }
