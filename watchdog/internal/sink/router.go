package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// Router delivers every report to all its sinks, in order. A failing sink
// is logged and skipped; the joined errors are returned once all sinks ran.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) Send(ctx context.Context, cycle report.Cycle) error {
	return r.each("send cycle", []any{"seq", cycle.Seq}, func(s Sink) error {
		return s.Send(ctx, cycle)
	})
}

func (r *Router) SendEvent(ctx context.Context, ev report.Event) error {
	return r.each("send event", []any{"event", ev.Type}, func(s Sink) error {
		return s.SendEvent(ctx, ev)
	})
}

// Close closes every sink, even after one fails.
func (r *Router) Close() error {
	return r.each("close", nil, Sink.Close)
}

func (r *Router) each(op string, attrs []any, fn func(Sink) error) error {
	var errs []error
	for _, s := range r.sinks {
		err := fn(s)
		if err == nil {
			continue
		}
		kind := fmt.Sprintf("%T", s)
		r.logger.Warn("sink: "+op+" failed", append([]any{"sink", kind, "error", err}, attrs...)...)
		errs = append(errs, fmt.Errorf("%s: %w", kind, err))
	}
	return errors.Join(errs...)
}
