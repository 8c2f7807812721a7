package watchdog

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/panelwatch/watchdog/internal/sink"
	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// Sink is the output interface for watchdog reports.
type Sink = sink.Sink

// NewConsoleSink creates a human-readable status-line sink.
func NewConsoleSink(w io.Writer) Sink {
	return sink.NewConsole(w)
}

// NewStdoutSink creates a JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, retries int, logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return sink.NewWebhook(url, sink.WithWebhookRetries(retries), sink.WithWebhookLogger(logger))
}

// NewLogSink creates a sink writing structured slog records.
func NewLogSink(logger *slog.Logger) Sink {
	return sink.NewLog(logger)
}

// NewCallbackSink creates an in-process callback sink. Either function may
// be nil.
func NewCallbackSink(
	onCycle func(ctx context.Context, c report.Cycle) error,
	onEvent func(ctx context.Context, ev report.Event) error,
) Sink {
	return sink.NewCallback(onCycle, onEvent)
}

// SinksFromConfig builds the sinks listed in cfg. Sinks of type "store" are
// resolved to store, which may be nil only when no such sink is listed.
func SinksFromConfig(cfg []SinkConfig, store Sink, stdout io.Writer, logger *slog.Logger) ([]Sink, error) {
	var out []Sink
	for _, sc := range cfg {
		switch sc.Type {
		case "console":
			out = append(out, NewConsoleSink(stdout))
		case "stdout":
			out = append(out, NewStdoutSink(stdout))
		case "webhook":
			out = append(out, NewWebhookSink(sc.URL, sc.MaxRetries, logger))
		case "log":
			out = append(out, NewLogSink(logger))
		case "store":
			if store == nil {
				return nil, fmt.Errorf("watchdog: store sink needs store.path")
			}
			out = append(out, store)
		default:
			return nil, fmt.Errorf("watchdog: unknown sink type %q", sc.Type)
		}
	}
	return out, nil
}
