// CLAUDE:SUMMARY CLI entry point for panelwatch: run the restart watchdog, inspect a saved panel page, print the history.
// Command panelwatch keeps a panel-hosted game server from shutting down
// while it is empty.
//
// Usage:
//
//	panelwatch --config panelwatch.yaml      # log in and watch (default command)
//	panelwatch inspect saved-panel.html      # dry-run the heuristics on a saved page
//	panelwatch history --limit 20            # recent cycles from the store
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/panelwatch/watchdog"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "panelwatch:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "panelwatch",
		Short:         "Restart an idle game server before the panel shuts it down",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runWatch,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to panelwatch.yaml (defaults apply when empty)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format: json, text")

	root.AddCommand(newRunCmd(), newInspectCmd(), newHistoryCmd())
	return root
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func loadConfig() (*watchdog.Config, error) {
	if configPath == "" {
		cfg := watchdog.DefaultConfig()
		return cfg, cfg.Validate()
	}
	return watchdog.LoadConfigFile(configPath)
}
