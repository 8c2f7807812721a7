package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/panelwatch/watchdog"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Log into the panel and watch the server (default)",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	logger := newLogger(os.Stderr, logLevel, logFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	creds, err := watchdog.LoadCredentials(cfg)
	if err != nil {
		return err
	}
	return watch(cmd.Context(), cfg, creds, logger)
}

func watch(ctx context.Context, cfg *watchdog.Config, creds watchdog.Credentials, logger *slog.Logger) error {
	var st *watchdog.Store
	if cfg.Store.Path != "" {
		var err error
		st, err = watchdog.OpenStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		if n, err := st.Cleanup(ctx, cfg.Store.RetentionDays); err != nil {
			logger.Warn("panelwatch: history cleanup failed", "error", err)
		} else if n > 0 {
			logger.Info("panelwatch: history cleanup", "removed", n)
		}
	}

	var storeSink watchdog.Sink
	if st != nil {
		storeSink = st
	}
	sinks, err := watchdog.SinksFromConfig(cfg.Sinks, storeSink, os.Stdout, logger)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return err
	}
	if st != nil && !listsStore(cfg.Sinks) {
		sinks = append(sinks, st)
	}

	var met *watchdog.Metrics
	var hub *watchdog.Hub
	if cfg.HTTP.Addr != "" {
		met = watchdog.NewMetrics()
		hub = watchdog.NewHub(logger)
		sinks = append(sinks, met, hub)
	}

	sess, err := watchdog.OpenSession(ctx, cfg.Browser, logger)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return err
	}
	defer sess.Close()

	// The monitor closes every sink, the store included.
	m := watchdog.New(cfg, sess, watchdog.WithLogger(logger), watchdog.WithSinks(sinks...))
	defer m.Close()

	if err := m.Login(ctx, creds); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.HTTP.Addr != "" {
		srv := watchdog.NewStatusServer(m, st, met, hub, logger)
		g.Go(func() error {
			if err := srv.ListenAndServe(gctx, cfg.HTTP.Addr); err != nil {
				return fmt.Errorf("status api: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error { return m.Run(gctx) })
	return g.Wait()
}

// listsStore reports whether the store is already among the configured
// sinks. A configured store.path always records history.
func listsStore(sinks []watchdog.SinkConfig) bool {
	for _, sc := range sinks {
		if sc.Type == "store" {
			return true
		}
	}
	return false
}
