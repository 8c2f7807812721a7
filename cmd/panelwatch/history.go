package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/panelwatch/watchdog"
	"github.com/hazyhaar/panelwatch/watchdog/report"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	var attempts bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent cycles and restart attempts from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Path == "" {
				return fmt.Errorf("history: store.path is not configured")
			}
			st, err := watchdog.OpenStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			stats, err := st.Stats(ctx)
			if err != nil {
				return err
			}
			printStats(out, stats, time.Now())

			if attempts {
				list, err := st.Attempts(ctx, limit)
				if err != nil {
					return err
				}
				for _, a := range list {
					fmt.Fprintln(out, formatAttemptRow(a, time.Now()))
				}
				return nil
			}
			cycles, err := st.Recent(ctx, limit)
			if err != nil {
				return err
			}
			for _, c := range cycles {
				fmt.Fprintln(out, formatCycleRow(c, time.Now()))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of rows")
	cmd.Flags().BoolVar(&attempts, "attempts", false, "list restart attempts instead of cycles")
	return cmd
}

func printStats(w io.Writer, st watchdog.StoreStats, now time.Time) {
	last := "never"
	if st.LastRestartAt > 0 {
		last = humanize.RelTime(time.UnixMilli(st.LastRestartAt), now, "ago", "from now")
	}
	fmt.Fprintf(w, "%s cycles, %s restarts, %s failed attempts, last restart %s\n",
		humanize.Comma(st.Cycles), humanize.Comma(st.Restarts), humanize.Comma(st.FailedAttempts), last)
}

func formatCycleRow(c report.Cycle, now time.Time) string {
	row := fmt.Sprintf("#%-6d %-16s players=%d timer=%-7s %s",
		c.Seq, humanize.RelTime(time.UnixMilli(c.Timestamp), now, "ago", "from now"),
		c.Facts.Players, c.Facts.TimerDisplay(), c.Decision.Class)
	if c.Attempt != nil {
		row += " -> " + string(c.Attempt.Outcome)
	}
	return row
}

func formatAttemptRow(a report.Attempt, now time.Time) string {
	took := time.Duration(a.FinishedAt-a.StartedAt) * time.Millisecond
	row := fmt.Sprintf("%-16s %-13s took %-6s", humanize.RelTime(time.UnixMilli(a.StartedAt), now, "ago", "from now"), a.Outcome, took)
	if a.ActionLabel != "" {
		row += fmt.Sprintf(" action=%s/%s", a.ActionStrategy, a.ActionLabel)
	}
	if a.ConfirmLabel != "" {
		row += fmt.Sprintf(" confirm=%s/%s", a.ConfirmStrategy, a.ConfirmLabel)
	}
	if a.Error != "" {
		row += " error=" + a.Error
	}
	return row
}
