package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/panelwatch/watchdog"
)

func newInspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <page.html>",
		Short: "Run the extractor, the decision and the locator on a saved panel page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(os.Stderr, logLevel, logFormat)
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := watchdog.OpenHTML(args[0])
			if err != nil {
				return err
			}
			in := watchdog.Inspect(cmd.Context(), cfg, p, logger)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(in)
			}
			printInspection(cmd.OutOrStdout(), in)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the inspection as JSON")
	return cmd
}

func printInspection(w io.Writer, in watchdog.Inspection) {
	f := in.Facts
	fmt.Fprintf(w, "Players:  %d (source: %s)\n", f.Players, f.PlayerSource)
	if f.Timer != nil {
		fmt.Fprintf(w, "Timer:    %s (raw %q, %ds)\n", f.TimerDisplay(), f.Timer.Raw, f.Timer.Total)
	} else {
		fmt.Fprintf(w, "Timer:    %s\n", f.TimerDisplay())
	}
	fmt.Fprintf(w, "Decision: %s (restart=%t)\n", in.Decision.Class, in.Decision.Restart)
	printControl(w, "Action", in.Action)
	printControl(w, "Confirm", in.Confirm)
	printControl(w, "Login", in.Login)
}

func printControl(w io.Writer, name string, c *watchdog.Control) {
	if c == nil {
		fmt.Fprintf(w, "%-9s not found\n", name+":")
		return
	}
	fmt.Fprintf(w, "%-9s %s via %s (%q)\n", name+":", c.Label, c.Strategy, c.Text)
}
