package main

import (
	"fmt"
	"io"
	"time"

	"github.com/cuemby/karatekonnect/pkg/health"
	"github.com/cuemby/karatekonnect/pkg/metrics"
	"github.com/cuemby/karatekonnect/pkg/remote"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local store, the remote API and the roster document",
	RunE: func(cmd *cobra.Command, args []string) error {
		checkers := []health.Checker{
			health.NewStoreChecker(app.kv),
			health.NewHTTPChecker("api", app.cfg.APIBase).
				WithHeader("Accept", remote.MediaType).
				WithTimeout(app.cfg.Timeout),
		}
		if app.cfg.DocumentID != "" {
			checkers = append(checkers, health.NewHTTPChecker("document", app.client.DocumentURL()).
				WithHeader("Accept", remote.MediaType).
				WithStatusRange(200, 299).
				WithTimeout(app.cfg.Timeout))
		}

		reports := health.Run(cmd.Context(), checkers...)
		for _, r := range reports {
			switch r.Name {
			case "store":
				metrics.UpdateComponent(metrics.ComponentStore, r.Healthy, r.Message)
			case "document":
				metrics.UpdateComponent(metrics.ComponentRemote, r.Healthy, r.Message)
			}
		}

		out := cmd.OutOrStdout()
		writeReports(out, reports)

		ok, err := app.roster.HasToken()
		switch {
		case err != nil:
			fmt.Fprintf(out, "✗ token: %v\n", err)
		case ok:
			fmt.Fprintln(out, "✓ token: configured")
		default:
			fmt.Fprintln(out, "- token: not configured, updates will be refused")
		}

		if n := health.Failed(reports); n > 0 {
			return fmt.Errorf("%d check(s) failed", n)
		}
		return nil
	},
}

func writeReports(w io.Writer, reports []health.Report) {
	for _, r := range reports {
		mark := "✓"
		if !r.Healthy {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s: %s (%s)\n", mark, r.Name, r.Message, r.Duration.Round(time.Millisecond))
	}
}
