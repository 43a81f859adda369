package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pario-ai/reviewd/pkg/models"
	"github.com/pario-ai/reviewd/pkg/tracker"
)

const timeLayout = "2006-01-02 15:04:05"

func newFetchesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "fetches",
		Short: "Show recent upstream review fetches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Tracker.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Fetch tracking is disabled.")
				return nil
			}

			tr, err := tracker.New(cfg.Tracker.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			ctx := context.Background()
			records, err := tr.Recent(ctx, limit)
			if err != nil {
				return err
			}
			summary, err := tr.Summary(ctx)
			if err != nil {
				return err
			}
			return printFetches(cmd.OutOrStdout(), records, summary)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of fetches to show")
	return cmd
}

func printFetches(w io.Writer, records []models.FetchRecord, summary models.FetchSummary) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No fetches recorded.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Time", "Outcome", "Location", "Reviews", "Latency", "Error"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()

	var data [][]string
	for _, r := range records {
		outcome := green(string(r.Outcome))
		if r.Outcome == models.FetchError {
			outcome = red(string(r.Outcome))
		}
		data = append(data, []string{
			r.CreatedAt.Local().Format(timeLayout),
			outcome,
			r.Location,
			strconv.Itoa(r.ReviewCount),
			fmt.Sprintf("%dms", r.LatencyMs),
			truncate(r.Error, 48),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(w, "Total: %d, succeeded: %d, failed: %d\n", summary.Total, summary.Succeeded, summary.Failed)
	fmt.Fprintf(w, "Last success: %s, last failure: %s\n", optionalTime(summary.LastSuccess), optionalTime(summary.LastFailure))
	return nil
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(timeLayout)
}

// truncate shortens s to n runes, ending in "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
