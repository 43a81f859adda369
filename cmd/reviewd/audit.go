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

	"github.com/pario-ai/reviewd/pkg/audit"
	"github.com/pario-ai/reviewd/pkg/models"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the HTTP access log",
	}

	cmd.AddCommand(
		newAuditSearchCmd(),
		newAuditStatsCmd(),
		newAuditCleanupCmd(),
	)
	return cmd
}

func newAuditSearchCmd() *cobra.Command {
	var (
		requestID string
		route     string
		since     string
		minStatus int
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search access log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger()
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.AccessQueryOpts{
				RequestID: requestID,
				Route:     route,
				MinStatus: minStatus,
				Limit:     limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			return printAccessEntries(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().StringVar(&requestID, "request-id", "", "filter by request ID")
	cmd.Flags().StringVar(&route, "route", "", "filter by route, e.g. /reviews")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&minStatus, "min-status", 0, "only entries with at least this status code")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")
	return cmd
}

func newAuditStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show request counts by route and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger()
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(context.Background())
			if err != nil {
				return err
			}
			return printAccessStats(cmd.OutOrStdout(), stats)
		},
	}
}

func newAuditCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete access log entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger()
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d access log entries.\n", deleted)
			return nil
		},
	}
}

func openAuditLogger() (*audit.Logger, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	l, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}

func statusColor(code int) func(a ...any) string {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case code >= 400:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgGreen).SprintFunc()
	}
}

func printAccessEntries(w io.Writer, entries []models.AccessEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No access log entries found.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Time", "Request ID", "Method", "URL", "Status", "Cache", "Latency"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, e := range entries {
		data = append(data, []string{
			e.CreatedAt.Local().Format(timeLayout),
			e.RequestID,
			e.Method,
			truncate(e.URL, 40),
			statusColor(e.StatusCode)(strconv.Itoa(e.StatusCode)),
			e.Cache,
			fmt.Sprintf("%dms", e.LatencyMs),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func printAccessStats(w io.Writer, stats []models.AccessStat) error {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No access log stats found.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Day", "Route", "Requests", "Server Errors"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, s := range stats {
		data = append(data, []string{
			s.Day,
			s.Route,
			strconv.FormatInt(s.Count, 10),
			strconv.FormatInt(s.Errors, 10),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
