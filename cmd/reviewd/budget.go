package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pario-ai/reviewd/pkg/budget"
	"github.com/pario-ai/reviewd/pkg/models"
	"github.com/pario-ai/reviewd/pkg/tracker"
)

func newBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect the upstream fetch budget",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show fetch budget usage vs limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Budget.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "Budget enforcement is disabled.")
				return nil
			}

			tr, err := tracker.New(cfg.Tracker.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			statuses, err := budget.New(cfg.Budget.Policies, tr).Status(context.Background())
			if err != nil {
				return err
			}
			return printBudget(cmd.OutOrStdout(), statuses)
		},
	}

	cmd.AddCommand(statusCmd)
	return cmd
}

func printBudget(w io.Writer, statuses []models.BudgetStatus) error {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No budget policies configured.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Period", "Max Fetches", "Used", "Remaining"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	var data [][]string
	for _, s := range statuses {
		remaining := strconv.FormatInt(s.Remaining, 10)
		switch {
		case s.Remaining == 0:
			remaining = red(remaining)
		case s.Remaining*10 < s.Policy.MaxFetches:
			remaining = yellow(remaining)
		}
		data = append(data, []string{
			string(s.Policy.Period),
			strconv.FormatInt(s.Policy.MaxFetches, 10),
			strconv.FormatInt(s.Used, 10),
			remaining,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
