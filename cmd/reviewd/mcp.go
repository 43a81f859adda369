package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pario-ai/reviewd/pkg/audit"
	"github.com/pario-ai/reviewd/pkg/budget"
	sqlitecache "github.com/pario-ai/reviewd/pkg/cache/sqlite"
	"github.com/pario-ai/reviewd/pkg/config"
	"github.com/pario-ai/reviewd/pkg/mcp"
	"github.com/pario-ai/reviewd/pkg/tracker"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve fetch, budget, cache and access log tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// stdout carries the protocol, so logs go to stderr only.
			logger, err := newLogger(cfg.Log, os.Stderr)
			if err != nil {
				return err
			}

			opts := mcp.Options{Version: version, Logger: logger}
			var closers []io.Closer
			defer func() {
				for _, c := range closers {
					_ = c.Close()
				}
			}()

			if cfg.Tracker.Enabled {
				tr, err := tracker.New(cfg.Tracker.DBPath)
				if err != nil {
					return err
				}
				closers = append(closers, tr)
				opts.Tracker = tr
				if cfg.Budget.Enabled {
					opts.Budget = budget.New(cfg.Budget.Policies, tr)
				}
			}
			if cfg.Cache.Backend == config.BackendSQLite {
				c, err := sqlitecache.New(cfg.Cache.DBPath)
				if err != nil {
					return err
				}
				closers = append(closers, c)
				opts.Cache = c
			}
			if cfg.Audit.Enabled {
				l, err := audit.New(cfg.Audit)
				if err != nil {
					return err
				}
				closers = append(closers, l)
				opts.Access = l
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("mcp server ready", slog.String("version", version))
			return mcp.New(opts).Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
