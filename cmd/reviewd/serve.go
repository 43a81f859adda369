package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the review service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			logger, err := newLogger(cfg.Log, os.Stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("start: %w", err)
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Warn("shutdown", slog.Any("error", err))
				}
			}()
			go a.sweepMemory(ctx, 10*time.Minute)

			logger.Info("starting reviewd",
				slog.String("version", version),
				slog.String("cache_backend", cfg.Cache.Backend),
				slog.Duration("token_ttl", cfg.Cache.TokenTTL),
				slog.Duration("reviews_ttl", cfg.Cache.ReviewsTTL),
			)
			return a.server.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides config and PORT")
	return cmd
}
