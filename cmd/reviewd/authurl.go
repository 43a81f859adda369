package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pario-ai/reviewd/pkg/cache"
	"github.com/pario-ai/reviewd/pkg/cache/memory"
	"github.com/pario-ai/reviewd/pkg/models"
)

func newAuthURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth-url",
		Short: "Print the consent screen URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tokens := cache.NewEntry[models.TokenSet](memory.New(), tokensKey, cfg.Cache.TokenTTL)
			m, err := newManager(cfg, tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.AuthorizationURL())
			return nil
		},
	}
}
