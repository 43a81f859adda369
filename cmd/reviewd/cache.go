package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sqlitecache "github.com/pario-ai/reviewd/pkg/cache/sqlite"
	"github.com/pario-ai/reviewd/pkg/config"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the SQLite review cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show review cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openSQLiteCache()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			stats, err := c.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d\nHits:    %d\nMisses:  %d\n", stats.Entries, stats.Hits, stats.Misses)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear review cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openSQLiteCache()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if err := c.Clear(expiredOnly); err != nil {
				return err
			}
			if expiredOnly {
				fmt.Fprintln(cmd.OutOrStdout(), "Expired cache entries cleared.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "All cache entries cleared.")
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

func openSQLiteCache() (*sqlitecache.Cache, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Backend != config.BackendSQLite {
		return nil, fmt.Errorf("cache backend is %q: only the sqlite backend keeps entries between runs", cfg.Cache.Backend)
	}
	return sqlitecache.New(cfg.Cache.DBPath)
}
