package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pario-ai/reviewd/pkg/config"
)

var version = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reviewd",
		Short:         "reviewd: authorize against Google Business Profile and serve cached reviews",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if !viper.GetBool("color") {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file (defaults plus environment when empty)")
	root.PersistentFlags().Bool("color", true, "colorize table output")

	cobra.OnInitialize(initViper)
	if err := viper.BindPFlags(root.PersistentFlags()); err != nil {
		panic(err)
	}

	root.AddCommand(
		newServeCmd(),
		newAuthURLCmd(),
		newCacheCmd(),
		newFetchesCmd(),
		newBudgetCmd(),
		newAuditCmd(),
		newMCPCmd(),
	)
	return root
}

// initViper resolves settings from flags first, then the environment.
func initViper() {
	viper.AutomaticEnv()
	_ = viper.BindEnv("config", "REVIEWD_CONFIG")
}

// loadConfig reads the config file named by --config (or REVIEWD_CONFIG),
// applies environment overrides and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv(viper.GetString)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
