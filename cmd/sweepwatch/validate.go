package main

import (
	"fmt"
	"log/slog"

	"github.com/devblac/sweepwatch/internal/config"
	"github.com/devblac/sweepwatch/internal/marketplace"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config and ping the marketplace API",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}
		fmt.Fprintf(out, "config OK (version %d, contract %s)\n", cfg.Version, cfg.Marketplace.Contract)

		client := marketplace.NewClient(cfg.Marketplace.BaseURL, cfg.Marketplace.Contract, cfg.Marketplace.APIKey, 1, slog.Default())
		if err := client.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("validate: marketplace unreachable: %w", err)
		}
		fmt.Fprintln(out, "- marketplace API: OK")

		fmt.Fprintln(out, "validate: success")
		return nil
	},
}
