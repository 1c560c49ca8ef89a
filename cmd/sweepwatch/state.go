package main

import (
	"fmt"
	"math/big"

	"github.com/devblac/sweepwatch/internal/config"
	"github.com/devblac/sweepwatch/internal/notify"
	"github.com/devblac/sweepwatch/internal/storage"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show dedup-set size and recent notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		store, err := storage.Open(cfg.Global.DBPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		count, err := store.CountDedupKeys(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "dispatched keys: %d\n", count)

		recent, err := store.ListNotifications(ctx, 10)
		if err != nil {
			return err
		}
		for _, n := range recent {
			price := "?"
			if wei, ok := parseWei(n.TotalPriceWei); ok {
				price = notify.FormatPrice(wei)
			}
			fmt.Fprintf(out, "- %s %s tokens=%d price=%s ETH at %s\n",
				n.TxHash, n.Category, n.TokenCount, price, n.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func parseWei(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	return new(big.Int).SetString(s, 10)
}
