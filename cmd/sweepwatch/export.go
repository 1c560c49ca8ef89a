package main

import (
	"encoding/json"
	"fmt"

	"github.com/devblac/sweepwatch/internal/config"
	"github.com/devblac/sweepwatch/internal/storage"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the notification log as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		store, err := storage.Open(cfg.Global.DBPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		all, err := store.ListNotifications(cmd.Context(), 0)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(exportView(all))
	},
}

type exportedNotification struct {
	DedupKey      string `json:"dedup_key"`
	TxHash        string `json:"tx_hash"`
	Buyer         string `json:"buyer,omitempty"`
	Category      string `json:"category"`
	TokenCount    int    `json:"token_count"`
	TotalPriceWei string `json:"total_price_wei,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func exportView(in []storage.Notification) []exportedNotification {
	out := make([]exportedNotification, 0, len(in))
	for _, n := range in {
		out = append(out, exportedNotification{
			DedupKey:      n.DedupKey,
			TxHash:        n.TxHash,
			Buyer:         n.Buyer,
			Category:      n.Category,
			TokenCount:    n.TokenCount,
			TotalPriceWei: n.TotalPriceWei,
			CreatedAt:     n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}
