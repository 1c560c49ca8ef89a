package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const sampleConfig = `version: 1

global:
  db_path: sweepwatch.db

marketplace:
  # base_url: https://api.opensea.io/api/v1
  contract: "0x0000000000000000000000000000000000000000"
  api_key: ${OPENSEA_API_KEY}
  poll_interval_seconds: 10
  page_limit: 50

discord:
  bot_token: ${DISCORD_BOT_TOKEN}
  channel_id: ${DISCORD_CHANNEL_ID}
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgPath); err == nil {
			return fmt.Errorf("refusing to overwrite existing %s", cfgPath)
		}
		if err := os.WriteFile(cfgPath, []byte(sampleConfig), 0o644); err != nil {
			return fmt.Errorf("write sample config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfgPath)
		return nil
	},
}
