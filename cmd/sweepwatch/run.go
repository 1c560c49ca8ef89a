package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/devblac/sweepwatch/internal/config"
	"github.com/devblac/sweepwatch/internal/engine"
	"github.com/devblac/sweepwatch/internal/health"
	"github.com/devblac/sweepwatch/internal/logging"
	"github.com/devblac/sweepwatch/internal/marketplace"
	"github.com/devblac/sweepwatch/internal/metrics"
	"github.com/devblac/sweepwatch/internal/notify"
	"github.com/devblac/sweepwatch/internal/storage"
	"github.com/spf13/cobra"
)

var (
	flagOnce    bool
	flagDryRun  bool
	flagHealth  string
	flagMetrics string
)

func init() {
	runCmd.Flags().BoolVar(&flagOnce, "once", false, "Process one polling cycle and exit")
	runCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Do not publish to Discord")
	runCmd.Flags().StringVar(&flagHealth, "health", "", "Health check HTTP address (e.g., :8080)")
	runCmd.Flags().StringVar(&flagMetrics, "metrics", "", "Metrics HTTP address (e.g., :9090)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the marketplace and post sale notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		logLevel := os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			logLevel = "info"
		}
		log := logging.NewWithLevel(logLevel)
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

		client := marketplace.NewClient(cfg.Marketplace.BaseURL, cfg.Marketplace.Contract, cfg.Marketplace.APIKey, cfg.Marketplace.PageLimit, log)
		enricher := marketplace.NewEnricher(client)
		sender := notify.NewDiscordSender("", cfg.Discord.BotToken, cfg.Discord.ChannelID)

		var mtr *metrics.Metrics
		if flagMetrics != "" {
			mtr = metrics.Init()
			log.Info("metrics enabled", "addr", flagMetrics)
		}

		if flagHealth != "" {
			healthSrv := health.Serve(flagHealth, health.Checker{
				DBPing:  store.Ping,
				APIPing: client.Ping,
			})
			log.Info("health check enabled", "addr", flagHealth)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = health.Shutdown(shutdownCtx, healthSrv)
			}()
		}

		if flagMetrics != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				srv := &http.Server{Addr: flagMetrics, Handler: mux}
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("metrics server error", "error", err)
				}
			}()
		}

		runner := engine.NewRunner(client, enricher, sender, store, mtr, log, flagDryRun)
		if err := runner.RestoreSeen(ctx); err != nil {
			return fmt.Errorf("restore dedup state: %w", err)
		}

		log.Info("monitoring contract",
			"contract", cfg.Marketplace.Contract,
			"channel_id", cfg.Discord.ChannelID,
			"poll_interval_seconds", cfg.Marketplace.PollIntervalSeconds)

		interval := time.Duration(cfg.Marketplace.PollIntervalSeconds) * time.Second

		// Sustained rate limiting stretches the sleep between cycles; any
		// successful fetch resets it to the configured interval.
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = interval
		bo.MaxInterval = 10 * interval
		bo.MaxElapsedTime = 0
		bo.Reset()

		for {
			status := runner.RunOnce(ctx)
			log.Debug("tick complete", "fetch_status", status.String(), "dry_run", flagDryRun)
			if flagOnce {
				break
			}

			sleep := interval
			if status == marketplace.FetchRateLimited {
				sleep = bo.NextBackOff()
			} else {
				bo.Reset()
			}

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(sleep):
			}
		}
		return nil
	},
}
