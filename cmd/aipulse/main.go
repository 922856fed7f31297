package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"aipulse/internal/app"
	"aipulse/internal/collector"
	"aipulse/internal/config"
	"aipulse/internal/logger"
	"aipulse/internal/scheduler"
	"aipulse/internal/sender"
	"aipulse/internal/storage"
	"aipulse/internal/summarizer"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aipulse",
	Short: "Daily AI news digest agent",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one pipeline pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger.Init(cfg.LogLevel)

		ctx, stop := signalContext()
		defer stop()

		agent, cleanup, err := buildAgent(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		return agent.Run(ctx)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily scheduler until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger.Init(cfg.LogLevel)

		ctx, stop := signalContext()
		defer stop()

		if cfg.Monitoring.Enabled {
			startMonitoring(ctx, cfg.Monitoring)
		}

		agent, cleanup, err := buildAgent(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		err = scheduler.NewDaily(cfg.Schedule).Run(ctx, agent.Run)
		if err == context.Canceled {
			logger.Info("shutting down")
			return nil
		}
		return err
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print article store counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger.Init(cfg.LogLevel)

		store, err := storage.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats()
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(stats))
		for k := range stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-24s %d\n", k, stats[k])
		}
		return nil
	},
}

// buildAgent wires the store, collectors, summarizer, and sender from config.
func buildAgent(ctx context.Context, cfg *config.Config) (*app.Agent, func(), error) {
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	collectors := []collector.Collector{
		collector.NewRSSCollector(cfg.Feeds),
		collector.NewGitHubTrendingCollector(""),
	}

	var sum summarizer.Summarizer
	if cfg.Gemini.APIKey != "" {
		sum, err = summarizer.NewGemini(ctx, cfg.Gemini)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
	} else {
		logger.Warn("no Gemini API key, using rule-based summaries")
		sum = summarizer.Mock{}
	}

	agent := app.New(cfg, store, collectors, sum, sender.NewWebhookSender(cfg.Webhook))
	cleanup := func() {
		sum.Close()
		store.Close()
	}
	return agent, cleanup, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default $AIPULSE_CONFIG)")
	rootCmd.AddCommand(runCmd, serveCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
