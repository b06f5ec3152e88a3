// Package cli holds the chart command tree and wires its dependencies from config.
package cli

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"TradeChart/internal/config"
)

const defaultConfigPath = "configs/config.yaml"

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "chart",
		Short: "Render intraday candlestick charts with unusual-trade overlays",
		Long: `chart fetches intraday bars for a ticker, renders a candlestick chart with
volume and an optional unusual-trades overlay, and publishes it as a static page.

Examples:
  chart render --ticker AAPL --from 2025-01-21 --to 2025-01-21
  chart watch --now
  chart serve
  chart history`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default $CONFIG_PATH or "+defaultConfigPath+")")

	load := func() (*config.Config, error) {
		return loadConfig(cfgPath)
	}
	root.AddCommand(
		newRenderCmd(load),
		newServeCmd(load),
		newWatchCmd(load),
		newHistoryCmd(load),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads .env, then the YAML file, then validates.
func loadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] load .env: %v", err)
	}
	if path == "" {
		path = defaultConfigPath
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}
