package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/solana-txcore/internal/config"
	"github.com/rovshanmuradov/solana-txcore/internal/logger"
)

// Version подставляется при сборке через -ldflags.
var Version = "dev"

var (
	cfgFile string
	pretty  bool
)

var rootCmd = &cobra.Command{
	Use:   "txcore",
	Short: "Solana transaction lifecycle and P&L accounting service",
	Long: `txcore submits signed Solana transactions, streams their confirmation
status to clients and builds weighted-average-cost P&L reports from
wallet trade history.

Configuration is read from an optional file (--config), a .env file and
TXCORE_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "colored human-readable console logs")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newReportCmd())
}

// setup загружает конфигурацию и создает логгер по ней.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.Log.File
	logCfg.Development = cfg.Log.Development
	logCfg.Pretty = pretty

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
