// Package cli implements the harvestboost command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talgya/harvest-boost/internal/config"
)

var (
	cfgFile      string
	logLevelFlag string

	// logLevel is shared by the default logger, advanced.debug and the
	// /api/v1/debug endpoint.
	logLevel = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:               "harvestboost",
	Short:             "Cooperative farming growth boosts",
	Long:              "HarvestBoost speeds up crop growth where several farmers work the same fields, and simulates a farm to show it.",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./harvestboost.toml or ./data/harvestboost.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(configCmd)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	if err := logLevel.UnmarshalText([]byte(logLevelFlag)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads the configuration. advanced.debug turns on debug logging
// unless --log-level was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(viper.New(), cfgFile)
	if err != nil {
		return nil, err
	}
	if cfg.Advanced.Debug && !cmd.Flags().Changed("log-level") {
		logLevel.Set(slog.LevelDebug)
	}
	return cfg, nil
}
