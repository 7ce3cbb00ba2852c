package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mselser95/ordersync/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "ordersync",
	Short: "Limit order sync engine",
	Long: `ordersync keeps a local view of a wallet's limit orders in sync with the
order service.

It polls the order listing on a fixed interval, resolves token metadata for
every order, detects status transitions between fetches and exposes the result
over HTTP together with optimistic cancel and execute actions.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads .env if present, then the environment.
func loadConfig() (cfg *config.Config, err error) {
	err = godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		err = fmt.Errorf("failed to load .env: %w", err)
		return cfg, err
	}

	cfg, err = config.LoadFromEnv()
	if err != nil {
		err = fmt.Errorf("failed to load config: %w", err)
		return cfg, err
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) (logger *zap.Logger, err error) {
	logger, err = config.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		err = fmt.Errorf("failed to create logger: %w", err)
		return logger, err
	}
	return logger, nil
}
