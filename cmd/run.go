package cmd

import (
	"fmt"

	"github.com/mselser95/ordersync/internal/app"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the sync engine and HTTP server",
	Long: `Starts the sync engine, which will:
1. Load the known-token registry from the metadata service
2. Poll the owner's orders every SYNC_INTERVAL
3. Resolve token metadata and detect status transitions
4. Serve orders, strategies and actions over HTTP, and push transitions on /ws

Use --owner to override OWNER_ADDRESS.`,
	Args: cobra.NoArgs,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("owner", "o", "", "Owner whose orders are synced (overrides OWNER_ADDRESS)")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	owner, _ := cmd.Flags().GetString("owner")

	application, err := app.New(cfg, logger, &app.Options{Owner: owner})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
