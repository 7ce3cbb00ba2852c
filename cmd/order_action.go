package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mselser95/ordersync/internal/app"
	"github.com/mselser95/ordersync/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var cancelOrderCmd = &cobra.Command{
	Use:   "cancel-order <order-id>",
	Short: "Cancel an open order",
	Long: `Send a signed cancel request for one order. Requires SIGNER_PRIVATE_KEY.

Examples:
  go run . cancel-order 0b6e1c2a-order`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOrderAction(types.ActionCancel, args[0])
	},
}

//nolint:gochecknoglobals // Cobra boilerplate
var executeOrderCmd = &cobra.Command{
	Use:   "execute-order <order-id>",
	Short: "Execute an open or failed order now",
	Long: `Send a signed execute request for one order. Requires SIGNER_PRIVATE_KEY.

Examples:
  go run . execute-order 0b6e1c2a-order`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOrderAction(types.ActionExecute, args[0])
	},
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cancelOrderCmd)
	rootCmd.AddCommand(executeOrderCmd)
}

func runOrderAction(kind types.ActionKind, orderID string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.SignerPrivateKey == "" {
		err = errors.New("SIGNER_PRIVATE_KEY not set")
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	client, err := app.NewClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var result *types.ActionResult
	if kind == types.ActionCancel {
		result, err = client.CancelOrder(ctx, orderID)
	} else {
		result, err = client.ExecuteOrder(ctx, orderID)
	}

	err = actionOutcome(kind, orderID, result, err)
	if err != nil {
		logger.Error("order-action-failed", zap.String("order-id", orderID), zap.Error(err))
		fmt.Println(userMessage(err))
		return err
	}

	fmt.Printf("Order %s: %s ok", orderID, kind)
	if result.TxID != "" {
		fmt.Printf(" (txid %s)", result.TxID)
	}
	fmt.Println()
	return nil
}

// actionOutcome folds a transport error or a rejected result into an *ActionError.
func actionOutcome(kind types.ActionKind, orderID string, result *types.ActionResult, err error) error {
	if err == nil && result != nil && result.OK {
		return nil
	}

	actionErr := &types.ActionError{Action: kind, OrderID: orderID, Err: err}
	if err == nil && result != nil {
		actionErr.Message = result.Error
	}
	return actionErr
}

func userMessage(err error) string {
	var actionErr *types.ActionError
	if errors.As(err, &actionErr) {
		return actionErr.UserMessage()
	}
	return err.Error()
}
