package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

const rule = "────────────────────────────────────────────────────────────"

// ConsoleStorage prints transitions to a writer (stdout by default).
type ConsoleStorage struct {
	out    io.Writer
	logger *zap.Logger
}

// NewConsoleStorage creates a console storage writing to stdout.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	return NewConsoleStorageWriter(os.Stdout, logger)
}

// NewConsoleStorageWriter creates a console storage writing to out.
func NewConsoleStorageWriter(out io.Writer, logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{out: out, logger: logger}
}

// StoreTransition prints a transition summary.
func (c *ConsoleStorage) StoreTransition(_ context.Context, event *types.TransitionEvent) error {
	o := event.Order

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "ORDER %s  %s -> %s\n", o.ID, strings.ToUpper(string(event.OldStatus)), strings.ToUpper(string(event.NewStatus)))
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Owner:   %s\n", o.Owner)
	fmt.Fprintf(&b, "Pair:    %s -> %s\n", symbolOf(o.InputTokenInfo, o.InputToken), symbolOf(o.OutputTokenInfo, o.OutputToken))
	fmt.Fprintf(&b, "Amount:  %s\n", o.InputAmount.String())
	fmt.Fprintf(&b, "Target:  %s %s\n", o.Direction, o.TargetPrice.String())
	if o.TxID != "" {
		fmt.Fprintf(&b, "Tx:      %s\n", o.TxID)
	}
	if o.FailureReason != "" {
		fmt.Fprintf(&b, "Reason:  %s\n", o.FailureReason)
	}
	fmt.Fprintf(&b, "Time:    %s\n", event.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(c.out, b.String())
	if err != nil {
		return fmt.Errorf("write transition: %w", err)
	}
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}

func symbolOf(d *types.TokenDescriptor, fallback string) string {
	if d == nil {
		return fallback
	}
	return d.Symbol
}
