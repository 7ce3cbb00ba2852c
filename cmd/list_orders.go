package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mselser95/ordersync/internal/app"
	"github.com/mselser95/ordersync/internal/orders"
	"github.com/mselser95/ordersync/internal/strategy"
	"github.com/mselser95/ordersync/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listOrdersCmd = &cobra.Command{
	Use:   "list-orders",
	Short: "Fetch and display one page of an owner's orders",
	Long: `Fetch one page of orders for the owner, resolve token metadata and print
the orders followed by their strategy grouping.

Examples:
  # List open orders for OWNER_ADDRESS
  go run . list-orders --status open

  # Search another owner's orders
  go run . list-orders --owner bob.near --search usdt --page 2`,
	Args: cobra.NoArgs,
	RunE: runListOrders,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listOrdersCmd)
	listOrdersCmd.Flags().StringP("owner", "o", "", "Owner address (overrides OWNER_ADDRESS)")
	listOrdersCmd.Flags().String("status", "", "Only orders in this status")
	listOrdersCmd.Flags().String("search", "", "Free-text search")
	listOrdersCmd.Flags().Int("page", 1, "Page number")
}

func runListOrders(cmd *cobra.Command, args []string) (err error) {
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
	if owner == "" {
		owner = cfg.OwnerAddress
	}
	if owner == "" {
		err = errors.New("no owner: set OWNER_ADDRESS or pass --owner")
		return err
	}

	q := app.QueryFromConfig(cfg, owner)
	status, _ := cmd.Flags().GetString("status")
	q.Status = types.OrderStatus(status)
	if q.Status != "" && !q.Status.Valid() {
		err = fmt.Errorf("unknown status %q", status)
		return err
	}
	q.Search, _ = cmd.Flags().GetString("search")
	q.Page, _ = cmd.Flags().GetInt("page")

	client, err := app.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	mc := app.NewMetadataCache(cfg, logger, client)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err = app.LoadRegistry(ctx, client, mc)
	if err != nil {
		logger.Warn("token-registry-load-failed", zap.Error(err))
	}

	page, err := orders.NewFetcher(client, logger).Fetch(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to fetch orders: %w", err)
	}

	if len(page.Data) == 0 {
		fmt.Println("No orders found.")
		return nil
	}

	display := orders.NewEnricher(mc, cfg.EnrichConcurrency, logger).EnrichAll(ctx, page.Data)
	strategies := strategy.NewGrouper(cfg.StrategyGroupWindow).Group(display, orders.TokenMap(display))

	printOrdersTable(os.Stdout, display, page.Pagination)
	printStrategies(os.Stdout, strategies)

	return nil
}

func printOrdersTable(w io.Writer, list []types.DisplayOrder, p types.Pagination) {
	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintf(w, "Orders (page %d of %d, %d total)\n", p.Page, p.TotalPages, p.Total)
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "%-14s %-16s %-12s %-14s %-12s %-20s\n",
		"Order ID", "Pair", "Status", "Amount", "Target", "Created")
	fmt.Fprintln(w, strings.Repeat("-", 92))

	for i := range list {
		fmt.Fprintln(w, formatOrderRow(&list[i]))
	}
}

func formatOrderRow(o *types.DisplayOrder) string {
	shortID := o.ID
	if len(shortID) > 10 {
		shortID = shortID[:10] + "..."
	}

	target := o.TargetPrice.String()
	if o.QuotedInUSD() {
		target = "$" + target
	} else {
		target += " " + symbol(o.BaseAssetInfo, o.BaseAsset)
	}
	if o.Direction == types.DirectionGreaterThan {
		target = ">" + target
	} else {
		target = "<=" + target
	}

	pair := symbol(o.InputTokenInfo, o.InputToken) + "->" + symbol(o.OutputTokenInfo, o.OutputToken)

	return fmt.Sprintf("%-14s %-16s %-12s %-14s %-12s %-20s",
		shortID, pair, o.Status, o.InputAmount.String(), target, o.CreatedAt.Format(time.DateTime))
}

func printStrategies(w io.Writer, list []types.Strategy) {
	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintln(w, "Strategies")
	fmt.Fprintln(w, "========================================")

	for i := range list {
		s := &list[i]
		fmt.Fprintf(w, "%-8s %-10s %d orders  %s->%s  total %s  targets %s..%s\n",
			s.Kind, s.Status, len(s.Orders),
			symbol(s.InputToken, ""), symbol(s.OutputToken, ""),
			s.TotalInput.String(), s.MinTarget.String(), s.MaxTarget.String())
	}
}

func symbol(d *types.TokenDescriptor, fallback string) string {
	if d == nil || d.Symbol == "" {
		if fallback == "" {
			return types.UnknownSymbol
		}
		return fallback
	}
	return d.Symbol
}
