package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

// Lister returns one page of orders from the order service.
type Lister interface {
	FetchOrders(ctx context.Context, q types.OrderQuery) (*types.OrdersPage, error)
}

// Fetcher retrieves a page of orders and drops duplicate identifiers.
type Fetcher struct {
	lister Lister
	logger *zap.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(lister Lister, logger *zap.Logger) *Fetcher {
	return &Fetcher{lister: lister, logger: logger}
}

// Fetch returns the page selected by q. Pagination is passed through unchanged.
func (f *Fetcher) Fetch(ctx context.Context, q types.OrderQuery) (*types.OrdersPage, error) {
	start := time.Now()
	page, err := f.lister.FetchOrders(ctx, q)
	FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("fetch page %d: %w", q.Page, err)
	}

	deduped := Dedupe(page.Data)
	if dropped := len(page.Data) - len(deduped); dropped > 0 {
		DuplicatesDroppedTotal.Add(float64(dropped))
		f.logger.Warn("duplicate-orders-dropped",
			zap.Int("page", q.Page),
			zap.Int("dropped", dropped))
	}

	return &types.OrdersPage{Data: deduped, Pagination: page.Pagination}, nil
}

// Dedupe drops orders whose identifier was already seen. The first occurrence wins.
func Dedupe(orders []types.Order) []types.Order {
	seen := make(map[string]struct{}, len(orders))
	out := make([]types.Order, 0, len(orders))
	for _, o := range orders {
		if _, dup := seen[o.ID]; dup {
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	return out
}
