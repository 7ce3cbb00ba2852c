package orders

import (
	"context"
	"time"

	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Resolver maps a token identifier to its descriptor, or nil if unresolved.
type Resolver interface {
	Resolve(ctx context.Context, id string) *types.TokenDescriptor
}

// Enricher attaches token descriptors to orders. It never fails: tokens that
// cannot be resolved get a placeholder descriptor.
type Enricher struct {
	resolver    Resolver
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnricher creates an Enricher resolving at most concurrency tokens at once.
func NewEnricher(resolver Resolver, concurrency int, logger *zap.Logger) *Enricher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Enricher{
		resolver:    resolver,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Enrich returns the display form of a single order.
func (e *Enricher) Enrich(ctx context.Context, o types.Order) types.DisplayOrder {
	return e.build(o, func(id string) *types.TokenDescriptor {
		return e.resolver.Resolve(ctx, id)
	})
}

// EnrichAll enriches a page. Each distinct token is resolved once, with bounded
// concurrency, and the call returns only after every order is enriched.
// The result has the same order as the input.
func (e *Enricher) EnrichAll(ctx context.Context, orders []types.Order) []types.DisplayOrder {
	start := time.Now()

	ids := referencedTokens(orders)
	resolved := make([]*types.TokenDescriptor, len(ids))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			resolved[i] = e.resolver.Resolve(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	byID := make(map[string]*types.TokenDescriptor, len(ids))
	for i, id := range ids {
		byID[id] = resolved[i]
	}

	out := make([]types.DisplayOrder, len(orders))
	for i, o := range orders {
		out[i] = e.build(o, func(id string) *types.TokenDescriptor { return byID[id] })
	}

	EnrichDuration.Observe(time.Since(start).Seconds())
	e.logger.Debug("orders-enriched",
		zap.Int("orders", len(orders)),
		zap.Int("tokens", len(ids)))

	return out
}

func (e *Enricher) build(o types.Order, lookup func(string) *types.TokenDescriptor) types.DisplayOrder {
	d := types.DisplayOrder{Order: o}
	d.InputTokenInfo = e.orPlaceholder(o.InputToken, lookup(o.InputToken))
	d.OutputTokenInfo = e.orPlaceholder(o.OutputToken, lookup(o.OutputToken))
	if o.HasCondition() {
		d.ConditionTokenInfo = e.orPlaceholder(o.ConditionToken, lookup(o.ConditionToken))
	}
	if !o.QuotedInUSD() {
		d.BaseAssetInfo = e.orPlaceholder(o.BaseAsset, lookup(o.BaseAsset))
	}
	return d
}

func (e *Enricher) orPlaceholder(id string, d *types.TokenDescriptor) *types.TokenDescriptor {
	if d != nil {
		return d
	}
	PlaceholdersTotal.Inc()
	return types.NewPlaceholder(id, e.now())
}

// referencedTokens lists the distinct tokens orders need, in first-seen order.
func referencedTokens(orders []types.Order) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for i := range orders {
		o := &orders[i]
		add(o.InputToken)
		add(o.OutputToken)
		if o.HasCondition() {
			add(o.ConditionToken)
		}
		if !o.QuotedInUSD() {
			add(o.BaseAsset)
		}
	}
	return ids
}

// TokenMap indexes the descriptors attached to orders by the token
// identifier each order references, which may differ from the descriptor's own ID.
func TokenMap(orders []types.DisplayOrder) map[string]*types.TokenDescriptor {
	m := make(map[string]*types.TokenDescriptor)
	put := func(id string, d *types.TokenDescriptor) {
		if id == "" || d == nil {
			return
		}
		if _, ok := m[id]; !ok {
			m[id] = d
		}
	}

	for i := range orders {
		o := &orders[i]
		put(o.InputToken, o.InputTokenInfo)
		put(o.OutputToken, o.OutputTokenInfo)
		put(o.ConditionToken, o.ConditionTokenInfo)
		put(o.BaseAsset, o.BaseAssetInfo)
	}
	return m
}
