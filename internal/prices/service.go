package prices

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/ordersync/pkg/cache"
	"go.uber.org/zap"
)

const defaultTTL = 30 * time.Second

// Fetcher returns the USD price of a token, or nil when none is known.
type Fetcher interface {
	FetchPrice(ctx context.Context, tokenID string) (*float64, error)
}

// Service serves token prices with a short-lived cache. Missing prices are
// not cached so they are retried on the next lookup.
type Service struct {
	fetcher Fetcher
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewService creates a price service. ttl <= 0 uses 30s.
func NewService(fetcher Fetcher, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Service{
		fetcher: fetcher,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
	}
}

// Price returns the USD price of tokenID, or nil when the service has none.
func (s *Service) Price(ctx context.Context, tokenID string) (*float64, error) {
	key := "price:" + tokenID
	if v, ok := s.cache.Get(key); ok {
		if p, ok := v.(float64); ok {
			return &p, nil
		}
	}

	p, err := s.fetcher.FetchPrice(ctx, tokenID)
	if err != nil {
		LookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("price of %s: %w", tokenID, err)
	}
	if p == nil {
		LookupsTotal.WithLabelValues("missing").Inc()
		s.logger.Debug("price-missing", zap.String("token", tokenID))
		return nil, nil
	}

	LookupsTotal.WithLabelValues("fetched").Inc()
	s.cache.Set(key, *p, s.ttl)
	return p, nil
}
