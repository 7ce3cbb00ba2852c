package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// RistrettoCache is a Cache backed by Ristretto.
type RistrettoCache struct {
	name   string
	cache  *ristretto.Cache
	logger *zap.Logger
}

// RistrettoConfig holds configuration for a Ristretto cache.
type RistrettoConfig struct {
	Name        string // metrics label
	NumCounters int64  // keys tracked for admission, ~10x max items
	MaxCost     int64  // max items (every entry costs 1)
	BufferItems int64
	Logger      *zap.Logger
}

// DefaultRistrettoConfig sizes a cache for roughly maxItems entries.
func DefaultRistrettoConfig(name string, maxItems int64, logger *zap.Logger) *RistrettoConfig {
	return &RistrettoConfig{
		Name:        name,
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
		Logger:      logger,
	}
}

// NewRistrettoCache creates a new Ristretto-backed cache.
func NewRistrettoCache(cfg *RistrettoConfig) (*RistrettoCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache %q: %w", cfg.Name, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RistrettoCache{
		name:   cfg.Name,
		cache:  c,
		logger: logger,
	}, nil
}

// Get retrieves a value from the cache.
func (r *RistrettoCache) Get(key string) (any, bool) {
	value, found := r.cache.Get(key)
	if found {
		HitsTotal.WithLabelValues(r.name).Inc()
	} else {
		MissesTotal.WithLabelValues(r.name).Inc()
	}

	return value, found
}

// Set stores a value with a TTL.
func (r *RistrettoCache) Set(key string, value any, ttl time.Duration) bool {
	ok := r.cache.SetWithTTL(key, value, 1, ttl)
	if !ok {
		DroppedSetsTotal.WithLabelValues(r.name).Inc()
		r.logger.Debug("cache-set-dropped",
			zap.String("cache", r.name),
			zap.String("key", key))
		return false
	}

	SetsTotal.WithLabelValues(r.name).Inc()
	return true
}

// Delete removes a value from the cache.
func (r *RistrettoCache) Delete(key string) {
	r.cache.Del(key)
}

// Clear removes all values from the cache.
func (r *RistrettoCache) Clear() {
	r.cache.Clear()
	r.logger.Info("cache-cleared", zap.String("cache", r.name))
}

// Close stops the cache's background goroutines.
func (r *RistrettoCache) Close() {
	r.cache.Close()
}

// Wait blocks until pending writes have been applied. Used by tests.
func (r *RistrettoCache) Wait() {
	r.cache.Wait()
}
