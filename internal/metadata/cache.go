package metadata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

const defaultDiscoveryTimeout = 10 * time.Second

// Discoverer resolves a single token the registry does not know.
type Discoverer interface {
	DiscoverToken(ctx context.Context, id string) (*types.TokenDescriptor, error)
}

type entry struct {
	desc         *types.TokenDescriptor
	fromRegistry bool
}

// Cache resolves token identifiers to descriptors through three tiers:
// resolved entries, the registry, then discovery.
//
// Entries are only ever added when absent. At most one discovery per
// identifier is in flight; concurrent callers for the same identifier get
// nil and fall back to a placeholder.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	inFlight map[string]struct{}
	registry Registry

	discoverer Discoverer
	timeout    time.Duration
	logger     *zap.Logger
}

// Config holds Cache dependencies. Registry and Discoverer are optional.
type Config struct {
	Registry         Registry
	Discoverer       Discoverer
	DiscoveryTimeout time.Duration
	Logger           *zap.Logger
}

// NewCache creates an empty metadata cache.
func NewCache(cfg Config) *Cache {
	timeout := cfg.DiscoveryTimeout
	if timeout <= 0 {
		timeout = defaultDiscoveryTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		entries:    make(map[string]entry),
		inFlight:   make(map[string]struct{}),
		registry:   cfg.Registry,
		discoverer: cfg.Discoverer,
		timeout:    timeout,
		logger:     logger,
	}
}

// Resolve returns the descriptor for id, or nil if it cannot be resolved
// right now. It never returns an error; failures are logged.
func (c *Cache) Resolve(ctx context.Context, id string) *types.TokenDescriptor {
	c.mu.Lock()
	if e, ok := c.entries[id]; ok {
		c.mu.Unlock()
		CacheHitsTotal.Inc()
		return e.desc
	}
	reg := c.registry
	c.mu.Unlock()

	if reg != nil {
		if d, ok := reg.Lookup(id); ok {
			RegistryHitsTotal.Inc()
			return c.add(id, d, true)
		}
	}

	if c.discoverer == nil {
		return nil
	}

	c.mu.Lock()
	if e, ok := c.entries[id]; ok {
		c.mu.Unlock()
		CacheHitsTotal.Inc()
		return e.desc
	}
	if _, busy := c.inFlight[id]; busy {
		c.mu.Unlock()
		DiscoverySkippedTotal.Inc()
		c.logger.Debug("discovery-in-flight", zap.String("token", id))
		return nil
	}
	c.inFlight[id] = struct{}{}
	c.mu.Unlock()

	return c.discover(ctx, id)
}

func (c *Cache) discover(ctx context.Context, id string) (desc *types.TokenDescriptor) {
	defer func() {
		if r := recover(); r != nil {
			DiscoveryTotal.WithLabelValues("panic").Inc()
			c.logger.Error("discovery-panic",
				zap.String("token", id),
				zap.String("panic", fmt.Sprint(r)))
			desc = nil
		}

		c.mu.Lock()
		delete(c.inFlight, id)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	d, err := c.discoverer.DiscoverToken(ctx, id)
	DiscoveryDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		DiscoveryTotal.WithLabelValues("error").Inc()
		c.logger.Warn("discovery-failed",
			zap.String("token", id),
			zap.Error(err))
		return nil
	}
	if d == nil || d.Symbol == types.UnknownSymbol {
		DiscoveryTotal.WithLabelValues("unknown").Inc()
		c.logger.Debug("discovery-returned-unknown", zap.String("token", id))
		return nil
	}

	DiscoveryTotal.WithLabelValues("success").Inc()
	return c.add(id, d, false)
}

// add stores d under id unless an entry already exists, and returns the stored value.
func (c *Cache) add(id string, d *types.TokenDescriptor, fromRegistry bool) *types.TokenDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[id]; ok {
		return existing.desc
	}
	c.entries[id] = entry{desc: d, fromRegistry: fromRegistry}
	CacheSize.Set(float64(len(c.entries)))

	return d
}

// Get returns a resolved descriptor without triggering registry lookup or discovery.
func (c *Cache) Get(id string) (*types.TokenDescriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	return e.desc, ok
}

// InFlight reports whether discovery for id is currently running.
func (c *Cache) InFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.inFlight[id]
	return ok
}

// Len returns the number of resolved entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// ReplaceRegistry swaps the registry and evicts entries that were resolved
// from the previous one. Discovered entries are kept.
func (c *Cache) ReplaceRegistry(reg Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for id, e := range c.entries {
		if e.fromRegistry {
			delete(c.entries, id)
			evicted++
		}
	}
	c.registry = reg
	CacheSize.Set(float64(len(c.entries)))

	c.logger.Info("registry-replaced", zap.Int("evicted", evicted))
}
