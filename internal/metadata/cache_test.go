package metadata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mselser95/ordersync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDiscoverer struct {
	calls   atomic.Int32
	release chan struct{} // if non-nil, DiscoverToken blocks until closed
	started chan struct{}
	result  func(id string) (*types.TokenDescriptor, error)
}

func (f *fakeDiscoverer) DiscoverToken(ctx context.Context, id string) (*types.TokenDescriptor, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result(id)
}

func token(id, symbol string) *types.TokenDescriptor {
	return &types.TokenDescriptor{ID: id, Name: symbol, Symbol: symbol, Decimals: 18}
}

func found(id string) (*types.TokenDescriptor, error) {
	return token(id, "FOUND"), nil
}

func TestCache_RegistryHitIsCached(t *testing.T) {
	reg := NewStaticRegistry([]types.TokenDescriptor{*token("wrap.near", "wNEAR")})
	disc := &fakeDiscoverer{result: found}
	c := NewCache(Config{Registry: reg, Discoverer: disc, Logger: zap.NewNop()})

	d := c.Resolve(context.Background(), "wrap.near")
	require.NotNil(t, d)
	assert.Equal(t, "wNEAR", d.Symbol)
	assert.Equal(t, int32(0), disc.calls.Load())

	cached, ok := c.Get("wrap.near")
	require.True(t, ok)
	assert.Same(t, d, cached)
}

func TestCache_DiscoverySuccessIsCached(t *testing.T) {
	disc := &fakeDiscoverer{result: found}
	c := NewCache(Config{Discoverer: disc})

	first := c.Resolve(context.Background(), "new.token")
	second := c.Resolve(context.Background(), "new.token")

	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), disc.calls.Load(), "second resolve must hit the cache")
	assert.False(t, c.InFlight("new.token"))
}

func TestCache_UnknownSymbolNotCached(t *testing.T) {
	disc := &fakeDiscoverer{result: func(id string) (*types.TokenDescriptor, error) {
		return token(id, types.UnknownSymbol), nil
	}}
	c := NewCache(Config{Discoverer: disc})

	assert.Nil(t, c.Resolve(context.Background(), "mystery.near"))
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.InFlight("mystery.near"))

	// A later resolve retries discovery.
	assert.Nil(t, c.Resolve(context.Background(), "mystery.near"))
	assert.Equal(t, int32(2), disc.calls.Load())
}

func TestCache_DiscoveryErrorClearsInFlight(t *testing.T) {
	disc := &fakeDiscoverer{result: func(string) (*types.TokenDescriptor, error) {
		return nil, errors.New("service unavailable")
	}}
	c := NewCache(Config{Discoverer: disc})

	assert.Nil(t, c.Resolve(context.Background(), "x.near"))
	assert.False(t, c.InFlight("x.near"))
	assert.Equal(t, 0, c.Len())
}

func TestCache_DiscoveryPanicClearsInFlight(t *testing.T) {
	disc := &fakeDiscoverer{result: func(string) (*types.TokenDescriptor, error) {
		panic("boom")
	}}
	c := NewCache(Config{Discoverer: disc})

	assert.NotPanics(t, func() {
		assert.Nil(t, c.Resolve(context.Background(), "x.near"))
	})
	assert.False(t, c.InFlight("x.near"))
}

func TestCache_ConcurrentResolveSingleDiscovery(t *testing.T) {
	disc := &fakeDiscoverer{
		release: make(chan struct{}),
		started: make(chan struct{}, 1),
		result:  found,
	}
	c := NewCache(Config{Discoverer: disc})

	var (
		wg      sync.WaitGroup
		results = make([]*types.TokenDescriptor, 5)
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = c.Resolve(context.Background(), "x.near")
	}()

	// Wait until the first discovery is running, then race the rest against it.
	<-disc.started
	require.True(t, c.InFlight("x.near"))

	for i := 1; i < len(results); i++ {
		results[i] = c.Resolve(context.Background(), "x.near")
	}

	close(disc.release)
	wg.Wait()

	assert.Equal(t, int32(1), disc.calls.Load())
	require.NotNil(t, results[0])
	for i := 1; i < len(results); i++ {
		assert.Nil(t, results[i], "concurrent resolve %d should fall back", i)
	}

	cached, ok := c.Get("x.near")
	require.True(t, ok)
	assert.Same(t, results[0], cached)
}

func TestCache_DiscoveryTimeout(t *testing.T) {
	disc := &fakeDiscoverer{release: make(chan struct{}), result: found}
	c := NewCache(Config{Discoverer: disc, DiscoveryTimeout: 20 * time.Millisecond})

	start := time.Now()
	assert.Nil(t, c.Resolve(context.Background(), "slow.near"))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, c.InFlight("slow.near"))
}

func TestCache_NoDiscoverer(t *testing.T) {
	c := NewCache(Config{})
	assert.Nil(t, c.Resolve(context.Background(), "x.near"))
}

func TestCache_ReplaceRegistryEvictsRegistryEntries(t *testing.T) {
	oldReg := NewStaticRegistry([]types.TokenDescriptor{*token("a.near", "OLD")})
	disc := &fakeDiscoverer{result: found}
	c := NewCache(Config{Registry: oldReg, Discoverer: disc})

	require.Equal(t, "OLD", c.Resolve(context.Background(), "a.near").Symbol)
	require.Equal(t, "FOUND", c.Resolve(context.Background(), "b.near").Symbol)

	c.ReplaceRegistry(NewStaticRegistry([]types.TokenDescriptor{*token("a.near", "NEW")}))

	_, ok := c.Get("a.near")
	assert.False(t, ok, "registry entry should be evicted")
	_, ok = c.Get("b.near")
	assert.True(t, ok, "discovered entry should be kept")

	assert.Equal(t, "NEW", c.Resolve(context.Background(), "a.near").Symbol)
}

// interleavingRegistry misses every lookup and runs hook during the first one.
type interleavingRegistry struct {
	fired atomic.Bool
	hook  func()
}

func (r *interleavingRegistry) Lookup(string) (*types.TokenDescriptor, bool) {
	if r.fired.CompareAndSwap(false, true) {
		r.hook()
	}
	return nil, false
}

func TestCache_DiscoveryFinishingDuringRegistryLookupIsReused(t *testing.T) {
	disc := &fakeDiscoverer{result: found}
	reg := &interleavingRegistry{}
	c := NewCache(Config{Registry: reg, Discoverer: disc, Logger: zap.NewNop()})

	var inner *types.TokenDescriptor
	reg.hook = func() {
		inner = c.Resolve(context.Background(), "new.token")
	}

	outer := c.Resolve(context.Background(), "new.token")

	require.NotNil(t, inner)
	assert.Same(t, inner, outer)
	assert.Equal(t, int32(1), disc.calls.Load())
}
