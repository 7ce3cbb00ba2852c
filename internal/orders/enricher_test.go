package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mselser95/ordersync/internal/testutil"
	"github.com/mselser95/ordersync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapResolver struct {
	mu     sync.Mutex
	tokens map[string]*types.TokenDescriptor
	calls  map[string]int
}

func newMapResolver(tokens ...types.TokenDescriptor) *mapResolver {
	r := &mapResolver{
		tokens: make(map[string]*types.TokenDescriptor),
		calls:  make(map[string]int),
	}
	for i := range tokens {
		r.tokens[tokens[i].ID] = &tokens[i]
	}
	return r
}

func (r *mapResolver) Resolve(_ context.Context, id string) *types.TokenDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[id]++
	return r.tokens[id]
}

func TestEnrich_ResolvedTokens(t *testing.T) {
	r := newMapResolver(testutil.DefaultTokens()...)
	e := NewEnricher(r, 4, zap.NewNop())

	o := testutil.CreateTestOrder("o1", types.StatusOpen, time.Now())
	d := e.Enrich(context.Background(), o)

	require.NotNil(t, d.InputTokenInfo)
	require.NotNil(t, d.OutputTokenInfo)
	assert.Equal(t, "USDT", d.InputTokenInfo.Symbol)
	assert.Equal(t, "wNEAR", d.OutputTokenInfo.Symbol)
	assert.Nil(t, d.ConditionTokenInfo, "wildcard condition has no descriptor")
	assert.Nil(t, d.BaseAssetInfo, "USD base has no descriptor")
	assert.Equal(t, 0, r.calls[types.AnyConditionToken])
	assert.Equal(t, 0, r.calls[types.USDBaseAsset])
}

func TestEnrich_Placeholders(t *testing.T) {
	e := NewEnricher(newMapResolver(), 4, zap.NewNop())
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	o := testutil.CreateTestOrder("o1", types.StatusOpen, time.Now())
	o.InputToken = "X.token"
	o.ConditionToken = "cond.near"
	o.BaseAsset = "base.near"

	d := e.Enrich(context.Background(), o)

	assert.True(t, d.InputTokenInfo.Placeholder)
	assert.Equal(t, "token", d.InputTokenInfo.Symbol)
	assert.Equal(t, types.PlaceholderDecimals, d.InputTokenInfo.Decimals)
	assert.Equal(t, fixed, d.InputTokenInfo.ResolvedAt)

	require.NotNil(t, d.ConditionTokenInfo)
	assert.Equal(t, "near", d.ConditionTokenInfo.Symbol)
	require.NotNil(t, d.BaseAssetInfo)
	assert.True(t, d.BaseAssetInfo.Placeholder)
}

func TestEnrichAll_OrderAndSingleResolvePerToken(t *testing.T) {
	r := newMapResolver(testutil.DefaultTokens()...)
	e := NewEnricher(r, 2, zap.NewNop())

	now := time.Now()
	in := make([]types.Order, 0, 10)
	for i := 0; i < 10; i++ {
		in = append(in, testutil.CreateTestOrder(string(rune('a'+i)), types.StatusOpen, now))
	}

	out := e.EnrichAll(context.Background(), in)

	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.NotNil(t, out[i].InputTokenInfo)
		assert.NotNil(t, out[i].OutputTokenInfo)
	}
	assert.Equal(t, 1, r.calls["usdt.tether-token.near"])
	assert.Equal(t, 1, r.calls["wrap.near"])
	assert.Same(t, out[0].OutputTokenInfo, out[9].OutputTokenInfo, "descriptors are shared")
}

func TestEnrichAll_Empty(t *testing.T) {
	e := NewEnricher(newMapResolver(), 0, zap.NewNop())
	assert.Empty(t, e.EnrichAll(context.Background(), nil))
}

func TestTokenMap(t *testing.T) {
	r := newMapResolver(testutil.DefaultTokens()...)
	e := NewEnricher(r, 2, zap.NewNop())

	o := testutil.CreateTestOrder("o1", types.StatusOpen, time.Now())
	o.ConditionToken = "cond.near"
	displays := e.EnrichAll(context.Background(), []types.Order{o})

	m := TokenMap(displays)
	assert.Len(t, m, 3)
	assert.Equal(t, "USDT", m["usdt.tether-token.near"].Symbol)
	assert.True(t, m["cond.near"].Placeholder)
}

func TestTokenMap_KeyedByReferencedIdentifier(t *testing.T) {
	r := newMapResolver()
	for _, id := range []string{"usdt.tether-token.near", "wrap.near"} {
		d := testutil.CreateTestToken("canonical-"+id, "TOK", 18)
		r.tokens[id] = &d
	}
	e := NewEnricher(r, 2, zap.NewNop())

	displays := e.EnrichAll(context.Background(), []types.Order{
		testutil.CreateTestOrder("o1", types.StatusOpen, time.Now()),
	})

	m := TokenMap(displays)
	require.Len(t, m, 2)
	require.Contains(t, m, "usdt.tether-token.near")
	require.Contains(t, m, "wrap.near")
	assert.Equal(t, "canonical-wrap.near", m["wrap.near"].ID)
	assert.NotContains(t, m, "canonical-wrap.near")
}
