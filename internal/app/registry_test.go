package app

import (
	"context"
	"testing"

	"github.com/mselser95/ordersync/internal/orderapi"
	"github.com/mselser95/ordersync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadRegistry(t *testing.T) {
	mock := testutil.NewMockOrderAPI(nil)
	defer mock.Close()
	for _, tok := range testutil.DefaultTokens() {
		mock.AddToken(tok)
	}

	cfg := testConfig(mock.URL)
	client := orderapi.NewClient(orderapi.Config{BaseURL: mock.URL, Logger: zap.NewNop()})
	mc := NewMetadataCache(cfg, zap.NewNop(), client)

	n, err := LoadRegistry(context.Background(), client, mc)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Registry tokens resolve without discovery.
	desc := mc.Resolve(context.Background(), "wrap.near")
	require.NotNil(t, desc)
	assert.Equal(t, "wNEAR", desc.Symbol)
	assert.Equal(t, int32(0), mock.DiscoverCount.Load())
}
