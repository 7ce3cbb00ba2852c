package testutil

import (
	"time"

	"github.com/mselser95/ordersync/pkg/types"
	"github.com/shopspring/decimal"
)

// TestOwner is the owner used by fixtures.
const TestOwner = "alice.near"

// CreateTestOrder creates an open USD-quoted order without condition.
func CreateTestOrder(id string, status types.OrderStatus, createdAt time.Time) types.Order {
	return types.Order{
		ID:             id,
		Owner:          TestOwner,
		InputToken:     "usdt.tether-token.near",
		OutputToken:    "wrap.near",
		InputAmount:    decimal.NewFromInt(100),
		ConditionToken: types.AnyConditionToken,
		Direction:      types.DirectionLessOrEqual,
		TargetPrice:    decimal.RequireFromString("3.5"),
		BaseAsset:      types.USDBaseAsset,
		Status:         status,
		CreatedAt:      createdAt,
	}
}

// CreateTestToken creates a resolved token descriptor.
func CreateTestToken(id, symbol string, decimals int) types.TokenDescriptor {
	return types.TokenDescriptor{
		ID:         id,
		Name:       symbol,
		Symbol:     symbol,
		Decimals:   decimals,
		ResolvedAt: time.Now(),
	}
}

// DefaultTokens returns descriptors for the tokens used by CreateTestOrder.
func DefaultTokens() []types.TokenDescriptor {
	return []types.TokenDescriptor{
		CreateTestToken("usdt.tether-token.near", "USDT", 6),
		CreateTestToken("wrap.near", "wNEAR", 24),
	}
}

// Float returns a pointer to f.
func Float(f float64) *float64 {
	return &f
}
