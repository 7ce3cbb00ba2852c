package types

import (
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusOpen, StatusBroadcasted, true},
		{StatusOpen, StatusCancelled, true},
		{StatusOpen, StatusFilled, true},
		{StatusBroadcasted, StatusConfirmed, true},
		{StatusBroadcasted, StatusFailed, true},
		{StatusBroadcasted, StatusOpen, true},
		{StatusFilled, StatusConfirmed, true},
		{StatusFilled, StatusFailed, true},
		{StatusFailed, StatusOpen, true},
		{StatusConfirmed, StatusOpen, false},
		{StatusCancelled, StatusOpen, false},
		{StatusOpen, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestOrderStatus_Predicates(t *testing.T) {
	assert.True(t, StatusConfirmed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusFailed.IsTerminal())

	assert.True(t, StatusOpen.Cancellable())
	assert.False(t, StatusBroadcasted.Cancellable())

	assert.True(t, StatusOpen.Executable())
	assert.True(t, StatusFailed.Executable())
	assert.False(t, StatusFilled.Executable())

	assert.True(t, StatusFilled.Valid())
	assert.False(t, OrderStatus("pending").Valid())
}

func TestOrder_Sentinels(t *testing.T) {
	o := Order{ConditionToken: AnyConditionToken, BaseAsset: USDBaseAsset}
	assert.False(t, o.HasCondition())
	assert.True(t, o.QuotedInUSD())

	o = Order{ConditionToken: "wrap.near", BaseAsset: "usdt.tether-token.near"}
	assert.True(t, o.HasCondition())
	assert.False(t, o.QuotedInUSD())

	o = Order{}
	assert.True(t, o.QuotedInUSD(), "absent base asset means USD")
}

func TestOrder_JSONDecimals(t *testing.T) {
	raw := `{"id":"o1","inputAmount":"1.50","targetPrice":2.25,"status":"open","createdAt":"2024-05-01T10:00:00Z"}`

	var o Order
	require.NoError(t, json.Unmarshal([]byte(raw), &o))

	assert.True(t, o.InputAmount.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, o.TargetPrice.Equal(decimal.RequireFromString("2.25")))
	assert.Equal(t, StatusOpen, o.Status)
}

func TestNewPlaceholder(t *testing.T) {
	now := time.Now()

	tests := []struct {
		id   string
		want string
	}{
		{"X.token", "token"},
		{"wrap.near", "near"},
		{"plain", "plain"},
		{"ends.with.", UnknownSymbol},
		{"", UnknownSymbol},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p := NewPlaceholder(tt.id, now)
			assert.Equal(t, tt.want, p.Symbol)
			assert.Equal(t, PlaceholderDecimals, p.Decimals)
			assert.Nil(t, p.Image)
			assert.Nil(t, p.Description)
			assert.True(t, p.Placeholder)
			assert.Equal(t, now, p.ResolvedAt)
		})
	}
}

func TestActionError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&ActionError{Action: ActionCancel, OrderID: "o1", Err: cause})

	var actionErr *ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "o1")
	assert.Equal(t, "Failed to cancel order. Please try again.", actionErr.UserMessage())

	rejected := &ActionError{Action: ActionExecute, OrderID: "o2", Message: "price moved"}
	assert.Equal(t, "Failed to execute order: price moved", rejected.UserMessage())
	assert.Contains(t, rejected.Error(), "rejected")
}
