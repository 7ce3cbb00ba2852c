package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mselser95/ordersync/internal/testutil"
	"github.com/mselser95/ordersync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testEvent(id string) types.TransitionEvent {
	return types.TransitionEvent{
		ID: "evt-" + id,
		Order: types.DisplayOrder{
			Order:           testutil.CreateTestOrder(id, types.StatusFilled, time.Now()),
			InputTokenInfo:  &types.TokenDescriptor{Symbol: "USDT"},
			OutputTokenInfo: &types.TokenDescriptor{Symbol: "wNEAR"},
		},
		OldStatus:  types.StatusOpen,
		NewStatus:  types.StatusFilled,
		DetectedAt: time.Now(),
	}
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	n.Notify(context.Background(), testEvent("o1"))

	entries := logs.FilterMessage("order-status-changed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "o1", fields["order-id"])
	assert.Equal(t, "open", fields["from"])
	assert.Equal(t, "filled", fields["to"])
	assert.Equal(t, "USDT/wNEAR", fields["pair"])
}

func TestMulti_ForwardsInOrder(t *testing.T) {
	var calls []string
	first := Func(func(context.Context, types.TransitionEvent) { calls = append(calls, "first") })
	second := Func(func(context.Context, types.TransitionEvent) { calls = append(calls, "second") })

	Multi{first, second}.Notify(context.Background(), testEvent("o1"))

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestRecorder_Stores(t *testing.T) {
	store := testutil.NewMockStorage()
	r := NewRecorder(store, zap.NewNop())

	r.Notify(context.Background(), testEvent("o1"))
	r.Notify(context.Background(), testEvent("o2"))

	got := store.Transitions()
	require.Len(t, got, 2)
	assert.Equal(t, "o1", got[0].Order.ID)
	assert.Equal(t, "o2", got[1].Order.ID)
}

func TestRecorder_ErrorIsSwallowed(t *testing.T) {
	store := testutil.NewMockStorage()
	store.FailWith(errors.New("disk full"))
	core, logs := observer.New(zapcore.ErrorLevel)
	r := NewRecorder(store, zap.New(core))

	assert.NotPanics(t, func() {
		r.Notify(context.Background(), testEvent("o1"))
	})
	assert.Equal(t, 1, logs.FilterMessage("store-transition-failed").Len())
}

func TestRecorder_IgnoresCallerCancellation(t *testing.T) {
	store := testutil.NewMockStorage()
	r := NewRecorder(store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Notify(ctx, testEvent("o1"))

	assert.Len(t, store.Transitions(), 1)
}
