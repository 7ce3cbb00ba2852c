package orders

import (
	"testing"
	"time"

	"github.com/mselser95/ordersync/internal/testutil"
	"github.com/mselser95/ordersync/pkg/types"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func display(id string, status types.OrderStatus) types.DisplayOrder {
	return types.DisplayOrder{Order: testutil.CreateTestOrder(id, status, time.Time{})}
}

func TestDetectTransitions(t *testing.T) {
	now := time.Now()

	prev := []types.DisplayOrder{display("A", types.StatusOpen), display("B", types.StatusOpen)}
	next := []types.DisplayOrder{display("A", types.StatusFilled), display("B", types.StatusOpen)}

	events := DetectTransitions(prev, next, now)

	require.Len(t, events, 1)
	assert.Equal(t, "A", events[0].Order.ID)
	assert.Equal(t, types.StatusOpen, events[0].OldStatus)
	assert.Equal(t, types.StatusFilled, events[0].NewStatus)
	assert.Equal(t, now, events[0].DetectedAt)
	assert.NotEmpty(t, events[0].ID)
}

func TestDetectTransitions_NewOrderEmitsNothing(t *testing.T) {
	prev := []types.DisplayOrder{display("A", types.StatusOpen)}
	next := []types.DisplayOrder{display("A", types.StatusOpen), display("C", types.StatusFilled)}

	assert.Empty(t, DetectTransitions(prev, next, time.Now()))
}

func TestDetectTransitions_EmptyPrev(t *testing.T) {
	next := []types.DisplayOrder{display("A", types.StatusFilled)}
	assert.Empty(t, DetectTransitions(nil, next, time.Now()))
}

func TestDetectTransitions_OrderFollowsNext(t *testing.T) {
	prev := []types.DisplayOrder{
		display("A", types.StatusOpen),
		display("B", types.StatusBroadcasted),
		display("C", types.StatusFilled),
	}
	next := []types.DisplayOrder{
		display("C", types.StatusConfirmed),
		display("A", types.StatusCancelled),
		display("B", types.StatusFailed),
	}

	events := DetectTransitions(prev, next, time.Now())

	require.Len(t, events, 3)
	assert.Equal(t, "C", events[0].Order.ID)
	assert.Equal(t, "A", events[1].Order.ID)
	assert.Equal(t, "B", events[2].Order.ID)
	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestDetectTransitions_DisappearedOrderEmitsNothing(t *testing.T) {
	prev := []types.DisplayOrder{display("A", types.StatusOpen)}
	next := []types.DisplayOrder{display("B", types.StatusOpen)}

	assert.Empty(t, DetectTransitions(prev, next, time.Now()))
}

func TestDetectTransitions_CountsUnexpected(t *testing.T) {
	unexpected := UnexpectedTransitionsTotal.WithLabelValues(string(types.StatusConfirmed), string(types.StatusOpen))
	allowed := UnexpectedTransitionsTotal.WithLabelValues(string(types.StatusOpen), string(types.StatusBroadcasted))
	beforeUnexpected := promtest.ToFloat64(unexpected)
	beforeAllowed := promtest.ToFloat64(allowed)

	prev := []types.DisplayOrder{display("A", types.StatusConfirmed), display("B", types.StatusOpen)}
	next := []types.DisplayOrder{display("A", types.StatusOpen), display("B", types.StatusBroadcasted)}

	events := DetectTransitions(prev, next, time.Now())

	require.Len(t, events, 2, "unexpected changes are still reported")
	assert.InDelta(t, beforeUnexpected+1, promtest.ToFloat64(unexpected), 0)
	assert.InDelta(t, beforeAllowed, promtest.ToFloat64(allowed), 0)
}
