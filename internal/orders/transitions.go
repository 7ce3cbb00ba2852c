package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/ordersync/pkg/types"
)

// DetectTransitions compares two snapshots and returns one event per order
// present in both whose status changed. Orders new in next emit nothing.
// Events follow the order of next. Changes the lifecycle does not allow are
// still reported, and counted separately.
func DetectTransitions(prev, next []types.DisplayOrder, now time.Time) []types.TransitionEvent {
	if len(prev) == 0 || len(next) == 0 {
		return nil
	}

	before := make(map[string]types.OrderStatus, len(prev))
	for i := range prev {
		before[prev[i].ID] = prev[i].Status
	}

	var events []types.TransitionEvent
	for i := range next {
		old, ok := before[next[i].ID]
		if !ok || old == next[i].Status {
			continue
		}

		events = append(events, types.TransitionEvent{
			ID:         uuid.New().String(),
			Order:      next[i],
			OldStatus:  old,
			NewStatus:  next[i].Status,
			DetectedAt: now,
		})
		TransitionsTotal.WithLabelValues(string(old), string(next[i].Status)).Inc()
		if !types.CanTransition(old, next[i].Status) {
			UnexpectedTransitionsTotal.WithLabelValues(string(old), string(next[i].Status)).Inc()
		}
	}

	return events
}
