package storage

import (
	"context"

	"github.com/mselser95/ordersync/pkg/types"
)

// Storage persists detected order status transitions.
type Storage interface {
	StoreTransition(ctx context.Context, event *types.TransitionEvent) error

	Close() error
}
