package notify

import (
	"context"
	"time"

	"github.com/mselser95/ordersync/internal/storage"
	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

const defaultRecordTimeout = 5 * time.Second

// Recorder persists transitions to a storage backend.
type Recorder struct {
	store   storage.Storage
	timeout time.Duration
	logger  *zap.Logger
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store storage.Storage, logger *zap.Logger) *Recorder {
	return &Recorder{
		store:   store,
		timeout: defaultRecordTimeout,
		logger:  logger,
	}
}

// Notify stores event. Storage errors are logged and counted, never returned.
func (r *Recorder) Notify(ctx context.Context, event types.TransitionEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	err := r.store.StoreTransition(ctx, &event)
	if err != nil {
		NotifyErrorsTotal.WithLabelValues("storage").Inc()
		r.logger.Error("store-transition-failed",
			zap.String("event-id", event.ID),
			zap.String("order-id", event.Order.ID),
			zap.Error(err))
		return
	}

	NotificationsTotal.WithLabelValues("storage").Inc()
}
