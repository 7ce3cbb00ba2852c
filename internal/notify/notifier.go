package notify

import (
	"context"

	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

// Notifier receives each detected transition exactly once. Implementations
// must not block the caller for long and must handle their own errors.
type Notifier interface {
	Notify(ctx context.Context, event types.TransitionEvent)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, event types.TransitionEvent)

// Notify calls f.
func (f Func) Notify(ctx context.Context, event types.TransitionEvent) {
	f(ctx, event)
}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

// Notify forwards event to every notifier.
func (m Multi) Notify(ctx context.Context, event types.TransitionEvent) {
	for _, n := range m {
		n.Notify(ctx, event)
	}
}

// LogNotifier logs transitions.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs event at info level.
func (l *LogNotifier) Notify(_ context.Context, event types.TransitionEvent) {
	NotificationsTotal.WithLabelValues("log").Inc()
	l.logger.Info("order-status-changed",
		zap.String("event-id", event.ID),
		zap.String("order-id", event.Order.ID),
		zap.String("from", string(event.OldStatus)),
		zap.String("to", string(event.NewStatus)),
		zap.String("pair", pairLabel(event.Order)))
}

func pairLabel(o types.DisplayOrder) string {
	in, out := o.InputToken, o.OutputToken
	if o.InputTokenInfo != nil {
		in = o.InputTokenInfo.Symbol
	}
	if o.OutputTokenInfo != nil {
		out = o.OutputTokenInfo.Symbol
	}
	return in + "/" + out
}
