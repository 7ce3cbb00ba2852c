package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mselser95/ordersync/internal/state"
	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

var (
	// ErrActionInFlight is returned when an action for the order is already running.
	ErrActionInFlight = errors.New("action already in flight")
	// ErrInvalidStatus is returned when the order's status does not allow the action.
	ErrInvalidStatus = errors.New("invalid order status for action")
	// ErrOrderNotFound is returned when the order is not in the current page.
	ErrOrderNotFound = state.ErrOrderNotFound
)

// ActionClient performs signed order actions against the action service.
type ActionClient interface {
	CancelOrder(ctx context.Context, orderID string) (*types.ActionResult, error)
	ExecuteOrder(ctx context.Context, orderID string) (*types.ActionResult, error)
}

// Executor applies cancel and execute actions optimistically: the store shows
// the expected status immediately and is rolled back if the service refuses.
// At most one action per order runs at a time. Actions are never retried.
type Executor struct {
	store  *state.Store
	client ActionClient
	logger *zap.Logger

	mu       sync.Mutex
	inFlight map[string]types.ActionKind
}

// New creates an Executor.
func New(store *state.Store, client ActionClient, logger *zap.Logger) *Executor {
	return &Executor{
		store:    store,
		client:   client,
		logger:   logger,
		inFlight: make(map[string]types.ActionKind),
	}
}

// Cancel cancels an open order.
func (e *Executor) Cancel(ctx context.Context, orderID string) (*types.ActionResult, error) {
	return e.run(ctx, types.ActionCancel, orderID)
}

// Execute executes an open or failed order immediately.
func (e *Executor) Execute(ctx context.Context, orderID string) (*types.ActionResult, error) {
	return e.run(ctx, types.ActionExecute, orderID)
}

// InFlight reports whether an action for orderID is running.
func (e *Executor) InFlight(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.inFlight[orderID]
	return ok
}

func (e *Executor) run(ctx context.Context, kind types.ActionKind, orderID string) (*types.ActionResult, error) {
	e.mu.Lock()
	if _, busy := e.inFlight[orderID]; busy {
		e.mu.Unlock()
		ActionsTotal.WithLabelValues(string(kind), "in_flight").Inc()
		return nil, fmt.Errorf("%s order %s: %w", kind, orderID, ErrActionInFlight)
	}
	e.inFlight[orderID] = kind
	InFlightActions.Inc()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.inFlight, orderID)
		InFlightActions.Dec()
		e.mu.Unlock()
	}()

	optimistic, allowed := plan(kind)
	captured, err := e.store.ApplyOptimistic(orderID, optimistic, func(current types.OrderStatus) error {
		if !allowed(current) {
			return fmt.Errorf("%w: cannot %s %s order", ErrInvalidStatus, kind, current)
		}
		return nil
	})
	if err != nil {
		ActionsTotal.WithLabelValues(string(kind), "precondition").Inc()
		return nil, fmt.Errorf("%s order %s: %w", kind, orderID, err)
	}

	e.logger.Info("action-started",
		zap.String("action", string(kind)),
		zap.String("order-id", orderID),
		zap.String("from", string(captured)),
		zap.String("optimistic", string(optimistic)))

	start := time.Now()
	result, err := e.call(ctx, kind, orderID)
	ActionDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil || result == nil || !result.OK {
		actionErr := &types.ActionError{Action: kind, OrderID: orderID, Err: err}
		if err == nil && result != nil {
			actionErr.Message = result.Error
		}

		restored := e.store.Rollback(orderID, optimistic, captured)
		RollbacksTotal.WithLabelValues(string(kind)).Inc()
		ActionsTotal.WithLabelValues(string(kind), "failed").Inc()
		e.logger.Warn("action-failed",
			zap.String("action", string(kind)),
			zap.String("order-id", orderID),
			zap.Bool("restored", restored),
			zap.Error(actionErr))

		return result, actionErr
	}

	e.store.Settle(orderID, result.TxID)
	ActionsTotal.WithLabelValues(string(kind), "ok").Inc()
	e.logger.Info("action-succeeded",
		zap.String("action", string(kind)),
		zap.String("order-id", orderID),
		zap.String("txid", result.TxID))

	return result, nil
}

func (e *Executor) call(ctx context.Context, kind types.ActionKind, orderID string) (*types.ActionResult, error) {
	if kind == types.ActionCancel {
		return e.client.CancelOrder(ctx, orderID)
	}
	return e.client.ExecuteOrder(ctx, orderID)
}

// plan returns the optimistic status of an action and the statuses it accepts.
func plan(kind types.ActionKind) (types.OrderStatus, func(types.OrderStatus) bool) {
	if kind == types.ActionCancel {
		return types.StatusCancelled, types.OrderStatus.Cancellable
	}
	return types.StatusFilled, types.OrderStatus.Executable
}
