package execution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mselser95/ordersync/internal/state"
	"github.com/mselser95/ordersync/internal/testutil"
	"github.com/mselser95/ordersync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	mu      sync.Mutex
	result  *types.ActionResult
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
}

func (f *fakeClient) do(ctx context.Context) (*types.ActionResult, error) {
	f.mu.Lock()
	f.calls++
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeClient) CancelOrder(ctx context.Context, _ string) (*types.ActionResult, error) {
	return f.do(ctx)
}

func (f *fakeClient) ExecuteOrder(ctx context.Context, _ string) (*types.ActionResult, error) {
	return f.do(ctx)
}

func (f *fakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestExecutor(t *testing.T, client ActionClient, orders ...types.DisplayOrder) (*Executor, *state.Store) {
	t.Helper()

	store := state.NewStore(time.Second, zap.NewNop())
	t.Cleanup(store.Close)
	_, _, ok := store.Commit(store.NextEpoch(), orders, types.Pagination{})
	require.True(t, ok)

	return New(store, client, zap.NewNop()), store
}

func display(id string, status types.OrderStatus) types.DisplayOrder {
	return types.DisplayOrder{Order: testutil.CreateTestOrder(id, status, time.Now())}
}

func statusOf(t *testing.T, store *state.Store, id string) types.OrderStatus {
	t.Helper()
	o, ok := store.Get(id)
	require.True(t, ok)
	return o.Status
}

func TestExecutor_CancelSuccess(t *testing.T) {
	client := &fakeClient{result: &types.ActionResult{OK: true}}
	exec, store := newTestExecutor(t, client, display("A", types.StatusOpen))

	res, err := exec.Cancel(context.Background(), "A")

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, types.StatusCancelled, statusOf(t, store, "A"))
	assert.False(t, exec.InFlight("A"))
}

func TestExecutor_ExecuteSuccessMergesTxID(t *testing.T) {
	client := &fakeClient{result: &types.ActionResult{OK: true, TxID: "0xabc"}}
	exec, store := newTestExecutor(t, client, display("A", types.StatusFailed))

	_, err := exec.Execute(context.Background(), "A")
	require.NoError(t, err)

	o, _ := store.Get("A")
	assert.Equal(t, types.StatusFilled, o.Status)
	assert.Equal(t, "0xabc", o.TxID)
}

func TestExecutor_OptimisticVisibleBeforeResponse(t *testing.T) {
	client := &fakeClient{
		result:  &types.ActionResult{OK: true},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	exec, store := newTestExecutor(t, client, display("A", types.StatusOpen))

	done := make(chan error, 1)
	go func() {
		_, err := exec.Cancel(context.Background(), "A")
		done <- err
	}()

	<-client.started
	assert.Equal(t, types.StatusCancelled, statusOf(t, store, "A"))
	assert.True(t, exec.InFlight("A"))

	close(client.release)
	require.NoError(t, <-done)
}

func TestExecutor_RejectedRollsBack(t *testing.T) {
	client := &fakeClient{result: &types.ActionResult{OK: false, Error: "price moved"}}
	exec, store := newTestExecutor(t, client, display("A", types.StatusOpen))

	_, err := exec.Execute(context.Background(), "A")

	var actionErr *types.ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.Equal(t, "Failed to execute order: price moved", actionErr.UserMessage())
	assert.Equal(t, types.StatusOpen, statusOf(t, store, "A"))
}

func TestExecutor_TransportErrorRollsBack(t *testing.T) {
	cause := errors.New("connection reset")
	client := &fakeClient{err: cause}
	exec, store := newTestExecutor(t, client, display("A", types.StatusOpen))

	_, err := exec.Cancel(context.Background(), "A")

	assert.ErrorIs(t, err, cause)
	var actionErr *types.ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.Equal(t, "Failed to cancel order. Please try again.", actionErr.UserMessage())
	assert.Equal(t, types.StatusOpen, statusOf(t, store, "A"))
	assert.Equal(t, 1, client.Calls(), "no retries")
}

func TestExecutor_Preconditions(t *testing.T) {
	client := &fakeClient{result: &types.ActionResult{OK: true}}
	exec, store := newTestExecutor(t, client,
		display("filled", types.StatusFilled),
		display("confirmed", types.StatusConfirmed),
	)

	_, err := exec.Cancel(context.Background(), "filled")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = exec.Execute(context.Background(), "confirmed")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = exec.Cancel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	assert.Equal(t, 0, client.Calls())
	assert.Equal(t, types.StatusFilled, statusOf(t, store, "filled"))
}

func TestExecutor_RejectsConcurrentAction(t *testing.T) {
	client := &fakeClient{
		result:  &types.ActionResult{OK: true},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	exec, _ := newTestExecutor(t, client, display("A", types.StatusOpen))

	done := make(chan error, 1)
	go func() {
		_, err := exec.Cancel(context.Background(), "A")
		done <- err
	}()
	<-client.started

	_, err := exec.Execute(context.Background(), "A")
	assert.ErrorIs(t, err, ErrActionInFlight)

	close(client.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, client.Calls())
}

func TestExecutor_OptimisticHeldAcrossCommit(t *testing.T) {
	client := &fakeClient{
		err:     errors.New("timeout"),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	exec, store := newTestExecutor(t, client, display("A", types.StatusOpen))

	done := make(chan error, 1)
	go func() {
		_, err := exec.Cancel(context.Background(), "A")
		done <- err
	}()
	<-client.started

	// A reconciliation lands while the action is in flight.
	_, _, ok := store.Commit(store.NextEpoch(), []types.DisplayOrder{display("A", types.StatusOpen)}, types.Pagination{})
	require.True(t, ok)
	assert.Equal(t, types.StatusCancelled, statusOf(t, store, "A"))

	close(client.release)
	require.Error(t, <-done)
	assert.Equal(t, types.StatusOpen, statusOf(t, store, "A"))
}
