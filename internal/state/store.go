package state

import (
	"errors"
	"sync"
	"time"

	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

const defaultRecentWindow = 10 * time.Second

// ErrOrderNotFound is returned when an order is not in the current snapshot.
var ErrOrderNotFound = errors.New("order not found")

// Snapshot is a consistent copy of the store contents.
type Snapshot struct {
	Orders     []types.DisplayOrder
	Pagination types.Pagination
	Err        error
	Recent     map[string]struct{}
	Epoch      uint64
	UpdatedAt  time.Time
}

// Store holds the current page of display orders and the state derived from it.
//
// Every fetch cycle takes an epoch with NextEpoch and may only apply its
// result while that epoch is still the latest one. Optimistic statuses
// written by actions survive commits until the action settles.
type Store struct {
	mu sync.Mutex

	orders     []types.DisplayOrder
	index      map[string]int
	pagination types.Pagination
	err        error
	updatedAt  time.Time

	epoch uint64

	recentWindow time.Duration
	recent       map[string]uint64 // order id -> marking batch
	batch        uint64
	timers       map[uint64]*time.Timer

	pending map[string]types.OrderStatus // order id -> optimistic status
	settled map[string]settledStatus     // order id -> status confirmed by an action

	closed bool
	logger *zap.Logger
}

// settledStatus is a status confirmed by an action while cycle epoch was the
// latest dispatched one. That cycle fetched before the action settled.
type settledStatus struct {
	status types.OrderStatus
	txid   string
	epoch  uint64
}

// NewStore creates an empty store. recentWindow <= 0 uses 10s.
func NewStore(recentWindow time.Duration, logger *zap.Logger) *Store {
	if recentWindow <= 0 {
		recentWindow = defaultRecentWindow
	}
	return &Store{
		index:        make(map[string]int),
		recentWindow: recentWindow,
		recent:       make(map[string]uint64),
		timers:       make(map[uint64]*time.Timer),
		pending:      make(map[string]types.OrderStatus),
		settled:      make(map[string]settledStatus),
		logger:       logger,
	}
}

// NextEpoch dispatches a new cycle and returns its epoch. Results of older
// epochs will be discarded.
func (s *Store) NextEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	return s.epoch
}

// Epoch returns the latest dispatched epoch.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.epoch
}

// Commit replaces the held orders with next if epoch is still current. It
// returns the previously held orders and a copy of the committed ones, with
// optimistic statuses applied, for transition detection.
func (s *Store) Commit(epoch uint64, next []types.DisplayOrder, p types.Pagination) (prev, committed []types.DisplayOrder, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return nil, nil, false
	}

	orders := make([]types.DisplayOrder, len(next))
	copy(orders, next)
	for i := range orders {
		if status, held := s.pending[orders[i].ID]; held {
			orders[i].Status = status
			continue
		}
		if st, ok := s.settled[orders[i].ID]; ok && st.epoch == epoch {
			orders[i].Status = st.status
			if st.txid != "" {
				orders[i].TxID = st.txid
			}
		}
	}
	for id := range s.settled {
		delete(s.settled, id)
	}

	prev = s.orders
	s.setOrders(orders)
	s.pagination = p
	s.err = nil
	s.updatedAt = time.Now()
	s.pruneRecent()

	committed = make([]types.DisplayOrder, len(orders))
	copy(committed, orders)
	return prev, committed, true
}

// Fail records a fetch error for epoch if it is still current. Orders,
// pagination and the recent set are cleared.
func (s *Store) Fail(epoch uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return false
	}

	s.clear()
	s.err = err
	s.updatedAt = time.Now()
	return true
}

// Reset clears all data and invalidates any in-flight cycle.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.clear()
	s.err = nil
	s.updatedAt = time.Now()
}

// Invalidate makes every dispatched cycle stale without touching data.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
}

func (s *Store) clear() {
	s.setOrders(nil)
	s.pagination = types.Pagination{}
	for id := range s.settled {
		delete(s.settled, id)
	}
	for id := range s.recent {
		delete(s.recent, id)
	}
}

func (s *Store) setOrders(orders []types.DisplayOrder) {
	s.orders = orders
	s.index = make(map[string]int, len(orders))
	for i := range orders {
		s.index[orders[i].ID] = i
	}
}

// pruneRecent keeps the recent set a subset of the held orders.
func (s *Store) pruneRecent() {
	for id := range s.recent {
		if _, ok := s.index[id]; !ok {
			delete(s.recent, id)
		}
	}
}

// MarkRecent flags ids as recently updated for the recent window. Each call
// is one batch with its own timer; a batch only clears ids it still owns.
func (s *Store) MarkRecent(ids []string) {
	if len(ids) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.batch++
	batch := s.batch
	marked := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.index[id]; !ok {
			continue
		}
		s.recent[id] = batch
		marked = append(marked, id)
	}
	if len(marked) == 0 {
		return
	}

	s.timers[batch] = time.AfterFunc(s.recentWindow, func() {
		s.expireBatch(batch, marked)
	})
}

func (s *Store) expireBatch(batch uint64, ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.timers, batch)
	for _, id := range ids {
		if s.recent[id] == batch {
			delete(s.recent, id)
		}
	}
}

// IsRecent reports whether id is in the recently-updated set.
func (s *Store) IsRecent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.recent[id]
	return ok
}

// Get returns the held order with id.
func (s *Store) Get(id string) (types.DisplayOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return types.DisplayOrder{}, false
	}
	return s.orders[i], true
}

// Snapshot returns a copy of the store contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]types.DisplayOrder, len(s.orders))
	copy(orders, s.orders)
	recent := make(map[string]struct{}, len(s.recent))
	for id := range s.recent {
		recent[id] = struct{}{}
	}

	return Snapshot{
		Orders:     orders,
		Pagination: s.pagination,
		Err:        s.err,
		Recent:     recent,
		Epoch:      s.epoch,
		UpdatedAt:  s.updatedAt,
	}
}

// ApplyOptimistic writes status to for order id after check accepts the
// current status, and returns the captured status. The write is kept across
// commits until Settle or Rollback.
func (s *Store) ApplyOptimistic(id string, to types.OrderStatus, check func(types.OrderStatus) error) (types.OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return "", ErrOrderNotFound
	}

	captured := s.orders[i].Status
	if err := check(captured); err != nil {
		return captured, err
	}

	s.orders[i].Status = to
	s.pending[id] = to
	return captured, nil
}

// Settle ends the optimistic hold for id and merges server-provided fields.
// A cycle already in flight still sees the settled status when it commits.
func (s *Store) Settle(id, txid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status, held := s.pending[id]; held {
		s.settled[id] = settledStatus{status: status, txid: txid, epoch: s.epoch}
	}
	delete(s.pending, id)
	if i, ok := s.index[id]; ok && txid != "" {
		s.orders[i].TxID = txid
	}
}

// Rollback ends the optimistic hold for id and restores captured if the
// order still shows the optimistic status. It reports whether it restored.
func (s *Store) Rollback(id string, optimistic, captured types.OrderStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)
	i, ok := s.index[id]
	if !ok || s.orders[i].Status != optimistic {
		return false
	}

	s.orders[i].Status = captured
	return true
}

// Close stops pending recent-set timers.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for batch, t := range s.timers {
		t.Stop()
		delete(s.timers, batch)
	}
}
