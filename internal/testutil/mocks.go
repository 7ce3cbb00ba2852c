package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/mselser95/ordersync/pkg/types"
)

// MockOrderAPI is an in-memory order, action, metadata and price service.
type MockOrderAPI struct {
	*httptest.Server

	mu            sync.RWMutex
	orders        []types.Order
	tokens        map[string]types.TokenDescriptor
	unknown       map[string]bool
	prices        map[string]*float64
	actionResults map[string]types.ActionResult
	fetchErr      int
	discoverDelay time.Duration
	lastSigner    string
	lastSignature string

	FetchCount    atomic.Int32
	DiscoverCount atomic.Int32
	ActionCount   atomic.Int32
}

// NewMockOrderAPI starts a mock server holding orders.
func NewMockOrderAPI(orders []types.Order) *MockOrderAPI {
	mock := &MockOrderAPI{
		orders:        append([]types.Order(nil), orders...),
		tokens:        make(map[string]types.TokenDescriptor),
		unknown:       make(map[string]bool),
		prices:        make(map[string]*float64),
		actionResults: make(map[string]types.ActionResult),
	}

	r := chi.NewRouter()
	r.Get("/orders", mock.handleOrders)
	r.Patch("/orders/{id}/cancel", mock.handleCancel)
	r.Post("/orders/{id}/execute", mock.handleExecute)
	r.Get("/tokens", mock.handleTokens)
	r.Get("/tokens/{id}", mock.handleToken)
	r.Get("/prices/{id}", mock.handlePrice)

	mock.Server = httptest.NewServer(r)
	return mock
}

// SetOrders replaces the served orders.
func (m *MockOrderAPI) SetOrders(orders []types.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append([]types.Order(nil), orders...)
}

// SetStatus changes the status of a served order.
func (m *MockOrderAPI) SetStatus(id string, status types.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		if m.orders[i].ID == id {
			m.orders[i].Status = status
		}
	}
}

// AddToken makes a token discoverable and listed.
func (m *MockOrderAPI) AddToken(token types.TokenDescriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.ID] = token
}

// MarkUnknown makes discovery of id answer with the UNKNOWN symbol.
func (m *MockOrderAPI) MarkUnknown(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unknown[id] = true
}

// SetPrice sets the price of a token. nil serves a null price.
func (m *MockOrderAPI) SetPrice(id string, price *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[id] = price
}

// SetActionResult overrides the response for any action on order id.
func (m *MockOrderAPI) SetActionResult(id string, result types.ActionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actionResults[id] = result
}

// FailNextFetches makes the next n order listings fail with 500.
func (m *MockOrderAPI) FailNextFetches(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = n
}

// SetDiscoverDelay slows down token discovery.
func (m *MockOrderAPI) SetDiscoverDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discoverDelay = d
}

// LastSignature returns the signer and signature of the last action request.
func (m *MockOrderAPI) LastSignature() (signer, signature string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSigner, m.lastSignature
}

// Order returns the served copy of an order.
func (m *MockOrderAPI) Order(id string) (types.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.ID == id {
			return o, true
		}
	}
	return types.Order{}, false
}

func (m *MockOrderAPI) handleOrders(w http.ResponseWriter, r *http.Request) {
	m.FetchCount.Add(1)

	m.mu.Lock()
	if m.fetchErr > 0 {
		m.fetchErr--
		m.mu.Unlock()
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	q := r.URL.Query()
	owner := q.Get("owner")
	status := q.Get("status")
	search := strings.ToLower(q.Get("search"))

	matched := make([]types.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if owner != "" && o.Owner != owner {
			continue
		}
		if status != "" && string(o.Status) != status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(o.ID), search) &&
			!strings.Contains(strings.ToLower(o.InputToken), search) &&
			!strings.Contains(strings.ToLower(o.OutputToken), search) {
			continue
		}
		matched = append(matched, o)
	}

	asc := q.Get("sortDir") == "asc"
	sort.SliceStable(matched, func(i, j int) bool {
		if asc {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 20
	}

	total := len(matched)
	totalPages := (total + limit - 1) / limit
	from := (page - 1) * limit
	to := from + limit
	if from > total {
		from = total
	}
	if to > total {
		to = total
	}

	writeJSON(w, http.StatusOK, types.OrdersPage{
		Data: matched[from:to],
		Pagination: types.Pagination{
			Total:       total,
			Page:        page,
			Limit:       limit,
			TotalPages:  totalPages,
			HasNextPage: page < totalPages,
			HasPrevPage: page > 1,
		},
	})
}

func (m *MockOrderAPI) handleCancel(w http.ResponseWriter, r *http.Request) {
	m.handleAction(w, r, types.StatusCancelled, func(s types.OrderStatus) bool {
		return s.Cancellable()
	})
}

func (m *MockOrderAPI) handleExecute(w http.ResponseWriter, r *http.Request) {
	m.handleAction(w, r, types.StatusFilled, func(s types.OrderStatus) bool {
		return s.Executable()
	})
}

func (m *MockOrderAPI) handleAction(w http.ResponseWriter, r *http.Request, to types.OrderStatus, allowed func(types.OrderStatus) bool) {
	m.ActionCount.Add(1)
	id := chi.URLParam(r, "id")

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSigner = r.Header.Get("X-Signer")
	m.lastSignature = r.Header.Get("X-Signature")

	if res, ok := m.actionResults[id]; ok {
		code := http.StatusOK
		if !res.OK {
			code = http.StatusBadRequest
		}
		writeJSON(w, code, res)
		return
	}

	for i := range m.orders {
		if m.orders[i].ID != id {
			continue
		}
		if !allowed(m.orders[i].Status) {
			writeJSON(w, http.StatusConflict, types.ActionResult{Error: "order is " + string(m.orders[i].Status)})
			return
		}
		m.orders[i].Status = to
		res := types.ActionResult{OK: true}
		if to == types.StatusFilled {
			res.TxID = "0xtx-" + id
			m.orders[i].TxID = res.TxID
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	writeJSON(w, http.StatusNotFound, types.ActionResult{Error: "order not found"})
}

func (m *MockOrderAPI) handleTokens(w http.ResponseWriter, _ *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tokens := make([]types.TokenDescriptor, 0, len(m.tokens))
	for _, t := range m.tokens {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })

	writeJSON(w, http.StatusOK, tokens)
}

func (m *MockOrderAPI) handleToken(w http.ResponseWriter, r *http.Request) {
	m.DiscoverCount.Add(1)
	id := chi.URLParam(r, "id")

	m.mu.RLock()
	delay := m.discoverDelay
	token, found := m.tokens[id]
	unknown := m.unknown[id]
	m.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	switch {
	case found:
		writeJSON(w, http.StatusOK, token)
	case unknown:
		writeJSON(w, http.StatusOK, types.TokenDescriptor{ID: id, Symbol: types.UnknownSymbol})
	default:
		http.NotFound(w, r)
	}
}

func (m *MockOrderAPI) handlePrice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m.mu.RLock()
	price := m.prices[id]
	m.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]*float64{"price": price})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// MockStorage is an in-memory transition log.
type MockStorage struct {
	mu          sync.Mutex
	transitions []types.TransitionEvent
	err         error
}

// NewMockStorage creates a new mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

// StoreTransition records a transition in memory.
func (m *MockStorage) StoreTransition(_ context.Context, event *types.TransitionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.transitions = append(m.transitions, *event)
	return nil
}

// FailWith makes StoreTransition return err.
func (m *MockStorage) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Close is a no-op.
func (m *MockStorage) Close() error {
	return nil
}

// Transitions returns a copy of the recorded transitions.
func (m *MockStorage) Transitions() []types.TransitionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.TransitionEvent, len(m.transitions))
	copy(out, m.transitions)
	return out
}

// MockNotifier records every notified transition.
type MockNotifier struct {
	mu     sync.Mutex
	events []types.TransitionEvent
}

// Notify records event.
func (m *MockNotifier) Notify(_ context.Context, event types.TransitionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns a copy of the recorded events.
func (m *MockNotifier) Events() []types.TransitionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.TransitionEvent, len(m.events))
	copy(out, m.events)
	return out
}
