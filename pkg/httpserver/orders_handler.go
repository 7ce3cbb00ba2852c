package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/mselser95/ordersync/internal/execution"
	"github.com/mselser95/ordersync/internal/reconcile"
	"github.com/mselser95/ordersync/internal/state"
	"github.com/mselser95/ordersync/pkg/types"
	"go.uber.org/zap"
)

// OrderView exposes the current page of display orders.
type OrderView interface {
	Snapshot() state.Snapshot
}

// Controller changes what the sync loop fetches.
type Controller interface {
	Query() types.OrderQuery
	Phase() reconcile.Phase
	SetOwner(owner string)
	SetQuery(q types.OrderQuery)
	SetPage(page int)
	Refresh(ctx context.Context) error
	Strategies() []types.Strategy
}

// Actions runs user-initiated order actions.
type Actions interface {
	Cancel(ctx context.Context, orderID string) (*types.ActionResult, error)
	Execute(ctx context.Context, orderID string) (*types.ActionResult, error)
	InFlight(orderID string) bool
}

// PriceSource looks up token prices.
type PriceSource interface {
	Price(ctx context.Context, tokenID string) (*float64, error)
}

// OrdersHandler serves the order API.
type OrdersHandler struct {
	view       OrderView
	controller Controller
	actions    Actions
	prices     PriceSource
	logger     *zap.Logger
}

// NewOrdersHandler creates a new orders handler. actions and prices may be nil.
func NewOrdersHandler(view OrderView, controller Controller, actions Actions, prices PriceSource, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		view:       view,
		controller: controller,
		actions:    actions,
		prices:     prices,
		logger:     logger,
	}
}

// OrderRow is one order in the listing response.
type OrderRow struct {
	types.DisplayOrder

	Recent   bool `json:"recent"`
	InFlight bool `json:"inFlight"`
}

// OrdersResponse is the response for GET /api/orders.
type OrdersResponse struct {
	Orders     []OrderRow       `json:"orders"`
	Pagination types.Pagination `json:"pagination"`
	Query      types.OrderQuery `json:"query"`
	Phase      reconcile.Phase  `json:"phase"`
	Error      string           `json:"error,omitempty"`
	UpdatedAt  *time.Time       `json:"updatedAt,omitempty"`
}

// ActionResponse is the response for order actions.
type ActionResponse struct {
	OK      bool   `json:"ok"`
	TxID    string `json:"txid,omitempty"`
	Message string `json:"message,omitempty"`
}

// PriceResponse is the response for GET /api/prices/{token}. A nil price means unavailable.
type PriceResponse struct {
	Token string   `json:"token"`
	Price *float64 `json:"price"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleOrders handles GET /api/orders.
func (h *OrdersHandler) HandleOrders(w http.ResponseWriter, _ *http.Request) {
	snap := h.view.Snapshot()

	rows := make([]OrderRow, len(snap.Orders))
	for i, o := range snap.Orders {
		_, recent := snap.Recent[o.ID]
		rows[i] = OrderRow{DisplayOrder: o, Recent: recent}
		if h.actions != nil {
			rows[i].InFlight = h.actions.InFlight(o.ID)
		}
	}

	resp := OrdersResponse{
		Orders:     rows,
		Pagination: snap.Pagination,
		Query:      h.controller.Query(),
		Phase:      h.controller.Phase(),
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	if !snap.UpdatedAt.IsZero() {
		resp.UpdatedAt = &snap.UpdatedAt
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleStrategies handles GET /api/strategies.
func (h *OrdersHandler) HandleStrategies(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.Strategies())
}

// HandleOwner handles PUT /api/owner with body {"owner": "..."}.
func (h *OrdersHandler) HandleOwner(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Owner string `json:"owner"`
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		h.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.controller.SetOwner(body.Owner)
	h.writeJSON(w, http.StatusAccepted, h.controller.Query())
}

// HandleQuery handles PUT /api/query. The owner cannot be changed here.
func (h *OrdersHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var q types.OrderQuery
	err := json.NewDecoder(r.Body).Decode(&q)
	if err != nil {
		h.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if q.SortDir != "" && q.SortDir != "asc" && q.SortDir != "desc" {
		h.writeError(w, "sortDir must be asc or desc", http.StatusBadRequest)
		return
	}
	if q.Status != "" && !q.Status.Valid() {
		h.writeError(w, "unknown status "+string(q.Status), http.StatusBadRequest)
		return
	}

	h.controller.SetQuery(q)
	h.writeJSON(w, http.StatusAccepted, h.controller.Query())
}

// HandlePage handles PUT /api/page/{page}.
func (h *OrdersHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 1 {
		h.writeError(w, "page must be a positive integer", http.StatusBadRequest)
		return
	}

	h.controller.SetPage(page)
	h.writeJSON(w, http.StatusAccepted, h.controller.Query())
}

// HandleRefresh handles POST /api/refresh. It blocks until the cycle completes.
func (h *OrdersHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	err := h.controller.Refresh(r.Context())
	if errors.Is(err, reconcile.ErrNoOwner) {
		h.writeError(w, "no owner selected", http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Warn("refresh-failed", zap.Error(err))
		h.writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	h.HandleOrders(w, r)
}

// HandleCancel handles POST /api/orders/{id}/cancel.
func (h *OrdersHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, h.actions.Cancel)
}

// HandleExecute handles POST /api/orders/{id}/execute.
func (h *OrdersHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, h.actions.Execute)
}

func (h *OrdersHandler) handleAction(w http.ResponseWriter, r *http.Request, do func(context.Context, string) (*types.ActionResult, error)) {
	id := chi.URLParam(r, "id")

	result, err := do(r.Context(), id)
	if err == nil {
		h.writeJSON(w, http.StatusOK, ActionResponse{OK: true, TxID: result.TxID})
		return
	}

	var actionErr *types.ActionError
	switch {
	case errors.Is(err, execution.ErrOrderNotFound):
		h.writeError(w, "order not found", http.StatusNotFound)
	case errors.Is(err, execution.ErrActionInFlight), errors.Is(err, execution.ErrInvalidStatus):
		h.writeError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &actionErr):
		code := http.StatusUnprocessableEntity
		if actionErr.Err != nil {
			code = http.StatusBadGateway
		}
		h.writeJSON(w, code, ActionResponse{OK: false, Message: actionErr.UserMessage()})
	default:
		h.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandlePrice handles GET /api/prices/{token}.
func (h *OrdersHandler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	price, err := h.prices.Price(r.Context(), token)
	if err != nil {
		h.logger.Warn("price-lookup-failed", zap.String("token", token), zap.Error(err))
		h.writeError(w, "price unavailable", http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusOK, PriceResponse{Token: token, Price: price})
}

func (h *OrdersHandler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("encode-response-error", zap.Error(err))
	}
}

func (h *OrdersHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
