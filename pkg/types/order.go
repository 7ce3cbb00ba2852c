package types

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// AnyConditionToken is the wildcard condition token: the order is not gated on a token price.
	AnyConditionToken = "any"

	// USDBaseAsset is the base-asset sentinel meaning prices are quoted in USD.
	USDBaseAsset = "USD"
)

// OrderStatus is the lifecycle state of a limit order as reported by the order service.
type OrderStatus string

const (
	StatusOpen        OrderStatus = "open"
	StatusBroadcasted OrderStatus = "broadcasted"
	StatusFilled      OrderStatus = "filled"
	StatusConfirmed   OrderStatus = "confirmed"
	StatusFailed      OrderStatus = "failed"
	StatusCancelled   OrderStatus = "cancelled"
)

//nolint:gochecknoglobals // static transition table
var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusOpen:        {StatusBroadcasted, StatusCancelled, StatusFilled},
	StatusBroadcasted: {StatusConfirmed, StatusFailed, StatusOpen},
	StatusFilled:      {StatusConfirmed, StatusFailed},
	StatusFailed:      {StatusOpen},
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusBroadcasted, StatusFilled, StatusConfirmed, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Cancellable reports whether a user may cancel an order in this status.
func (s OrderStatus) Cancellable() bool {
	return s == StatusOpen
}

// Executable reports whether a user may execute an order now.
// Failed orders may be retried.
func (s OrderStatus) Executable() bool {
	return s == StatusOpen || s == StatusFailed
}

// CanTransition reports whether the service is expected to move an order from one status to another.
func CanTransition(from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Direction is the comparison applied between the condition token price and the target price.
type Direction string

const (
	DirectionGreaterThan Direction = "gt"
	DirectionLessOrEqual Direction = "lte"
)

// Order is a limit order owned by the order service.
type Order struct {
	ID             string          `json:"id"`
	Owner          string          `json:"owner"`
	InputToken     string          `json:"inputToken"`
	OutputToken    string          `json:"outputToken"`
	InputAmount    decimal.Decimal `json:"inputAmount"`
	ConditionToken string          `json:"conditionToken"`
	Direction      Direction       `json:"direction"`
	TargetPrice    decimal.Decimal `json:"targetPrice"`
	BaseAsset      string          `json:"baseAsset,omitempty"`
	ValidFrom      *time.Time      `json:"validFrom,omitempty"`
	ValidUntil     *time.Time      `json:"validUntil,omitempty"`
	Status         OrderStatus     `json:"status"`
	TxID           string          `json:"txid,omitempty"`
	FailureReason  string          `json:"failureReason,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// HasCondition reports whether the order is gated on a specific token price.
func (o *Order) HasCondition() bool {
	return o.ConditionToken != "" && o.ConditionToken != AnyConditionToken
}

// QuotedInUSD reports whether the target price is expressed in USD rather than a base token.
func (o *Order) QuotedInUSD() bool {
	return o.BaseAsset == "" || o.BaseAsset == USDBaseAsset
}

// DisplayOrder is an order with its token descriptors resolved for presentation.
// ConditionTokenInfo is nil for wildcard conditions and BaseAssetInfo is nil for USD quotes.
type DisplayOrder struct {
	Order

	InputTokenInfo     *TokenDescriptor `json:"inputTokenInfo"`
	OutputTokenInfo    *TokenDescriptor `json:"outputTokenInfo"`
	ConditionTokenInfo *TokenDescriptor `json:"conditionTokenInfo,omitempty"`
	BaseAssetInfo      *TokenDescriptor `json:"baseAssetInfo,omitempty"`
}

// Pagination mirrors the pagination block of the most recent order listing response.
type Pagination struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// OrdersPage is one page returned by the order listing service.
type OrdersPage struct {
	Data       []Order    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// OrderQuery holds the listing parameters a view can change.
type OrderQuery struct {
	Owner   string      `json:"owner"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	SortBy  string      `json:"sortBy"`
	SortDir string      `json:"sortDir"`
	Status  OrderStatus `json:"status,omitempty"`
	Search  string      `json:"search,omitempty"`
}

// SameFilter reports whether q and other select the same result set, ignoring page.
func (q OrderQuery) SameFilter(other OrderQuery) bool {
	return q.Owner == other.Owner &&
		q.Limit == other.Limit &&
		q.SortBy == other.SortBy &&
		q.SortDir == other.SortDir &&
		q.Status == other.Status &&
		q.Search == other.Search
}

// ActionResult is the order action service response.
type ActionResult struct {
	OK    bool   `json:"ok"`
	TxID  string `json:"txid,omitempty"`
	Error string `json:"error,omitempty"`
}
