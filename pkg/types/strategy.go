package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransitionEvent reports one observed status change of an order between two fetches.
type TransitionEvent struct {
	ID         string       `json:"id"`
	Order      DisplayOrder `json:"order"`
	OldStatus  OrderStatus  `json:"oldStatus"`
	NewStatus  OrderStatus  `json:"newStatus"`
	DetectedAt time.Time    `json:"detectedAt"`
}

// StrategyKind classifies how the orders of a strategy relate to each other.
type StrategyKind string

const (
	StrategySingle  StrategyKind = "single"
	StrategyLadder  StrategyKind = "ladder"
	StrategyBracket StrategyKind = "bracket"
)

// StrategyStatus summarizes the statuses of a strategy's orders.
type StrategyStatus string

const (
	StrategyActive    StrategyStatus = "active"
	StrategyCompleted StrategyStatus = "completed"
	StrategyCancelled StrategyStatus = "cancelled"
	StrategyFailed    StrategyStatus = "failed"
	StrategyMixed     StrategyStatus = "mixed"
)

// Strategy groups display orders that share a pair, condition and base asset and
// were created together.
type Strategy struct {
	ID             string              `json:"id"`
	Kind           StrategyKind        `json:"kind"`
	Owner          string              `json:"owner"`
	InputToken     *TokenDescriptor    `json:"inputToken"`
	OutputToken    *TokenDescriptor    `json:"outputToken"`
	ConditionToken *TokenDescriptor    `json:"conditionToken,omitempty"`
	BaseAsset      *TokenDescriptor    `json:"baseAsset,omitempty"`
	Orders         []DisplayOrder      `json:"orders"`
	TotalInput     decimal.Decimal     `json:"totalInput"`
	MinTarget      decimal.Decimal     `json:"minTarget"`
	MaxTarget      decimal.Decimal     `json:"maxTarget"`
	StatusCounts   map[OrderStatus]int `json:"statusCounts"`
	Status         StrategyStatus      `json:"status"`
	CreatedAt      time.Time           `json:"createdAt"`
}
