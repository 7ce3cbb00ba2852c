package types

import (
	"strings"
	"time"
)

// UnknownSymbol is returned by discovery for tokens it could not identify.
const UnknownSymbol = "UNKNOWN"

// PlaceholderDecimals is the precision assumed for tokens whose metadata could not be resolved.
const PlaceholderDecimals = 6

// TokenDescriptor is the display metadata of a token.
// Descriptors are shared by pointer between orders and must not be mutated once built.
type TokenDescriptor struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	Decimals    int       `json:"decimals"`
	Image       *string   `json:"image,omitempty"`
	Description *string   `json:"description,omitempty"`
	PriceUSD    *float64  `json:"priceUsd,omitempty"`
	Placeholder bool      `json:"placeholder,omitempty"`
	ResolvedAt  time.Time `json:"resolvedAt"`
}

// NewPlaceholder synthesizes the descriptor used when a token cannot be resolved.
// The symbol is the trailing dot-separated segment of the identifier.
func NewPlaceholder(id string, now time.Time) *TokenDescriptor {
	symbol := id
	if i := strings.LastIndex(id, "."); i >= 0 {
		symbol = id[i+1:]
	}
	if symbol == "" {
		symbol = UnknownSymbol
	}

	return &TokenDescriptor{
		ID:          id,
		Name:        symbol,
		Symbol:      symbol,
		Decimals:    PlaceholderDecimals,
		Placeholder: true,
		ResolvedAt:  now,
	}
}
