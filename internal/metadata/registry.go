package metadata

import (
	"context"
	"fmt"

	"github.com/mselser95/ordersync/pkg/types"
)

// Registry is a synchronous in-memory token table consulted before discovery.
type Registry interface {
	Lookup(id string) (*types.TokenDescriptor, bool)
}

// Lister returns the full token list known to the metadata service.
type Lister interface {
	ListTokens(ctx context.Context) ([]types.TokenDescriptor, error)
}

// StaticRegistry is an immutable Registry built from a descriptor list.
type StaticRegistry struct {
	tokens map[string]*types.TokenDescriptor
}

// NewStaticRegistry indexes descriptors by ID. Later duplicates are ignored.
func NewStaticRegistry(descriptors []types.TokenDescriptor) *StaticRegistry {
	tokens := make(map[string]*types.TokenDescriptor, len(descriptors))
	for i := range descriptors {
		d := descriptors[i]
		if d.ID == "" {
			continue
		}
		if _, exists := tokens[d.ID]; exists {
			continue
		}
		d.Placeholder = false
		tokens[d.ID] = &d
	}

	return &StaticRegistry{tokens: tokens}
}

// LoadRegistry fetches the token list and builds a StaticRegistry from it.
func LoadRegistry(ctx context.Context, lister Lister) (*StaticRegistry, error) {
	descriptors, err := lister.ListTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}

	reg := NewStaticRegistry(descriptors)
	RegistrySize.Set(float64(reg.Len()))

	return reg, nil
}

// Lookup returns the descriptor registered under id.
func (r *StaticRegistry) Lookup(id string) (*types.TokenDescriptor, bool) {
	d, ok := r.tokens[id]
	return d, ok
}

// Len returns the number of registered tokens.
func (r *StaticRegistry) Len() int {
	return len(r.tokens)
}
