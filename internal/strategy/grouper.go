package strategy

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/ordersync/pkg/types"
	"github.com/shopspring/decimal"
)

// DefaultGroupWindow is how far apart in creation time orders of one strategy may be.
const DefaultGroupWindow = 5 * time.Minute

// namespace scopes strategy ids so the same key always yields the same id.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ordersync/strategy"))

// Grouper groups related orders into strategies.
type Grouper struct {
	window time.Duration
}

// NewGrouper creates a Grouper. window <= 0 uses DefaultGroupWindow.
func NewGrouper(window time.Duration) *Grouper {
	if window <= 0 {
		window = DefaultGroupWindow
	}
	return &Grouper{window: window}
}

type groupKey struct {
	owner, input, output, condition, base string
}

func keyOf(o *types.DisplayOrder) groupKey {
	k := groupKey{
		owner:     o.Owner,
		input:     o.InputToken,
		output:    o.OutputToken,
		condition: types.AnyConditionToken,
		base:      types.USDBaseAsset,
	}
	if o.HasCondition() {
		k.condition = o.ConditionToken
	}
	if !o.QuotedInUSD() {
		k.base = o.BaseAsset
	}
	return k
}

// Group partitions orders into strategies. Orders sharing owner, pair,
// condition and base asset belong together when created within the window
// of the group's first order. The result is deterministic for a given input:
// strategies are sorted newest first, orders within a strategy oldest first.
func (g *Grouper) Group(orders []types.DisplayOrder, tokens map[string]*types.TokenDescriptor) []types.Strategy {
	byKey := make(map[groupKey][]types.DisplayOrder)
	var keys []groupKey
	for i := range orders {
		k := keyOf(&orders[i])
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], orders[i])
	}

	var out []types.Strategy
	for _, k := range keys {
		members := byKey[k]
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		})

		start := 0
		for i := 1; i <= len(members); i++ {
			if i < len(members) && members[i].CreatedAt.Sub(members[start].CreatedAt) <= g.window {
				continue
			}
			out = append(out, build(k, members[start:i], tokens))
			start = i
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func build(k groupKey, members []types.DisplayOrder, tokens map[string]*types.TokenDescriptor) types.Strategy {
	first := &members[0]

	s := types.Strategy{
		ID:           strategyID(k, first.CreatedAt),
		Kind:         kindOf(members),
		Owner:        k.owner,
		InputToken:   descriptor(tokens, k.input, first.InputTokenInfo),
		OutputToken:  descriptor(tokens, k.output, first.OutputTokenInfo),
		Orders:       append([]types.DisplayOrder(nil), members...),
		TotalInput:   decimal.Zero,
		MinTarget:    first.TargetPrice,
		MaxTarget:    first.TargetPrice,
		StatusCounts: make(map[types.OrderStatus]int),
		CreatedAt:    first.CreatedAt,
	}
	if k.condition != types.AnyConditionToken {
		s.ConditionToken = descriptor(tokens, k.condition, first.ConditionTokenInfo)
	}
	if k.base != types.USDBaseAsset {
		s.BaseAsset = descriptor(tokens, k.base, first.BaseAssetInfo)
	}

	for i := range members {
		o := &members[i]
		s.TotalInput = s.TotalInput.Add(o.InputAmount)
		if o.TargetPrice.LessThan(s.MinTarget) {
			s.MinTarget = o.TargetPrice
		}
		if o.TargetPrice.GreaterThan(s.MaxTarget) {
			s.MaxTarget = o.TargetPrice
		}
		s.StatusCounts[o.Status]++
	}
	s.Status = overallStatus(s.StatusCounts, len(members))

	return s
}

func strategyID(k groupKey, created time.Time) string {
	name := strings.Join([]string{
		k.owner, k.input, k.output, k.condition, k.base,
		strconv.FormatInt(created.UnixMilli(), 10),
	}, "|")
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

func kindOf(members []types.DisplayOrder) types.StrategyKind {
	if len(members) == 1 {
		return types.StrategySingle
	}
	dir := members[0].Direction
	for i := range members[1:] {
		if members[i+1].Direction != dir {
			return types.StrategyBracket
		}
	}
	return types.StrategyLadder
}

func overallStatus(counts map[types.OrderStatus]int, total int) types.StrategyStatus {
	switch {
	case counts[types.StatusCancelled] == total:
		return types.StrategyCancelled
	case counts[types.StatusFailed] == total:
		return types.StrategyFailed
	case counts[types.StatusFilled]+counts[types.StatusConfirmed] == total:
		return types.StrategyCompleted
	case counts[types.StatusOpen]+counts[types.StatusBroadcasted] > 0:
		return types.StrategyActive
	default:
		return types.StrategyMixed
	}
}

func descriptor(tokens map[string]*types.TokenDescriptor, id string, fallback *types.TokenDescriptor) *types.TokenDescriptor {
	if d, ok := tokens[id]; ok && d != nil {
		return d
	}
	return fallback
}
