package budget

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"budgetwise/internal/core"
)

// Strategy splits total across the previous period's categories.
// Implementations receive a non-empty slice and a positive total and must
// never allocate more than total in sum.
type Strategy interface {
	Allocate(previous []core.CategorySpend, total core.Money) []Allocation
}

// UtilityStrategy funds categories in priority order (lowest utility first),
// each capped at 110% of last month, until the budget runs out.
type UtilityStrategy struct{}

var growthCap = decimal.RequireFromString("1.1")

func (UtilityStrategy) Allocate(previous []core.CategorySpend, total core.Money) []Allocation {
	remaining := total
	var out []Allocation
	for _, c := range byUtility(previous) {
		if remaining.Cents <= 0 {
			break
		}
		limit := core.Money{Cents: c.PreviousAmount.Decimal().Mul(growthCap).Shift(2).IntPart()}
		allocated := limit.Min(remaining)
		if allocated.Cents <= 0 {
			continue
		}
		out = append(out, newAllocation(c, allocated, recommendationNote(allocated, c.PreviousAmount)))
		remaining = remaining.Sub(allocated)
	}
	return out
}

// ProportionalStrategy gives every category last month's amount when the
// budget covers it, otherwise an exact proportional share. Shares are
// truncated to cents and the last category in priority order takes the
// rounding remainder, so the result always sums to the budget.
type ProportionalStrategy struct{}

func (ProportionalStrategy) Allocate(previous []core.CategorySpend, total core.Money) []Allocation {
	sorted := byUtility(previous)

	var totalPrevious core.Money
	for _, c := range sorted {
		totalPrevious = totalPrevious.Add(c.PreviousAmount)
	}

	out := make([]Allocation, 0, len(sorted))
	if totalPrevious.Cents <= total.Cents {
		for _, c := range sorted {
			out = append(out, newAllocation(c, c.PreviousAmount, noteFullyCovered))
		}
		return out
	}

	budgetCents := decimal.NewFromInt(total.Cents)
	denominator := decimal.NewFromInt(totalPrevious.Cents)
	var given core.Money
	for i, c := range sorted {
		var share core.Money
		if i == len(sorted)-1 {
			share = total.Sub(given)
		} else {
			q, _ := decimal.NewFromInt(c.PreviousAmount.Cents).Mul(budgetCents).QuoRem(denominator, 0)
			share = core.Money{Cents: q.IntPart()}
		}
		if share.Cents <= 0 {
			continue
		}
		given = given.Add(share)
		out = append(out, newAllocation(c, share, recommendationNote(share, c.PreviousAmount)))
	}
	return out
}

var (
	strategiesMu sync.RWMutex
	strategies   = map[Method]Strategy{
		MethodUtility:      UtilityStrategy{},
		MethodProportional: ProportionalStrategy{},
	}
)

// GetStrategy returns the strategy registered for m.
func GetStrategy(m Method) (Strategy, error) {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	s, ok := strategies[m]
	if !ok {
		return nil, ErrInvalidMethod
	}
	return s, nil
}

// RegisterStrategy adds or replaces the strategy for m.
func RegisterStrategy(m Method, s Strategy) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	strategies[m] = s
}

// Methods lists the registered method names in sorted order.
func Methods() []Method {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	out := make([]Method, 0, len(strategies))
	for m := range strategies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// byUtility returns a copy sorted by ascending utility; equal utilities keep input order.
func byUtility(in []core.CategorySpend) []core.CategorySpend {
	out := append([]core.CategorySpend(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Utility < out[j].Utility })
	return out
}

func newAllocation(c core.CategorySpend, amount core.Money, note string) Allocation {
	return Allocation{
		Category:            c.Category,
		AllocatedAmount:     amount,
		PreviousMonthAmount: c.PreviousAmount,
		Utility:             c.Utility,
		RecommendationNote:  note,
	}
}
