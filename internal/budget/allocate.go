package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"budgetwise/internal/core"
)

const (
	noteFullyCovered = "Full amount allocated within budget"
	noteNoHistory    = "New allocation, no spending last month"
)

// Allocate splits total across previous. With no previous spending the fixed
// default split is returned and method is not looked at.
func Allocate(previous []core.CategorySpend, total core.Money, method Method) ([]Allocation, error) {
	if total.Cents <= 0 {
		return nil, ErrInvalidBudget
	}
	if len(previous) == 0 {
		return DefaultAllocation(total), nil
	}
	strategy, err := GetStrategy(method)
	if err != nil {
		return nil, err
	}
	return strategy.Allocate(previous, total), nil
}

// DefaultAllocation is the 50/20/30 essentials/savings/discretionary split.
// Discretionary takes what is left so the three buckets sum to total.
func DefaultAllocation(total core.Money) []Allocation {
	essentials := percentOf(total, 50)
	savings := percentOf(total, 20)
	discretionary := total.Sub(essentials).Sub(savings)
	return []Allocation{
		{Category: "Essentials", AllocatedAmount: essentials, RecommendationNote: "50% allocated to essentials"},
		{Category: "Savings", AllocatedAmount: savings, RecommendationNote: "20% allocated to savings"},
		{Category: "Discretionary", AllocatedAmount: discretionary, RecommendationNote: "30% allocated to discretionary spending"},
	}
}

func percentOf(m core.Money, pct int64) core.Money {
	return core.Money{Cents: m.Cents * pct / 100}
}

func recommendationNote(allocated, previous core.Money) string {
	if previous.Cents == 0 {
		return noteNoHistory
	}
	change := decimal.NewFromInt(allocated.Cents - previous.Cents).
		Div(decimal.NewFromInt(previous.Cents)).
		Mul(decimal.NewFromInt(100))
	if allocated.Cents >= previous.Cents {
		return fmt.Sprintf("Allocated same or increased by %s%%", change.StringFixed(1))
	}
	return fmt.Sprintf("Reduced by %s%% from last month", change.Abs().StringFixed(1))
}
