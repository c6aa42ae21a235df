// Package budget reallocates a monthly budget across spending categories using
// the previous month's category totals and a per-category utility score.
//
// The flow is Planner -> Aggregator (previous month totals) -> Allocate
// (default split or a registered Strategy).
package budget

import (
	"errors"

	"budgetwise/internal/core"
)

// Method names an allocation strategy.
type Method string

const (
	MethodUtility      Method = "utility"
	MethodProportional Method = "proportional"

	DefaultMethod = MethodUtility
)

// Allocation is one category's share of the budget.
type Allocation struct {
	Category            string     `json:"category"`
	AllocatedAmount     core.Money `json:"allocatedAmount"`
	PreviousMonthAmount core.Money `json:"previousMonthAmount"`
	Utility             int        `json:"utility"`
	RecommendationNote  string     `json:"recommendationNote"`
}

var (
	ErrInvalidMethod = errors.New("Invalid optimization method")
	ErrInvalidBudget = errors.New("budget must be positive")
)

// Total sums the allocated amounts.
func Total(allocs []Allocation) core.Money {
	var t core.Money
	for _, a := range allocs {
		t = t.Add(a.AllocatedAmount)
	}
	return t
}
