package budget

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"budgetwise/internal/core"
)

// SpendingReader returns one row per category with the summed amount of the
// user's expenses in the period and the category's minimum utility.
type SpendingReader interface {
	CategoryTotals(ctx context.Context, userID int64, p core.Period) ([]core.CategorySpend, error)
}

// Aggregator reads a period's per-category spending.
type Aggregator struct {
	reader SpendingReader
}

func NewAggregator(reader SpendingReader) *Aggregator {
	return &Aggregator{reader: reader}
}

// Aggregate returns the user's category totals for p. An empty result means
// no spending was recorded and is not an error.
func (a *Aggregator) Aggregate(ctx context.Context, userID int64, p core.Period) ([]core.CategorySpend, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rows, err := a.reader.CategoryTotals(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", p, err)
	}
	return rows, nil
}

// Plan is the outcome of one optimization request.
type Plan struct {
	Period      core.Period
	Previous    core.Period
	Total       core.Money
	Method      Method
	Allocations []Allocation
	UsedDefault bool
}

// Planner optimizes a month's budget from the month before it.
type Planner struct {
	agg *Aggregator
	log zerolog.Logger
}

func NewPlanner(reader SpendingReader, log zerolog.Logger) *Planner {
	return &Planner{
		agg: NewAggregator(reader),
		log: log.With().Str("component", "budget").Logger(),
	}
}

// Optimize allocates total for period p using the spending of p.Previous().
// An empty method means DefaultMethod.
func (pl *Planner) Optimize(ctx context.Context, userID int64, p core.Period, total core.Money, method Method) (Plan, error) {
	if method == "" {
		method = DefaultMethod
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}

	prev := p.Previous()
	spend, err := pl.agg.Aggregate(ctx, userID, prev)
	if err != nil {
		return Plan{}, err
	}

	allocs, err := Allocate(spend, total, method)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Period:      p,
		Previous:    prev,
		Total:       total,
		Method:      method,
		Allocations: allocs,
		UsedDefault: len(spend) == 0,
	}
	if plan.UsedDefault {
		pl.log.Warn().Int64("user_id", userID).Str("period", prev.String()).
			Msg("No previous month data, using default allocation")
	}
	pl.log.Debug().
		Int64("user_id", userID).
		Str("period", p.String()).
		Str("method", string(method)).
		Int("categories", len(allocs)).
		Str("allocated", Total(allocs).String()).
		Msg("Budget optimized")
	return plan, nil
}
