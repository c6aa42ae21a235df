package budget

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/core"
)

type fakeReader struct {
	rows   map[core.Period][]core.CategorySpend
	err    error
	calls  []core.Period
	userID int64
}

func (f *fakeReader) CategoryTotals(_ context.Context, userID int64, p core.Period) ([]core.CategorySpend, error) {
	f.calls = append(f.calls, p)
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[p], nil
}

func TestPlanner_UsesPreviousMonth(t *testing.T) {
	reader := &fakeReader{rows: map[core.Period][]core.CategorySpend{
		{Year: 2023, Month: 12}: sample(),
	}}
	pl := NewPlanner(reader, zerolog.Nop())

	plan, err := pl.Optimize(context.Background(), 7, core.Period{Year: 2024, Month: 1}, euros(400), "")
	require.NoError(t, err)

	assert.Equal(t, []core.Period{{Year: 2023, Month: 12}}, reader.calls)
	assert.Equal(t, int64(7), reader.userID)
	assert.Equal(t, MethodUtility, plan.Method)
	assert.False(t, plan.UsedDefault)
	require.Len(t, plan.Allocations, 2)
	assert.Equal(t, euros(220), plan.Allocations[0].AllocatedAmount)
}

func TestPlanner_DefaultWhenNoHistory(t *testing.T) {
	pl := NewPlanner(&fakeReader{}, zerolog.Nop())
	plan, err := pl.Optimize(context.Background(), 1, core.Period{Year: 2024, Month: 5}, euros(1000), MethodProportional)
	require.NoError(t, err)
	assert.True(t, plan.UsedDefault)
	assert.Equal(t, core.Period{Year: 2024, Month: 4}, plan.Previous)
	require.Len(t, plan.Allocations, 3)
	assert.Equal(t, euros(1000), Total(plan.Allocations))
}

func TestPlanner_Errors(t *testing.T) {
	reader := &fakeReader{}
	pl := NewPlanner(reader, zerolog.Nop())

	_, err := pl.Optimize(context.Background(), 1, core.Period{Year: 2024, Month: 13}, euros(10), MethodUtility)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	boom := errors.New("db down")
	pl = NewPlanner(&fakeReader{err: boom}, zerolog.Nop())
	_, err = pl.Optimize(context.Background(), 1, core.Period{Year: 2024, Month: 5}, euros(10), MethodUtility)
	assert.ErrorIs(t, err, boom)
}

func TestPlanner_UnknownMethod(t *testing.T) {
	reader := &fakeReader{rows: map[core.Period][]core.CategorySpend{
		{Year: 2024, Month: 4}: sample(),
	}}
	pl := NewPlanner(reader, zerolog.Nop())

	_, err := pl.Optimize(context.Background(), 1, core.Period{Year: 2024, Month: 5}, euros(400), "unsupported")
	assert.Equal(t, ErrInvalidMethod, err)

	plan, err := pl.Optimize(context.Background(), 1, core.Period{Year: 2024, Month: 9}, euros(400), "unsupported")
	require.NoError(t, err, "no spending last month falls back to the default split")
	assert.True(t, plan.UsedDefault)
	assert.Equal(t, DefaultAllocation(euros(400)), plan.Allocations)
}

func TestPlanner_Deterministic(t *testing.T) {
	reader := &fakeReader{rows: map[core.Period][]core.CategorySpend{
		{Year: 2024, Month: 2}: {
			{Category: "A", PreviousAmount: core.Cents(12345), Utility: 3},
			{Category: "B", PreviousAmount: core.Cents(999), Utility: 3},
			{Category: "C", PreviousAmount: core.Cents(50000), Utility: 1},
		},
	}}
	pl := NewPlanner(reader, zerolog.Nop())
	p := core.Period{Year: 2024, Month: 3}

	first, err := pl.Optimize(context.Background(), 1, p, euros(300), MethodProportional)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := pl.Optimize(context.Background(), 1, p, euros(300), MethodProportional)
		require.NoError(t, err)
		assert.Equal(t, first.Allocations, again.Allocations)
	}
	assert.Equal(t, []string{"C", "A", "B"}, []string{
		first.Allocations[0].Category, first.Allocations[1].Category, first.Allocations[2].Category,
	})
}
