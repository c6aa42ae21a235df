package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/amqp"
	"budgetwise/internal/core"
	"budgetwise/internal/storage/memory"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newExpenseService(t *testing.T) (*ExpenseService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	s := NewExpenseService(memory.New(), pub, zerolog.Nop())
	s.now = func() time.Time { return fixedNow }
	return s, pub
}

func TestExpenseService_Create(t *testing.T) {
	ctx := context.Background()
	s, pub := newExpenseService(t)

	e, err := s.Create(ctx, 1, ExpenseInput{Amount: core.Cents(1250), Category: "Food"})
	require.NoError(t, err)
	assert.NotZero(t, e.ID)
	assert.Equal(t, 1, e.Utility, "utility defaults to 1")
	assert.Equal(t, fixedNow, e.Date)
	assert.Equal(t, 3, e.Month)
	assert.Equal(t, 2024, e.Year)
	assert.Equal(t, []amqp.EventType{amqp.ExpenseCreated}, pub.types())

	_, err = s.Create(ctx, 1, ExpenseInput{Amount: core.Cents(100), Category: "Food", Utility: -1})
	assert.ErrorIs(t, err, core.ErrInvalidUtility)

	_, err = s.Create(ctx, 1, ExpenseInput{Amount: core.Cents(0), Category: "Food"})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = s.Create(ctx, 1, ExpenseInput{Amount: core.Cents(100), Category: "  "})
	assert.ErrorIs(t, err, core.ErrEmptyCategory)
}

func TestExpenseService_PublishFailureDoesNotFailWrite(t *testing.T) {
	s, pub := newExpenseService(t)
	pub.err = errors.New("broker down")

	e, err := s.Create(context.Background(), 1, ExpenseInput{Amount: core.Cents(500), Category: "Fuel"})
	require.NoError(t, err)

	list, err := s.List(context.Background(), 1, core.PeriodFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, e.ID, list[0].ID)
}

func TestExpenseService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s, pub := newExpenseService(t)

	e, err := s.Create(ctx, 1, ExpenseInput{Amount: core.Cents(1000), Category: "Food", Utility: 3})
	require.NoError(t, err)

	newDate := time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)
	amount := core.Cents(2000)
	updated, err := s.Update(ctx, 1, e.ID, ExpensePatch{Amount: &amount, Date: &newDate})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), updated.Amount.Cents)
	assert.Equal(t, 3, updated.Utility, "utility kept when absent")
	assert.Equal(t, 1, updated.Month)

	_, err = s.Update(ctx, 2, e.ID, ExpensePatch{Amount: &amount})
	assert.ErrorIs(t, err, core.ErrNotAuthorized)

	_, err = s.Update(ctx, 1, 999, ExpensePatch{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, 2, e.ID), core.ErrNotAuthorized)
	require.NoError(t, s.Delete(ctx, 1, e.ID))
	assert.ErrorIs(t, s.Delete(ctx, 1, e.ID), core.ErrNotFound)

	assert.Equal(t, []amqp.EventType{amqp.ExpenseCreated, amqp.ExpenseUpdated, amqp.ExpenseDeleted}, pub.types())
}

func TestIncomeService(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := NewIncomeService(memory.New(), pub, zerolog.Nop())
	s.now = func() time.Time { return fixedNow }

	_, err := s.Create(ctx, 1, IncomeInput{Amount: core.Cents(100)})
	assert.ErrorIs(t, err, core.ErrEmptySource)

	i, err := s.Create(ctx, 1, IncomeInput{Amount: core.Cents(300000), Source: "Salary"})
	require.NoError(t, err)

	src := "Bonus"
	updated, err := s.Update(ctx, 1, i.ID, IncomePatch{Source: &src})
	require.NoError(t, err)
	assert.Equal(t, "Bonus", updated.Source)
	assert.Equal(t, int64(300000), updated.Amount.Cents)

	assert.ErrorIs(t, s.Delete(ctx, 5, i.ID), core.ErrNotAuthorized)
	require.NoError(t, s.Delete(ctx, 1, i.ID))
	assert.Equal(t, []amqp.EventType{amqp.IncomeCreated, amqp.IncomeUpdated, amqp.IncomeDeleted}, pub.types())
}
