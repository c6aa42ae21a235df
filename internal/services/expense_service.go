package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"budgetwise/internal/amqp"
	"budgetwise/internal/core"
	applog "budgetwise/internal/log"
	"budgetwise/internal/storage"
)

// ExpenseInput is the payload for a new expense. A zero Date means now and a
// zero Utility means the default priority.
type ExpenseInput struct {
	Amount      core.Money
	Category    string
	Description string
	Utility     int
	Date        time.Time
}

// ExpensePatch replaces only the fields that are set.
type ExpensePatch struct {
	Amount      *core.Money
	Category    *string
	Description *string
	Utility     *int
	Date        *time.Time
}

// ExpenseService owns expense writes: it stamps, validates, stores and then
// publishes a ledger event.
type ExpenseService struct {
	store  storage.ExpenseStore
	events EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

func NewExpenseService(store storage.ExpenseStore, events EventPublisher, log zerolog.Logger) *ExpenseService {
	return &ExpenseService{
		store:  store,
		events: orNop(events),
		log:    applog.WithComponent(log, applog.ComponentExpense),
		now:    time.Now,
	}
}

func (s *ExpenseService) Create(ctx context.Context, userID int64, in ExpenseInput) (core.Expense, error) {
	e := core.Expense{
		UserID:      userID,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Utility:     in.Utility,
		Date:        in.Date,
	}
	e.Stamp(s.now())
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.log.Info().Int64(applog.FieldUserID, userID).Int64(applog.FieldExpenseID, saved.ID).
		Str(applog.FieldAmount, saved.Amount.String()).Msg("Expense created")

	notify(ctx, s.events, s.log, amqp.NewExpenseEvent(amqp.ExpenseCreated, saved))
	return saved, nil
}

func (s *ExpenseService) List(ctx context.Context, userID int64, f core.PeriodFilter) ([]core.Expense, error) {
	out, err := s.store.ListExpenses(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (s *ExpenseService) Update(ctx context.Context, userID, id int64, p ExpensePatch) (core.Expense, error) {
	e, err := s.owned(ctx, userID, id)
	if err != nil {
		return core.Expense{}, err
	}

	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Utility != nil {
		e.Utility = *p.Utility
	}
	if p.Date != nil && !p.Date.IsZero() {
		e.Date = *p.Date
	}
	e.Stamp(s.now())
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	notify(ctx, s.events, s.log, amqp.NewExpenseEvent(amqp.ExpenseUpdated, updated))
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	e, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.log.Info().Int64(applog.FieldUserID, userID).Int64(applog.FieldExpenseID, id).Msg("Expense deleted")
	notify(ctx, s.events, s.log, amqp.NewExpenseEvent(amqp.ExpenseDeleted, e))
	return nil
}

// owned loads an expense and checks it belongs to userID.
func (s *ExpenseService) owned(ctx context.Context, userID, id int64) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if e.UserID != userID {
		s.log.Warn().Int64(applog.FieldUserID, userID).Int64(applog.FieldExpenseID, id).
			Msg("Access to another user's expense denied")
		return core.Expense{}, core.ErrNotAuthorized
	}
	return e, nil
}
