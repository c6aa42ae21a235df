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

type IncomeInput struct {
	Amount      core.Money
	Source      string
	Description string
	Date        time.Time
}

type IncomePatch struct {
	Amount      *core.Money
	Source      *string
	Description *string
	Date        *time.Time
}

type IncomeService struct {
	store  storage.IncomeStore
	events EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

func NewIncomeService(store storage.IncomeStore, events EventPublisher, log zerolog.Logger) *IncomeService {
	return &IncomeService{
		store:  store,
		events: orNop(events),
		log:    applog.WithComponent(log, applog.ComponentIncome),
		now:    time.Now,
	}
}

func (s *IncomeService) Create(ctx context.Context, userID int64, in IncomeInput) (core.Income, error) {
	i := core.Income{
		UserID:      userID,
		Amount:      in.Amount,
		Source:      in.Source,
		Description: in.Description,
		Date:        in.Date,
	}
	i.Stamp(s.now())
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}

	saved, err := s.store.CreateIncome(ctx, i)
	if err != nil {
		return core.Income{}, fmt.Errorf("save income: %w", err)
	}
	s.log.Info().Int64(applog.FieldUserID, userID).Int64(applog.FieldIncomeID, saved.ID).Msg("Income created")
	notify(ctx, s.events, s.log, amqp.NewIncomeEvent(amqp.IncomeCreated, saved))
	return saved, nil
}

func (s *IncomeService) List(ctx context.Context, userID int64, f core.PeriodFilter) ([]core.Income, error) {
	out, err := s.store.ListIncomes(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	return out, nil
}

func (s *IncomeService) Update(ctx context.Context, userID, id int64, p IncomePatch) (core.Income, error) {
	i, err := s.owned(ctx, userID, id)
	if err != nil {
		return core.Income{}, err
	}
	if p.Amount != nil {
		i.Amount = *p.Amount
	}
	if p.Source != nil {
		i.Source = *p.Source
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.Date != nil && !p.Date.IsZero() {
		i.Date = *p.Date
	}
	i.Stamp(s.now())
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}

	updated, err := s.store.UpdateIncome(ctx, i)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	notify(ctx, s.events, s.log, amqp.NewIncomeEvent(amqp.IncomeUpdated, updated))
	return updated, nil
}

func (s *IncomeService) Delete(ctx context.Context, userID, id int64) error {
	i, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteIncome(ctx, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	s.log.Info().Int64(applog.FieldUserID, userID).Int64(applog.FieldIncomeID, id).Msg("Income deleted")
	notify(ctx, s.events, s.log, amqp.NewIncomeEvent(amqp.IncomeDeleted, i))
	return nil
}

func (s *IncomeService) owned(ctx context.Context, userID, id int64) (core.Income, error) {
	i, err := s.store.GetIncome(ctx, id)
	if err != nil {
		return core.Income{}, err
	}
	if i.UserID != userID {
		return core.Income{}, core.ErrNotAuthorized
	}
	return i, nil
}
