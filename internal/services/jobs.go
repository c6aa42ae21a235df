package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"budgetwise/internal/amqp"
	"budgetwise/internal/core"
	applog "budgetwise/internal/log"
	"budgetwise/internal/storage"
)

// LimitMonitor publishes a limit.exceeded event the first time in a month a
// user's spending goes above their expense limit.
type LimitMonitor struct {
	users    storage.UserStore
	expenses storage.ExpenseStore
	events   EventPublisher
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	notified map[int64]core.Period
}

func NewLimitMonitor(users storage.UserStore, expenses storage.ExpenseStore, events EventPublisher, log zerolog.Logger) *LimitMonitor {
	return &LimitMonitor{
		users:    users,
		expenses: expenses,
		events:   orNop(events),
		log:      log.With().Str(applog.FieldJob, "limit_monitor").Logger(),
		now:      time.Now,
		notified: map[int64]core.Period{},
	}
}

func (m *LimitMonitor) Name() string { return "limit_monitor" }

func (m *LimitMonitor) Run(ctx context.Context) error {
	users, err := m.users.ListUsersWithLimit(ctx)
	if err != nil {
		return fmt.Errorf("list users with limit: %w", err)
	}
	period := core.PeriodOf(m.now().UTC())

	m.mu.Lock()
	defer m.mu.Unlock()

	exceeded := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if m.notified[u.ID] == period {
			continue
		}
		totals, err := m.expenses.CategoryTotals(ctx, u.ID, period)
		if err != nil {
			m.log.Error().Err(err).Int64(applog.FieldUserID, u.ID).Msg("Failed to read spending")
			continue
		}
		var spent core.Money
		for _, c := range totals {
			spent = spent.Add(c.PreviousAmount)
		}
		if !core.LimitExceeded(spent, u.ExpenseLimit) {
			continue
		}
		if err := m.events.Publish(ctx, amqp.NewLimitExceededEvent(u.ID, period, spent, u.ExpenseLimit)); err != nil {
			m.log.Error().Err(err).Int64(applog.FieldUserID, u.ID).Msg("Failed to publish limit event")
			continue
		}
		m.notified[u.ID] = period
		exceeded++
	}

	m.log.Info().Int("users_checked", len(users)).Int("notified", exceeded).
		Str(applog.FieldPeriod, period.String()).Msg("Expense limits checked")
	return nil
}

// SessionCleanup deletes sessions past their expiry.
type SessionCleanup struct {
	store storage.SessionStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewSessionCleanup(store storage.SessionStore, log zerolog.Logger) *SessionCleanup {
	return &SessionCleanup{
		store: store,
		log:   log.With().Str(applog.FieldJob, "session_cleanup").Logger(),
		now:   time.Now,
	}
}

func (c *SessionCleanup) Name() string { return "session_cleanup" }

func (c *SessionCleanup) Run(ctx context.Context) error {
	n, err := c.store.DeleteExpiredSessions(ctx, c.now().UTC())
	if err != nil {
		return err
	}
	c.log.Info().Int64("removed", n).Msg("Expired sessions removed")
	return nil
}
