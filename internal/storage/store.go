package storage

import (
	"context"
	"time"

	"budgetwise/internal/core"
)

// Ports implemented by every storage backend (sqlite, postgres, memory).
// Lookups of missing rows return core.ErrNotFound; a duplicate email returns
// core.ErrEmailTaken.
type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		SetExpenseLimit(ctx context.Context, userID int64, limit core.Money) (core.User, error)
		// ListUsersWithLimit returns users whose expense limit is above zero.
		ListUsersWithLimit(ctx context.Context) ([]core.User, error)
	}

	SessionStore interface {
		CreateSession(ctx context.Context, s core.Session) error
		GetSession(ctx context.Context, token string) (core.Session, error)
		DeleteSession(ctx context.Context, token string) error
		DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, id int64) error
		// ListExpenses returns the user's expenses, newest first.
		ListExpenses(ctx context.Context, userID int64, f core.PeriodFilter) ([]core.Expense, error)
		// CategoryTotals sums the period's expenses per category, ordered by
		// category, with the lowest utility recorded for the category.
		CategoryTotals(ctx context.Context, userID int64, p core.Period) ([]core.CategorySpend, error)
	}

	IncomeStore interface {
		CreateIncome(ctx context.Context, i core.Income) (core.Income, error)
		GetIncome(ctx context.Context, id int64) (core.Income, error)
		UpdateIncome(ctx context.Context, i core.Income) (core.Income, error)
		DeleteIncome(ctx context.Context, id int64) error
		// ListIncomes returns the user's incomes, newest first.
		ListIncomes(ctx context.Context, userID int64, f core.PeriodFilter) ([]core.Income, error)
		// SourceTotals sums the period's incomes per source, ordered by source.
		SourceTotals(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error)
	}

	Store interface {
		UserStore
		SessionStore
		ExpenseStore
		IncomeStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// TimeLayout is the fixed-width UTC layout used for TEXT timestamps so that
// lexical order equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}
