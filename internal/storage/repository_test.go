package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Name: "Test", Email: email, PasswordHash: "hash"})
	require.NoError(t, err)
	return u
}

func expenseAt(userID int64, cents int64, category string, utility int, date time.Time) core.Expense {
	e := core.Expense{UserID: userID, Amount: core.Cents(cents), Category: category, Utility: utility, Date: date}
	e.Stamp(date)
	return e
}

func TestSQLiteRepository_Users(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u := seedUser(t, repo, "ana@example.com")
	assert.NotZero(t, u.ID)

	_, err := repo.CreateUser(ctx, core.User{Name: "Other", Email: "ana@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, core.ErrEmailTaken)

	got, err := repo.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetUser(ctx, 999)
	assert.ErrorIs(t, err, core.ErrNotFound)

	updated, err := repo.SetExpenseLimit(ctx, u.ID, core.Cents(150000))
	require.NoError(t, err)
	assert.Equal(t, int64(150000), updated.ExpenseLimit.Cents)

	seedUser(t, repo, "bob@example.com")
	withLimit, err := repo.ListUsersWithLimit(ctx)
	require.NoError(t, err)
	require.Len(t, withLimit, 1)
	assert.Equal(t, u.ID, withLimit[0].ID)
}

func TestSQLiteRepository_Sessions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo, "s@example.com")
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateSession(ctx, core.Session{Token: "live", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.CreateSession(ctx, core.Session{Token: "old", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}))

	s, err := repo.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, u.ID, s.UserID)
	assert.True(t, s.ExpiresAt.Equal(now.Add(time.Hour)))

	n, err := repo.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetSession(ctx, "old")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, repo.DeleteSession(ctx, "live"))
	_, err = repo.GetSession(ctx, "live")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLiteRepository_ExpensesCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo, "e@example.com")

	older := expenseAt(u.ID, 1250, "Food", 2, time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC))
	newer := expenseAt(u.ID, 4000, "Rent", 1, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	older, err := repo.CreateExpense(ctx, older)
	require.NoError(t, err)
	newer, err = repo.CreateExpense(ctx, newer)
	require.NoError(t, err)

	all, err := repo.ListExpenses(ctx, u.ID, core.PeriodFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID, "newest first")

	march, err := repo.ListExpenses(ctx, u.ID, core.PeriodFilter{Month: 3, Year: 2024})
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, "Rent", march[0].Category)

	older.Amount = core.Cents(1500)
	older.Description = "groceries"
	_, err = repo.UpdateExpense(ctx, older)
	require.NoError(t, err)

	got, err := repo.GetExpense(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), got.Amount.Cents)
	assert.Equal(t, "groceries", got.Description)
	assert.Equal(t, 2, got.Month)

	require.NoError(t, repo.DeleteExpense(ctx, older.ID))
	assert.ErrorIs(t, repo.DeleteExpense(ctx, older.ID), core.ErrNotFound)
	_, err = repo.GetExpense(ctx, older.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSQLiteRepository_CategoryTotals(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo, "c@example.com")
	other := seedUser(t, repo, "d@example.com")
	day := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	for _, e := range []core.Expense{
		expenseAt(u.ID, 10000, "Food", 3, day),
		expenseAt(u.ID, 5000, "Food", 2, day),
		expenseAt(u.ID, 70000, "Rent", 1, day),
		expenseAt(u.ID, 999, "Food", 1, day.AddDate(0, 1, 0)),
		expenseAt(other.ID, 12345, "Food", 1, day),
	} {
		_, err := repo.CreateExpense(ctx, e)
		require.NoError(t, err)
	}

	totals, err := repo.CategoryTotals(ctx, u.ID, core.Period{Year: 2024, Month: 2})
	require.NoError(t, err)
	assert.Equal(t, []core.CategorySpend{
		{Category: "Food", PreviousAmount: core.Cents(15000), Utility: 2},
		{Category: "Rent", PreviousAmount: core.Cents(70000), Utility: 1},
	}, totals)

	empty, err := repo.CategoryTotals(ctx, u.ID, core.Period{Year: 2023, Month: 2})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteRepository_Incomes(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := seedUser(t, repo, "i@example.com")
	day := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)

	for _, src := range []string{"Salary", "Freelance", "Salary"} {
		inc := core.Income{UserID: u.ID, Amount: core.Cents(100000), Source: src}
		inc.Stamp(day)
		_, err := repo.CreateIncome(ctx, inc)
		require.NoError(t, err)
	}

	totals, err := repo.SourceTotals(ctx, u.ID, core.Period{Year: 2024, Month: 4})
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryAmount{
		{Name: "Freelance", Amount: core.Cents(100000)},
		{Name: "Salary", Amount: core.Cents(200000)},
	}, totals)

	list, err := repo.ListIncomes(ctx, u.ID, core.PeriodFilter{Year: 2024})
	require.NoError(t, err)
	require.Len(t, list, 3)

	list[0].Source = "Bonus"
	_, err = repo.UpdateIncome(ctx, list[0])
	require.NoError(t, err)
	got, err := repo.GetIncome(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Bonus", got.Source)

	require.NoError(t, repo.DeleteIncome(ctx, got.ID))
	_, err = repo.UpdateIncome(ctx, got)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
