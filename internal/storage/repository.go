package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"budgetwise/internal/core"
)

// SQLiteRepository implements Store on a single SQLite file.
type SQLiteRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, log zerolog.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{
		db:  db,
		log: log.With().Str("component", "storage").Str("backend", "sqlite").Logger(),
	}
	repo.log.Info().Str("path", dbPath).Uint("schema_version", version).Msg("SQLite repository ready")
	return repo, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, expense_limit_cents, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.ExpenseLimit.Cents, FormatTime(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

const userColumns = `id, name, email, password_hash, expense_limit_cents, created_at`

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) SetExpenseLimit(ctx context.Context, userID int64, limit core.Money) (core.User, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET expense_limit_cents = ? WHERE id = ?`, limit.Cents, userID)
	if err != nil {
		return core.User{}, fmt.Errorf("set expense limit: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.User{}, fmt.Errorf("set expense limit: %w", err)
	}
	return r.GetUser(ctx, userID)
}

func (r *SQLiteRepository) ListUsersWithLimit(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE expense_limit_cents > 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users with limit: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users with limit: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Sessions

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.Token, s.UserID, FormatTime(s.CreatedAt), FormatTime(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (core.Session, error) {
	var (
		s                  core.Session
		created, expiresAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&s.Token, &s.UserID, &created, &expiresAt)
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", notFound(err))
	}
	if s.CreatedAt, err = ParseTime(created); err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	if s.ExpiresAt, err = ParseTime(expiresAt); err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, FormatTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// Expenses

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount_cents, category, description, utility, date, month, year)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, e.Category, e.Description, e.Utility, FormatTime(e.Date), e.Month, e.Year)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	r.log.Debug().Int64("expense_id", e.ID).Int64("user_id", e.UserID).
		Int64("amount_cents", e.Amount.Cents).Str("category", e.Category).Msg("Expense saved")
	return e, nil
}

const expenseColumns = `id, user_id, amount_cents, category, description, utility, date, month, year`

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET amount_cents = ?, category = ?, description = ?, utility = ?, date = ?, month = ?, year = ?
		 WHERE id = ?`,
		e.Amount.Cents, e.Category, e.Description, e.Utility, FormatTime(e.Date), e.Month, e.Year, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if err := expectOneRow(res); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, f core.PeriodFilter) ([]core.Expense, error) {
	where, args := periodWhere(userID, f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE `+where+` ORDER BY date DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CategoryTotals(ctx context.Context, userID int64, p core.Period) ([]core.CategorySpend, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents), MIN(utility)
		 FROM expenses WHERE user_id = ? AND year = ? AND month = ?
		 GROUP BY category ORDER BY category`,
		userID, p.Year, p.Month)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var out []core.CategorySpend
	for rows.Next() {
		var c core.CategorySpend
		if err := rows.Scan(&c.Category, &c.PreviousAmount.Cents, &c.Utility); err != nil {
			return nil, fmt.Errorf("category totals: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Incomes

func (r *SQLiteRepository) CreateIncome(ctx context.Context, i core.Income) (core.Income, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (user_id, amount_cents, source, description, date, month, year)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		i.UserID, i.Amount.Cents, i.Source, i.Description, FormatTime(i.Date), i.Month, i.Year)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	if i.ID, err = res.LastInsertId(); err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	return i, nil
}

const incomeColumns = `id, user_id, amount_cents, source, description, date, month, year`

func (r *SQLiteRepository) GetIncome(ctx context.Context, id int64) (core.Income, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+incomeColumns+` FROM incomes WHERE id = ?`, id)
	i, err := scanIncome(row)
	if err != nil {
		return core.Income{}, fmt.Errorf("get income %d: %w", id, err)
	}
	return i, nil
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, i core.Income) (core.Income, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE incomes SET amount_cents = ?, source = ?, description = ?, date = ?, month = ?, year = ? WHERE id = ?`,
		i.Amount.Cents, i.Source, i.Description, FormatTime(i.Date), i.Month, i.Year, i.ID)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income %d: %w", i.ID, err)
	}
	if err := expectOneRow(res); err != nil {
		return core.Income{}, fmt.Errorf("update income %d: %w", i.ID, err)
	}
	return i, nil
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete income %d: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return fmt.Errorf("delete income %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ListIncomes(ctx context.Context, userID int64, f core.PeriodFilter) ([]core.Income, error) {
	where, args := periodWhere(userID, f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE `+where+` ORDER BY date DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		i, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("list incomes: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SourceTotals(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source, SUM(amount_cents) FROM incomes
		 WHERE user_id = ? AND year = ? AND month = ?
		 GROUP BY source ORDER BY source`,
		userID, p.Year, p.Month)
	if err != nil {
		return nil, fmt.Errorf("source totals: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var c core.CategoryAmount
		if err := rows.Scan(&c.Name, &c.Amount.Cents); err != nil {
			return nil, fmt.Errorf("source totals: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// helpers

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (core.User, error) {
	var (
		u       core.User
		created string
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.ExpenseLimit.Cents, &created); err != nil {
		return core.User{}, notFound(err)
	}
	t, err := ParseTime(created)
	if err != nil {
		return core.User{}, err
	}
	u.CreatedAt = t
	return u, nil
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &e.Description, &e.Utility, &date, &e.Month, &e.Year); err != nil {
		return core.Expense{}, notFound(err)
	}
	t, err := ParseTime(date)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date = t
	return e, nil
}

func scanIncome(s scanner) (core.Income, error) {
	var (
		i    core.Income
		date string
	)
	if err := s.Scan(&i.ID, &i.UserID, &i.Amount.Cents, &i.Source, &i.Description, &date, &i.Month, &i.Year); err != nil {
		return core.Income{}, notFound(err)
	}
	t, err := ParseTime(date)
	if err != nil {
		return core.Income{}, err
	}
	i.Date = t
	return i, nil
}

func periodWhere(userID int64, f core.PeriodFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}
	if f.Month != 0 {
		clauses = append(clauses, "month = ?")
		args = append(args, f.Month)
	}
	if f.Year != 0 {
		clauses = append(clauses, "year = ?")
		args = append(args, f.Year)
	}
	return strings.Join(clauses, " AND "), args
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
