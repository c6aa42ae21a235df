// Package postgres implements storage.Store on PostgreSQL through a pgx
// connection pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"budgetwise/internal/core"
	"budgetwise/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

var _ storage.Store = (*Store)(nil)

// New migrates the database at databaseURL and opens a pool on it.
func New(ctx context.Context, databaseURL string, log zerolog.Logger) (*Store, error) {
	version, err := RunMigrations(databaseURL)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{
		pool: pool,
		log:  log.With().Str("component", "storage").Str("backend", "postgres").Logger(),
	}
	s.log.Info().Uint("schema_version", version).Msg("Postgres store ready")
	return s, nil
}

// RunMigrations applies the embedded schema. The golang-migrate pgx driver
// registers the pgx5 scheme, so postgres:// URLs are rewritten for it.
func RunMigrations(databaseURL string) (uint, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrationURL(databaseURL))
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("run migrations: %w", err)
	}
	version, _, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func migrationURL(databaseURL string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if rest, ok := strings.CutPrefix(databaseURL, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, expense_limit_cents, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		u.Name, u.Email, u.PasswordHash, u.ExpenseLimit.Cents, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

const userColumns = `id, name, email, password_hash, expense_limit_cents, created_at`

func (s *Store) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *Store) SetExpenseLimit(ctx context.Context, userID int64, limit core.Money) (core.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET expense_limit_cents = $1 WHERE id = $2 RETURNING `+userColumns, limit.Cents, userID))
	if err != nil {
		return core.User{}, fmt.Errorf("set expense limit: %w", err)
	}
	return u, nil
}

func (s *Store) ListUsersWithLimit(ctx context.Context) ([]core.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE expense_limit_cents > 0 ORDER BY id`)
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

func (s *Store) CreateSession(ctx context.Context, sess core.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		sess.Token, sess.UserID, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (core.Session, error) {
	var sess core.Session
	err := s.pool.QueryRow(ctx,
		`SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = $1`, token).
		Scan(&sess.Token, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", notFound(err))
	}
	sess.CreatedAt, sess.ExpiresAt = sess.CreatedAt.UTC(), sess.ExpiresAt.UTC()
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

const expenseColumns = `id, user_id, amount_cents, category, description, utility, date, month, year`

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO expenses (user_id, amount_cents, category, description, utility, date, month, year)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		e.UserID, e.Amount.Cents, e.Category, e.Description, e.Utility, e.Date, e.Month, e.Year).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}

func (s *Store) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(s.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE expenses SET amount_cents = $1, category = $2, description = $3, utility = $4, date = $5, month = $6, year = $7
		 WHERE id = $8`,
		e.Amount.Cents, e.Category, e.Description, e.Utility, e.Date, e.Month, e.Year, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, core.ErrNotFound)
	}
	return e, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete expense %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID int64, f core.PeriodFilter) ([]core.Expense, error) {
	where, args := periodWhere(userID, f)
	rows, err := s.pool.Query(ctx,
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

// Totals are ordered by byte value, as in the sqlite and memory stores,
// whatever the database locale.
const (
	categoryTotalsQuery = `SELECT category, SUM(amount_cents)::BIGINT, MIN(utility)
		 FROM expenses WHERE user_id = $1 AND year = $2 AND month = $3
		 GROUP BY category ORDER BY category COLLATE "C"`
	sourceTotalsQuery = `SELECT source, SUM(amount_cents)::BIGINT FROM incomes
		 WHERE user_id = $1 AND year = $2 AND month = $3
		 GROUP BY source ORDER BY source COLLATE "C"`
)

func (s *Store) CategoryTotals(ctx context.Context, userID int64, p core.Period) ([]core.CategorySpend, error) {
	rows, err := s.pool.Query(ctx, categoryTotalsQuery, userID, p.Year, p.Month)
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

const incomeColumns = `id, user_id, amount_cents, source, description, date, month, year`

func (s *Store) CreateIncome(ctx context.Context, i core.Income) (core.Income, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO incomes (user_id, amount_cents, source, description, date, month, year)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		i.UserID, i.Amount.Cents, i.Source, i.Description, i.Date, i.Month, i.Year).Scan(&i.ID)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	return i, nil
}

func (s *Store) GetIncome(ctx context.Context, id int64) (core.Income, error) {
	i, err := scanIncome(s.pool.QueryRow(ctx, `SELECT `+incomeColumns+` FROM incomes WHERE id = $1`, id))
	if err != nil {
		return core.Income{}, fmt.Errorf("get income %d: %w", id, err)
	}
	return i, nil
}

func (s *Store) UpdateIncome(ctx context.Context, i core.Income) (core.Income, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE incomes SET amount_cents = $1, source = $2, description = $3, date = $4, month = $5, year = $6 WHERE id = $7`,
		i.Amount.Cents, i.Source, i.Description, i.Date, i.Month, i.Year, i.ID)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income %d: %w", i.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return core.Income{}, fmt.Errorf("update income %d: %w", i.ID, core.ErrNotFound)
	}
	return i, nil
}

func (s *Store) DeleteIncome(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM incomes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete income %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete income %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) ListIncomes(ctx context.Context, userID int64, f core.PeriodFilter) ([]core.Income, error) {
	where, args := periodWhere(userID, f)
	rows, err := s.pool.Query(ctx,
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

func (s *Store) SourceTotals(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error) {
	rows, err := s.pool.Query(ctx, sourceTotalsQuery, userID, p.Year, p.Month)
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

func scanUser(row pgx.Row) (core.User, error) {
	var u core.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.ExpenseLimit.Cents, &u.CreatedAt); err != nil {
		return core.User{}, notFound(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func scanExpense(row pgx.Row) (core.Expense, error) {
	var e core.Expense
	if err := row.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &e.Description, &e.Utility, &e.Date, &e.Month, &e.Year); err != nil {
		return core.Expense{}, notFound(err)
	}
	e.Date = e.Date.UTC()
	return e, nil
}

func scanIncome(row pgx.Row) (core.Income, error) {
	var i core.Income
	if err := row.Scan(&i.ID, &i.UserID, &i.Amount.Cents, &i.Source, &i.Description, &i.Date, &i.Month, &i.Year); err != nil {
		return core.Income{}, notFound(err)
	}
	i.Date = i.Date.UTC()
	return i, nil
}

func periodWhere(userID int64, f core.PeriodFilter) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{userID}
	if f.Month != 0 {
		args = append(args, f.Month)
		clauses = append(clauses, fmt.Sprintf("month = $%d", len(args)))
	}
	if f.Year != 0 {
		args = append(args, f.Year)
		clauses = append(clauses, fmt.Sprintf("year = $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}
