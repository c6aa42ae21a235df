// Package memory is a process-local storage.Store used by tests and the
// "memory" data backend. Data does not survive a restart.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"budgetwise/internal/core"
	"budgetwise/internal/storage"
)

type Store struct {
	mu       sync.RWMutex
	nextID   int64
	users    map[int64]core.User
	sessions map[string]core.Session
	expenses map[int64]core.Expense
	incomes  map[int64]core.Income
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    map[int64]core.User{},
		sessions: map[string]core.Session{},
		expenses: map[int64]core.Expense{},
		incomes:  map[int64]core.Income{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return core.User{}, core.ErrEmailTaken
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.ID = s.id()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) SetExpenseLimit(_ context.Context, userID int64, limit core.Money) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	u.ExpenseLimit = limit
	s.users[userID] = u
	return u, nil
}

func (s *Store) ListUsersWithLimit(_ context.Context) ([]core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.User
	for _, u := range s.users {
		if u.ExpenseLimit.Cents > 0 {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b core.User) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) CreateSession(_ context.Context, sess core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[sess.UserID]; !ok {
		return core.ErrNotFound
	}
	s.sessions[sess.Token] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, token string) (core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return core.Session{}, core.ErrNotFound
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; !ok {
		return core.Expense{}, core.ErrNotFound
	}
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, userID int64, f core.PeriodFilter) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.UserID == userID && f.Matches(e.Month, e.Year) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b core.Expense) int {
		return newestFirst(a.Date, b.Date, a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) CategoryTotals(_ context.Context, userID int64, p core.Period) ([]core.CategorySpend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byCat := map[string]core.CategorySpend{}
	for _, e := range s.expenses {
		if e.UserID != userID || e.Year != p.Year || e.Month != p.Month {
			continue
		}
		c, ok := byCat[e.Category]
		if !ok {
			c = core.CategorySpend{Category: e.Category, Utility: e.Utility}
		}
		c.PreviousAmount = c.PreviousAmount.Add(e.Amount)
		c.Utility = min(c.Utility, e.Utility)
		byCat[e.Category] = c
	}
	out := make([]core.CategorySpend, 0, len(byCat))
	for _, c := range byCat {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b core.CategorySpend) int { return cmp.Compare(a.Category, b.Category) })
	return out, nil
}

func (s *Store) CreateIncome(_ context.Context, i core.Income) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = s.id()
	s.incomes[i.ID] = i
	return i, nil
}

func (s *Store) GetIncome(_ context.Context, id int64) (core.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.incomes[id]
	if !ok {
		return core.Income{}, core.ErrNotFound
	}
	return i, nil
}

func (s *Store) UpdateIncome(_ context.Context, i core.Income) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incomes[i.ID]; !ok {
		return core.Income{}, core.ErrNotFound
	}
	s.incomes[i.ID] = i
	return i, nil
}

func (s *Store) DeleteIncome(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incomes[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.incomes, id)
	return nil
}

func (s *Store) ListIncomes(_ context.Context, userID int64, f core.PeriodFilter) ([]core.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Income
	for _, i := range s.incomes {
		if i.UserID == userID && f.Matches(i.Month, i.Year) {
			out = append(out, i)
		}
	}
	slices.SortFunc(out, func(a, b core.Income) int {
		return newestFirst(a.Date, b.Date, a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) SourceTotals(_ context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bySource := map[string]core.Money{}
	for _, i := range s.incomes {
		if i.UserID == userID && i.Year == p.Year && i.Month == p.Month {
			bySource[i.Source] = bySource[i.Source].Add(i.Amount)
		}
	}
	out := make([]core.CategoryAmount, 0, len(bySource))
	for name, amount := range bySource {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func newestFirst(a, b time.Time, aID, bID int64) int {
	if c := b.Compare(a); c != 0 {
		return c
	}
	return cmp.Compare(bID, aID)
}
