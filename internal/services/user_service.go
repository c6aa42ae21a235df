package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"budgetwise/internal/auth"
	"budgetwise/internal/core"
	applog "budgetwise/internal/log"
	"budgetwise/internal/storage"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// UserService handles accounts, login sessions and the monthly expense limit.
type UserService struct {
	store    storage.UserStore
	sessions *auth.Sessions
	hasher   auth.Hasher
	log      zerolog.Logger
}

func NewUserService(store storage.UserStore, sessions *auth.Sessions, hasher auth.Hasher, log zerolog.Logger) *UserService {
	return &UserService{
		store:    store,
		sessions: sessions,
		hasher:   hasher,
		log:      applog.WithComponent(log, applog.ComponentAuth),
	}
}

// Register creates the account and returns a session token for it.
func (s *UserService) Register(ctx context.Context, name, email, password string) (string, error) {
	email = core.NormalizeEmail(email)
	if err := core.ValidateRegistration(name, email, password); err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}
	u, err := s.store.CreateUser(ctx, core.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return "", err
	}
	s.log.Info().Int64(applog.FieldUserID, u.ID).Msg("User registered")
	return s.issue(ctx, u.ID)
}

func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.store.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if errors.Is(err, core.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if !s.hasher.Matches(u.PasswordHash, password) {
		s.log.Warn().Int64(applog.FieldUserID, u.ID).Msg("Failed login attempt")
		return "", ErrInvalidCredentials
	}
	return s.issue(ctx, u.ID)
}

func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

func (s *UserService) SetExpenseLimit(ctx context.Context, userID int64, limit core.Money) (core.Money, error) {
	if limit.Cents < 0 {
		return core.Money{}, core.ErrInvalidLimit
	}
	u, err := s.store.SetExpenseLimit(ctx, userID, limit)
	if err != nil {
		return core.Money{}, fmt.Errorf("set expense limit: %w", err)
	}
	s.log.Info().Int64(applog.FieldUserID, userID).Str(applog.FieldAmount, limit.String()).Msg("Expense limit updated")
	return u.ExpenseLimit, nil
}

func (s *UserService) ExpenseLimit(ctx context.Context, userID int64) (core.Money, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return core.Money{}, fmt.Errorf("get expense limit: %w", err)
	}
	return u.ExpenseLimit, nil
}

func (s *UserService) issue(ctx context.Context, userID int64) (string, error) {
	sess, err := s.sessions.Issue(ctx, userID)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}
