package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/auth"
	"budgetwise/internal/cache"
	"budgetwise/internal/core"
	"budgetwise/internal/storage/memory"
)

func newUserService(t *testing.T) (*UserService, *auth.Sessions) {
	t.Helper()
	store := memory.New()
	sessions := auth.NewSessions(store, cache.NewLRU[string, core.Session](8, time.Minute), time.Hour, zerolog.Nop())
	return NewUserService(store, sessions, auth.NewHasher(4), zerolog.Nop()), sessions
}

func TestUserService_RegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	s, sessions := newUserService(t)

	token, err := s.Register(ctx, "Ana", " Ana@Example.com ", "secret1")
	require.NoError(t, err)
	sess, err := sessions.Verify(ctx, token)
	require.NoError(t, err)

	_, err = s.Register(ctx, "Ana again", "ana@example.com", "secret1")
	assert.ErrorIs(t, err, core.ErrEmailTaken)

	_, err = s.Login(ctx, "ana@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token2, err := s.Login(ctx, "ANA@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)

	require.NoError(t, s.Logout(ctx, token))
	_, err = sessions.Verify(ctx, token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	sess2, err := sessions.Verify(ctx, token2)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, sess2.UserID)
}

func TestUserService_RegisterValidation(t *testing.T) {
	s, _ := newUserService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "", "a@example.com", "secret1")
	assert.ErrorIs(t, err, core.ErrEmptyName)
	_, err = s.Register(ctx, "A", "not-an-email", "secret1")
	assert.ErrorIs(t, err, core.ErrInvalidEmail)
	_, err = s.Register(ctx, "A", "a@example.com", "12345")
	assert.ErrorIs(t, err, core.ErrWeakPassword)
}

func TestUserService_ExpenseLimit(t *testing.T) {
	ctx := context.Background()
	s, sessions := newUserService(t)
	token, err := s.Register(ctx, "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)
	sess, err := sessions.Verify(ctx, token)
	require.NoError(t, err)

	limit, err := s.ExpenseLimit(ctx, sess.UserID)
	require.NoError(t, err)
	assert.True(t, limit.IsZero())

	limit, err = s.SetExpenseLimit(ctx, sess.UserID, core.Cents(50000))
	require.NoError(t, err)
	assert.Equal(t, int64(50000), limit.Cents)

	_, err = s.SetExpenseLimit(ctx, sess.UserID, core.Cents(-1))
	assert.ErrorIs(t, err, core.ErrInvalidLimit)

	_, err = s.SetExpenseLimit(ctx, 999, core.Cents(1))
	assert.ErrorIs(t, err, core.ErrNotFound)
}
