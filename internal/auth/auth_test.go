package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/cache"
	"budgetwise/internal/core"
	"budgetwise/internal/storage/memory"
)

func newSessions(t *testing.T) (*Sessions, *memory.Store, int64) {
	t.Helper()
	store := memory.New()
	u, err := store.CreateUser(context.Background(), core.User{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)
	s := NewSessions(store, cache.NewLRU[string, core.Session](16, time.Minute), time.Hour, zerolog.Nop())
	return s, store, u.ID
}

func TestHasher(t *testing.T) {
	h := NewHasher(4)
	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, h.Matches(hash, "secret1"))
	assert.False(t, h.Matches(hash, "secret2"))
	assert.False(t, h.Matches("not-a-hash", "secret1"))
}

func TestSessions_IssueVerifyRevoke(t *testing.T) {
	ctx := context.Background()
	s, store, userID := newSessions(t)

	sess, err := s.Issue(ctx, userID)
	require.NoError(t, err)
	_, err = uuid.Parse(sess.Token)
	require.NoError(t, err)

	got, err := s.Verify(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)

	// served from the store after a cache miss
	s.cache.Delete(sess.Token)
	got, err = s.Verify(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)

	require.NoError(t, s.Revoke(ctx, sess.Token))
	_, err = s.Verify(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = store.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSessions_VerifyRejects(t *testing.T) {
	ctx := context.Background()
	s, _, userID := newSessions(t)

	_, err := s.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = s.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Verify(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrInvalidToken)

	sess, err := s.Issue(ctx, userID)
	require.NoError(t, err)
	s.now = func() time.Time { return sess.ExpiresAt.Add(time.Second) }
	_, err = s.Verify(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserIDContext(t *testing.T) {
	_, ok := UserID(context.Background())
	assert.False(t, ok)

	id, ok := UserID(WithUserID(context.Background(), 9))
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)
}
