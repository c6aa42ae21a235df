// Package auth issues and verifies opaque session tokens and hashes
// passwords with bcrypt.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"budgetwise/internal/cache"
	"budgetwise/internal/core"
	"budgetwise/internal/storage"
)

// HeaderToken carries the session token on authenticated requests.
const HeaderToken = "x-auth-token"

var (
	ErrNoToken      = errors.New("no token")
	ErrInvalidToken = errors.New("invalid token")
)

type Hasher struct {
	cost int
}

func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{cost: cost}
}

func (h Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Matches reports whether password hashes to hash.
func (h Hasher) Matches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Sessions manages login tokens backed by the store with a verified-session
// cache in front of it.
type Sessions struct {
	store storage.SessionStore
	cache *cache.LRU[string, core.Session]
	ttl   time.Duration
	now   func() time.Time
	log   zerolog.Logger
}

func NewSessions(store storage.SessionStore, c *cache.LRU[string, core.Session], ttl time.Duration, log zerolog.Logger) *Sessions {
	return &Sessions{
		store: store,
		cache: c,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
		log:   log.With().Str("component", "auth").Logger(),
	}
}

func (s *Sessions) Issue(ctx context.Context, userID int64) (core.Session, error) {
	now := s.now()
	sess := core.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return core.Session{}, fmt.Errorf("issue session: %w", err)
	}
	s.cache.SetUntil(sess.Token, sess, sess.ExpiresAt)
	return sess, nil
}

// Verify resolves a token to a live session. Unknown, malformed and expired
// tokens all return ErrInvalidToken.
func (s *Sessions) Verify(ctx context.Context, token string) (core.Session, error) {
	if token == "" {
		return core.Session{}, ErrNoToken
	}
	if _, err := uuid.Parse(token); err != nil {
		return core.Session{}, ErrInvalidToken
	}
	now := s.now()
	if sess, ok := s.cache.Get(token); ok && !sess.Expired(now) {
		return sess, nil
	}

	sess, err := s.store.GetSession(ctx, token)
	if errors.Is(err, core.ErrNotFound) {
		return core.Session{}, ErrInvalidToken
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("verify session: %w", err)
	}
	if sess.Expired(now) {
		s.log.Debug().Int64("user_id", sess.UserID).Msg("Expired session presented")
		return core.Session{}, ErrInvalidToken
	}
	s.cache.SetUntil(token, sess, sess.ExpiresAt)
	return sess, nil
}

func (s *Sessions) Revoke(ctx context.Context, token string) error {
	s.cache.Delete(token)
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

type ctxKey struct{}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user stored by the auth middleware.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok
}
