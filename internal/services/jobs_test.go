package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwise/internal/amqp"
	"budgetwise/internal/core"
	"budgetwise/internal/storage/memory"
)

func TestLimitMonitor_NotifiesOncePerMonth(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	over, err := store.CreateUser(ctx, core.User{Name: "Over", Email: "over@example.com"})
	require.NoError(t, err)
	under, err := store.CreateUser(ctx, core.User{Name: "Under", Email: "under@example.com"})
	require.NoError(t, err)
	_, err = store.SetExpenseLimit(ctx, over.ID, core.Cents(1000))
	require.NoError(t, err)
	_, err = store.SetExpenseLimit(ctx, under.ID, core.Cents(1000000))
	require.NoError(t, err)

	march := core.Period{Year: 2024, Month: 3}
	seedLedger(t, store, over.ID, map[core.Period]map[string]int64{march: {"Food": 1500}})
	seedLedger(t, store, under.ID, map[core.Period]map[string]int64{march: {"Food": 1500}})

	pub := &recordingPublisher{}
	m := NewLimitMonitor(store, store, pub, zerolog.Nop())
	m.now = func() time.Time { return time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, m.Run(ctx))
	require.NoError(t, m.Run(ctx))
	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.LimitExceeded, pub.events[0].Type)
	assert.Equal(t, over.ID, pub.events[0].UserID)
	assert.Equal(t, int64(1500), pub.events[0].Amount.Cents)

	// new month, new spending over the limit
	april := march.Add(1)
	seedLedger(t, store, over.ID, map[core.Period]map[string]int64{april: {"Rent": 5000}})
	m.now = func() time.Time { return time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, m.Run(ctx))
	assert.Len(t, pub.events, 2)
}

func TestSessionCleanup(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u, err := store.CreateUser(ctx, core.User{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, store.CreateSession(ctx, core.Session{Token: "old", UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, store.CreateSession(ctx, core.Session{Token: "new", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))

	job := NewSessionCleanup(store, zerolog.Nop())
	assert.Equal(t, "session_cleanup", job.Name())
	require.NoError(t, job.Run(ctx))

	_, err = store.GetSession(ctx, "old")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = store.GetSession(ctx, "new")
	assert.NoError(t, err)
}
