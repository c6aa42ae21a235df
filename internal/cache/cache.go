// Package cache holds the in-process caches used in front of the store and
// the background loop that evicts their expired entries.
package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type Stats struct {
	Size   int
	Hits   uint64
	Misses uint64
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans every registered cache.
type Manager struct {
	caches map[string]Cleaner
	log    zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		caches: make(map[string]Cleaner),
		log:    log.With().Str("component", "cache").Logger(),
	}
}

// Register must be called before Run.
func (m *Manager) Register(name string, c Cleaner) {
	m.caches[name] = c
}

// Sweep cleans all caches once and returns the number of evicted entries.
func (m *Manager) Sweep() int {
	total := 0
	for name, c := range m.caches {
		if n := c.CleanExpired(); n > 0 {
			m.log.Debug().Str("cache", name).Int("evicted", n).Msg("Expired cache entries removed")
			total += n
		}
	}
	return total
}

// Run sweeps on every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
