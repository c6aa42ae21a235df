// Package ratelimit limits requests per client over a sliding one-minute window.
package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	applog "budgetwise/internal/log"
)

const window = time.Minute

// Limiter keeps the request times of each client seen in the last minute.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*history
	now     func() time.Time
	limit   int
	sweep   time.Duration
	idle    time.Duration

	rejected atomic.Int64
}

type history struct {
	times []time.Time // ascending, all within the window after pruning
	seen  time.Time
}

type Config struct {
	RequestsPerMinute int
	// CleanupInterval is how often Run forgets idle clients.
	CleanupInterval time.Duration
}

func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 120
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	return &Limiter{
		clients: make(map[string]*history),
		now:     time.Now,
		limit:   cfg.RequestsPerMinute,
		sweep:   cfg.CleanupInterval,
		idle:    10 * time.Minute,
	}
}

// Allow records a request from client and reports whether it is within the limit.
func (rl *Limiter) Allow(client string) bool {
	ok, _ := rl.reserve(client)
	return ok
}

// reserve returns false and the time until a slot frees up when client is over the limit.
func (rl *Limiter) reserve(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	h := rl.clients[client]
	if h == nil {
		h = &history{}
		rl.clients[client] = h
	}
	h.seen = now

	cutoff := now.Add(-window)
	keep := 0
	for keep < len(h.times) && !h.times[keep].After(cutoff) {
		keep++
	}
	h.times = h.times[keep:]

	if len(h.times) >= rl.limit {
		rl.rejected.Add(1)
		return false, h.times[0].Add(window).Sub(now)
	}
	h.times = append(h.times, now)
	return true, 0
}

// Run forgets idle clients every cleanup interval until ctx is done.
func (rl *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanupStaleEntries()
		}
	}
}

func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	n := 0
	for client, h := range rl.clients {
		if h.seen.Before(cutoff) {
			delete(rl.clients, client)
			n++
		}
	}
	return n
}

type Metrics struct {
	TotalHits   int64 // rejected requests
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	rl.mu.Lock()
	clients := len(rl.clients)
	rl.mu.Unlock()
	return Metrics{TotalHits: rl.rejected.Load(), ClientCount: int64(clients)}
}

// Middleware rejects clients over the limit with a Retry-After header.
// onLimit writes the response body; a plain 429 is sent when it is nil.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := extractIP(r)
			ok, wait := rl.reserve(client)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retry := int(math.Ceil(wait.Seconds()))
			if retry < 1 {
				retry = 1
			}
			zerolog.Ctx(r.Context()).Warn().Str(applog.FieldClientIP, client).Int("retry_after", retry).Msg("Rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			if onLimit == nil {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
