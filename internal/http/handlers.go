package http

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
)

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Budgetwise API"))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics writes the process counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var b strings.Builder
	counter := func(name string, v any) {
		fmt.Fprintf(&b, "budgetwise_%s %v\n", name, v)
	}

	tm := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	sec := s.detector.GetMetrics()

	counter("uptime_seconds", int64(time.Since(s.started).Seconds()))
	counter("http_requests_total", tm.TotalRequests)
	counter("http_client_errors_total", tm.ClientErrors)
	counter("http_server_errors_total", tm.ServerErrors)
	counter("http_avg_response_ms", tm.AverageResponseTime.Milliseconds())
	counter("ratelimit_hits_total", rl.TotalHits)
	counter("ratelimit_clients", rl.ClientCount)
	counter("suspicious_requests_total", sec.SuspiciousRequests)
	counter("blocked_requests_total", sec.BlockedRequests)
	if s.deps.Published != nil {
		counter("events_published_total", s.deps.Published())
	}

	names := make([]string, 0, len(s.deps.Caches))
	for name := range s.deps.Caches {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		st := s.deps.Caches[name].Stats()
		fmt.Fprintf(&b, "budgetwise_cache_entries{cache=%q} %d\n", name, st.Size)
		fmt.Fprintf(&b, "budgetwise_cache_hits_total{cache=%q} %d\n", name, st.Hits)
		fmt.Fprintf(&b, "budgetwise_cache_misses_total{cache=%q} %d\n", name, st.Misses)
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}
