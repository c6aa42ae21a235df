// Package trace tags every request with an id, logs its start and completion
// and keeps request counters for the /metrics endpoint.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	applog "budgetwise/internal/log"
)

type ctxKey string

const (
	RequestIDKey ctxKey = "request_id"

	// HeaderRequestID is echoed back so clients can quote it in bug reports.
	HeaderRequestID = "X-Request-ID"
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	log       zerolog.Logger
	metrics   counters
}

type counters struct {
	total        atomic.Int64
	clientErrors atomic.Int64
	serverErrors atomic.Int64
	durationUS   atomic.Int64
}

// Metrics is a snapshot of the request counters.
type Metrics struct {
	TotalRequests       int64
	ClientErrors        int64
	ServerErrors        int64
	AverageResponseTime time.Duration
}

func NewMiddleware(extractIP func(*http.Request) string, log zerolog.Logger) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		log:       applog.WithComponent(log, applog.ComponentHTTP),
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		l := m.log.With().
			Str(applog.FieldRequestID, requestID).
			Str(applog.FieldMethod, r.Method).
			Str(applog.FieldPath, r.URL.Path).
			Str(applog.FieldClientIP, clientIP).
			Logger()
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = l.WithContext(ctx)
		r = r.WithContext(ctx)

		l.Debug().
			Str(applog.FieldQuery, r.URL.RawQuery).
			Str(applog.FieldUserAgent, r.UserAgent()).
			Int64("content_length", r.ContentLength).
			Msg("HTTP request started")

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		m.record(status, duration)

		l.WithLevel(applog.LevelForStatus(status)).
			Int(applog.FieldStatusCode, status).
			Int64(applog.FieldDuration, duration.Milliseconds()).
			Int("bytes", ww.BytesWritten()).
			Bool(applog.FieldSuccess, status < 400).
			Msg("HTTP request completed")
	})
}

func (m *Middleware) record(status int, d time.Duration) {
	m.metrics.total.Add(1)
	m.metrics.durationUS.Add(d.Microseconds())
	switch {
	case status >= 500:
		m.metrics.serverErrors.Add(1)
	case status >= 400:
		m.metrics.clientErrors.Add(1)
	}
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func (m *Middleware) GetMetrics() Metrics {
	total := m.metrics.total.Load()
	out := Metrics{
		TotalRequests: total,
		ClientErrors:  m.metrics.clientErrors.Load(),
		ServerErrors:  m.metrics.serverErrors.Load(),
	}
	if total > 0 {
		out.AverageResponseTime = time.Duration(m.metrics.durationUS.Load()/total) * time.Microsecond
	}
	return out
}
