package log

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// Middleware stores logger in every request context.
func Middleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithContext(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware adds the request id to the context logger.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := FromContext(r.Context()).With().Str(FieldRequestID, extractRequestID(r)).Logger()
			next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
		})
	}
}

// FromContext returns the request logger, or a disabled logger when none was set.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WithUser tags the context logger with the authenticated user.
func WithUser(ctx context.Context, userID int64) context.Context {
	l := FromContext(ctx).With().Int64(FieldUserID, userID).Logger()
	return l.WithContext(ctx)
}
