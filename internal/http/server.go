// Package http exposes the budgetwise JSON API: auth, expenses, incomes, the
// expense limit, the budget optimizer and monthly reports.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"budgetwise/internal/auth"
	"budgetwise/internal/budget"
	"budgetwise/internal/cache"
	applog "budgetwise/internal/log"
	"budgetwise/internal/middleware/ratelimit"
	"budgetwise/internal/middleware/security"
	"budgetwise/internal/middleware/trace"
	"budgetwise/internal/services"
)

const (
	defaultMaxBodyBytes = 1 << 20
	shutdownTimeout     = 30 * time.Second
	readyTimeout        = 2 * time.Second
)

type Config struct {
	Addr               string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	MaxBodyBytes       int64
	// BlockSuspicious rejects requests the detector flags instead of only
	// logging them.
	BlockSuspicious bool
}

// StatsProvider is a cache whose counters are reported on /metrics.
type StatsProvider interface {
	Stats() cache.Stats
}

// Deps are the application services the handlers call into.
type Deps struct {
	Users    *services.UserService
	Expenses *services.ExpenseService
	Incomes  *services.IncomeService
	Reports  *services.ReportService
	Planner  *budget.Planner
	Sessions *auth.Sessions

	// Ready reports whether the store is reachable.
	Ready  func(ctx context.Context) error
	Caches map[string]StatsProvider
	// Published, when set, reports how many ledger events were sent.
	Published func() uint64
}

type Server struct {
	http.Server
	cfg      Config
	deps     Deps
	log      zerolog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time
	now      func() time.Time
}

func NewServer(cfg Config, deps Deps, log zerolog.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	detector := security.NewDetector()
	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		cfg:      cfg,
		deps:     deps,
		log:      applog.WithComponent(log, applog.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, log),
		started:  time.Now(),
		now:      time.Now,
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware(s.cfg.BlockSuspicious))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", auth.HeaderToken},
		ExposedHeaders: []string{trace.HeaderRequestID, "Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
		writeMsg(w, http.StatusTooManyRequests, "Too many requests, please try again later")
	}))
	r.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))

	r.Get("/", s.handleIndex)
	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(security.NoStore)

		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/auth/logout", s.handleLogout)

			r.Route("/expenses", func(r chi.Router) {
				r.Post("/", s.handleCreateExpense)
				r.Get("/", s.handleListExpenses)
				r.Get("/monthly", s.handleMonthlyExpenses)
				r.Get("/optimize", s.handleOptimize)
				r.Get("/stats", s.handleStats)
				r.Put("/{id}", s.handleUpdateExpense)
				r.Delete("/{id}", s.handleDeleteExpense)
			})

			r.Route("/incomes", func(r chi.Router) {
				r.Post("/", s.handleCreateIncome)
				r.Get("/", s.handleListIncomes)
				r.Get("/monthly", s.handleMonthlyIncomes)
				r.Put("/{id}", s.handleUpdateIncome)
				r.Delete("/{id}", s.handleDeleteIncome)
			})

			r.Post("/user/set-expense-limit", s.handleSetExpenseLimit)
			r.Get("/user/get-expense-limit", s.handleGetExpenseLimit)

			r.Get("/summary/monthly", s.handleMonthlySummary)
			r.Get("/reports/monthly.xlsx", s.handleMonthlyReport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMsg(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMsg(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

// requireAuth resolves the x-auth-token header to a user and stores the id
// in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.deps.Sessions.Verify(r.Context(), r.Header.Get(auth.HeaderToken))
		switch {
		case errors.Is(err, auth.ErrNoToken):
			writeMsg(w, http.StatusUnauthorized, "No token, authorization denied")
			return
		case errors.Is(err, auth.ErrInvalidToken):
			writeMsg(w, http.StatusUnauthorized, "Token is not valid")
			return
		case err != nil:
			s.serverError(w, r, err)
			return
		}
		ctx := auth.WithUserID(r.Context(), sess.UserID)
		ctx = applog.WithUser(ctx, sess.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID is only called behind requireAuth.
func userID(r *http.Request) int64 {
	id, _ := auth.UserID(r.Context())
	return id
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	go s.limiter.Run(limiterCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.Addr).Msg("HTTP server listening")
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
