package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetwise/internal/auth"
	"budgetwise/internal/budget"
	"budgetwise/internal/cache"
	"budgetwise/internal/cli"
	"budgetwise/internal/core"
	apphttp "budgetwise/internal/http"
	applog "budgetwise/internal/log"
	"budgetwise/internal/scheduler"
	"budgetwise/internal/services"
)

const (
	sessionCacheSize   = 10000
	cacheSweepInterval = 10 * time.Minute
	jobTimeout         = 5 * time.Minute
)

func main() {
	// .env is for local development only
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg)
	log := applog.WithComponent(logger, applog.ComponentApp)
	log.Info().Str("port", cfg.Port).Str(applog.FieldBackend, cfg.DataBackend).Msg("Starting budgetwise")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	store, cleanup, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer func() {
		if err := cleanup(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	publisher, err := cli.NewPublisher(cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize event publisher")
	}
	defer publisher.Close()

	sessionCache := cache.NewLRU[string, core.Session](sessionCacheSize, cfg.SessionTTL)
	sessions := auth.NewSessions(store, sessionCache, cfg.SessionTTL, logger)

	users := services.NewUserService(store, sessions, auth.NewHasher(cfg.BcryptCost), logger)
	expenses := services.NewExpenseService(store, publisher, logger)
	incomes := services.NewIncomeService(store, publisher, logger)
	reports := services.NewReportService(store, store, store, logger)
	planner := budget.NewPlanner(store, logger)

	sched := scheduler.New(logger, jobTimeout)
	if err := sched.AddJob(cfg.LimitCheckSchedule, services.NewLimitMonitor(store, store, publisher, logger)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule limit monitor")
	}
	if err := sched.AddJob(cfg.SessionCleanupSchedule, services.NewSessionCleanup(store, logger)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule session cleanup")
	}

	cacheMgr := cache.NewManager(logger)
	cacheMgr.Register("sessions", sessionCache)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, apphttp.Deps{
		Users:     users,
		Expenses:  expenses,
		Incomes:   incomes,
		Reports:   reports,
		Planner:   planner,
		Sessions:  sessions,
		Ready:     store.Ping,
		Caches:    map[string]apphttp.StatsProvider{"sessions": sessionCache},
		Published: publisher.Published,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		cacheMgr.Run(gctx, cacheSweepInterval)
		return nil
	})
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		return
	}
	log.Info().Msg("Server stopped gracefully")
}
