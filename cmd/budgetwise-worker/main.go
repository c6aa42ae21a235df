package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"budgetwise/internal/amqp"
	"budgetwise/internal/cli"
	"budgetwise/internal/config"
	applog "budgetwise/internal/log"
	ports "budgetwise/internal/sheets"
	gsheet "budgetwise/internal/sheets/google"
	mem "budgetwise/internal/sheets/memory"
	"budgetwise/internal/worker"
)

const statsInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err == nil {
		err = cfg.ValidateWorker()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg)
	log := applog.WithComponent(logger, applog.ComponentWorker)
	log.Info().Str("sink", cfg.WorkerSink).Str("queue", cfg.AMQPQueue).Msg("Starting budgetwise-worker")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	writer, err := newLedgerWriter(ctx, cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger sink")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize AMQP client")
	}
	defer client.Close()

	w := worker.NewLedgerWorker(writer, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Consume(gctx, w.Handle)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				logStats(log, w.Stats())
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Worker stopped with error")
	}
	logStats(log, w.Stats())
	log.Info().Msg("Worker stopped")
}

func newLedgerWriter(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.LedgerWriter, error) {
	if cfg.WorkerSink == "memory" {
		log.Warn().Msg("Using in-memory ledger sink, rows are discarded on exit")
		return mem.New(), nil
	}

	client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleLedgerSheet, log)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, fmt.Errorf("prepare ledger sheet: %w", err)
	}
	return client, nil
}

func logStats(log zerolog.Logger, s worker.Stats) {
	log.Info().
		Uint64("processed", s.Processed).
		Uint64("skipped", s.Skipped).
		Uint64("failed", s.Failed).
		Msg("Ledger worker stats")
}
