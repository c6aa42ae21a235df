// Package cli holds the start-up steps shared by cmd/budgetwise,
// cmd/budgetwise-worker and cmd/budgetctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"budgetwise/internal/amqp"
	"budgetwise/internal/backend"
	"budgetwise/internal/config"
	applog "budgetwise/internal/log"
	"budgetwise/internal/services"
	"budgetwise/internal/storage"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads and validates the environment configuration.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the root logger from the configuration.
func SetupLogger(cfg *config.Config) zerolog.Logger {
	return applog.New(applog.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stdout,
	})
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// OpenStore creates the configured storage backend. The returned cleanup
// closes it and is safe to call when err is non-nil.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Store, backend.CleanupFunc, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, func() error { return nil }, err
	}
	res, err := backend.NewFactory(log).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, func() error { return nil }, fmt.Errorf("open %s store: %w", bcfg.Type, err)
	}
	return res.Store, res.Cleanup, nil
}

// Publisher is an event publisher plus the counters the API reports.
type Publisher struct {
	services.EventPublisher
	Published func() uint64
	Close     func() error
}

// NewPublisher connects to the broker when AMQP_URL is set. Otherwise events
// are dropped by a no-op publisher.
func NewPublisher(cfg *config.Config, log zerolog.Logger) (Publisher, error) {
	if cfg.AMQPURL == "" {
		log.Info().Msg("AMQP_URL not set, ledger events are disabled")
		return Publisher{
			EventPublisher: services.NopPublisher{},
			Close:          func() error { return nil },
		}, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
	if err != nil {
		return Publisher{}, fmt.Errorf("connect to AMQP: %w", err)
	}
	return Publisher{
		EventPublisher: client,
		Published:      client.Published,
		Close:          client.Close,
	}, nil
}
