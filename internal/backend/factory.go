package backend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"budgetwise/internal/config"
	"budgetwise/internal/storage"
	"budgetwise/internal/storage/memory"
	"budgetwise/internal/storage/postgres"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
	}, nil
}

func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}

// DefaultFactory implements Factory.
type DefaultFactory struct {
	log zerolog.Logger
}

func NewFactory(log zerolog.Logger) *DefaultFactory {
	return &DefaultFactory{log: log.With().Str("component", "backend").Logger()}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch cfg.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(cfg.SQLiteDBPath, f.log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.log.Info().Str("db_path", cfg.SQLiteDBPath).Msg("Initialized SQLite backend")
	case PostgresBackend:
		store, err = postgres.New(ctx, cfg.DatabaseURL, f.log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		f.log.Info().Msg("Initialized postgres backend")
	case MemoryBackend:
		store = memory.New()
		f.log.Warn().Msg("Initialized memory backend, data will not survive a restart")
	}

	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}
