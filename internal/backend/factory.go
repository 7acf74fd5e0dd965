package backend

import (
	"context"
	"fmt"
	"log/slog"

	"monbudget/internal/remote/memory"
	"monbudget/internal/remote/postgres"
	"monbudget/internal/storage"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateStore builds the store named by config.Type.
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteStore:
		return f.createSQLiteStore(config)
	case PostgresStore:
		return f.createPostgresStore(ctx, config)
	case MemoryStore:
		return f.createMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteStore(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLitePath)
	return &Result{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createPostgresStore(ctx context.Context, config Config) (*Result, error) {
	repo, err := postgres.NewRepository(ctx, config.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")
	return &Result{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryStore() (*Result, error) {
	f.logger.Info("Initialized in-memory backend")
	return &Result{Store: memory.NewStore(), Cleanup: nil}, nil
}
