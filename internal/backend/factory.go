package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finances/internal/amqp"
	"finances/internal/storage"
	"finances/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dir := config.SeedDir
	if dir == "" {
		dir = "data"
	}
	store := memory.NewFromFiles(dir)

	f.logger.InfoContext(ctx, "Initialized memory backend", "seed_dir", dir)
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

// ConnectAMQP dials the broker when cfg.URL is set. It returns a nil client
// and no error when messaging is disabled.
func (f *DefaultFactory) ConnectAMQP(ctx context.Context, cfg amqp.Config) (*amqp.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to AMQP: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", cfg.Exchange,
		"import_queue", cfg.ImportQueue,
		"events_queue", cfg.EventsQueue)
	return client, nil
}
