package backend

import (
	"context"
	"fmt"
	"log/slog"

	"feeledger/internal/amqp"
	"feeledger/internal/services"
	"feeledger/internal/store"
	"feeledger/internal/store/file"
	"feeledger/internal/store/postgres"
	"feeledger/internal/store/sqlite"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the wired service, the raw store and a cleanup function.
type Result struct {
	Service *services.LedgerService
	Store   store.Repository
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	// Publishing is optional; a broker outage must not stop the API.
	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewLedgerService(repo, publisher)
	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type,
		"events_enabled", publisher != nil)

	return &Result{Service: svc, Store: repo, Cleanup: svc.Close}, nil
}

func (f *DefaultFactory) openStore(config Config) (store.Repository, error) {
	switch config.Type {
	case FileBackend:
		s, err := file.Open(config.DataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		f.logger.Info("Using file store", "path", config.DataFile)
		return s, nil
	case SQLiteBackend:
		r, err := sqlite.NewRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Using SQLite store", "db_path", config.SQLiteDBPath)
		return r, nil
	case PostgresBackend:
		r, err := postgres.Open(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Using Postgres store")
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
