package backend

import (
	"context"
	"fmt"

	"cobros/internal/amqp"
	"cobros/internal/core"
	applog "cobros/internal/log"
	"cobros/internal/source/memory"
	"cobros/internal/source/rest"
	"cobros/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend. A broker that cannot be
// reached leaves the backend usable without events.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(ctx, config)
	case RESTBackend:
		result, err = f.createRESTBackend(config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Publisher = client
			result.Cleanup = chain(result.Cleanup, client.Close)
		}
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.Location, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.DataDirectory != "" {
		if err := f.seedSQLite(ctx, repo, config); err != nil {
			repo.Close()
			return nil, err
		}
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

// seedSQLite imports the JSON seed files once; rows already present are
// left untouched.
func (f *DefaultFactory) seedSQLite(ctx context.Context, repo *storage.SQLiteRepository, config Config) error {
	seed, err := memory.NewFromFiles(config.DataDirectory, config.now())
	if err != nil {
		return fmt.Errorf("load seed files: %w", err)
	}
	payments, err := seed.ListPayments(ctx, core.Unbounded())
	if err != nil {
		return err
	}
	sales, err := seed.ListSales(ctx, core.Unbounded())
	if err != nil {
		return err
	}

	inserted, err := repo.Import(ctx, payments.Records, sales.Records)
	if err != nil {
		return fmt.Errorf("import seed data: %w", err)
	}
	f.logger.Info("Imported seed data",
		"data_directory", config.DataDirectory,
		"inserted", inserted,
		applog.FieldDefaultedDates, seed.SeedDiagnostics().DefaultedDates)
	return nil
}

func (f *DefaultFactory) createRESTBackend(config Config) (*BackendResult, error) {
	client, err := rest.New(rest.Config{
		BaseURL:  config.APIBaseURL,
		Token:    config.APIToken,
		Timeout:  config.APITimeout,
		PageSize: config.APIPageSize,
	}, config.now)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize REST client: %w", err)
	}

	f.logger.Info("Initialized REST backend", "base_url", config.APIBaseURL)
	return &BackendResult{Backend: client}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	if config.DataDirectory == "" {
		f.logger.Info("Initialized empty memory backend")
		return &BackendResult{Backend: memory.New(nil, nil)}, nil
	}

	store, err := memory.NewFromFiles(config.DataDirectory, config.now())
	if err != nil {
		return nil, fmt.Errorf("failed to load memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend",
		"data_directory", config.DataDirectory,
		applog.FieldDefaultedDates, store.SeedDiagnostics().DefaultedDates,
		applog.FieldDefaultedAmounts, store.SeedDiagnostics().DefaultedAmounts)
	return &BackendResult{Backend: store}, nil
}

func chain(fns ...CleanupFunc) CleanupFunc {
	return func() error {
		var first error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}

// Close runs the cleanup, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}
