package backend

import (
	"context"
	"fmt"
	"path/filepath"

	"bilancio/internal/amqp"
	applog "bilancio/internal/log"
	"bilancio/internal/seed"
	"bilancio/internal/services"
	"bilancio/internal/storage"
	"bilancio/internal/store/memory"
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

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.DataDirectory == "" {
		config.DataDirectory = "data" // Default directory
	}

	var store services.Store
	var err error
	switch config.Type {
	case SQLiteBackend:
		store, err = f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		store, err = f.createMemoryStore(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if !config.Type.Persistent() && config.AMQPURL != "" {
		// the worker re-reads rows from sqlite, so it cannot see these values
		f.logger.Warn("Publishing changes from a non-persistent backend", "backend", config.Type.String())
	}

	svc := services.NewBudgetService(store, f.createPublisher(config), services.Options{
		CacheSize: config.ReportCacheSize,
		CacheTTL:  config.ReportCacheTTL,
		Logger:    f.logger,
	})
	return &BackendResult{
		Service: svc,
		Store:   store,
		Cleanup: svc.Close,
	}, nil
}

// createSQLiteStore opens the database and applies the hierarchy file on
// top of it. Seeding upserts by id, so the file stays the source of truth
// for names and flags across restarts.
func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (services.Store, error) {
	sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	path := filepath.Join(config.DataDirectory, seed.FileName)
	hierarchy, err := seed.Load(path)
	if err != nil {
		sqliteRepo.Close()
		return nil, fmt.Errorf("load hierarchy: %w", err)
	}
	if err := sqliteRepo.SeedHierarchy(ctx, hierarchy); err != nil {
		sqliteRepo.Close()
		return nil, fmt.Errorf("seed hierarchy: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", sqliteRepo.SchemaVersion(),
		"hierarchy_file", path,
		"sections", len(hierarchy))
	return sqliteRepo, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) (services.Store, error) {
	store, err := memory.NewFromFiles(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)
	return store, nil
}

// createPublisher connects to AMQP when configured. A broker that cannot
// be reached is not fatal: the service runs without the Sheets mirror.
func (f *DefaultFactory) createPublisher(config Config) services.Publisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without sync", applog.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
