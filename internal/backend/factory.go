package backend

import (
	"context"
	"fmt"

	"ledger/internal/log"
	"ledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		return f.createFileBackend(ctx, config), nil
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileBackend(ctx context.Context, config Config) *BackendResult {
	l := f.logger.WithComponent(log.ComponentBackend)
	l.InfoContext(ctx, "Initialized file backend",
		"ledger_path", config.LedgerPath,
		"expenses_path", config.CashbookExpensesPath,
		"income_path", config.CashbookIncomePath)

	return &BackendResult{
		Ledger:   storage.NewLedgerFile(config.LedgerPath, f.logger),
		Cashbook: storage.NewCashbookFiles(config.CashbookExpensesPath, config.CashbookIncomePath, f.logger),
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.WithComponent(log.ComponentBackend).InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath)

	return &BackendResult{
		Ledger:   repo,
		Cashbook: repo,
		Cleanup:  repo.Close,
		Health:   repo.Ping,
	}, nil
}

// createMemoryBackend keeps state in process, optionally starting from the
// files of a previous file-backend run. Writes never reach those files.
func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	mem := storage.NewMemory()
	if config.SeedFromFiles {
		err := mem.SeedFrom(ctx,
			storage.NewLedgerFile(config.LedgerPath, f.logger),
			storage.NewCashbookFiles(config.CashbookExpensesPath, config.CashbookIncomePath, f.logger))
		if err != nil {
			return nil, fmt.Errorf("seed memory backend: %w", err)
		}
	}

	f.logger.WithComponent(log.ComponentBackend).InfoContext(ctx, "Initialized memory backend",
		"seeded", config.SeedFromFiles)

	return &BackendResult{
		Ledger:   mem,
		Cashbook: mem,
	}, nil
}
