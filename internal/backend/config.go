package backend

import (
	"fmt"

	"ledger/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// file backend
	LedgerPath           string
	CashbookExpensesPath string
	CashbookIncomePath   string

	// sqlite backend
	SQLiteDBPath string

	// memory backend: seed from the file backend paths above when set
	SeedFromFiles bool
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	expensesPath, incomePath := appConfig.CashbookPaths()
	return Config{
		Type:                 backendType,
		LedgerPath:           appConfig.LedgerPath(),
		CashbookExpensesPath: expensesPath,
		CashbookIncomePath:   incomePath,
		SQLiteDBPath:         appConfig.SQLiteDBPath,
		SeedFromFiles:        backendType == MemoryBackend,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type %q: must be one of %v", c.Type, GetBackendTypeStrings())
	}

	switch c.Type {
	case FileBackend:
		if c.LedgerPath == "" {
			return fmt.Errorf("ledger path is required for file backend")
		}
		if c.CashbookExpensesPath == "" || c.CashbookIncomePath == "" {
			return fmt.Errorf("cashbook expenses and income paths are required for file backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		if c.SeedFromFiles && (c.LedgerPath == "" || c.CashbookExpensesPath == "" || c.CashbookIncomePath == "") {
			return fmt.Errorf("seed file paths are required when seeding the memory backend")
		}
	}

	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{FileBackend.String(), SQLiteBackend.String(), MemoryBackend.String()}
}
