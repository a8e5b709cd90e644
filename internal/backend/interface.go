package backend

import (
	"context"

	"ledger/internal/cashbook"
	"ledger/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// HealthFunc reports whether the backend can serve requests.
type HealthFunc func(ctx context.Context) error

// BackendResult holds the stores for both ledgers plus optional lifecycle
// hooks. Cleanup and Health may be nil.
type BackendResult struct {
	Ledger   ledger.Store
	Cashbook cashbook.Store
	Cleanup  CleanupFunc
	Health   HealthFunc
}

// Close runs Cleanup when present.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Ping runs Health when present.
func (r *BackendResult) Ping(ctx context.Context) error {
	if r == nil || r.Health == nil {
		return nil
	}
	return r.Health(ctx)
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
