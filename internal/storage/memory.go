package storage

import (
	"context"
	"errors"
	"sync"

	"ledger/internal/core"
)

// Memory keeps both ledgers in process. Nothing survives a restart.
type Memory struct {
	mu       sync.Mutex
	snapshot *core.Snapshot
	book     *core.Book
}

func NewMemory() *Memory {
	return &Memory{}
}

type LedgerLoader interface {
	LoadLedger(ctx context.Context) (core.Snapshot, error)
}

type BookLoader interface {
	LoadBook(ctx context.Context) (core.Book, error)
}

// SeedFrom copies the state already held by ledgers and books into m.
// Missing or malformed sources are skipped. Either loader may be nil.
func (m *Memory) SeedFrom(ctx context.Context, ledgers LedgerLoader, books BookLoader) error {
	if ledgers != nil {
		s, err := ledgers.LoadLedger(ctx)
		switch {
		case err == nil:
			_ = m.SaveLedger(ctx, s)
		case !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrMalformed):
			return err
		}
	}
	if books != nil {
		b, err := books.LoadBook(ctx)
		switch {
		case err == nil:
			_ = m.SaveBook(ctx, b)
		case !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrMalformed):
			return err
		}
	}
	return nil
}

func (m *Memory) LoadLedger(_ context.Context) (core.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return core.Snapshot{}, ErrNotFound
	}
	return m.snapshot.Clone(), nil
}

func (m *Memory) SaveLedger(_ context.Context, s core.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := s.Clone()
	m.snapshot = &c
	return nil
}

func (m *Memory) LoadBook(_ context.Context) (core.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.book == nil {
		return core.Book{}, ErrNotFound
	}
	return m.book.Clone(), nil
}

func (m *Memory) SaveBook(_ context.Context, b core.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := b.Clone()
	m.book = &c
	return nil
}
