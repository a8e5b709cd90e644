// Package storage persists ledger and cashbook state. Every backend
// decodes persisted records into typed values at load time and drops
// records that fail validation instead of failing the whole load.
package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"ledger/internal/core"
	"ledger/internal/log"
)

var (
	// ErrNotFound means no state has been persisted yet.
	ErrNotFound = errors.New("state not found")
	// ErrMalformed means persisted state exists but cannot be decoded.
	ErrMalformed = errors.New("malformed state")
)

// sanitizeSnapshot enforces the ledger invariants on loaded state:
// unique non-empty names, positive amounts, at least one participant and
// references only to registered people.
func sanitizeSnapshot(ctx context.Context, logger *log.Logger, s core.Snapshot) core.Snapshot {
	out := core.Snapshot{}
	for i, p := range s.People {
		if err := p.Validate(); err != nil {
			logger.WarnContext(ctx, "Dropping invalid person record", log.FieldIndex, i, log.FieldError, err)
			continue
		}
		if out.HasPerson(p.Name) {
			logger.WarnContext(ctx, "Dropping duplicate person record", log.FieldIndex, i, log.FieldPerson, p.Name)
			continue
		}
		out.People = append(out.People, p)
	}

	for i, e := range s.Expenses {
		if err := checkExpense(out, e); err != nil {
			logger.WarnContext(ctx, "Dropping invalid expense record", log.FieldIndex, i, log.FieldError, err)
			continue
		}
		e.Participants = dedupe(e.Participants)
		out.Expenses = append(out.Expenses, e)
	}

	for i, inc := range s.Incomes {
		if err := inc.Validate(); err != nil {
			logger.WarnContext(ctx, "Dropping invalid income record", log.FieldIndex, i, log.FieldError, err)
			continue
		}
		if !out.HasPerson(inc.Recipient) {
			logger.WarnContext(ctx, "Dropping income with unknown recipient", log.FieldIndex, i, log.FieldPerson, inc.Recipient)
			continue
		}
		out.Incomes = append(out.Incomes, inc)
	}
	return out
}

func checkExpense(s core.Snapshot, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if !s.HasPerson(e.Payer) {
		return fmt.Errorf("%w: payer %q", core.ErrUnknownPerson, e.Payer)
	}
	for _, p := range e.Participants {
		if !s.HasPerson(p) {
			return fmt.Errorf("%w: participant %q", core.ErrUnknownPerson, p)
		}
	}
	return nil
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// sanitizeBook drops cashbook records that violate the sign or enum rules.
func sanitizeBook(ctx context.Context, logger *log.Logger, b core.Book) core.Book {
	out := core.Book{}
	for i, e := range b.Expenses {
		if err := e.Validate(); err != nil {
			logger.WarnContext(ctx, "Dropping invalid cashbook expense", log.FieldIndex, i, log.FieldError, err)
			continue
		}
		out.Expenses = append(out.Expenses, e)
	}
	for i, inc := range b.Incomes {
		if err := inc.Validate(); err != nil {
			logger.WarnContext(ctx, "Dropping invalid cashbook income", log.FieldIndex, i, log.FieldError, err)
			continue
		}
		out.Incomes = append(out.Incomes, inc)
	}
	return out
}

func storageLogger(l *log.Logger) *log.Logger {
	if l == nil {
		return log.Wrap(nil, log.ComponentStorage)
	}
	return l.WithComponent(log.ComponentStorage)
}
