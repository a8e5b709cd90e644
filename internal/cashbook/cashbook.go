// Package cashbook is the simple-ledger record store: category-tagged
// expenses and source-tagged incomes. Expenses are stored with a negative
// amount so that the balance is the plain sum of every record.
package cashbook

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/storage"
)

// Name identifies the cashbook in change events and metrics.
const Name = "cashbook"

// Store persists the full cashbook state.
type Store interface {
	LoadBook(ctx context.Context) (core.Book, error)
	SaveBook(ctx context.Context, b core.Book) error
}

// Cashbook holds tagged expenses and incomes and persists every change
// through its Store.
type Cashbook struct {
	mu        sync.Mutex
	book      core.Book
	store     Store
	publisher core.EventPublisher
	observer  core.MutationObserver
	logger    *log.Logger
	now       func() time.Time
}

// Option configures a Cashbook.
type Option func(*Cashbook)

// WithPublisher announces committed changes on p.
func WithPublisher(p core.EventPublisher) Option {
	return func(c *Cashbook) { c.publisher = p }
}

// WithObserver reports every mutation outcome to o.
func WithObserver(o core.MutationObserver) Option {
	return func(c *Cashbook) { c.observer = o }
}

// WithLogger replaces the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Cashbook) {
		if logger != nil {
			c.logger = logger.WithComponent(log.ComponentCashbook)
		}
	}
}

// New returns an empty cashbook backed by store. Call Load to read
// persisted state.
func New(store Store, opts ...Option) *Cashbook {
	c := &Cashbook{
		store:  store,
		logger: log.Wrap(nil, log.ComponentCashbook),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the in-memory book with the persisted one, creating empty
// storage on first use. Malformed storage yields an empty book.
func (c *Cashbook) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.store.LoadBook(ctx)
	switch {
	case err == nil:
		c.book = b
		c.logger.InfoContext(ctx, "Cashbook loaded", "expenses", len(b.Expenses), "incomes", len(b.Incomes))
		return nil
	case errors.Is(err, storage.ErrNotFound):
		c.book = core.Book{}
		if err := c.store.SaveBook(ctx, c.book); err != nil {
			return fmt.Errorf("%w: initialize cashbook: %v", core.ErrPersistence, err)
		}
		c.logger.InfoContext(ctx, "Initialized empty cashbook")
		return nil
	case errors.Is(err, storage.ErrMalformed):
		c.book = core.Book{}
		c.logger.WarnContext(ctx, "Persisted cashbook is malformed, starting empty", log.FieldError, err)
		return nil
	default:
		return fmt.Errorf("%w: load cashbook: %v", core.ErrPersistence, err)
	}
}

// Save writes the current book.
func (c *Cashbook) Save(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.SaveBook(ctx, c.book); err != nil {
		return fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	return nil
}

// AddExpense records a positive amount as a negative entry and returns
// its index.
func (c *Cashbook) AddExpense(ctx context.Context, date core.Date, category core.Category, amount core.Money, description string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := amount.Validate(); err != nil {
		return -1, c.reject(core.OpAddExpense, err)
	}
	e := core.TaggedExpense{
		Date:        date,
		Category:    category,
		Amount:      amount.Neg(),
		Description: strings.TrimSpace(description),
	}
	if err := e.Validate(); err != nil {
		return -1, c.reject(core.OpAddExpense, err)
	}

	next := c.book.Clone()
	next.Expenses = append(next.Expenses, e)
	idx := len(next.Expenses) - 1
	if err := c.commit(ctx, next, core.OpAddExpense, idx, string(category), amount); err != nil {
		return -1, err
	}
	return idx, nil
}

// AddIncome records an income and returns its index.
func (c *Cashbook) AddIncome(ctx context.Context, date core.Date, source core.Source, amount core.Money, description string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inc := core.TaggedIncome{
		Date:        date,
		Source:      source,
		Amount:      amount,
		Description: strings.TrimSpace(description),
	}
	if err := inc.Validate(); err != nil {
		return -1, c.reject(core.OpAddIncome, err)
	}

	next := c.book.Clone()
	next.Incomes = append(next.Incomes, inc)
	idx := len(next.Incomes) - 1
	if err := c.commit(ctx, next, core.OpAddIncome, idx, string(source), amount); err != nil {
		return -1, err
	}
	return idx, nil
}

// RemoveExpense deletes the expense at index; out-of-range is a no-op.
func (c *Cashbook) RemoveExpense(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.book.Expenses) {
		return nil
	}
	next := c.book.Clone()
	removed := next.Expenses[index]
	next.Expenses = slices.Delete(next.Expenses, index, index+1)
	return c.commit(ctx, next, core.OpRemoveExpense, index, string(removed.Category), removed.Amount.Abs())
}

// RemoveIncome deletes the income at index; out-of-range is a no-op.
func (c *Cashbook) RemoveIncome(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.book.Incomes) {
		return nil
	}
	next := c.book.Clone()
	removed := next.Incomes[index]
	next.Incomes = slices.Delete(next.Incomes, index, index+1)
	return c.commit(ctx, next, core.OpRemoveIncome, index, string(removed.Source), removed.Amount)
}

// Expenses returns a copy of the expenses, each with a negative amount.
func (c *Cashbook) Expenses() []core.TaggedExpense {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.book.Expenses)
}

// Incomes returns a copy of the incomes.
func (c *Cashbook) Incomes() []core.TaggedIncome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.book.Incomes)
}

// Book returns a copy of the whole state.
func (c *Cashbook) Book() core.Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.book.Clone()
}

// commit persists next and only then swaps it in. Must hold c.mu.
func (c *Cashbook) commit(ctx context.Context, next core.Book, op core.Operation, index int, tag string, amount core.Money) error {
	fields := log.NewFields().WithMutation(Name, string(op), index, "")
	fields[log.FieldCategory] = tag
	fields[log.FieldAmountCents] = amount.Cents

	if err := c.store.SaveBook(ctx, next); err != nil {
		err = fmt.Errorf("%w: %v", core.ErrPersistence, err)
		c.observe(op, err)
		c.logger.ErrorContext(ctx, "Failed to persist cashbook mutation", fields.WithError(err).ToSlice()...)
		return err
	}
	c.book = next
	c.observe(op, nil)
	c.logger.InfoContext(ctx, "Cashbook updated", fields.ToSlice()...)

	if c.publisher != nil {
		ev := core.ChangeEvent{Ledger: Name, Operation: op, Index: index, Name: tag, At: c.now().UTC()}
		if err := c.publisher.Publish(ctx, ev); err != nil {
			c.logger.WarnContext(ctx, "Failed to publish change event", fields.WithError(err).ToSlice()...)
		}
	}
	return nil
}

func (c *Cashbook) reject(op core.Operation, err error) error {
	c.observe(op, err)
	return err
}

func (c *Cashbook) observe(op core.Operation, err error) {
	if c.observer != nil {
		c.observer.ObserveMutation(Name, op, err)
	}
}
