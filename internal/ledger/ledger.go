// Package ledger is the split-ledger record store: people, shared expenses
// split equally among participants, and incomes. All operations are
// serialized; a mutation becomes visible only after it has been persisted.
package ledger

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

// Name identifies this ledger in change events and metrics.
const Name = "split"

// Store persists the full ledger state.
type Store interface {
	LoadLedger(ctx context.Context) (core.Snapshot, error)
	SaveLedger(ctx context.Context, s core.Snapshot) error
}

// Ledger holds people, shared expenses and incomes in memory and persists
// every change through its Store.
type Ledger struct {
	mu        sync.Mutex
	state     core.Snapshot
	store     Store
	publisher core.EventPublisher
	observer  core.MutationObserver
	logger    *log.Logger
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPublisher announces committed changes on p.
func WithPublisher(p core.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithObserver reports every mutation outcome to o.
func WithObserver(o core.MutationObserver) Option {
	return func(l *Ledger) { l.observer = o }
}

// WithLogger replaces the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger.WithComponent(log.ComponentLedger)
		}
	}
}

// New returns an empty ledger backed by store. Call Load to read
// persisted state.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: log.Wrap(nil, log.ComponentLedger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces the in-memory state with the persisted one. Missing state
// is initialized empty and written back. Malformed state yields an empty
// ledger and is left on disk untouched.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.store.LoadLedger(ctx)
	switch {
	case err == nil:
		l.state = s
		l.logger.InfoContext(ctx, "Ledger loaded",
			"people", len(s.People),
			"expenses", len(s.Expenses),
			"incomes", len(s.Incomes))
		return nil
	case errors.Is(err, storage.ErrNotFound):
		l.state = core.Snapshot{}
		if err := l.store.SaveLedger(ctx, l.state); err != nil {
			return fmt.Errorf("%w: initialize ledger: %v", core.ErrPersistence, err)
		}
		l.logger.InfoContext(ctx, "Initialized empty ledger")
		return nil
	case errors.Is(err, storage.ErrMalformed):
		l.state = core.Snapshot{}
		l.logger.WarnContext(ctx, "Persisted ledger is malformed, starting empty", log.FieldError, err)
		return nil
	default:
		return fmt.Errorf("%w: load ledger: %v", core.ErrPersistence, err)
	}
}

// Save writes the current state.
func (l *Ledger) Save(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.SaveLedger(ctx, l.state); err != nil {
		return fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	return nil
}

// AddPerson registers a new person. Names must be unique.
func (l *Ledger) AddPerson(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := core.Person{Name: name}
	if err := p.Validate(); err != nil {
		return l.reject(core.OpAddPerson, err)
	}
	if l.state.HasPerson(name) {
		return l.reject(core.OpAddPerson, fmt.Errorf("%w: person %q already exists", core.ErrDuplicateEntity, name))
	}

	next := l.state.Clone()
	next.People = append(next.People, p)
	return l.commit(ctx, next, core.OpAddPerson, len(next.People)-1, name)
}

// RemovePerson deletes the person together with every expense they paid
// or participate in and every income they received. Unknown names are a
// no-op.
func (l *Ledger) RemovePerson(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := slices.IndexFunc(l.state.People, func(p core.Person) bool { return p.Name == name })
	if idx < 0 {
		return nil
	}

	next := core.Snapshot{}
	for _, p := range l.state.People {
		if p.Name != name {
			next.People = append(next.People, p)
		}
	}
	dropped := 0
	for _, e := range l.state.Expenses {
		if e.Involves(name) {
			dropped++
			continue
		}
		e.Participants = slices.Clone(e.Participants)
		next.Expenses = append(next.Expenses, e)
	}
	for _, inc := range l.state.Incomes {
		if inc.Recipient == name {
			dropped++
			continue
		}
		next.Incomes = append(next.Incomes, inc)
	}

	if err := l.commit(ctx, next, core.OpRemovePerson, idx, name); err != nil {
		return err
	}
	if dropped > 0 {
		l.logger.InfoContext(ctx, "Removed records referencing person", log.FieldPerson, name, "records", dropped)
	}
	return nil
}

// AddExpense records a shared expense and returns its index. Repeated
// participant names are collapsed.
func (l *Ledger) AddExpense(ctx context.Context, date core.Date, description string, amount core.Money, payer string, participants []string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := core.Expense{
		Date:         date,
		Description:  strings.TrimSpace(description),
		Amount:       amount,
		Payer:        payer,
		Participants: uniqueNames(participants),
	}
	if err := e.Validate(); err != nil {
		return -1, l.reject(core.OpAddExpense, err)
	}
	if !l.state.HasPerson(payer) {
		return -1, l.reject(core.OpAddExpense, fmt.Errorf("%w: payer %q", core.ErrUnknownPerson, payer))
	}
	for _, p := range e.Participants {
		if !l.state.HasPerson(p) {
			return -1, l.reject(core.OpAddExpense, fmt.Errorf("%w: participant %q", core.ErrUnknownPerson, p))
		}
	}

	next := l.state.Clone()
	next.Expenses = append(next.Expenses, e)
	idx := len(next.Expenses) - 1
	if err := l.commit(ctx, next, core.OpAddExpense, idx, payer); err != nil {
		return -1, err
	}
	return idx, nil
}

// RemoveExpense deletes the expense at index. Out-of-range indices are a
// no-op.
func (l *Ledger) RemoveExpense(ctx context.Context, index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.state.Expenses) {
		return nil
	}
	next := l.state.Clone()
	next.Expenses = slices.Delete(next.Expenses, index, index+1)
	return l.commit(ctx, next, core.OpRemoveExpense, index, "")
}

// AddIncome records an income and returns its index.
func (l *Ledger) AddIncome(ctx context.Context, date core.Date, description string, amount core.Money, recipient string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	inc := core.Income{
		Date:        date,
		Description: strings.TrimSpace(description),
		Amount:      amount,
		Recipient:   recipient,
	}
	if err := inc.Validate(); err != nil {
		return -1, l.reject(core.OpAddIncome, err)
	}
	if !l.state.HasPerson(recipient) {
		return -1, l.reject(core.OpAddIncome, fmt.Errorf("%w: recipient %q", core.ErrUnknownPerson, recipient))
	}

	next := l.state.Clone()
	next.Incomes = append(next.Incomes, inc)
	idx := len(next.Incomes) - 1
	if err := l.commit(ctx, next, core.OpAddIncome, idx, recipient); err != nil {
		return -1, err
	}
	return idx, nil
}

// RemoveIncome deletes the income at index. Out-of-range indices are a
// no-op.
func (l *Ledger) RemoveIncome(ctx context.Context, index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.state.Incomes) {
		return nil
	}
	next := l.state.Clone()
	next.Incomes = slices.Delete(next.Incomes, index, index+1)
	return l.commit(ctx, next, core.OpRemoveIncome, index, "")
}

// People returns a copy of the registered people in insertion order.
func (l *Ledger) People() []core.Person {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.state.People)
}

// Expenses returns a copy of the shared expenses.
func (l *Ledger) Expenses() []core.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Clone().Expenses
}

// Incomes returns a copy of the incomes.
func (l *Ledger) Incomes() []core.Income {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.state.Incomes)
}

// Snapshot returns a deep copy of the whole state.
func (l *Ledger) Snapshot() core.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Clone()
}

// commit persists next and only then swaps it in. Must hold l.mu.
func (l *Ledger) commit(ctx context.Context, next core.Snapshot, op core.Operation, index int, person string) error {
	if err := l.store.SaveLedger(ctx, next); err != nil {
		err = fmt.Errorf("%w: %v", core.ErrPersistence, err)
		l.observe(op, err)
		l.logger.ErrorContext(ctx, "Failed to persist ledger mutation",
			log.NewFields().WithMutation(Name, string(op), index, person).WithError(err).ToSlice()...)
		return err
	}
	l.state = next
	l.observe(op, nil)
	l.logger.InfoContext(ctx, "Ledger updated", log.NewFields().WithMutation(Name, string(op), index, person).ToSlice()...)

	if l.publisher != nil {
		ev := core.ChangeEvent{Ledger: Name, Operation: op, Index: index, Name: person, At: l.now().UTC()}
		if err := l.publisher.Publish(ctx, ev); err != nil {
			l.logger.WarnContext(ctx, "Failed to publish change event",
				log.NewFields().WithMutation(Name, string(op), index, person).WithError(err).ToSlice()...)
		}
	}
	return nil
}

func (l *Ledger) reject(op core.Operation, err error) error {
	l.observe(op, err)
	return err
}

func (l *Ledger) observe(op core.Operation, err error) {
	if l.observer != nil {
		l.observer.ObserveMutation(Name, op, err)
	}
}

func uniqueNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
