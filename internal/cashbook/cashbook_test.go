package cashbook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/storage"
)

type memStore struct {
	book    *core.Book
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) LoadBook(context.Context) (core.Book, error) {
	if m.loadErr != nil {
		return core.Book{}, m.loadErr
	}
	if m.book == nil {
		return core.Book{}, storage.ErrNotFound
	}
	return m.book.Clone(), nil
}

func (m *memStore) SaveBook(_ context.Context, b core.Book) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	c := b.Clone()
	m.book = &c
	m.saves++
	return nil
}

var day = core.NewDate(2024, 3, 1)

func newCashbook(t *testing.T) (*Cashbook, *memStore) {
	t.Helper()
	store := &memStore{}
	c := New(store, WithLogger(log.Discard()))
	require.NoError(t, c.Load(context.Background()))
	return c, store
}

func TestAddExpense_StoresNegative(t *testing.T) {
	c, store := newCashbook(t)

	idx, err := c.AddExpense(context.Background(), day, core.Food, core.Money{Cents: 2500}, "Lunch")
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	exps := c.Expenses()
	require.Len(t, exps, 1)
	require.Equal(t, int64(-2500), exps[0].Amount.Cents)
	require.Equal(t, core.Food, exps[0].Category)
	require.Equal(t, c.Book(), *store.book)
}

func TestAddExpense_Validation(t *testing.T) {
	ctx := context.Background()
	c, _ := newCashbook(t)

	_, err := c.AddExpense(ctx, day, core.Food, core.Money{Cents: -500}, "x")
	require.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = c.AddExpense(ctx, day, core.Food, core.Money{}, "x")
	require.ErrorIs(t, err, core.ErrInvalidAmount)
	_, err = c.AddExpense(ctx, day, core.Category("Rent"), core.Money{Cents: 100}, "x")
	require.ErrorIs(t, err, core.ErrInvalidCategory)
	require.Empty(t, c.Expenses())
}

func TestAddIncome(t *testing.T) {
	ctx := context.Background()
	c, _ := newCashbook(t)

	idx, err := c.AddIncome(ctx, day, core.Salary, core.Money{Cents: 100000}, "March")
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.Equal(t, int64(100000), c.Incomes()[0].Amount.Cents)

	_, err = c.AddIncome(ctx, day, core.Source("Lottery"), core.Money{Cents: 100}, "x")
	require.ErrorIs(t, err, core.ErrInvalidSource)
	_, err = c.AddIncome(ctx, day, core.Gift, core.Money{Cents: -100}, "x")
	require.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestRemoveByIndex(t *testing.T) {
	ctx := context.Background()
	c, store := newCashbook(t)

	for _, d := range []string{"a", "b"} {
		_, err := c.AddExpense(ctx, day, core.Transport, core.Money{Cents: 100}, d)
		require.NoError(t, err)
	}
	_, err := c.AddIncome(ctx, day, core.Gift, core.Money{Cents: 100}, "g")
	require.NoError(t, err)

	saves := store.saves
	require.NoError(t, c.RemoveExpense(ctx, 5))
	require.NoError(t, c.RemoveIncome(ctx, -1))
	require.Equal(t, saves, store.saves)

	require.NoError(t, c.RemoveExpense(ctx, 0))
	require.Equal(t, "b", c.Expenses()[0].Description)
	require.NoError(t, c.RemoveIncome(ctx, 0))
	require.Empty(t, c.Incomes())
}

func TestPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	c, store := newCashbook(t)
	store.saveErr = errors.New("read-only filesystem")

	_, err := c.AddExpense(ctx, day, core.Food, core.Money{Cents: 100}, "x")
	require.ErrorIs(t, err, core.ErrPersistence)
	require.Empty(t, c.Expenses())
}

func TestLoadStates(t *testing.T) {
	ctx := context.Background()

	malformed := &memStore{loadErr: storage.ErrMalformed}
	require.NoError(t, New(malformed, WithLogger(log.Discard())).Load(ctx))
	require.Zero(t, malformed.saves)

	broken := &memStore{loadErr: errors.New("io error")}
	require.ErrorIs(t, New(broken, WithLogger(log.Discard())).Load(ctx), core.ErrPersistence)
}

func TestCSVBackedFirstLoadCreatesFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	expPath := filepath.Join(dir, "expenses.csv")
	incPath := filepath.Join(dir, "income.csv")
	store := storage.NewCashbookFiles(expPath, incPath, log.Discard())

	c := New(store, WithLogger(log.Discard()))
	require.NoError(t, c.Load(ctx))

	for _, p := range []string{expPath, incPath} {
		_, err := os.Stat(p)
		require.NoError(t, err)
	}

	_, err := c.AddExpense(ctx, day, core.Health, core.Money{Cents: 4999}, "Pharmacy")
	require.NoError(t, err)
	_, err = c.AddIncome(ctx, day, core.Investment, core.Money{Cents: 1234}, "Dividend")
	require.NoError(t, err)

	reloaded := New(store, WithLogger(log.Discard()))
	require.NoError(t, reloaded.Load(ctx))
	require.Equal(t, c.Book(), reloaded.Book())
}

func TestLoad_KeepsExistingFileWhenOtherIsMissing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	expPath := filepath.Join(dir, "expenses.csv")
	incPath := filepath.Join(dir, "income.csv")
	expenses := "date,category,amount,description\n2024-03-02,Food,-20.00,Groceries\n"
	require.NoError(t, os.WriteFile(expPath, []byte(expenses), 0o644))

	c := New(storage.NewCashbookFiles(expPath, incPath, log.Discard()), WithLogger(log.Discard()))
	require.NoError(t, c.Load(ctx))
	require.Len(t, c.Expenses(), 1)
	require.Equal(t, core.Food, c.Expenses()[0].Category)
	require.Empty(t, c.Incomes())

	data, err := os.ReadFile(expPath)
	require.NoError(t, err)
	require.Equal(t, expenses, string(data))

	_, err = c.AddIncome(ctx, day, core.Salary, core.Money{Cents: 100000}, "March")
	require.NoError(t, err)
	data, err = os.ReadFile(expPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "Groceries")
}
