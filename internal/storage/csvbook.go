package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"ledger/internal/core"
	"ledger/internal/log"
)

var (
	expenseHeader = []string{"date", "category", "amount", "description"}
	incomeHeader  = []string{"date", "source", "amount", "description"}
)

// CashbookFiles keeps the cashbook as two CSV files, one for expenses and
// one for incomes.
type CashbookFiles struct {
	expensesPath string
	incomePath   string
	logger       *log.Logger
}

func NewCashbookFiles(expensesPath, incomePath string, logger *log.Logger) *CashbookFiles {
	return &CashbookFiles{expensesPath: expensesPath, incomePath: incomePath, logger: storageLogger(logger)}
}

// LoadBook reads the two files independently. A missing file is created
// empty and a file with an unexpected header contributes no records; the
// other file is read as usual.
// ErrNotFound is returned only when both files are missing, ErrMalformed
// only when both are malformed.
func (c *CashbookFiles) LoadBook(ctx context.Context) (core.Book, error) {
	expRows, expErr := readCSV(c.expensesPath, expenseHeader)
	incRows, incErr := readCSV(c.incomePath, incomeHeader)
	switch {
	case errors.Is(expErr, ErrNotFound) && errors.Is(incErr, ErrNotFound):
		return core.Book{}, ErrNotFound
	case errors.Is(expErr, ErrMalformed) && errors.Is(incErr, ErrMalformed):
		return core.Book{}, fmt.Errorf("%w: %v; %v", ErrMalformed, expErr, incErr)
	}
	if err := c.recoverFile(ctx, c.expensesPath, expenseHeader, expErr); err != nil {
		return core.Book{}, err
	}
	if err := c.recoverFile(ctx, c.incomePath, incomeHeader, incErr); err != nil {
		return core.Book{}, err
	}

	var b core.Book
	for i, row := range expRows {
		e, err := parseExpenseRow(row)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping malformed expense row", "path", c.expensesPath, log.FieldIndex, i, log.FieldError, err)
			continue
		}
		b.Expenses = append(b.Expenses, e)
	}
	for i, row := range incRows {
		inc, err := parseIncomeRow(row)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping malformed income row", "path", c.incomePath, log.FieldIndex, i, log.FieldError, err)
			continue
		}
		b.Incomes = append(b.Incomes, inc)
	}
	return sanitizeBook(ctx, c.logger, b), nil
}

// recoverFile handles a single file's read error: a missing file is
// created with just its header, a malformed one is logged and left alone.
func (c *CashbookFiles) recoverFile(ctx context.Context, path string, header []string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		if err := writeCSV(path, header, nil); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		c.logger.InfoContext(ctx, "Created empty cashbook file", "path", path)
		return nil
	case errors.Is(err, ErrMalformed):
		c.logger.WarnContext(ctx, "Cashbook file is malformed, reading it as empty", "path", path, log.FieldError, err)
		return nil
	default:
		return err
	}
}

func readCSV(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	got, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	if !slices.Equal(got, header) {
		return nil, fmt.Errorf("%w: %s: unexpected header %v", ErrMalformed, path, got)
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// a broken quote is confined to its row
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseExpenseRow(row []string) (core.TaggedExpense, error) {
	if len(row) != len(expenseHeader) {
		return core.TaggedExpense{}, fmt.Errorf("expected %d fields, got %d", len(expenseHeader), len(row))
	}
	d, err := core.ParseDate(row[0])
	if err != nil {
		return core.TaggedExpense{}, err
	}
	cat, err := core.ParseCategory(row[1])
	if err != nil {
		return core.TaggedExpense{}, err
	}
	amount, err := core.ParseSignedMoney(row[2])
	if err != nil {
		return core.TaggedExpense{}, err
	}
	return core.TaggedExpense{Date: d, Category: cat, Amount: amount, Description: row[3]}, nil
}

func parseIncomeRow(row []string) (core.TaggedIncome, error) {
	if len(row) != len(incomeHeader) {
		return core.TaggedIncome{}, fmt.Errorf("expected %d fields, got %d", len(incomeHeader), len(row))
	}
	d, err := core.ParseDate(row[0])
	if err != nil {
		return core.TaggedIncome{}, err
	}
	src, err := core.ParseSource(row[1])
	if err != nil {
		return core.TaggedIncome{}, err
	}
	amount, err := core.ParseSignedMoney(row[2])
	if err != nil {
		return core.TaggedIncome{}, err
	}
	return core.TaggedIncome{Date: d, Source: src, Amount: amount, Description: row[3]}, nil
}

// SaveBook rewrites both files. The expenses file is written first; a
// failure on the income file leaves the previous income file in place.
func (c *CashbookFiles) SaveBook(ctx context.Context, b core.Book) error {
	expRows := make([][]string, 0, len(b.Expenses))
	for _, e := range b.Expenses {
		expRows = append(expRows, []string{e.Date.String(), string(e.Category), e.Amount.String(), e.Description})
	}
	incRows := make([][]string, 0, len(b.Incomes))
	for _, inc := range b.Incomes {
		incRows = append(incRows, []string{inc.Date.String(), string(inc.Source), inc.Amount.String(), inc.Description})
	}

	if err := writeCSV(c.expensesPath, expenseHeader, expRows); err != nil {
		return err
	}
	if err := writeCSV(c.incomePath, incomeHeader, incRows); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "Cashbook saved", "expenses", len(b.Expenses), "incomes", len(b.Incomes))
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return WriteFileAtomic(path, buf.Bytes())
}
