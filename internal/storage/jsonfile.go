package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ledger/internal/core"
	"ledger/internal/log"
)

// LedgerFile keeps the split ledger in a single JSON document.
type LedgerFile struct {
	path   string
	logger *log.Logger
}

func NewLedgerFile(path string, logger *log.Logger) *LedgerFile {
	return &LedgerFile{path: path, logger: storageLogger(logger)}
}

// Path returns the document location.
func (f *LedgerFile) Path() string { return f.path }

type personRecord struct {
	Name string `json:"name"`
}

type expenseRecord struct {
	Date         string   `json:"date"`
	Description  string   `json:"description"`
	Amount       *float64 `json:"amount"`
	Payer        string   `json:"payer"`
	Participants []string `json:"participants"`
}

type incomeRecord struct {
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Amount      *float64 `json:"amount"`
	Recipient   string   `json:"recipient"`
}

// ledgerDocument keeps raw records so one bad entry does not poison the load.
type ledgerDocument struct {
	People   []json.RawMessage `json:"people"`
	Expenses []json.RawMessage `json:"expenses"`
	Incomes  []json.RawMessage `json:"incomes"`
}

// LoadLedger reads the document. It returns ErrNotFound when the file does
// not exist and ErrMalformed when it is not a ledger document.
func (f *LedgerFile) LoadLedger(ctx context.Context) (core.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return core.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("read %s: %w", f.path, err)
	}

	var doc ledgerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var s core.Snapshot
	for i, raw := range doc.People {
		var rec personRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			f.logger.WarnContext(ctx, "Skipping undecodable person", log.FieldIndex, i, log.FieldError, err)
			continue
		}
		s.People = append(s.People, core.Person{Name: rec.Name})
	}
	for i, raw := range doc.Expenses {
		e, err := decodeExpense(raw)
		if err != nil {
			f.logger.WarnContext(ctx, "Skipping undecodable expense", log.FieldIndex, i, log.FieldError, err)
			continue
		}
		s.Expenses = append(s.Expenses, e)
	}
	for i, raw := range doc.Incomes {
		inc, err := decodeIncome(raw)
		if err != nil {
			f.logger.WarnContext(ctx, "Skipping undecodable income", log.FieldIndex, i, log.FieldError, err)
			continue
		}
		s.Incomes = append(s.Incomes, inc)
	}

	return sanitizeSnapshot(ctx, f.logger, s), nil
}

func decodeExpense(raw json.RawMessage) (core.Expense, error) {
	var rec expenseRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return core.Expense{}, err
	}
	if rec.Amount == nil {
		return core.Expense{}, fmt.Errorf("%w: missing amount", core.ErrInvalidAmount)
	}
	d, err := core.ParseDate(rec.Date)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Date:         d,
		Description:  rec.Description,
		Amount:       core.FromFloat(*rec.Amount),
		Payer:        rec.Payer,
		Participants: rec.Participants,
	}, nil
}

func decodeIncome(raw json.RawMessage) (core.Income, error) {
	var rec incomeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return core.Income{}, err
	}
	if rec.Amount == nil {
		return core.Income{}, fmt.Errorf("%w: missing amount", core.ErrInvalidAmount)
	}
	d, err := core.ParseDate(rec.Date)
	if err != nil {
		return core.Income{}, err
	}
	return core.Income{
		Date:        d,
		Description: rec.Description,
		Amount:      core.FromFloat(*rec.Amount),
		Recipient:   rec.Recipient,
	}, nil
}

// SaveLedger rewrites the whole document.
func (f *LedgerFile) SaveLedger(ctx context.Context, s core.Snapshot) error {
	doc := struct {
		People   []personRecord  `json:"people"`
		Expenses []expenseRecord `json:"expenses"`
		Incomes  []incomeRecord  `json:"incomes"`
	}{
		People:   make([]personRecord, 0, len(s.People)),
		Expenses: make([]expenseRecord, 0, len(s.Expenses)),
		Incomes:  make([]incomeRecord, 0, len(s.Incomes)),
	}
	for _, p := range s.People {
		doc.People = append(doc.People, personRecord{Name: p.Name})
	}
	for _, e := range s.Expenses {
		amount := e.Amount.Float()
		doc.Expenses = append(doc.Expenses, expenseRecord{
			Date:         e.Date.String(),
			Description:  e.Description,
			Amount:       &amount,
			Payer:        e.Payer,
			Participants: append([]string{}, e.Participants...),
		})
	}
	for _, inc := range s.Incomes {
		amount := inc.Amount.Float()
		doc.Incomes = append(doc.Incomes, incomeRecord{
			Date:        inc.Date.String(),
			Description: inc.Description,
			Amount:      &amount,
			Recipient:   inc.Recipient,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := WriteFileAtomic(f.path, buf.Bytes()); err != nil {
		return err
	}

	f.logger.DebugContext(ctx, "Ledger saved",
		"path", f.path,
		"people", len(s.People),
		"expenses", len(s.Expenses),
		"incomes", len(s.Incomes))
	return nil
}

// WriteFileAtomic writes data to path+".tmp" and renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
