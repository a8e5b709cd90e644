package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"

	_ "modernc.org/sqlite"
)

const (
	metaLedger   = "ledger"
	metaCashbook = "cashbook"
)

// SQLiteRepository stores both the split ledger and the cashbook in one
// database. Saves replace all rows of a state inside a transaction.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer keeps sqlite from returning SQLITE_BUSY under the HTTP server
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: storageLogger(logger)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) saved(ctx context.Context, name string) (bool, error) {
	var savedAt string
	err := r.db.QueryRowContext(ctx, `SELECT saved_at FROM state_meta WHERE name = ?`, name).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read state meta: %w", err)
	}
	return true, nil
}

func markSaved(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO state_meta (name, saved_at) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET saved_at = excluded.saved_at`,
		name, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write state meta: %w", err)
	}
	return nil
}

// LoadLedger implements ledger.Store.
func (r *SQLiteRepository) LoadLedger(ctx context.Context) (core.Snapshot, error) {
	ok, err := r.saved(ctx, metaLedger)
	if err != nil {
		return core.Snapshot{}, err
	}
	if !ok {
		return core.Snapshot{}, ErrNotFound
	}

	var s core.Snapshot

	rows, err := r.db.QueryContext(ctx, `SELECT name FROM people ORDER BY position`)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("query people: %w", err)
	}
	for rows.Next() {
		var p core.Person
		if err := rows.Scan(&p.Name); err != nil {
			rows.Close()
			return core.Snapshot{}, fmt.Errorf("scan person: %w", err)
		}
		s.People = append(s.People, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return core.Snapshot{}, fmt.Errorf("iterate people: %w", err)
	}

	participants, err := r.participants(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT position, date, description, amount_cents, payer FROM expenses ORDER BY position`)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("query expenses: %w", err)
	}
	for rows.Next() {
		var (
			pos  int64
			date string
			e    core.Expense
		)
		if err := rows.Scan(&pos, &date, &e.Description, &e.Amount.Cents, &e.Payer); err != nil {
			rows.Close()
			return core.Snapshot{}, fmt.Errorf("scan expense: %w", err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping expense row with bad date", "position", pos, log.FieldError, err)
			continue
		}
		e.Date = d
		e.Participants = participants[pos]
		s.Expenses = append(s.Expenses, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return core.Snapshot{}, fmt.Errorf("iterate expenses: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT position, date, description, amount_cents, recipient FROM incomes ORDER BY position`)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("query incomes: %w", err)
	}
	for rows.Next() {
		var (
			pos  int64
			date string
			inc  core.Income
		)
		if err := rows.Scan(&pos, &date, &inc.Description, &inc.Amount.Cents, &inc.Recipient); err != nil {
			rows.Close()
			return core.Snapshot{}, fmt.Errorf("scan income: %w", err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping income row with bad date", "position", pos, log.FieldError, err)
			continue
		}
		inc.Date = d
		s.Incomes = append(s.Incomes, inc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return core.Snapshot{}, fmt.Errorf("iterate incomes: %w", err)
	}

	return sanitizeSnapshot(ctx, r.logger, s), nil
}

func (r *SQLiteRepository) participants(ctx context.Context) (map[int64][]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT expense_position, name FROM expense_participants ORDER BY expense_position, ordinal`)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var (
			pos  int64
			name string
		)
		if err := rows.Scan(&pos, &name); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out[pos] = append(out[pos], name)
	}
	return out, rows.Err()
}

// SaveLedger implements ledger.Store.
func (r *SQLiteRepository) SaveLedger(ctx context.Context, s core.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"people", "expenses", "expense_participants", "incomes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, p := range s.People {
		if _, err := tx.ExecContext(ctx, `INSERT INTO people (position, name) VALUES (?, ?)`, i, p.Name); err != nil {
			return fmt.Errorf("insert person: %w", err)
		}
	}
	for i, e := range s.Expenses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (position, date, description, amount_cents, payer) VALUES (?, ?, ?, ?, ?)`,
			i, e.Date.String(), e.Description, e.Amount.Cents, e.Payer); err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		for j, name := range e.Participants {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO expense_participants (expense_position, ordinal, name) VALUES (?, ?, ?)`,
				i, j, name); err != nil {
				return fmt.Errorf("insert participant: %w", err)
			}
		}
	}
	for i, inc := range s.Incomes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO incomes (position, date, description, amount_cents, recipient) VALUES (?, ?, ?, ?, ?)`,
			i, inc.Date.String(), inc.Description, inc.Amount.Cents, inc.Recipient); err != nil {
			return fmt.Errorf("insert income: %w", err)
		}
	}

	if err := markSaved(ctx, tx, metaLedger); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}

	r.logger.DebugContext(ctx, "Ledger saved to SQLite",
		"people", len(s.People),
		"expenses", len(s.Expenses),
		"incomes", len(s.Incomes))
	return nil
}

// LoadBook implements cashbook.Store.
func (r *SQLiteRepository) LoadBook(ctx context.Context) (core.Book, error) {
	ok, err := r.saved(ctx, metaCashbook)
	if err != nil {
		return core.Book{}, err
	}
	if !ok {
		return core.Book{}, ErrNotFound
	}

	var b core.Book

	rows, err := r.db.QueryContext(ctx,
		`SELECT date, category, amount_cents, description FROM cashbook_expenses ORDER BY position`)
	if err != nil {
		return core.Book{}, fmt.Errorf("query cashbook expenses: %w", err)
	}
	for rows.Next() {
		var (
			date, category string
			e              core.TaggedExpense
		)
		if err := rows.Scan(&date, &category, &e.Amount.Cents, &e.Description); err != nil {
			rows.Close()
			return core.Book{}, fmt.Errorf("scan cashbook expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			r.logger.WarnContext(ctx, "Skipping cashbook expense with bad date", log.FieldError, err)
			continue
		}
		e.Category = core.Category(category)
		b.Expenses = append(b.Expenses, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return core.Book{}, fmt.Errorf("iterate cashbook expenses: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT date, source, amount_cents, description FROM cashbook_incomes ORDER BY position`)
	if err != nil {
		return core.Book{}, fmt.Errorf("query cashbook incomes: %w", err)
	}
	for rows.Next() {
		var (
			date, source string
			inc          core.TaggedIncome
		)
		if err := rows.Scan(&date, &source, &inc.Amount.Cents, &inc.Description); err != nil {
			rows.Close()
			return core.Book{}, fmt.Errorf("scan cashbook income: %w", err)
		}
		if inc.Date, err = core.ParseDate(date); err != nil {
			r.logger.WarnContext(ctx, "Skipping cashbook income with bad date", log.FieldError, err)
			continue
		}
		inc.Source = core.Source(source)
		b.Incomes = append(b.Incomes, inc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return core.Book{}, fmt.Errorf("iterate cashbook incomes: %w", err)
	}

	return sanitizeBook(ctx, r.logger, b), nil
}

// SaveBook implements cashbook.Store.
func (r *SQLiteRepository) SaveBook(ctx context.Context, b core.Book) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"cashbook_expenses", "cashbook_incomes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i, e := range b.Expenses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cashbook_expenses (position, date, category, amount_cents, description) VALUES (?, ?, ?, ?, ?)`,
			i, e.Date.String(), string(e.Category), e.Amount.Cents, e.Description); err != nil {
			return fmt.Errorf("insert cashbook expense: %w", err)
		}
	}
	for i, inc := range b.Incomes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cashbook_incomes (position, date, source, amount_cents, description) VALUES (?, ?, ?, ?, ?)`,
			i, inc.Date.String(), string(inc.Source), inc.Amount.Cents, inc.Description); err != nil {
			return fmt.Errorf("insert cashbook income: %w", err)
		}
	}

	if err := markSaved(ctx, tx, metaCashbook); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cashbook: %w", err)
	}

	r.logger.DebugContext(ctx, "Cashbook saved to SQLite", "expenses", len(b.Expenses), "incomes", len(b.Incomes))
	return nil
}
