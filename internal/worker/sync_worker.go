// Package worker re-exports ledger state whenever a change event arrives,
// and periodically as a backstop for lost events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/balance"
	"ledger/internal/cashbook"
	"ledger/internal/export"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/storage"
)

// Sync triggers, used as metric labels.
const (
	TriggerEvent    = "event"
	TriggerPeriodic = "periodic"
	TriggerStartup  = "startup"
)

// SyncObserver records the outcome of each sync run.
type SyncObserver interface {
	ObserveSync(trigger string, err error)
}

// SyncWorker handles synchronization of persisted ledgers to the export
// destinations. It always reads current state from the stores, so a
// message only says which ledger to export.
type SyncWorker struct {
	ledgers  ledger.Store
	books    cashbook.Store
	exporter *export.Exporter
	observer SyncObserver
	logger   *log.Logger
}

type Option func(*SyncWorker)

func WithObserver(o SyncObserver) Option {
	return func(w *SyncWorker) { w.observer = o }
}

func WithLogger(logger *log.Logger) Option {
	return func(w *SyncWorker) { w.logger = logger }
}

func NewSyncWorker(ledgers ledger.Store, books cashbook.Store, exporter *export.Exporter, opts ...Option) *SyncWorker {
	w := &SyncWorker{
		ledgers:  ledgers,
		books:    books,
		exporter: exporter,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = log.Wrap(nil, log.ComponentWorker)
	}
	w.logger = w.logger.WithComponent(log.ComponentWorker)
	return w
}

// HandleChangeMessage exports the ledger named by msg. A returned error
// makes the consumer requeue the message.
func (w *SyncWorker) HandleChangeMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.logger.InfoContext(ctx, "Processing change message",
		log.FieldMessageID, msg.ID,
		log.FieldLedger, msg.Ledger,
		log.FieldOperation, msg.Operation,
		log.FieldIndex, msg.Index)

	var err error
	switch msg.Ledger {
	case ledger.Name:
		err = w.syncLedger(ctx)
	case cashbook.Name:
		err = w.syncCashbook(ctx)
	default:
		w.logger.WarnContext(ctx, "Ignoring change message for unknown ledger",
			log.FieldMessageID, msg.ID, log.FieldLedger, msg.Ledger)
		return nil
	}
	w.observe(TriggerEvent, err)
	return err
}

// SyncAll exports both ledgers. Both are attempted even if the first fails.
func (w *SyncWorker) SyncAll(ctx context.Context, trigger string) error {
	start := time.Now()
	err := errors.Join(w.syncLedger(ctx), w.syncCashbook(ctx))
	w.observe(trigger, err)

	if err != nil {
		w.logger.ErrorContext(ctx, "Sync failed", "trigger", trigger, log.FieldError, err)
		return err
	}
	w.logger.InfoContext(ctx, "Sync completed", "trigger", trigger, log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// RunPeriodic calls SyncAll every interval until ctx is cancelled.
// Failures are logged and retried on the next tick.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = w.SyncAll(ctx, TriggerPeriodic)
		}
	}
}

func (w *SyncWorker) syncLedger(ctx context.Context) error {
	s, err := w.ledgers.LoadLedger(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		w.logger.DebugContext(ctx, "No split ledger persisted yet, nothing to export")
		return nil
	case errors.Is(err, storage.ErrMalformed):
		// retrying cannot fix the document
		w.logger.WarnContext(ctx, "Persisted split ledger is malformed, skipping export", log.FieldError, err)
		return nil
	case err != nil:
		return fmt.Errorf("load split ledger: %w", err)
	}

	artifacts, err := export.LedgerArtifacts(s, balance.ComputeBalances(s))
	if err != nil {
		return fmt.Errorf("render split ledger: %w", err)
	}
	if err := w.exporter.ExportAll(ctx, artifacts); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Exported split ledger",
		"people", len(s.People), "expenses", len(s.Expenses), "incomes", len(s.Incomes))
	return nil
}

func (w *SyncWorker) syncCashbook(ctx context.Context) error {
	b, err := w.books.LoadBook(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		w.logger.DebugContext(ctx, "No cashbook persisted yet, nothing to export")
		return nil
	case errors.Is(err, storage.ErrMalformed):
		w.logger.WarnContext(ctx, "Persisted cashbook is malformed, skipping export", log.FieldError, err)
		return nil
	case err != nil:
		return fmt.Errorf("load cashbook: %w", err)
	}

	artifacts, err := export.CashbookArtifacts(b, balance.Summary(b))
	if err != nil {
		return fmt.Errorf("render cashbook: %w", err)
	}
	if err := w.exporter.ExportAll(ctx, artifacts); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Exported cashbook", "expenses", len(b.Expenses), "incomes", len(b.Incomes))
	return nil
}

func (w *SyncWorker) observe(trigger string, err error) {
	if w.observer != nil {
		w.observer.ObserveSync(trigger, err)
	}
}
