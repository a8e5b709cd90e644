package export

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/storage"
)

// Artifact is one rendered output. Table is set for tabular artifacts so
// destinations that understand cells can skip re-parsing Content.
type Artifact struct {
	Name    string
	Content []byte
	Table   *Table
}

func TableArtifact(t Table) (Artifact, error) {
	data, err := t.CSV()
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", t.Name, err)
	}
	return Artifact{Name: t.Name + ".csv", Content: data, Table: &t}, nil
}

func TextArtifact(name, text string) Artifact {
	return Artifact{Name: name, Content: []byte(text)}
}

// LedgerArtifacts renders every split-ledger export: the people, expense,
// income and balance tables plus the JSON snapshot.
func LedgerArtifacts(s core.Snapshot, balances []core.Balance) ([]Artifact, error) {
	var out []Artifact
	for _, t := range []Table{PeopleTable(s), ExpensesTable(s), IncomesTable(s), BalancesTable(balances)} {
		a, err := TableArtifact(t)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	snap, err := SnapshotJSON(s)
	if err != nil {
		return nil, err
	}
	return append(out, Artifact{Name: "snapshot.json", Content: snap}), nil
}

// CashbookArtifacts renders the cashbook tables and its summary text.
func CashbookArtifacts(b core.Book, summary core.Summary) ([]Artifact, error) {
	var out []Artifact
	for _, t := range []Table{CashbookExpensesTable(b), CashbookIncomesTable(b)} {
		a, err := TableArtifact(t)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return append(out, TextArtifact("summary.txt", SummaryText(summary)+"\n")), nil
}

// Destination receives rendered artifacts. Implementations must be safe
// for concurrent use.
type Destination interface {
	Name() string
	Write(ctx context.Context, a Artifact) error
}

// FileDestination writes each artifact to Dir/<artifact name>, replacing
// any previous file atomically.
type FileDestination struct {
	Dir string
}

func (d FileDestination) Name() string { return "file:" + d.Dir }

func (d FileDestination) Write(_ context.Context, a Artifact) error {
	return storage.WriteFileAtomic(filepath.Join(d.Dir, a.Name), a.Content)
}

// WriterDestination copies artifact content to W, one artifact at a time.
type WriterDestination struct {
	mu sync.Mutex
	W  io.Writer
}

func NewWriterDestination(w io.Writer) *WriterDestination {
	return &WriterDestination{W: w}
}

func (d *WriterDestination) Name() string { return "writer" }

func (d *WriterDestination) Write(_ context.Context, a Artifact) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.W.Write(a.Content)
	return err
}

// Exporter writes artifacts to every configured destination.
type Exporter struct {
	dests  []Destination
	logger *log.Logger
	limit  int
}

func NewExporter(logger *log.Logger, dests ...Destination) *Exporter {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentExport)
	}
	return &Exporter{dests: dests, logger: logger.WithComponent(log.ComponentExport), limit: 4}
}

// Export writes a single artifact and reports the outcome for display.
func (e *Exporter) Export(ctx context.Context, a Artifact) core.Result {
	err := e.ExportAll(ctx, []Artifact{a})
	return core.ResultOf(err, fmt.Sprintf("Exported %s", a.Name))
}

// ExportAll writes every artifact to every destination concurrently and
// returns the first failure.
func (e *Exporter) ExportAll(ctx context.Context, artifacts []Artifact) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for _, d := range e.dests {
		for _, a := range artifacts {
			g.Go(func() error {
				if err := d.Write(ctx, a); err != nil {
					e.logger.ErrorContext(ctx, "Export failed",
						log.FieldDestination, d.Name(), "artifact", a.Name, log.FieldError, err)
					return fmt.Errorf("export %s to %s: %w", a.Name, d.Name(), err)
				}
				e.logger.DebugContext(ctx, "Exported artifact",
					log.FieldDestination, d.Name(), "artifact", a.Name, "bytes", len(a.Content))
				return nil
			})
		}
	}
	return g.Wait()
}
