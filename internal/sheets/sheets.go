// Package sheets exports rendered artifacts into a Google Sheets
// spreadsheet, one tab per artifact.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledger/internal/export"
	"ledger/internal/log"
)

// Config selects the spreadsheet and the tab name prefix.
type Config struct {
	SpreadsheetID string
	// SheetPrefix is prepended to each tab name, e.g. "Ledger" gives
	// "Ledger people".
	SheetPrefix string
}

// Destination overwrites one tab per artifact. Tabs must already exist.
type Destination struct {
	svc    *gsheet.Service
	cfg    Config
	logger *log.Logger
}

var _ export.Destination = (*Destination)(nil)

// New creates a Destination with a service-account credential. Extra
// client options are appended, which tests use to point at a fake server.
func New(ctx context.Context, cfg Config, credentialsJSON []byte, logger *log.Logger, opts ...goption.ClientOption) (*Destination, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentSheets)
	}
	logger = logger.WithComponent(log.ComponentSheets)

	var all []goption.ClientOption
	if len(credentialsJSON) > 0 {
		all = append(all,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	all = append(all, opts...)

	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets destination ready", "spreadsheet_id", cfg.SpreadsheetID)
	return &Destination{svc: svc, cfg: cfg, logger: logger}, nil
}

// LoadCredentials returns inline JSON when set, otherwise the content of
// file.
func LoadCredentials(inlineJSON, file string) ([]byte, error) {
	inlineJSON = strings.TrimSpace(inlineJSON)
	file = strings.TrimSpace(file)
	switch {
	case inlineJSON != "":
		return []byte(inlineJSON), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

func (d *Destination) Name() string { return "sheets:" + d.cfg.SpreadsheetID }

// TabName maps an artifact to its tab: the artifact name without extension,
// prefixed when a prefix is configured.
func (d *Destination) TabName(a export.Artifact) string {
	name := a.Name
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if d.cfg.SheetPrefix != "" {
		name = d.cfg.SheetPrefix + " " + name
	}
	return name
}

// Write clears the tab and writes the artifact from A1. Tabular artifacts
// keep their cells; anything else is written one line per row.
func (d *Destination) Write(ctx context.Context, a export.Artifact) error {
	tab := d.TabName(a)
	sheetRange := fmt.Sprintf("'%s'", tab)

	if _, err := d.svc.Spreadsheets.Values.Clear(d.cfg.SpreadsheetID, sheetRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{Values: values(a)}
	resp, err := d.svc.Spreadsheets.Values.Update(d.cfg.SpreadsheetID, sheetRange+"!A1", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update sheet %s: %w", tab, err)
	}
	d.logger.DebugContext(ctx, "Sheet updated", "sheet", tab, "rows", len(vr.Values), "updated_cells", resp.UpdatedCells)
	return nil
}

func values(a export.Artifact) [][]any {
	if a.Table != nil {
		out := make([][]any, 0, len(a.Table.Rows)+1)
		out = append(out, row(a.Table.Header))
		for _, r := range a.Table.Rows {
			out = append(out, row(r))
		}
		return out
	}
	lines := strings.Split(strings.TrimRight(string(a.Content), "\n"), "\n")
	out := make([][]any, 0, len(lines))
	for _, l := range lines {
		out = append(out, []any{l})
	}
	return out
}

func row(cells []string) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
