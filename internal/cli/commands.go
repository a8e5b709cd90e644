package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ledger/internal/balance"
	"ledger/internal/cashbook"
	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/ledger"
)

const usage = `usage: ledger <command> [arguments]

split ledger:
  person add NAME | person remove NAME | person list
  expense add -amount N -payer NAME -participants A,B [-date YYYY-MM-DD] [-desc TEXT]
  expense remove INDEX | expense list
  income add -amount N -recipient NAME [-date YYYY-MM-DD] [-desc TEXT]
  income remove INDEX | income list
  balances
  settle

cashbook:
  cashbook expense add -amount N -category NAME [-date YYYY-MM-DD] [-desc TEXT]
  cashbook income add -amount N -source NAME [-date YYYY-MM-DD] [-desc TEXT]
  cashbook expense remove INDEX | cashbook income remove INDEX
  cashbook expense list | cashbook income list
  summary
  report YEAR MONTH

export [split|cashbook|all]
snapshot          print the split ledger and its balances as JSON
`

var errUsage = errors.New("invalid arguments")

// App runs ledger commands against loaded stores. Exporter may be nil, in
// which case the export command fails.
type App struct {
	Ledger   *ledger.Ledger
	Cashbook *cashbook.Cashbook
	Exporter *export.Exporter
	Out      io.Writer
}

// Run executes one command and returns the process exit code. Mutations
// report "OK: ..." or "Error: ...".
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(a.Out, usage)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	err := a.dispatch(ctx, args[0], args[1:])
	if errors.Is(err, errUsage) {
		fmt.Fprintf(a.Out, "Error: %v\n\n%s", err, usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(a.Out, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *App) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "person":
		return a.person(ctx, args)
	case "expense":
		return a.expense(ctx, args)
	case "income":
		return a.income(ctx, args)
	case "balances":
		fmt.Fprint(a.Out, export.BalancesText(balance.ComputeBalances(a.Ledger.Snapshot())))
		return nil
	case "settle":
		transfers := balance.Settlements(balance.ComputeBalances(a.Ledger.Snapshot()))
		fmt.Fprint(a.Out, export.SettlementsText(transfers))
		return nil
	case "cashbook":
		return a.cashbook(ctx, args)
	case "summary":
		fmt.Fprintln(a.Out, export.SummaryText(balance.Summary(a.Cashbook.Book())))
		return nil
	case "report":
		return a.report(args)
	case "export":
		return a.export(ctx, args)
	case "snapshot":
		return a.snapshot(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// result prints "OK: ..." on success. Failures are returned for Run to
// print.
func (a *App) result(err error, okMessage string) error {
	r := core.ResultOf(err, okMessage)
	if !r.Success {
		return errors.New(r.Message)
	}
	fmt.Fprintf(a.Out, "OK: %s\n", r.Message)
	return nil
}

func subcommand(args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: missing subcommand", errUsage)
	}
	return args[0], args[1:], nil
}

func oneArg(args []string, what string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: expected %s", errUsage, what)
	}
	return args[0], nil
}

func indexArg(args []string) (int, error) {
	s, err := oneArg(args, "INDEX")
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: index %q is not a number", errUsage, s)
	}
	return i, nil
}

// entryFlags are the flags shared by every add command.
type entryFlags struct {
	fs     *flag.FlagSet
	date   string
	desc   string
	amount string
}

// Parse errors are reported by Run, so the flag set itself stays silent.
func newEntryFlags(name string) *entryFlags {
	f := &entryFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	f.fs.SetOutput(io.Discard)
	f.fs.StringVar(&f.date, "date", "", "entry date, YYYY-MM-DD (default today)")
	f.fs.StringVar(&f.desc, "desc", "", "description")
	f.fs.StringVar(&f.amount, "amount", "", "positive amount, e.g. 12.34")
	return f
}

func (f *entryFlags) parse(args []string) (core.Date, core.Money, error) {
	if err := f.fs.Parse(args); err != nil {
		return core.Date{}, core.Money{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	if f.fs.NArg() > 0 {
		return core.Date{}, core.Money{}, fmt.Errorf("%w: unexpected argument %q", errUsage, f.fs.Arg(0))
	}
	date := core.Today()
	if f.date != "" {
		d, err := core.ParseDate(f.date)
		if err != nil {
			return core.Date{}, core.Money{}, err
		}
		date = d
	}
	amount, err := core.ParseMoney(f.amount)
	if err != nil {
		return core.Date{}, core.Money{}, err
	}
	return date, amount, nil
}

func (a *App) person(ctx context.Context, args []string) error {
	sub, rest, err := subcommand(args)
	if err != nil {
		return err
	}
	switch sub {
	case "add":
		name, err := oneArg(rest, "NAME")
		if err != nil {
			return err
		}
		return a.result(a.Ledger.AddPerson(ctx, name), core.MsgPersonAdded)
	case "remove":
		name, err := oneArg(rest, "NAME")
		if err != nil {
			return err
		}
		return a.result(a.Ledger.RemovePerson(ctx, name), core.MsgPersonRemoved)
	case "list":
		for _, p := range a.Ledger.People() {
			fmt.Fprintln(a.Out, p.Name)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown person subcommand %q", errUsage, sub)
}

func (a *App) expense(ctx context.Context, args []string) error {
	sub, rest, err := subcommand(args)
	if err != nil {
		return err
	}
	switch sub {
	case "add":
		f := newEntryFlags("expense add")
		payer := f.fs.String("payer", "", "person who paid")
		participants := f.fs.String("participants", "", "comma-separated people sharing the cost")
		date, amount, err := f.parse(rest)
		if err != nil {
			return err
		}
		_, err = a.Ledger.AddExpense(ctx, date, f.desc, amount, *payer, splitNames(*participants))
		return a.result(err, core.MsgExpenseAdded)
	case "remove":
		i, err := indexArg(rest)
		if err != nil {
			return err
		}
		return a.result(a.Ledger.RemoveExpense(ctx, i), core.MsgExpenseRemoved)
	case "list":
		for i, e := range a.Ledger.Expenses() {
			fmt.Fprintf(a.Out, "[%d] %s  %-20s %10s  paid by %s for %s\n",
				i, e.Date, e.Description, e.Amount, e.Payer, strings.Join(e.Participants, ", "))
		}
		return nil
	}
	return fmt.Errorf("%w: unknown expense subcommand %q", errUsage, sub)
}

func (a *App) income(ctx context.Context, args []string) error {
	sub, rest, err := subcommand(args)
	if err != nil {
		return err
	}
	switch sub {
	case "add":
		f := newEntryFlags("income add")
		recipient := f.fs.String("recipient", "", "person receiving the income")
		date, amount, err := f.parse(rest)
		if err != nil {
			return err
		}
		_, err = a.Ledger.AddIncome(ctx, date, f.desc, amount, *recipient)
		return a.result(err, core.MsgIncomeAdded)
	case "remove":
		i, err := indexArg(rest)
		if err != nil {
			return err
		}
		return a.result(a.Ledger.RemoveIncome(ctx, i), core.MsgIncomeRemoved)
	case "list":
		for i, inc := range a.Ledger.Incomes() {
			fmt.Fprintf(a.Out, "[%d] %s  %-20s %10s  to %s\n",
				i, inc.Date, inc.Description, inc.Amount, inc.Recipient)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown income subcommand %q", errUsage, sub)
}

func (a *App) cashbook(ctx context.Context, args []string) error {
	kind, rest, err := subcommand(args)
	if err != nil {
		return err
	}
	sub, rest, err := subcommand(rest)
	if err != nil {
		return err
	}
	switch kind + " " + sub {
	case "expense add":
		f := newEntryFlags("cashbook expense add")
		category := f.fs.String("category", "", "one of "+joinCategories())
		date, amount, err := f.parse(rest)
		if err != nil {
			return err
		}
		_, err = a.Cashbook.AddExpense(ctx, date, core.Category(*category), amount, f.desc)
		return a.result(err, core.MsgExpenseAdded)
	case "income add":
		f := newEntryFlags("cashbook income add")
		source := f.fs.String("source", "", "one of "+joinSources())
		date, amount, err := f.parse(rest)
		if err != nil {
			return err
		}
		_, err = a.Cashbook.AddIncome(ctx, date, core.Source(*source), amount, f.desc)
		return a.result(err, core.MsgIncomeAdded)
	case "expense remove":
		i, err := indexArg(rest)
		if err != nil {
			return err
		}
		return a.result(a.Cashbook.RemoveExpense(ctx, i), core.MsgExpenseRemoved)
	case "income remove":
		i, err := indexArg(rest)
		if err != nil {
			return err
		}
		return a.result(a.Cashbook.RemoveIncome(ctx, i), core.MsgIncomeRemoved)
	case "expense list":
		for i, e := range a.Cashbook.Expenses() {
			fmt.Fprintf(a.Out, "[%d] %s  %-13s %10s  %s\n", i, e.Date, e.Category, e.Amount, e.Description)
		}
		return nil
	case "income list":
		for i, inc := range a.Cashbook.Incomes() {
			fmt.Fprintf(a.Out, "[%d] %s  %-13s %10s  %s\n", i, inc.Date, inc.Source, inc.Amount, inc.Description)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown cashbook command %q", errUsage, kind+" "+sub)
}

func (a *App) report(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: expected YEAR MONTH", errUsage)
	}
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: year %q is not a number", errUsage, args[0])
	}
	month, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: month %q is not a number", errUsage, args[1])
	}
	r, err := balance.MonthlyReport(a.Cashbook.Book(), year, month)
	if err != nil {
		return err
	}
	fmt.Fprint(a.Out, export.MonthlyReportText(r))
	return nil
}

func (a *App) export(ctx context.Context, args []string) error {
	target := "all"
	if len(args) > 0 {
		target = args[0]
	}
	if a.Exporter == nil {
		return errors.New("no export destination configured")
	}

	var artifacts []export.Artifact
	if target == "split" || target == "all" {
		snap := a.Ledger.Snapshot()
		arts, err := export.LedgerArtifacts(snap, balance.ComputeBalances(snap))
		if err != nil {
			return err
		}
		artifacts = append(artifacts, arts...)
	}
	if target == "cashbook" || target == "all" {
		book := a.Cashbook.Book()
		arts, err := export.CashbookArtifacts(book, balance.Summary(book))
		if err != nil {
			return err
		}
		artifacts = append(artifacts, arts...)
	}
	if len(artifacts) == 0 {
		return fmt.Errorf("%w: unknown export target %q", errUsage, target)
	}

	err := a.Exporter.ExportAll(ctx, artifacts)
	return a.result(err, fmt.Sprintf("Exported %d files.", len(artifacts)))
}

// snapshot writes the JSON document straight to Out, bypassing the
// configured destinations.
func (a *App) snapshot(ctx context.Context) error {
	data, err := export.SnapshotJSON(a.Ledger.Snapshot())
	if err != nil {
		return err
	}
	out := export.NewExporter(nil, export.NewWriterDestination(a.Out))
	if r := out.Export(ctx, export.Artifact{Name: "snapshot.json", Content: append(data, '\n')}); !r.Success {
		return errors.New(r.Message)
	}
	return nil
}

func splitNames(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func joinCategories() string {
	var names []string
	for _, c := range core.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func joinSources() string {
	var names []string
	for _, s := range core.Sources() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
