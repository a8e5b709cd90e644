// Package export renders ledger and cashbook state as text, CSV tables and
// JSON snapshots, and writes the results to one or more destinations.
package export

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"ledger/internal/core"
)

func dollars(m core.Money) string {
	return "$" + m.String()
}

// SummaryText renders cashbook totals. Expenses are shown as a positive
// magnitude.
func SummaryText(s core.Summary) string {
	return fmt.Sprintf("Total Income: %s\nTotal Expenses: %s\nRemaining Balance: %s",
		dollars(s.TotalIncome), dollars(s.DisplayedExpenses()), dollars(s.Balance))
}

func MonthlyReportText(r core.MonthlyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Monthly Report for %04d-%02d\n", r.Year, r.Month)
	fmt.Fprintf(&b, "Total Income: %s\n", dollars(r.Summary.TotalIncome))
	fmt.Fprintf(&b, "Total Expenses: %s\n", dollars(r.Summary.DisplayedExpenses()))
	fmt.Fprintf(&b, "Balance: %s\n\n", dollars(r.Summary.Balance))
	b.WriteString("Expenses by Category:\n")
	for _, c := range r.ByCategory {
		fmt.Fprintf(&b, "  %s: %s\n", c.Category, dollars(c.Amount))
	}
	return b.String()
}

// BalancesText lists balances highest first, one "name: amount" per line.
func BalancesText(balances []core.Balance) string {
	sorted := slices.Clone(balances)
	slices.SortStableFunc(sorted, func(a, b core.Balance) int {
		return cmp.Compare(b.Amount.Cents, a.Amount.Cents)
	})
	var b strings.Builder
	for _, bal := range sorted {
		fmt.Fprintf(&b, "%s: %s\n", bal.Name, bal.Amount)
	}
	return b.String()
}

// SettlementsText lists suggested transfers.
func SettlementsText(transfers []core.Transfer) string {
	if len(transfers) == 0 {
		return "All settled up\n"
	}
	var b strings.Builder
	for _, t := range transfers {
		fmt.Fprintf(&b, "%s pays %s %s\n", t.From, t.To, dollars(t.Amount))
	}
	return b.String()
}
