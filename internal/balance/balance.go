// Package balance derives totals from ledger and cashbook state. Every
// function is pure and works on copies handed out by the record stores.
package balance

import (
	"cmp"
	"fmt"
	"math/big"
	"slices"

	"ledger/internal/core"
)

// ComputeBalances returns each person's net position in People order.
//
// An expense credits the payer with the full amount and debits every
// participant with amount/len(participants). An income credits its
// recipient. Names that are not registered people are ignored. Shares are
// summed as exact fractions of a cent and each final value is rounded
// once, half away from zero.
func ComputeBalances(s core.Snapshot) []core.Balance {
	totals := make(map[string]*big.Rat, len(s.People))
	for _, p := range s.People {
		totals[p.Name] = new(big.Rat)
	}
	add := func(name string, v *big.Rat) {
		if t, ok := totals[name]; ok {
			t.Add(t, v)
		}
	}

	for _, e := range s.Expenses {
		if len(e.Participants) == 0 {
			continue
		}
		share := big.NewRat(-e.Amount.Cents, int64(len(e.Participants)))
		for _, p := range e.Participants {
			add(p, share)
		}
		add(e.Payer, new(big.Rat).SetInt64(e.Amount.Cents))
	}
	for _, inc := range s.Incomes {
		add(inc.Recipient, new(big.Rat).SetInt64(inc.Amount.Cents))
	}

	out := make([]core.Balance, 0, len(s.People))
	for _, p := range s.People {
		out = append(out, core.Balance{Name: p.Name, Amount: core.FromRat(totals[p.Name])})
	}
	return out
}

// Summary totals the whole cashbook.
func Summary(b core.Book) core.Summary {
	return summarize(b.Expenses, b.Incomes)
}

// MonthlyReport totals the records dated in the given month and breaks
// expenses down by category. Categories without expenses are omitted.
func MonthlyReport(b core.Book, year, month int) (core.MonthlyReport, error) {
	if month < 1 || month > 12 {
		return core.MonthlyReport{}, fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}

	var exps []core.TaggedExpense
	for _, e := range b.Expenses {
		if e.Date.InMonth(year, month) {
			exps = append(exps, e)
		}
	}
	var incs []core.TaggedIncome
	for _, inc := range b.Incomes {
		if inc.Date.InMonth(year, month) {
			incs = append(incs, inc)
		}
	}

	byCat := make(map[core.Category]int64)
	for _, e := range exps {
		byCat[e.Category] += e.Amount.Abs().Cents
	}
	report := core.MonthlyReport{
		Year:    year,
		Month:   month,
		Summary: summarize(exps, incs),
	}
	for _, c := range core.Categories() {
		if cents, ok := byCat[c]; ok {
			report.ByCategory = append(report.ByCategory, core.CategoryAmount{Category: c, Amount: core.Money{Cents: cents}})
		}
	}
	return report, nil
}

func summarize(exps []core.TaggedExpense, incs []core.TaggedIncome) core.Summary {
	var s core.Summary
	for _, inc := range incs {
		s.TotalIncome.Cents += inc.Amount.Cents
	}
	for _, e := range exps {
		s.TotalExpenses.Cents += e.Amount.Cents
	}
	s.Balance.Cents = s.TotalIncome.Cents + s.TotalExpenses.Cents
	return s
}

// Settlements suggests transfers that bring every balance to zero. The
// largest debtor pays the largest creditor first; ties are broken by
// name. Any residue left by rounding is not transferred.
func Settlements(balances []core.Balance) []core.Transfer {
	type party struct {
		name  string
		cents int64
	}
	var debtors, creditors []party
	for _, b := range balances {
		switch {
		case b.Amount.Cents < 0:
			debtors = append(debtors, party{b.Name, -b.Amount.Cents})
		case b.Amount.Cents > 0:
			creditors = append(creditors, party{b.Name, b.Amount.Cents})
		}
	}
	byAmount := func(a, b party) int {
		if c := cmp.Compare(b.cents, a.cents); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	}
	slices.SortFunc(debtors, byAmount)
	slices.SortFunc(creditors, byAmount)

	var out []core.Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := min(debtors[i].cents, creditors[j].cents)
		out = append(out, core.Transfer{
			From:   debtors[i].name,
			To:     creditors[j].name,
			Amount: core.Money{Cents: amount},
		})
		debtors[i].cents -= amount
		creditors[j].cents -= amount
		if debtors[i].cents == 0 {
			i++
		}
		if creditors[j].cents == 0 {
			j++
		}
	}
	return out
}
