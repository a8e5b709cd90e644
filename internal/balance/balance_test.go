package balance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func people(names ...string) []core.Person {
	out := make([]core.Person, 0, len(names))
	for _, n := range names {
		out = append(out, core.Person{Name: n})
	}
	return out
}

func cents(v int64) core.Money { return core.Money{Cents: v} }

func TestComputeBalances(t *testing.T) {
	d := core.NewDate(2024, 1, 15)

	tests := []struct {
		name string
		snap core.Snapshot
		want []core.Balance
	}{
		{
			name: "empty ledger",
			snap: core.Snapshot{},
			want: []core.Balance{},
		},
		{
			name: "no records",
			snap: core.Snapshot{People: people("Alice", "Bob")},
			want: []core.Balance{{Name: "Alice"}, {Name: "Bob"}},
		},
		{
			name: "three way split",
			snap: core.Snapshot{
				People: people("Alice", "Bob", "Carol"),
				Expenses: []core.Expense{
					{Date: d, Description: "Dinner", Amount: cents(9000), Payer: "Alice", Participants: []string{"Alice", "Bob", "Carol"}},
				},
			},
			want: []core.Balance{
				{Name: "Alice", Amount: cents(6000)},
				{Name: "Bob", Amount: cents(-3000)},
				{Name: "Carol", Amount: cents(-3000)},
			},
		},
		{
			name: "income offsets share",
			snap: core.Snapshot{
				People: people("Alice", "Bob", "Carol"),
				Expenses: []core.Expense{
					{Date: d, Description: "Dinner", Amount: cents(9000), Payer: "Alice", Participants: []string{"Alice", "Bob", "Carol"}},
				},
				Incomes: []core.Income{
					{Date: d, Description: "Refund", Amount: cents(3000), Recipient: "Bob"},
				},
			},
			want: []core.Balance{
				{Name: "Alice", Amount: cents(6000)},
				{Name: "Bob", Amount: cents(0)},
				{Name: "Carol", Amount: cents(-3000)},
			},
		},
		{
			name: "payer outside participants",
			snap: core.Snapshot{
				People: people("Alice", "Bob"),
				Expenses: []core.Expense{
					{Date: d, Description: "Gift", Amount: cents(2000), Payer: "Alice", Participants: []string{"Bob"}},
				},
			},
			want: []core.Balance{
				{Name: "Alice", Amount: cents(2000)},
				{Name: "Bob", Amount: cents(-2000)},
			},
		},
		{
			name: "uneven share rounds per person",
			snap: core.Snapshot{
				People: people("Alice", "Bob", "Carol"),
				Expenses: []core.Expense{
					{Date: d, Description: "Taxi", Amount: cents(1000), Payer: "Alice", Participants: []string{"Alice", "Bob", "Carol"}},
				},
			},
			want: []core.Balance{
				{Name: "Alice", Amount: cents(667)},
				{Name: "Bob", Amount: cents(-333)},
				{Name: "Carol", Amount: cents(-333)},
			},
		},
		{
			name: "half cent share rounds away from zero",
			snap: core.Snapshot{
				People: people("A", "B"),
				Expenses: []core.Expense{
					{Date: d, Description: "Coffee", Amount: cents(201), Payer: "A", Participants: []string{"A", "B"}},
				},
			},
			want: []core.Balance{
				{Name: "A", Amount: cents(101)},
				{Name: "B", Amount: cents(-101)},
			},
		},
		{
			name: "half cent share on a larger amount",
			snap: core.Snapshot{
				People: people("A", "B"),
				Expenses: []core.Expense{
					{Date: d, Description: "Lunch", Amount: cents(1005), Payer: "A", Participants: []string{"A", "B"}},
				},
			},
			want: []core.Balance{
				{Name: "A", Amount: cents(503)},
				{Name: "B", Amount: cents(-503)},
			},
		},
		{
			name: "fractions combine before rounding",
			snap: core.Snapshot{
				People: people("A", "B", "C"),
				Expenses: []core.Expense{
					{Date: d, Amount: cents(1), Payer: "A", Participants: []string{"A", "B", "C"}},
					{Date: d, Amount: cents(1), Payer: "A", Participants: []string{"A", "B", "C"}},
					{Date: d, Amount: cents(1), Payer: "A", Participants: []string{"B", "C"}},
				},
			},
			want: []core.Balance{
				{Name: "A", Amount: cents(2)},
				{Name: "B", Amount: cents(-1)},
				{Name: "C", Amount: cents(-1)},
			},
		},
		{
			name: "unknown names ignored",
			snap: core.Snapshot{
				People: people("Alice"),
				Expenses: []core.Expense{
					{Date: d, Description: "x", Amount: cents(1000), Payer: "Ghost", Participants: []string{"Alice", "Ghost"}},
				},
			},
			want: []core.Balance{{Name: "Alice", Amount: cents(-500)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ComputeBalances(tt.snap))
		})
	}
}

func TestComputeBalances_Conserved(t *testing.T) {
	d := core.NewDate(2024, 2, 1)

	tests := []struct {
		name string
		snap core.Snapshot
	}{
		{
			name: "expenses only",
			snap: core.Snapshot{
				People: people("A", "B", "C", "D"),
				Expenses: []core.Expense{
					{Date: d, Amount: cents(12000), Payer: "A", Participants: []string{"A", "B", "C", "D"}},
					{Date: d, Amount: cents(4000), Payer: "B", Participants: []string{"C", "D"}},
					{Date: d, Amount: cents(600), Payer: "D", Participants: []string{"A", "B"}},
				},
			},
		},
		{
			name: "uneven shares and incomes",
			snap: core.Snapshot{
				People: people("A", "B", "C"),
				Expenses: []core.Expense{
					{Date: d, Amount: cents(1000), Payer: "A", Participants: []string{"A", "B", "C"}},
					{Date: d, Amount: cents(201), Payer: "B", Participants: []string{"A", "B"}},
					{Date: d, Amount: cents(700), Payer: "C", Participants: []string{"A", "B", "C"}},
				},
				Incomes: []core.Income{
					{Date: d, Amount: cents(300000), Recipient: "C"},
					{Date: d, Amount: cents(55), Recipient: "A"},
				},
			},
		},
		{
			name: "many thirds",
			snap: core.Snapshot{
				People: people("A", "B", "C", "D"),
				Expenses: []core.Expense{
					{Date: d, Amount: cents(100), Payer: "A", Participants: []string{"A", "B", "C"}},
					{Date: d, Amount: cents(101), Payer: "B", Participants: []string{"B", "C", "D"}},
					{Date: d, Amount: cents(103), Payer: "C", Participants: []string{"A", "C", "D"}},
				},
				Incomes: []core.Income{
					{Date: d, Amount: cents(1), Recipient: "D"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var income int64
			for _, inc := range tt.snap.Incomes {
				income += inc.Amount.Cents
			}
			balances := ComputeBalances(tt.snap)
			var sum int64
			for _, b := range balances {
				sum += b.Amount.Cents
			}
			require.InDelta(t, income, sum, float64(len(balances)))
		})
	}
}

func sampleBook() core.Book {
	return core.Book{
		Expenses: []core.TaggedExpense{
			{Date: core.NewDate(2024, 3, 2), Category: core.Transport, Amount: cents(-5000), Description: "Train"},
			{Date: core.NewDate(2024, 3, 5), Category: core.Food, Amount: cents(-20000), Description: "Groceries"},
			{Date: core.NewDate(2024, 3, 20), Category: core.Food, Amount: cents(-4550), Description: "Dinner"},
			{Date: core.NewDate(2024, 4, 1), Category: core.Health, Amount: cents(-1000), Description: "Pharmacy"},
		},
		Incomes: []core.TaggedIncome{
			{Date: core.NewDate(2024, 3, 1), Source: core.Salary, Amount: cents(100000), Description: "March"},
			{Date: core.NewDate(2024, 4, 1), Source: core.Salary, Amount: cents(100000), Description: "April"},
		},
	}
}

func TestSummary(t *testing.T) {
	b := core.Book{
		Expenses: []core.TaggedExpense{{Date: core.NewDate(2024, 1, 1), Category: core.Food, Amount: cents(-25000)}},
		Incomes:  []core.TaggedIncome{{Date: core.NewDate(2024, 1, 1), Source: core.Salary, Amount: cents(100000)}},
	}
	s := Summary(b)
	require.Equal(t, int64(100000), s.TotalIncome.Cents)
	require.Equal(t, int64(-25000), s.TotalExpenses.Cents)
	require.Equal(t, int64(25000), s.DisplayedExpenses().Cents)
	require.Equal(t, int64(75000), s.Balance.Cents)

	require.Equal(t, core.Summary{}, Summary(core.Book{}))
}

func TestMonthlyReport(t *testing.T) {
	r, err := MonthlyReport(sampleBook(), 2024, 3)
	require.NoError(t, err)
	require.Equal(t, int64(100000), r.Summary.TotalIncome.Cents)
	require.Equal(t, int64(-29550), r.Summary.TotalExpenses.Cents)
	require.Equal(t, int64(70450), r.Summary.Balance.Cents)
	require.Equal(t, []core.CategoryAmount{
		{Category: core.Food, Amount: cents(24550)},
		{Category: core.Transport, Amount: cents(5000)},
	}, r.ByCategory)

	empty, err := MonthlyReport(sampleBook(), 2023, 3)
	require.NoError(t, err)
	require.Equal(t, core.Summary{}, empty.Summary)
	require.Empty(t, empty.ByCategory)
}

func TestMonthlyReport_InvalidMonth(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		_, err := MonthlyReport(sampleBook(), 2024, m)
		require.ErrorIs(t, err, core.ErrInvalidMonth)
	}
}

func TestMonthlyReport_PartitionsSummary(t *testing.T) {
	b := sampleBook()
	var total int64
	for m := 1; m <= 12; m++ {
		r, err := MonthlyReport(b, 2024, m)
		require.NoError(t, err)
		total += r.Summary.Balance.Cents
	}
	require.Equal(t, Summary(b).Balance.Cents, total)
}

func TestSettlements(t *testing.T) {
	tests := []struct {
		name     string
		balances []core.Balance
		want     []core.Transfer
	}{
		{
			name:     "all settled",
			balances: []core.Balance{{Name: "A"}, {Name: "B"}},
			want:     nil,
		},
		{
			name: "one creditor",
			balances: []core.Balance{
				{Name: "Alice", Amount: cents(6000)},
				{Name: "Bob", Amount: cents(-3000)},
				{Name: "Carol", Amount: cents(-3000)},
			},
			want: []core.Transfer{
				{From: "Bob", To: "Alice", Amount: cents(3000)},
				{From: "Carol", To: "Alice", Amount: cents(3000)},
			},
		},
		{
			name: "largest first",
			balances: []core.Balance{
				{Name: "A", Amount: cents(-1000)},
				{Name: "B", Amount: cents(-4000)},
				{Name: "C", Amount: cents(3000)},
				{Name: "D", Amount: cents(2000)},
			},
			want: []core.Transfer{
				{From: "B", To: "C", Amount: cents(3000)},
				{From: "B", To: "D", Amount: cents(1000)},
				{From: "A", To: "D", Amount: cents(1000)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Settlements(tt.balances))
		})
	}
}
