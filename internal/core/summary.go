package core

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// Summary holds cashbook totals. TotalExpenses keeps the stored sign
// (zero or negative).
type Summary struct {
	TotalIncome   Money
	TotalExpenses Money
	Balance       Money
}

// DisplayedExpenses returns the positive magnitude shown to users.
func (s Summary) DisplayedExpenses() Money {
	return s.TotalExpenses.Neg()
}

// MonthlyReport is a Summary restricted to one calendar month plus the
// per-category expense magnitudes, in category order.
type MonthlyReport struct {
	Year       int
	Month      int // 1-12
	Summary    Summary
	ByCategory []CategoryAmount
}

// Balance is a person's net position across the split ledger. Positive
// means the person is owed money.
type Balance struct {
	Name   string
	Amount Money
}

// Transfer is a suggested payment that settles part of the balances.
type Transfer struct {
	From   string
	To     string
	Amount Money
}
