package core

import (
	"errors"
	"time"
)

// Snapshot is the full state of a split ledger.
type Snapshot struct {
	People   []Person
	Expenses []Expense
	Incomes  []Income
}

// Clone returns a deep copy so callers cannot alias ledger state.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		People:   append([]Person(nil), s.People...),
		Expenses: make([]Expense, len(s.Expenses)),
		Incomes:  append([]Income(nil), s.Incomes...),
	}
	for i, e := range s.Expenses {
		e.Participants = append([]string(nil), e.Participants...)
		out.Expenses[i] = e
	}
	return out
}

// HasPerson reports whether name is registered.
func (s Snapshot) HasPerson(name string) bool {
	for _, p := range s.People {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Book is the full state of a cashbook.
type Book struct {
	Expenses []TaggedExpense
	Incomes  []TaggedIncome
}

func (b Book) Clone() Book {
	return Book{
		Expenses: append([]TaggedExpense(nil), b.Expenses...),
		Incomes:  append([]TaggedIncome(nil), b.Incomes...),
	}
}

// Result is the success/message pair handed to presentation code.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ResultOf converts an operation outcome into a Result.
func ResultOf(err error, okMessage string) Result {
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	return Result{Success: true, Message: okMessage}
}

// Messages reported to the user on success.
const (
	MsgPersonAdded    = "Person added successfully."
	MsgPersonRemoved  = "Person removed."
	MsgExpenseAdded   = "Expense added successfully."
	MsgExpenseRemoved = "Expense removed."
	MsgIncomeAdded    = "Income added successfully."
	MsgIncomeRemoved  = "Income removed."
)

// Operation names a ledger mutation.
type Operation string

const (
	OpAddPerson     Operation = "add_person"
	OpRemovePerson  Operation = "remove_person"
	OpAddExpense    Operation = "add_expense"
	OpRemoveExpense Operation = "remove_expense"
	OpAddIncome     Operation = "add_income"
	OpRemoveIncome  Operation = "remove_income"
)

// ChangeEvent describes a persisted mutation.
type ChangeEvent struct {
	Ledger    string
	Operation Operation
	Index     int
	Name      string
	At        time.Time
}

// IsValidation reports whether err is a caller-input error rather than an
// infrastructure failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrDuplicateEntity, ErrUnknownPerson, ErrInvalidAmount, ErrInvalidCategory,
		ErrInvalidSource, ErrEmptyParticipants, ErrEmptyName, ErrInvalidMonth, ErrInvalidDate,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
