package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"ledger/internal/balance"
	"ledger/internal/core"
)

// Table is a named header plus rows, written as CSV to files and as cell
// values to spreadsheets.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// CSV encodes the table with a header line.
func (t Table) CSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	return buf.Bytes(), nil
}

func PeopleTable(s core.Snapshot) Table {
	t := Table{Name: "people", Header: []string{"name"}}
	for _, p := range s.People {
		t.Rows = append(t.Rows, []string{p.Name})
	}
	return t
}

// ExpensesTable joins participants with ";".
func ExpensesTable(s core.Snapshot) Table {
	t := Table{Name: "expenses", Header: []string{"date", "description", "amount", "payer", "participants"}}
	for _, e := range s.Expenses {
		t.Rows = append(t.Rows, []string{
			e.Date.String(), e.Description, e.Amount.String(), e.Payer, strings.Join(e.Participants, ";"),
		})
	}
	return t
}

func IncomesTable(s core.Snapshot) Table {
	t := Table{Name: "incomes", Header: []string{"date", "description", "amount", "recipient"}}
	for _, inc := range s.Incomes {
		t.Rows = append(t.Rows, []string{inc.Date.String(), inc.Description, inc.Amount.String(), inc.Recipient})
	}
	return t
}

func BalancesTable(balances []core.Balance) Table {
	t := Table{Name: "balances", Header: []string{"name", "balance"}}
	for _, b := range balances {
		t.Rows = append(t.Rows, []string{b.Name, b.Amount.String()})
	}
	return t
}

// CashbookExpensesTable keeps the stored negative amounts.
func CashbookExpensesTable(b core.Book) Table {
	t := Table{Name: "cashbook_expenses", Header: []string{"date", "category", "amount", "description"}}
	for _, e := range b.Expenses {
		t.Rows = append(t.Rows, []string{e.Date.String(), string(e.Category), e.Amount.String(), e.Description})
	}
	return t
}

func CashbookIncomesTable(b core.Book) Table {
	t := Table{Name: "cashbook_incomes", Header: []string{"date", "source", "amount", "description"}}
	for _, inc := range b.Incomes {
		t.Rows = append(t.Rows, []string{inc.Date.String(), string(inc.Source), inc.Amount.String(), inc.Description})
	}
	return t
}

type snapshotPerson struct {
	Name string `json:"name"`
}

type snapshotExpense struct {
	Date         string   `json:"date"`
	Description  string   `json:"description"`
	Amount       float64  `json:"amount"`
	Payer        string   `json:"payer"`
	Participants []string `json:"participants"`
}

type snapshotIncome struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Recipient   string  `json:"recipient"`
}

type snapshotDocument struct {
	Balances map[string]float64 `json:"balances"`
	People   []snapshotPerson   `json:"people"`
	Expenses []snapshotExpense  `json:"expenses"`
	Incomes  []snapshotIncome   `json:"incomes"`
}

// SnapshotJSON renders the split ledger together with its computed
// balances as an indented JSON document.
func SnapshotJSON(s core.Snapshot) ([]byte, error) {
	doc := snapshotDocument{
		Balances: make(map[string]float64, len(s.People)),
		People:   make([]snapshotPerson, 0, len(s.People)),
		Expenses: make([]snapshotExpense, 0, len(s.Expenses)),
		Incomes:  make([]snapshotIncome, 0, len(s.Incomes)),
	}
	for _, b := range balance.ComputeBalances(s) {
		doc.Balances[b.Name] = b.Amount.Float()
	}
	for _, p := range s.People {
		doc.People = append(doc.People, snapshotPerson{Name: p.Name})
	}
	for _, e := range s.Expenses {
		doc.Expenses = append(doc.Expenses, snapshotExpense{
			Date:         e.Date.String(),
			Description:  e.Description,
			Amount:       e.Amount.Float(),
			Payer:        e.Payer,
			Participants: e.Participants,
		})
	}
	for _, inc := range s.Incomes {
		doc.Incomes = append(doc.Incomes, snapshotIncome{
			Date:        inc.Date.String(),
			Description: inc.Description,
			Amount:      inc.Amount.Float(),
			Recipient:   inc.Recipient,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}
