package http

import (
	"net/http"

	"ledger/internal/balance"
	"ledger/internal/core"
)

type personDTO struct {
	Name string `json:"name"`
}

type expenseDTO struct {
	Index        int      `json:"index"`
	Date         string   `json:"date"`
	Description  string   `json:"description"`
	Amount       float64  `json:"amount"`
	Payer        string   `json:"payer"`
	Participants []string `json:"participants"`
}

type incomeDTO struct {
	Index       int     `json:"index"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Recipient   string  `json:"recipient"`
}

type balanceDTO struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type transferDTO struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type addExpenseRequest struct {
	Date         string      `json:"date"`
	Description  string      `json:"description"`
	Amount       amountInput `json:"amount"`
	Payer        string      `json:"payer"`
	Participants []string    `json:"participants"`
}

type addIncomeRequest struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      amountInput `json:"amount"`
	Recipient   string      `json:"recipient"`
}

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	people := s.ledger.People()
	out := make([]personDTO, 0, len(people))
	for _, p := range people {
		out = append(out, personDTO{Name: p.Name})
	}
	NewJSONResponse().Body(map[string]any{"people": out}).Write(w)
}

func (s *Server) handleAddPerson(w http.ResponseWriter, r *http.Request) {
	var req personDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.AddPerson(r.Context(), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	ResultResponse(http.StatusCreated, core.ResultOf(nil, core.MsgPersonAdded)).Write(w)
}

// handleRemovePerson cascades to the person's expenses and incomes. An
// unknown name succeeds without changes.
func (s *Server) handleRemovePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemovePerson(r.Context(), r.PathValue("name")); err != nil {
		writeError(w, r, err)
		return
	}
	ResultResponse(http.StatusOK, core.ResultOf(nil, core.MsgPersonRemoved)).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses := s.ledger.Expenses()
	out := make([]expenseDTO, 0, len(expenses))
	for i, e := range expenses {
		out = append(out, expenseDTO{
			Index:        i,
			Date:         e.Date.String(),
			Description:  e.Description,
			Amount:       e.Amount.Float(),
			Payer:        e.Payer,
			Participants: e.Participants,
		})
	}
	NewJSONResponse().Body(map[string]any{"expenses": out}).Write(w)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req addExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.Amount.Money()
	if err != nil {
		writeError(w, r, err)
		return
	}

	idx, err := s.ledger.AddExpense(r.Context(), date, req.Description, amount, req.Payer, req.Participants)
	if err != nil {
		writeError(w, r, err)
		return
	}
	CreatedResponse(core.MsgExpenseAdded, idx).Write(w)
}

func (s *Server) handleRemoveExpense(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.RemoveExpense(r.Context(), idx); err != nil {
		writeError(w, r, err)
		return
	}
	ResultResponse(http.StatusOK, core.ResultOf(nil, core.MsgExpenseRemoved)).Write(w)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	incomes := s.ledger.Incomes()
	out := make([]incomeDTO, 0, len(incomes))
	for i, inc := range incomes {
		out = append(out, incomeDTO{
			Index:       i,
			Date:        inc.Date.String(),
			Description: inc.Description,
			Amount:      inc.Amount.Float(),
			Recipient:   inc.Recipient,
		})
	}
	NewJSONResponse().Body(map[string]any{"incomes": out}).Write(w)
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	var req addIncomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.Amount.Money()
	if err != nil {
		writeError(w, r, err)
		return
	}

	idx, err := s.ledger.AddIncome(r.Context(), date, req.Description, amount, req.Recipient)
	if err != nil {
		writeError(w, r, err)
		return
	}
	CreatedResponse(core.MsgIncomeAdded, idx).Write(w)
}

func (s *Server) handleRemoveIncome(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.RemoveIncome(r.Context(), idx); err != nil {
		writeError(w, r, err)
		return
	}
	ResultResponse(http.StatusOK, core.ResultOf(nil, core.MsgIncomeRemoved)).Write(w)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances := balance.ComputeBalances(s.ledger.Snapshot())
	out := make([]balanceDTO, 0, len(balances))
	for _, b := range balances {
		out = append(out, balanceDTO{Name: b.Name, Amount: b.Amount.Float()})
	}
	NewJSONResponse().Body(map[string]any{"balances": out}).Write(w)
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	transfers := balance.Settlements(balance.ComputeBalances(s.ledger.Snapshot()))
	out := make([]transferDTO, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, transferDTO{From: t.From, To: t.To, Amount: t.Amount.Float()})
	}
	NewJSONResponse().Body(map[string]any{"transfers": out}).Write(w)
}
