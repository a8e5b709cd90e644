package http

import (
	"net/http"

	"ledger/internal/balance"
	"ledger/internal/core"
)

// Cashbook expense amounts are reported with their stored negative sign.
type taggedExpenseDTO struct {
	Index       int     `json:"index"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type taggedIncomeDTO struct {
	Index       int     `json:"index"`
	Date        string  `json:"date"`
	Source      string  `json:"source"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// summaryDTO shows expenses as a positive magnitude.
type summaryDTO struct {
	TotalIncome   float64 `json:"total_income"`
	TotalExpenses float64 `json:"total_expenses"`
	Balance       float64 `json:"balance"`
}

type categoryAmountDTO struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type monthlyReportDTO struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	summaryDTO
	ByCategory []categoryAmountDTO `json:"by_category"`
}

type addTaggedExpenseRequest struct {
	Date        string      `json:"date"`
	Category    string      `json:"category"`
	Amount      amountInput `json:"amount"`
	Description string      `json:"description"`
}

type addTaggedIncomeRequest struct {
	Date        string      `json:"date"`
	Source      string      `json:"source"`
	Amount      amountInput `json:"amount"`
	Description string      `json:"description"`
}

func toSummaryDTO(s core.Summary) summaryDTO {
	return summaryDTO{
		TotalIncome:   s.TotalIncome.Float(),
		TotalExpenses: s.DisplayedExpenses().Float(),
		Balance:       s.Balance.Float(),
	}
}

func (s *Server) handleListCashbookExpenses(w http.ResponseWriter, r *http.Request) {
	expenses := s.cashbook.Expenses()
	out := make([]taggedExpenseDTO, 0, len(expenses))
	for i, e := range expenses {
		out = append(out, taggedExpenseDTO{
			Index:       i,
			Date:        e.Date.String(),
			Category:    string(e.Category),
			Amount:      e.Amount.Float(),
			Description: e.Description,
		})
	}
	NewJSONResponse().Body(map[string]any{"expenses": out}).Write(w)
}

func (s *Server) handleAddCashbookExpense(w http.ResponseWriter, r *http.Request) {
	var req addTaggedExpenseRequest
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

	idx, err := s.cashbook.AddExpense(r.Context(), date, core.Category(req.Category), amount, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	CreatedResponse(core.MsgExpenseAdded, idx).Write(w)
}

func (s *Server) handleRemoveCashbookExpense(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.cashbook.RemoveExpense(r.Context(), idx); err != nil {
		writeError(w, r, err)
		return
	}
	ResultResponse(http.StatusOK, core.ResultOf(nil, core.MsgExpenseRemoved)).Write(w)
}

func (s *Server) handleListCashbookIncomes(w http.ResponseWriter, r *http.Request) {
	incomes := s.cashbook.Incomes()
	out := make([]taggedIncomeDTO, 0, len(incomes))
	for i, inc := range incomes {
		out = append(out, taggedIncomeDTO{
			Index:       i,
			Date:        inc.Date.String(),
			Source:      string(inc.Source),
			Amount:      inc.Amount.Float(),
			Description: inc.Description,
		})
	}
	NewJSONResponse().Body(map[string]any{"incomes": out}).Write(w)
}

func (s *Server) handleAddCashbookIncome(w http.ResponseWriter, r *http.Request) {
	var req addTaggedIncomeRequest
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

	idx, err := s.cashbook.AddIncome(r.Context(), date, core.Source(req.Source), amount, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	CreatedResponse(core.MsgIncomeAdded, idx).Write(w)
}

func (s *Server) handleRemoveCashbookIncome(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.cashbook.RemoveIncome(r.Context(), idx); err != nil {
		writeError(w, r, err)
		return
	}
	ResultResponse(http.StatusOK, core.ResultOf(nil, core.MsgIncomeRemoved)).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(toSummaryDTO(balance.Summary(s.cashbook.Book()))).Write(w)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := balance.MonthlyReport(s.cashbook.Book(), params.Year, params.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := monthlyReportDTO{
		Year:       report.Year,
		Month:      report.Month,
		summaryDTO: toSummaryDTO(report.Summary),
		ByCategory: make([]categoryAmountDTO, 0, len(report.ByCategory)),
	}
	for _, c := range report.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryAmountDTO{Category: string(c.Category), Amount: c.Amount.Float()})
	}
	NewJSONResponse().Body(out).Write(w)
}
