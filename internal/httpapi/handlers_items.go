package httpapi

import (
	"net/http"

	"monbudget/internal/core"
)

type incomeRequest struct {
	Name             string     `json:"name"`
	Amount           core.Money `json:"amount"`
	IsReceived       bool       `json:"isReceived"`
	CurrentMonthOnly bool       `json:"currentMonthOnly"`
}

type expenseRequest struct {
	Name             string     `json:"name"`
	Amount           core.Money `json:"amount"`
	IsPaid           bool       `json:"isPaid"`
	CurrentMonthOnly bool       `json:"currentMonthOnly"`
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	var req incomeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	income, err := s.ledger.AddFixedIncome(key, req.Name, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, income)
}

// handleUpdateIncome updates one fixed income. Material changes (name
// or amount) propagate to future months unless currentMonthOnly is set;
// the settled flag always stays local to this month.
func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	var req incomeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	income := core.FixedIncome{
		ID:         r.PathValue("id"),
		Name:       req.Name,
		Amount:     req.Amount,
		IsReceived: req.IsReceived,
	}
	var err error
	if req.CurrentMonthOnly {
		err = s.ledger.UpdateCurrentMonthIncome(key, income)
	} else {
		err = s.ledger.UpdateFixedIncome(key, income)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, income)
}

func (s *Server) handleRemoveIncome(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	if err := s.ledger.RemoveFixedIncome(key, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	expense, err := s.ledger.AddFixedExpense(key, req.Name, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	expense := core.FixedExpense{
		ID:     r.PathValue("id"),
		Name:   req.Name,
		Amount: req.Amount,
		IsPaid: req.IsPaid,
	}
	var err error
	if req.CurrentMonthOnly {
		err = s.ledger.UpdateCurrentMonthExpense(key, expense)
	} else {
		err = s.ledger.UpdateFixedExpense(key, expense)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleRemoveExpense(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	if err := s.ledger.RemoveFixedExpense(key, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
