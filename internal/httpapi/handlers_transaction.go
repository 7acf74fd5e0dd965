package httpapi

import (
	"net/http"
	"time"

	"monbudget/internal/core"
)

type transactionRequest struct {
	Description        string               `json:"description"`
	Amount             core.Money           `json:"amount"`
	Date               time.Time            `json:"date"`
	Category           string               `json:"category"`
	Account            string               `json:"account"`
	Type               core.TransactionType `json:"type"`
	IsYearlyRecurring  bool                 `json:"isYearlyRecurring"`
	FromSavingsAccount bool                 `json:"fromSavingsAccount"`
	SavingsAccountID   string               `json:"savingsAccountId"`
}

func (req transactionRequest) toTransaction(id string) core.Transaction {
	return core.Transaction{
		ID:                 id,
		Description:        req.Description,
		Amount:             req.Amount,
		Date:               req.Date,
		Category:           req.Category,
		Account:            req.Account,
		Type:               req.Type,
		IsYearlyRecurring:  req.IsYearlyRecurring,
		FromSavingsAccount: req.FromSavingsAccount,
		SavingsAccountID:   req.SavingsAccountID,
	}
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	created, err := s.ledger.AddTransaction(r.Context(), key, req.toTransaction(""))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateTransaction replaces a transaction in place. The month is
// derived from the transaction date, so moving a transaction across
// months is not supported here.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t := req.toTransaction(r.PathValue("id"))
	if err := s.ledger.UpdateTransaction(t); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t.Normalized())
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteTransaction(key, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
