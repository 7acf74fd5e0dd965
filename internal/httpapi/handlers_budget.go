package httpapi

import (
	"net/http"

	applog "monbudget/internal/log"

	"monbudget/internal/core"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Budgets())
}

// handleGetBudget returns the budget for a month, creating it lazily
// with inherited savings and unsettled fixed items.
func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Budget(key))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, core.Overview(s.ledger.Budget(key)))
}

func (s *Server) handleInitialBalance(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount core.Money `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.ledger.UpdateInitialBalance(key, req.Amount)
	writeJSON(w, http.StatusOK, s.ledger.Budget(key))
}

func (s *Server) handleMonthlySavings(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount           core.Money `json:"amount"`
		CurrentMonthOnly bool       `json:"currentMonthOnly"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Amount.Cents < 0 {
		writeError(w, http.StatusUnprocessableEntity, "monthly savings cannot be negative")
		return
	}
	s.ledger.UpdateMonthlySavings(key, req.Amount, req.CurrentMonthOnly)
	writeJSON(w, http.StatusOK, s.ledger.Budget(key))
}

func (s *Server) handleToggleSetAside(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	setAside := s.ledger.ToggleSavingsSetAside(key)
	writeJSON(w, http.StatusOK, map[string]bool{"isSavingsSetAside": setAside})
}

// handleTransfer books the month's savings into one account and latches
// the month.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	var req struct {
		AccountID string     `json:"accountId"`
		Amount    core.Money `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AccountID == "" {
		writeError(w, http.StatusUnprocessableEntity, "accountId is required")
		return
	}
	if err := s.savings.MoveSavingsToAccount(r.Context(), s.ledger, key, req.AccountID, req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Monthly savings transferred",
		applog.FieldMonthKey, key.String(),
		applog.FieldAccountID, req.AccountID,
		applog.FieldAmount, req.Amount.Cents)
	writeJSON(w, http.StatusOK, map[string]bool{"transferred": true})
}

// handleDistribute splits the month's savings across accounts per the
// effective distribution plan and latches the month.
func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount core.Money `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	plan, err := s.savings.Planner().PlanForMonth(r.Context(), key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.savings.DistributeAndTransfer(r.Context(), s.ledger, key, req.Amount, plan); err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Monthly savings distributed",
		applog.FieldMonthKey, key.String(),
		applog.FieldAmount, req.Amount.Cents,
		"allocations", len(plan.Distribution))
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleListAccountNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Accounts())
}

func (s *Server) handleAddAccountName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	s.ledger.AddAccount(req.Name)
	writeJSON(w, http.StatusCreated, s.ledger.Accounts())
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Categories())
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	s.ledger.AddCategory(req.Name)
	writeJSON(w, http.StatusCreated, s.ledger.Categories())
}

func (s *Server) handleForceSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "sync not configured")
		return
	}
	if err := s.syncer.ForceSync(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"revision": s.syncer.Revision()})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "sync not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"revision":  s.syncer.Revision(),
		"suspended": s.syncer.Suspended(),
	})
}
