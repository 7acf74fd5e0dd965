package httpapi

import (
	"net/http"
	"time"

	"monbudget/internal/core"
)

type savingsAccountRequest struct {
	Name              string                 `json:"name"`
	AccountType       string                 `json:"accountType"`
	InterestRate      float64                `json:"interestRate"`
	InterestFrequency core.InterestFrequency `json:"interestFrequency"`
	InterestType      core.InterestType      `json:"interestType"`
	IsLiquid          bool                   `json:"isLiquid"`
	IsDefault         bool                   `json:"isDefault"`
	MaxDepositLimit   *core.Money            `json:"maxDepositLimit"`
}

func (req savingsAccountRequest) toAccount(id string) core.SavingsAccount {
	return core.SavingsAccount{
		ID:                id,
		Name:              req.Name,
		AccountType:       req.AccountType,
		InterestRate:      req.InterestRate,
		InterestFrequency: req.InterestFrequency,
		InterestType:      req.InterestType,
		IsLiquid:          req.IsLiquid,
		IsDefault:         req.IsDefault,
		MaxDepositLimit:   req.MaxDepositLimit,
	}
}

func (s *Server) handleListSavingsAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.savings.Accounts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleCreateSavingsAccount(w http.ResponseWriter, r *http.Request) {
	var req savingsAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := s.savings.CreateAccount(r.Context(), req.toAccount(""))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) handleGetSavingsAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.savings.Account(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleUpdateSavingsAccount(w http.ResponseWriter, r *http.Request) {
	var req savingsAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account := req.toAccount(r.PathValue("id"))
	if err := s.savings.UpdateAccount(r.Context(), account); err != nil {
		writeDomainError(w, err)
		return
	}
	updated, err := s.savings.Account(r.Context(), account.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSavingsAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.savings.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.savings.Entries(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleRecordEntry books a deposit, withdrawal or interest credit
// against an account, enforcing the deposit limit.
func (s *Server) handleRecordEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount      core.Money            `json:"amount"`
		Type        core.SavingsEntryType `json:"type"`
		Description string                `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	switch req.Type {
	case core.Deposit, core.Withdrawal, core.InterestCredited:
	default:
		writeError(w, http.StatusUnprocessableEntity, "invalid entry type")
		return
	}
	accountID := r.PathValue("id")
	if err := s.savings.RecordTransaction(r.Context(), accountID, req.Amount, req.Type, req.Description); err != nil {
		writeDomainError(w, err)
		return
	}
	entries, err := s.savings.Entries(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entries)
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	start := core.KeyForDate(time.Now())
	if from := r.URL.Query().Get("from"); from != "" {
		key, err := core.ParseMonthKey(from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from key: "+from)
			return
		}
		start = key
	}
	projections, err := s.savings.Projections(r.Context(), start)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projections)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	plan, err := s.savings.Planner().PlanForMonth(r.Context(), key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	key, ok := pathMonthKey(w, r)
	if !ok {
		return
	}
	var req struct {
		Distribution []core.Allocation `json:"distribution"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	plan := core.DistributionPlan{
		Month:        key.Month,
		Year:         key.Year,
		Distribution: req.Distribution,
	}
	if err := plan.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.savings.Planner().SavePlan(r.Context(), plan); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
