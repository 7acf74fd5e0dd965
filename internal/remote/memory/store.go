// Package memory is the in-memory persistence backend. It backs tests
// and throwaway sessions, and doubles as the reference implementation
// of the backend ports.
package memory

import (
	"context"
	"sort"
	"sync"

	"monbudget/internal/core"
)

type Store struct {
	mu       sync.RWMutex
	snapshot *core.Snapshot
	accounts map[string]core.SavingsAccount
	entries  map[string][]core.SavingsEntry
	plans    map[core.MonthKey]core.DistributionPlan
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]core.SavingsAccount),
		entries:  make(map[string][]core.SavingsEntry),
		plans:    make(map[core.MonthKey]core.DistributionPlan),
	}
}

// LoadSnapshot implements backend.SnapshotStore.
func (s *Store) LoadSnapshot(_ context.Context) (*core.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, core.ErrNotFound
	}
	return cloneSnapshot(s.snapshot), nil
}

// SaveSnapshot implements backend.SnapshotStore.
func (s *Store) SaveSnapshot(_ context.Context, snap *core.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = cloneSnapshot(snap)
	return nil
}

// ListAccounts implements backend.AccountStore.
func (s *Store) ListAccounts(_ context.Context) ([]core.SavingsAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.SavingsAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetAccount implements backend.AccountStore.
func (s *Store) GetAccount(_ context.Context, id string) (core.SavingsAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.SavingsAccount{}, core.ErrNotFound
	}
	return a, nil
}

// SaveAccount implements backend.AccountStore.
func (s *Store) SaveAccount(_ context.Context, account core.SavingsAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
	return nil
}

// DeleteAccount implements backend.AccountStore.
func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.accounts, id)
	delete(s.entries, id)
	return nil
}

// AppendEntry implements backend.AccountStore.
func (s *Store) AppendEntry(_ context.Context, entry core.SavingsEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.AccountID] = append(s.entries[entry.AccountID], entry)
	return nil
}

// ListEntries implements backend.AccountStore.
func (s *Store) ListEntries(_ context.Context, accountID string) ([]core.SavingsEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.SavingsEntry(nil), s.entries[accountID]...), nil
}

// GetPlan implements backend.PlanStore.
func (s *Store) GetPlan(_ context.Context, key core.MonthKey) (core.DistributionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[key]
	if !ok {
		return core.DistributionPlan{}, core.ErrNotFound
	}
	return plan, nil
}

// SavePlan implements backend.PlanStore.
func (s *Store) SavePlan(_ context.Context, plan core.DistributionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.Key()] = plan
	return nil
}

func cloneSnapshot(snap *core.Snapshot) *core.Snapshot {
	out := &core.Snapshot{
		Budgets:    make(map[string]core.MonthlyBudget, len(snap.Budgets)),
		Accounts:   append([]string(nil), snap.Accounts...),
		Categories: append([]string(nil), snap.Categories...),
	}
	for k, b := range snap.Budgets {
		b.FixedIncomes = append([]core.FixedIncome(nil), b.FixedIncomes...)
		b.FixedExpenses = append([]core.FixedExpense(nil), b.FixedExpenses...)
		b.Transactions = append([]core.Transaction(nil), b.Transactions...)
		out.Budgets[k] = b
	}
	return out
}
