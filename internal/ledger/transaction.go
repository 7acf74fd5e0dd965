package ledger

import (
	"context"
	"log/slog"

	"monbudget/internal/core"
)

// AddTransaction books a transaction into the keyed month. The date is
// pinned to that month, savings-sourced expenses are recorded against
// the savings account, and yearly-recurring transactions are expanded
// into the same month of the next ten years.
func (s *Store) AddTransaction(ctx context.Context, key core.MonthKey, t core.Transaction) (core.Transaction, error) {
	t.ID = s.newID()
	t = t.Normalized()
	t.Date = pinToMonth(key, t.Date)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	b := s.ensure(key)
	b = core.ApplyTransaction(b, t, nil)
	b.Transactions = append(b.Transactions, t)
	s.budgets[key] = b

	if t.IsYearlyRecurring {
		s.expandYearly(key, t)
	}
	s.mu.Unlock()

	if t.FromSavingsAccount && s.savings != nil {
		if err := s.savings.RecordTransaction(ctx, t.SavingsAccountID, t.Amount, core.Withdrawal, "Withdrawal for: "+t.Description); err != nil {
			// The budget entry stands; the savings book is off by one
			// entry until the next manual correction.
			slog.Warn("Recording savings withdrawal failed",
				"account", t.SavingsAccountID, "transaction", t.ID, "error", err)
		}
	}
	s.changed()
	return t, nil
}

// UpdateTransaction replaces the stored transaction with the same id
// in the month derived from its date, re-deriving the balance from the
// old and new versions.
func (s *Store) UpdateTransaction(t core.Transaction) error {
	t = t.Normalized()
	if err := t.Validate(); err != nil {
		return err
	}
	key := core.KeyForDate(t.Date)

	s.mu.Lock()
	b, ok := s.budgets[key]
	if !ok {
		s.mu.Unlock()
		return core.ErrNotFound
	}
	idx := -1
	for i := range b.Transactions {
		if b.Transactions[i].ID == t.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return core.ErrNotFound
	}
	old := b.Transactions[idx]
	b = core.ApplyTransaction(b, t, &old)
	b.Transactions[idx] = t
	s.budgets[key] = b
	s.mu.Unlock()
	s.changed()
	return nil
}

// DeleteTransaction removes a transaction from the keyed month,
// unwinding its balance effect. Deleting a yearly-recurring origin or
// clone cascades to related clones in the same calendar month of later
// years.
func (s *Store) DeleteTransaction(key core.MonthKey, id string) error {
	s.mu.Lock()
	b, ok := s.budgets[key]
	if !ok {
		s.mu.Unlock()
		return core.ErrNotFound
	}
	idx := -1
	for i := range b.Transactions {
		if b.Transactions[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return core.ErrNotFound
	}
	target := b.Transactions[idx]

	b = unwindTransaction(b, target)
	b.Transactions = append(b.Transactions[:idx], b.Transactions[idx+1:]...)
	s.budgets[key] = b

	if target.IsYearlyRecurring {
		s.cascadeDeleteClones(key, target)
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

// unwindTransaction reverses a transaction's balance effect by
// applying a type-flipped copy. Savings-sourced transactions had no
// effect, and the flipped copy keeps the flag so none is added now.
func unwindTransaction(b core.MonthlyBudget, t core.Transaction) core.MonthlyBudget {
	if t.FromSavingsAccount {
		return b
	}
	reversed := t
	if t.Type == core.Income {
		reversed.Type = core.Expense
	} else {
		reversed.Type = core.Income
	}
	return core.ApplyTransaction(b, reversed, nil)
}
