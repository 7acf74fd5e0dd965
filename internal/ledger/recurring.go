package ledger

import (
	"fmt"
	"strings"

	"monbudget/internal/core"
)

// recurringYears is how far a yearly-recurring transaction is cloned
// ahead.
const recurringYears = 10

// recurringSeparator joins an origin transaction id with the year
// offset of a clone.
const recurringSeparator = "-year-"

// recurringBaseID strips the clone suffix, returning the origin id.
// Origin ids pass through unchanged.
func recurringBaseID(id string) string {
	base, _, _ := strings.Cut(id, recurringSeparator)
	return base
}

// expandYearly clones the origin transaction into the same calendar
// month of the next ten years. Existing budgets absorb the clone via
// the engine; missing ones are synthesized around it. Callers hold the
// lock.
func (s *Store) expandYearly(key core.MonthKey, origin core.Transaction) {
	originSavings := s.budgets[key].MonthlySavings

	for i := 1; i <= recurringYears; i++ {
		futureKey := core.MonthKey{Month: key.Month, Year: key.Year + i}
		clone := origin
		clone.ID = fmt.Sprintf("%s%s%d", origin.ID, recurringSeparator, i)
		clone.Date = pinToMonth(futureKey, origin.Date)

		if fb, ok := s.budgets[futureKey]; ok {
			fb = core.ApplyTransaction(fb, clone, nil)
			fb.Transactions = append(fb.Transactions, clone)
			s.budgets[futureKey] = fb
			continue
		}
		nb := core.NewMonthlyBudget(futureKey)
		nb.MonthlySavings = originSavings
		nb = core.ApplyTransaction(nb, clone, nil)
		nb.Transactions = append(nb.Transactions, clone)
		s.budgets[futureKey] = nb
	}
}

// cascadeDeleteClones removes every clone sharing the deleted
// transaction's base id from the same calendar month of later years,
// unwinding each clone's balance effect. Callers hold the lock.
func (s *Store) cascadeDeleteClones(key core.MonthKey, deleted core.Transaction) {
	base := recurringBaseID(deleted.ID)
	prefix := base + recurringSeparator

	for k, fb := range s.budgets {
		if k == key || k.Month != key.Month || k.Year <= key.Year {
			continue
		}
		kept := fb.Transactions[:0]
		touched := false
		for _, t := range fb.Transactions {
			if t.ID == base || strings.HasPrefix(t.ID, prefix) {
				fb = unwindTransaction(fb, t)
				touched = true
				continue
			}
			kept = append(kept, t)
		}
		if touched {
			fb.Transactions = kept
			s.budgets[k] = fb
		}
	}
}
