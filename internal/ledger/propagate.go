package ledger

import (
	"monbudget/internal/core"
)

// bootstrapMonths is how many future months get synthesized when a
// propagating change finds no future budget to land in.
const bootstrapMonths = 3

// applyItem routes a tagged fixed item through the matching engine
// function.
func applyItem(b core.MonthlyBudget, item core.FixedItem, old *core.FixedItem) core.MonthlyBudget {
	if item.Kind == core.IncomeItem {
		var oldIncome *core.FixedIncome
		if old != nil {
			inc := old.Income()
			oldIncome = &inc
		}
		return core.ApplyFixedIncome(b, item.Income(), oldIncome)
	}
	var oldExpense *core.FixedExpense
	if old != nil {
		exp := old.Expense()
		oldExpense = &exp
	}
	return core.ApplyFixedExpense(b, item.Expense(), oldExpense)
}

// findItem looks up a fixed item by id in a budget, returning a tagged
// copy. Callers hold the lock.
func findItem(b core.MonthlyBudget, kind core.FixedItemKind, id string) (core.FixedItem, bool) {
	if kind == core.IncomeItem {
		for _, inc := range b.FixedIncomes {
			if inc.ID == id {
				return inc.Item(), true
			}
		}
		return core.FixedItem{}, false
	}
	for _, exp := range b.FixedExpenses {
		if exp.ID == id {
			return exp.Item(), true
		}
	}
	return core.FixedItem{}, false
}

// storeItem writes a fixed item back into the budget's list, replacing
// by id or appending.
func storeItem(b *core.MonthlyBudget, item core.FixedItem) {
	if item.Kind == core.IncomeItem {
		inc := item.Income()
		for i := range b.FixedIncomes {
			if b.FixedIncomes[i].ID == inc.ID {
				b.FixedIncomes[i] = inc
				return
			}
		}
		b.FixedIncomes = append(b.FixedIncomes, inc)
		return
	}
	exp := item.Expense()
	for i := range b.FixedExpenses {
		if b.FixedExpenses[i].ID == exp.ID {
			b.FixedExpenses[i] = exp
			return
		}
	}
	b.FixedExpenses = append(b.FixedExpenses, exp)
}

func dropItem(b *core.MonthlyBudget, kind core.FixedItemKind, id string) {
	if kind == core.IncomeItem {
		out := b.FixedIncomes[:0]
		for _, inc := range b.FixedIncomes {
			if inc.ID != id {
				out = append(out, inc)
			}
		}
		b.FixedIncomes = out
		return
	}
	out := b.FixedExpenses[:0]
	for _, exp := range b.FixedExpenses {
		if exp.ID != id {
			out = append(out, exp)
		}
	}
	b.FixedExpenses = out
}

// upsertItem applies a fixed item to the keyed month and, when
// propagate is set and the name or amount changed, pushes an unsettled
// copy into every future month. Callers hold the lock.
func (s *Store) upsertItem(key core.MonthKey, item core.FixedItem, propagate bool) {
	b := s.ensure(key)
	old, hadOld := findItem(b, item.Kind, item.ID)

	var oldPtr *core.FixedItem
	if hadOld {
		oldPtr = &old
	}
	b = applyItem(b, item, oldPtr)
	storeItem(&b, item)
	s.budgets[key] = b

	if !propagate {
		return
	}
	materialChange := !hadOld || old.Name != item.Name || old.Amount != item.Amount
	if materialChange {
		s.propagateItem(key, item.Unsettled())
	}
}

// propagateItem pushes an unsettled copy of item into every existing
// future month, resetting the settled state there. When no future
// month exists it bootstraps the next three so the change is not lost.
// Callers hold the lock.
func (s *Store) propagateItem(key core.MonthKey, item core.FixedItem) {
	futures := s.futureKeys(key)
	if len(futures) == 0 {
		for i := 1; i <= bootstrapMonths; i++ {
			next := key.AddMonths(i)
			if _, ok := s.budgets[next]; !ok {
				nb := core.NewMonthlyBudget(next)
				nb.MonthlySavings = s.budgets[key].MonthlySavings
				s.budgets[next] = nb
			}
			futures = append(futures, next)
		}
	}
	for _, fk := range futures {
		fb := s.budgets[fk]
		old, hadOld := findItem(fb, item.Kind, item.ID)
		var oldPtr *core.FixedItem
		if hadOld {
			oldPtr = &old
		}
		fb = applyItem(fb, item, oldPtr)
		storeItem(&fb, item)
		s.budgets[fk] = fb
	}
}

// removeItemEverywhere removes the item from the keyed month and all
// future months, unwinding its balance contribution in each. Callers
// hold the lock.
func (s *Store) removeItemEverywhere(key core.MonthKey, kind core.FixedItemKind, id string) error {
	b, ok := s.budgets[key]
	if !ok {
		return core.ErrNotFound
	}
	old, hadOld := findItem(b, kind, id)
	if !hadOld {
		return core.ErrNotFound
	}

	zero := old
	zero.Amount = core.Money{}
	b = applyItem(b, zero, &old)
	dropItem(&b, kind, id)
	s.budgets[key] = b

	for _, fk := range s.futureKeys(key) {
		fb := s.budgets[fk]
		fold, found := findItem(fb, kind, id)
		if !found {
			continue
		}
		fzero := fold
		fzero.Amount = core.Money{}
		fb = applyItem(fb, fzero, &fold)
		dropItem(&fb, kind, id)
		s.budgets[fk] = fb
	}
	return nil
}

// AddFixedIncome creates a fixed income in the month and propagates it
// forward.
func (s *Store) AddFixedIncome(key core.MonthKey, name string, amount core.Money) (core.FixedIncome, error) {
	income := core.FixedIncome{ID: s.newID(), Name: name, Amount: amount}
	if err := income.Validate(); err != nil {
		return core.FixedIncome{}, err
	}
	s.mu.Lock()
	s.upsertItem(key, income.Item(), true)
	s.mu.Unlock()
	s.changed()
	return income, nil
}

// UpdateFixedIncome updates a fixed income in the month. Name and
// amount changes propagate forward; toggling isReceived stays local.
func (s *Store) UpdateFixedIncome(key core.MonthKey, income core.FixedIncome) error {
	if err := income.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.upsertItem(key, income.Item(), true)
	s.mu.Unlock()
	s.changed()
	return nil
}

// UpdateCurrentMonthIncome updates a fixed income in the keyed month
// only, leaving future months untouched.
func (s *Store) UpdateCurrentMonthIncome(key core.MonthKey, income core.FixedIncome) error {
	if err := income.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.upsertItem(key, income.Item(), false)
	s.mu.Unlock()
	s.changed()
	return nil
}

// RemoveFixedIncome deletes the income from this month and all future
// months.
func (s *Store) RemoveFixedIncome(key core.MonthKey, id string) error {
	s.mu.Lock()
	err := s.removeItemEverywhere(key, core.IncomeItem, id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed()
	return nil
}

// AddFixedExpense creates a fixed expense in the month and propagates
// it forward.
func (s *Store) AddFixedExpense(key core.MonthKey, name string, amount core.Money) (core.FixedExpense, error) {
	expense := core.FixedExpense{ID: s.newID(), Name: name, Amount: amount}
	if err := expense.Validate(); err != nil {
		return core.FixedExpense{}, err
	}
	s.mu.Lock()
	s.upsertItem(key, expense.Item(), true)
	s.mu.Unlock()
	s.changed()
	return expense, nil
}

// UpdateFixedExpense updates a fixed expense in the month. Name and
// amount changes propagate forward; toggling isPaid stays local.
func (s *Store) UpdateFixedExpense(key core.MonthKey, expense core.FixedExpense) error {
	if err := expense.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.upsertItem(key, expense.Item(), true)
	s.mu.Unlock()
	s.changed()
	return nil
}

// UpdateCurrentMonthExpense updates a fixed expense in the keyed month
// only.
func (s *Store) UpdateCurrentMonthExpense(key core.MonthKey, expense core.FixedExpense) error {
	if err := expense.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.upsertItem(key, expense.Item(), false)
	s.mu.Unlock()
	s.changed()
	return nil
}

// RemoveFixedExpense deletes the expense from this month and all
// future months.
func (s *Store) RemoveFixedExpense(key core.MonthKey, id string) error {
	s.mu.Lock()
	err := s.removeItemEverywhere(key, core.ExpenseItem, id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed()
	return nil
}
