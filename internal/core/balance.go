package core

// Balance invariant engine. Each function is pure: it takes a budget by
// value and returns a copy with RemainingBalance adjusted by the delta
// the mutation causes. Item lists are not touched here; callers update
// them and must route every list mutation through one of these
// functions so the invariant holds.

// transactionEffect is the signed contribution of a transaction to the
// remaining balance. Savings-sourced transactions contribute nothing:
// they net against a savings account instead of the checking balance.
func transactionEffect(t Transaction) int64 {
	if t.FromSavingsAccount {
		return 0
	}
	if t.Type == Expense {
		return -t.Amount.Cents
	}
	return t.Amount.Cents
}

// ApplyTransaction adjusts the balance for adding (old == nil) or
// editing a transaction. A savings-sourced new transaction leaves the
// budget untouched regardless of the old value.
func ApplyTransaction(b MonthlyBudget, tx Transaction, old *Transaction) MonthlyBudget {
	if tx.FromSavingsAccount {
		return b
	}
	var delta int64
	if old != nil {
		delta -= transactionEffect(*old)
	}
	delta += transactionEffect(tx)
	b.RemainingBalance.Cents += delta
	return b
}

// incomeEffect is the contribution of a fixed income to the remaining
// balance. A received income is already banked and stops counting.
func incomeEffect(income FixedIncome) int64 {
	if income.IsReceived {
		return 0
	}
	return income.Amount.Cents
}

// expenseEffect mirrors incomeEffect: a pending expense reduces the
// balance, a paid one is already settled.
func expenseEffect(expense FixedExpense) int64 {
	if expense.IsPaid {
		return 0
	}
	return -expense.Amount.Cents
}

// ApplyFixedIncome adjusts the balance for adding (old == nil) or
// editing a fixed income. The delta is the difference of contributions,
// so amount edits and received toggles compose in any combination
// without drifting from Recompute.
func ApplyFixedIncome(b MonthlyBudget, income FixedIncome, old *FixedIncome) MonthlyBudget {
	var delta int64
	if old != nil {
		delta -= incomeEffect(*old)
	}
	delta += incomeEffect(income)
	b.RemainingBalance.Cents += delta
	return b
}

// ApplyFixedExpense adjusts the balance for adding or editing a fixed
// expense.
func ApplyFixedExpense(b MonthlyBudget, expense FixedExpense, old *FixedExpense) MonthlyBudget {
	var delta int64
	if old != nil {
		delta -= expenseEffect(*old)
	}
	delta += expenseEffect(expense)
	b.RemainingBalance.Cents += delta
	return b
}

// WithInitialBalance rebases the budget on a new opening balance,
// preserving the accumulated delta between remaining and initial.
func WithInitialBalance(b MonthlyBudget, amount Money) MonthlyBudget {
	b.RemainingBalance = Money{Cents: amount.Cents + (b.RemainingBalance.Cents - b.InitialBalance.Cents)}
	b.InitialBalance = amount
	return b
}

// Recompute derives the remaining balance from scratch out of the item
// lists. The incremental functions above must always agree with it;
// tests and consistency checks rely on that.
func Recompute(b MonthlyBudget) Money {
	cents := b.InitialBalance.Cents
	cents += TotalFixedIncomes(b, true).Cents
	cents -= TotalFixedExpenses(b, true).Cents
	cents += TotalTransactions(b).Cents
	return Money{Cents: cents}
}

// AvailableBalance is the remaining balance minus the monthly savings
// still to be set aside. Setting savings aside never mutates
// RemainingBalance; it only stops the deduction here.
func AvailableBalance(b MonthlyBudget) Money {
	if b.IsSavingsSetAside {
		return b.RemainingBalance
	}
	return b.RemainingBalance.Sub(b.MonthlySavings)
}

// TotalFixedIncomes sums fixed incomes, optionally skipping received
// ones (those no longer count toward the remaining balance).
func TotalFixedIncomes(b MonthlyBudget, excludeReceived bool) Money {
	var sum int64
	for _, income := range b.FixedIncomes {
		if excludeReceived && income.IsReceived {
			continue
		}
		sum += income.Amount.Cents
	}
	return Money{Cents: sum}
}

// TotalFixedExpenses sums fixed expenses, optionally skipping paid ones.
func TotalFixedExpenses(b MonthlyBudget, excludePaid bool) Money {
	var sum int64
	for _, expense := range b.FixedExpenses {
		if excludePaid && expense.IsPaid {
			continue
		}
		sum += expense.Amount.Cents
	}
	return Money{Cents: sum}
}

// TotalTransactions sums transactions signed by type. Savings-sourced
// transactions are excluded.
func TotalTransactions(b MonthlyBudget) Money {
	var sum int64
	for _, tx := range b.Transactions {
		sum += transactionEffect(tx)
	}
	return Money{Cents: sum}
}

// Overview condenses a budget into its reporting aggregate.
func Overview(b MonthlyBudget) MonthOverview {
	return MonthOverview{
		Key:               b.Key(),
		InitialBalance:    b.InitialBalance,
		RemainingBalance:  b.RemainingBalance,
		TotalIncomes:      TotalFixedIncomes(b, false),
		TotalExpenses:     TotalFixedExpenses(b, false),
		TotalTransactions: TotalTransactions(b),
		MonthlySavings:    b.MonthlySavings,
	}
}
