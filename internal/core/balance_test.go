package core

import (
	"testing"
	"time"
)

func testBudget(initial int64) MonthlyBudget {
	b := NewMonthlyBudget(MonthKey{Month: 3, Year: 2025})
	b.InitialBalance = Money{Cents: initial}
	b.RemainingBalance = Money{Cents: initial}
	return b
}

func tx(id string, cents int64, typ TransactionType) Transaction {
	return Transaction{
		ID:          id,
		Description: "tx " + id,
		Amount:      Money{Cents: cents},
		Date:        time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC),
		Type:        typ,
	}
}

func TestApplyTransactionAdd(t *testing.T) {
	b := testBudget(100_00)

	b = ApplyTransaction(b, tx("1", 30_00, Expense), nil)
	if b.RemainingBalance.Cents != 70_00 {
		t.Fatalf("after expense: %d, want 7000", b.RemainingBalance.Cents)
	}

	b = ApplyTransaction(b, tx("2", 50_00, Income), nil)
	if b.RemainingBalance.Cents != 120_00 {
		t.Fatalf("after income: %d, want 12000", b.RemainingBalance.Cents)
	}
}

func TestApplyTransactionUpdate(t *testing.T) {
	b := testBudget(100_00)
	old := tx("1", 30_00, Expense)
	b = ApplyTransaction(b, old, nil)

	// Grow the expense from 30 to 45.
	updated := old
	updated.Amount = Money{Cents: 45_00}
	b = ApplyTransaction(b, updated, &old)
	if b.RemainingBalance.Cents != 55_00 {
		t.Fatalf("after update: %d, want 5500", b.RemainingBalance.Cents)
	}

	// Flip it to an income of the same amount.
	flipped := updated
	flipped.Type = Income
	b = ApplyTransaction(b, flipped, &updated)
	if b.RemainingBalance.Cents != 145_00 {
		t.Fatalf("after flip: %d, want 14500", b.RemainingBalance.Cents)
	}
}

func TestApplyTransactionSavingsSourcedExcluded(t *testing.T) {
	b := testBudget(100_00)
	savingsTx := tx("1", 50_00, Expense)
	savingsTx.FromSavingsAccount = true
	savingsTx.SavingsAccountID = "acct-1"

	got := ApplyTransaction(b, savingsTx, nil)
	if got.RemainingBalance != b.RemainingBalance {
		t.Fatalf("savings-sourced add moved the balance: %d", got.RemainingBalance.Cents)
	}

	// Updating it stays a no-op, and an old savings-sourced transaction
	// contributes nothing when the new one is regular.
	bigger := savingsTx
	bigger.Amount = Money{Cents: 80_00}
	got = ApplyTransaction(got, bigger, &savingsTx)
	if got.RemainingBalance != b.RemainingBalance {
		t.Fatalf("savings-sourced update moved the balance: %d", got.RemainingBalance.Cents)
	}

	regular := tx("2", 20_00, Expense)
	got = ApplyTransaction(got, regular, &savingsTx)
	if got.RemainingBalance.Cents != 80_00 {
		t.Fatalf("old savings tx should count as zero effect: %d", got.RemainingBalance.Cents)
	}
}

func TestApplyFixedIncome(t *testing.T) {
	b := testBudget(0)
	salary := FixedIncome{ID: "s", Name: "Salaire", Amount: Money{Cents: 2000_00}}

	b = ApplyFixedIncome(b, salary, nil)
	if b.RemainingBalance.Cents != 2000_00 {
		t.Fatalf("add: %d", b.RemainingBalance.Cents)
	}

	// Mark received: the amount is banked elsewhere and stops counting.
	received := salary
	received.IsReceived = true
	b = ApplyFixedIncome(b, received, &salary)
	if b.RemainingBalance.Cents != 0 {
		t.Fatalf("received: %d, want 0", b.RemainingBalance.Cents)
	}

	// Un-receive: counts again.
	b = ApplyFixedIncome(b, salary, &received)
	if b.RemainingBalance.Cents != 2000_00 {
		t.Fatalf("un-received: %d, want 200000", b.RemainingBalance.Cents)
	}
}

func TestApplyFixedExpenseToggleIdempotence(t *testing.T) {
	b := testBudget(1000_00)
	rent := FixedExpense{ID: "r", Name: "Loyer", Amount: Money{Cents: 800_00}}

	b = ApplyFixedExpense(b, rent, nil)
	if b.RemainingBalance.Cents != 200_00 {
		t.Fatalf("add: %d", b.RemainingBalance.Cents)
	}

	paid := rent
	paid.IsPaid = true
	b = ApplyFixedExpense(b, paid, &rent)
	if b.RemainingBalance.Cents != 1000_00 {
		t.Fatalf("paid: %d, want 100000", b.RemainingBalance.Cents)
	}

	b = ApplyFixedExpense(b, rent, &paid)
	if b.RemainingBalance.Cents != 200_00 {
		t.Fatalf("unpaid again: %d, want 20000", b.RemainingBalance.Cents)
	}

	b = ApplyFixedExpense(b, paid, &rent)
	if b.RemainingBalance.Cents != 1000_00 {
		t.Fatalf("toggle true->false->true drifted: %d", b.RemainingBalance.Cents)
	}
}

func TestWithInitialBalance(t *testing.T) {
	b := testBudget(100_00)
	b = ApplyTransaction(b, tx("1", 40_00, Expense), nil) // remaining 60

	b = WithInitialBalance(b, Money{Cents: 500_00})
	if b.InitialBalance.Cents != 500_00 {
		t.Fatalf("initial: %d", b.InitialBalance.Cents)
	}
	if b.RemainingBalance.Cents != 460_00 {
		t.Fatalf("remaining: %d, want 46000 (delta preserved)", b.RemainingBalance.Cents)
	}
}

// Invariant preservation: after an arbitrary mutation sequence, the
// incrementally maintained balance matches the closed-form recompute.
func TestRecomputeMatchesIncremental(t *testing.T) {
	b := testBudget(250_00)

	salary := FixedIncome{ID: "s", Name: "Salaire", Amount: Money{Cents: 2100_00}}
	rent := FixedExpense{ID: "r", Name: "Loyer", Amount: Money{Cents: 850_00}}
	b = ApplyFixedIncome(b, salary, nil)
	b.FixedIncomes = append(b.FixedIncomes, salary)
	b = ApplyFixedExpense(b, rent, nil)
	b.FixedExpenses = append(b.FixedExpenses, rent)

	groceries := tx("g", 62_50, Expense)
	b = ApplyTransaction(b, groceries, nil)
	b.Transactions = append(b.Transactions, groceries)

	refund := tx("f", 19_99, Income)
	b = ApplyTransaction(b, refund, nil)
	b.Transactions = append(b.Transactions, refund)

	fromSavings := tx("v", 300_00, Expense)
	fromSavings.FromSavingsAccount = true
	fromSavings.SavingsAccountID = "acct"
	b = ApplyTransaction(b, fromSavings, nil)
	b.Transactions = append(b.Transactions, fromSavings)

	paidRent := rent
	paidRent.IsPaid = true
	b = ApplyFixedExpense(b, paidRent, &rent)
	b.FixedExpenses[0] = paidRent

	if got, want := b.RemainingBalance, Recompute(b); got != want {
		t.Fatalf("incremental %d != closed form %d", got.Cents, want.Cents)
	}
}

func TestAvailableBalance(t *testing.T) {
	b := testBudget(500_00)
	b.MonthlySavings = Money{Cents: 150_00}

	if got := AvailableBalance(b); got.Cents != 350_00 {
		t.Fatalf("savings pending: %d, want 35000", got.Cents)
	}
	b.IsSavingsSetAside = true
	if got := AvailableBalance(b); got.Cents != 500_00 {
		t.Fatalf("savings set aside: %d, want 50000", got.Cents)
	}
}

func TestTotals(t *testing.T) {
	b := testBudget(0)
	b.FixedIncomes = []FixedIncome{
		{ID: "1", Name: "Salaire", Amount: Money{Cents: 2000_00}},
		{ID: "2", Name: "CAF", Amount: Money{Cents: 150_00}, IsReceived: true},
	}
	b.FixedExpenses = []FixedExpense{
		{ID: "3", Name: "Loyer", Amount: Money{Cents: 800_00}, IsPaid: true},
		{ID: "4", Name: "EDF", Amount: Money{Cents: 90_00}},
	}
	b.Transactions = []Transaction{
		tx("5", 40_00, Expense),
		tx("6", 25_00, Income),
		func() Transaction {
			s := tx("7", 500_00, Expense)
			s.FromSavingsAccount = true
			s.SavingsAccountID = "a"
			return s
		}(),
	}

	if got := TotalFixedIncomes(b, false); got.Cents != 2150_00 {
		t.Fatalf("incomes all: %d", got.Cents)
	}
	if got := TotalFixedIncomes(b, true); got.Cents != 2000_00 {
		t.Fatalf("incomes unreceived: %d", got.Cents)
	}
	if got := TotalFixedExpenses(b, false); got.Cents != 890_00 {
		t.Fatalf("expenses all: %d", got.Cents)
	}
	if got := TotalFixedExpenses(b, true); got.Cents != 90_00 {
		t.Fatalf("expenses unpaid: %d", got.Cents)
	}
	if got := TotalTransactions(b); got.Cents != -15_00 {
		t.Fatalf("transactions: %d, want -1500 (savings-sourced excluded)", got.Cents)
	}
}

func TestTransactionNormalized(t *testing.T) {
	income := Transaction{Type: Income, FromSavingsAccount: true, SavingsAccountID: "a"}
	n := income.Normalized()
	if n.FromSavingsAccount || n.SavingsAccountID != "" {
		t.Fatalf("income kept savings fields: %+v", n)
	}

	expense := Transaction{Type: Expense, FromSavingsAccount: true, SavingsAccountID: "a"}
	n = expense.Normalized()
	if !n.FromSavingsAccount || n.SavingsAccountID != "a" {
		t.Fatalf("expense lost savings fields: %+v", n)
	}

	orphan := Transaction{Type: Expense, FromSavingsAccount: true}
	n = orphan.Normalized()
	if n.FromSavingsAccount {
		t.Fatalf("from-savings without an account id must be cleared")
	}
}
