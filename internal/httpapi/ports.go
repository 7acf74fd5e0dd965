package httpapi

import (
	"context"

	"monbudget/internal/core"
)

// Ledger is the slice of the budget store the API serves. Satisfied by
// *ledger.Store; it also covers savings.TransferLedger so handlers can
// hand the ledger straight to the transfer flow.
type Ledger interface {
	Budget(key core.MonthKey) core.MonthlyBudget
	Budgets() []core.MonthlyBudget

	UpdateInitialBalance(key core.MonthKey, amount core.Money)
	UpdateMonthlySavings(key core.MonthKey, amount core.Money, currentMonthOnly bool)
	ToggleSavingsSetAside(key core.MonthKey) bool
	IsSavingsTransferred(key core.MonthKey) bool
	MarkSavingsTransferred(key core.MonthKey) error

	AddFixedIncome(key core.MonthKey, name string, amount core.Money) (core.FixedIncome, error)
	UpdateFixedIncome(key core.MonthKey, income core.FixedIncome) error
	UpdateCurrentMonthIncome(key core.MonthKey, income core.FixedIncome) error
	RemoveFixedIncome(key core.MonthKey, id string) error
	AddFixedExpense(key core.MonthKey, name string, amount core.Money) (core.FixedExpense, error)
	UpdateFixedExpense(key core.MonthKey, expense core.FixedExpense) error
	UpdateCurrentMonthExpense(key core.MonthKey, expense core.FixedExpense) error
	RemoveFixedExpense(key core.MonthKey, id string) error

	AddTransaction(ctx context.Context, key core.MonthKey, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(t core.Transaction) error
	DeleteTransaction(key core.MonthKey, id string) error

	Accounts() []string
	Categories() []string
	AddAccount(name string)
	AddCategory(name string)
}
