package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Monthly  InterestFrequency = "monthly"
	Annually InterestFrequency = "annually"

	FixedRate    InterestType = "fixed"
	VariableRate InterestType = "variable"

	Deposit          SavingsEntryType = "deposit"
	Withdrawal       SavingsEntryType = "withdrawal"
	InterestCredited SavingsEntryType = "interest"
)

type (
	TransactionType   string
	InterestFrequency string
	InterestType      string
	SavingsEntryType  string
)

var (
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrInvalidMonthKey           = errors.New("invalid month key")
	ErrEmptyName                 = errors.New("empty name")
	ErrEmptyDescription          = errors.New("empty description")
	ErrInvalidTransactionType    = errors.New("invalid transaction type")
	ErrInvalidInterest           = errors.New("invalid interest settings")
	ErrNotFound                  = errors.New("not found")
	ErrSavingsAlreadyTransferred = errors.New("monthly savings already transferred")
	ErrDepositLimitExceeded      = errors.New("deposit limit exceeded")
	ErrInvalidDistribution       = errors.New("invalid distribution plan")
)

// FixedIncome is a recurring income line. Once received its amount no
// longer counts toward the remaining balance.
type FixedIncome struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Amount     Money  `json:"amount"`
	IsReceived bool   `json:"isReceived"`
}

func (i FixedIncome) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	return i.Amount.Validate()
}

// FixedExpense is the expense counterpart: paid expenses stop reducing
// the remaining balance.
type FixedExpense struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
	IsPaid bool   `json:"isPaid"`
}

func (e FixedExpense) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	return e.Amount.Validate()
}

// FixedItemKind tags the two fixed-line variants so generic code (the
// propagation engine) branches explicitly instead of duck-typing on
// which settled flag a struct happens to carry.
type FixedItemKind string

const (
	IncomeItem  FixedItemKind = "income"
	ExpenseItem FixedItemKind = "expense"
)

// FixedItem is the tagged union over FixedIncome and FixedExpense.
// Settled maps to isReceived or isPaid depending on Kind.
type FixedItem struct {
	Kind    FixedItemKind
	ID      string
	Name    string
	Amount  Money
	Settled bool
}

func (i FixedIncome) Item() FixedItem {
	return FixedItem{Kind: IncomeItem, ID: i.ID, Name: i.Name, Amount: i.Amount, Settled: i.IsReceived}
}

func (e FixedExpense) Item() FixedItem {
	return FixedItem{Kind: ExpenseItem, ID: e.ID, Name: e.Name, Amount: e.Amount, Settled: e.IsPaid}
}

func (it FixedItem) Income() FixedIncome {
	return FixedIncome{ID: it.ID, Name: it.Name, Amount: it.Amount, IsReceived: it.Settled}
}

func (it FixedItem) Expense() FixedExpense {
	return FixedExpense{ID: it.ID, Name: it.Name, Amount: it.Amount, IsPaid: it.Settled}
}

// Unsettled returns a copy with the settled flag cleared; future-month
// occurrences always start unsettled.
func (it FixedItem) Unsettled() FixedItem {
	it.Settled = false
	return it
}

// Transaction is an ad-hoc income or expense booked against a single
// month. Expenses may be drawn from a savings account instead of the
// checking balance, in which case they are excluded from the remaining
// balance entirely.
type Transaction struct {
	ID                 string          `json:"id"`
	Description        string          `json:"description"`
	Amount             Money           `json:"amount"`
	Date               time.Time       `json:"date"`
	Category           string          `json:"category"`
	Account            string          `json:"account"`
	Type               TransactionType `json:"type"`
	IsYearlyRecurring  bool            `json:"isYearlyRecurring,omitempty"`
	FromSavingsAccount bool            `json:"fromSavingsAccount,omitempty"`
	SavingsAccountID   string          `json:"savingsAccountId,omitempty"`
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.Type != Income && t.Type != Expense {
		return ErrInvalidTransactionType
	}
	return t.Amount.Validate()
}

// Normalized enforces the savings-source invariant: only expense
// transactions may reference a savings account; incomes always have the
// savings fields cleared.
func (t Transaction) Normalized() Transaction {
	if t.Type != Expense {
		t.Type = Income
		t.FromSavingsAccount = false
		t.SavingsAccountID = ""
		return t
	}
	t.FromSavingsAccount = t.FromSavingsAccount && t.SavingsAccountID != ""
	if !t.FromSavingsAccount {
		t.SavingsAccountID = ""
	}
	return t
}

// MonthlyBudget is one month of the ledger. RemainingBalance is
// maintained incrementally by the balance engine in balance.go; nothing
// else may write it.
type MonthlyBudget struct {
	Month                int            `json:"month"`
	Year                 int            `json:"year"`
	InitialBalance       Money          `json:"initialBalance"`
	RemainingBalance     Money          `json:"remainingBalance"`
	MonthlySavings       Money          `json:"monthlySavings"`
	IsSavingsSetAside    bool           `json:"isSavingsSetAside"`
	IsSavingsTransferred bool           `json:"isSavingsTransferred"`
	FixedIncomes         []FixedIncome  `json:"fixedIncomes"`
	FixedExpenses        []FixedExpense `json:"fixedExpenses"`
	Transactions         []Transaction  `json:"transactions"`
}

// NewMonthlyBudget returns an empty budget for the given month.
func NewMonthlyBudget(key MonthKey) MonthlyBudget {
	return MonthlyBudget{
		Month:         key.Month,
		Year:          key.Year,
		FixedIncomes:  []FixedIncome{},
		FixedExpenses: []FixedExpense{},
		Transactions:  []Transaction{},
	}
}

func (b MonthlyBudget) Key() MonthKey {
	return MonthKey{Month: b.Month, Year: b.Year}
}

// Clone returns a deep copy of the budget. The item slices are
// duplicated, so the copy stays stable while the original keeps
// mutating in place. Slices come back non-nil so empty lists encode as
// [] on the wire.
func (b MonthlyBudget) Clone() MonthlyBudget {
	b.FixedIncomes = append(make([]FixedIncome, 0, len(b.FixedIncomes)), b.FixedIncomes...)
	b.FixedExpenses = append(make([]FixedExpense, 0, len(b.FixedExpenses)), b.FixedExpenses...)
	b.Transactions = append(make([]Transaction, 0, len(b.Transactions)), b.Transactions...)
	return b
}

// SavingsAccount is a deposit account with interest accrual. A nil
// MaxDepositLimit means unlimited deposits.
type SavingsAccount struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	AccountType       string            `json:"accountType"`
	InterestRate      float64           `json:"interestRate"`
	InterestFrequency InterestFrequency `json:"interestFrequency"`
	InterestType      InterestType      `json:"interestType"`
	IsLiquid          bool              `json:"isLiquid"`
	IsDefault         bool              `json:"isDefault,omitempty"`
	MaxDepositLimit   *Money            `json:"maxDepositLimit,omitempty"`
	CurrentBalance    Money             `json:"currentBalance"`
}

func (a SavingsAccount) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if a.InterestRate < 0 {
		return ErrInvalidInterest
	}
	if a.InterestFrequency != Monthly && a.InterestFrequency != Annually {
		return ErrInvalidInterest
	}
	if a.InterestType != FixedRate && a.InterestType != VariableRate {
		return ErrInvalidInterest
	}
	return nil
}

// SavingsEntry is one movement on a savings account.
type SavingsEntry struct {
	ID          string           `json:"id"`
	AccountID   string           `json:"accountId"`
	Amount      Money            `json:"amount"`
	Description string           `json:"description"`
	Date        time.Time        `json:"date"`
	Type        SavingsEntryType `json:"type"`
}

// Allocation assigns a percentage of a month's savings to one account.
type Allocation struct {
	AccountID  string `json:"accountId"`
	Percentage int    `json:"percentage"`
}

// DistributionPlan is the percentage split of one month's savings
// across accounts. It plans transfers; it does not enforce them.
type DistributionPlan struct {
	Month        int          `json:"month"`
	Year         int          `json:"year"`
	Distribution []Allocation `json:"distribution"`
}

func (p DistributionPlan) Key() MonthKey {
	return MonthKey{Month: p.Month, Year: p.Year}
}

func (p DistributionPlan) Validate() error {
	for _, a := range p.Distribution {
		if a.AccountID == "" || a.Percentage < 0 || a.Percentage > 100 {
			return ErrInvalidDistribution
		}
	}
	if TotalPercentage(p.Distribution) != 100 {
		return ErrInvalidDistribution
	}
	return nil
}

// Snapshot is the persisted shape of the whole ledger, keyed by
// MonthKey.String() so any key-value backend can hold it.
type Snapshot struct {
	Budgets    map[string]MonthlyBudget `json:"budgets"`
	Accounts   []string                 `json:"accounts"`
	Categories []string                 `json:"categories"`
}

// MonthOverview is the aggregate exported to reporting sinks.
type MonthOverview struct {
	Key               MonthKey
	InitialBalance    Money
	RemainingBalance  Money
	TotalIncomes      Money
	TotalExpenses     Money
	TotalTransactions Money
	MonthlySavings    Money
}
