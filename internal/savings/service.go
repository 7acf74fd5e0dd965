// Package savings manages savings accounts, their movement book and the
// monthly distribution plans that split a month's savings across
// accounts.
package savings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"monbudget/internal/backend"
	"monbudget/internal/core"
)

// TransferLedger is the slice of the budget ledger the transfer flow
// needs: the per-month one-way latch.
type TransferLedger interface {
	IsSavingsTransferred(key core.MonthKey) bool
	MarkSavingsTransferred(key core.MonthKey) error
}

// Service owns savings accounts and their entries. All persistence goes
// through the backend store; the service adds the deposit-limit and
// transfer-latch rules on top.
type Service struct {
	accounts backend.AccountStore
	planner  *Planner
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

func NewService(accounts backend.AccountStore, planner *Planner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: accounts,
		planner:  planner,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Planner exposes the distribution planner, or nil when the service was
// built without one.
func (s *Service) Planner() *Planner { return s.planner }

// CreateAccount validates and stores a new savings account.
func (s *Service) CreateAccount(ctx context.Context, account core.SavingsAccount) (core.SavingsAccount, error) {
	account.ID = s.newID()
	if err := account.Validate(); err != nil {
		return core.SavingsAccount{}, err
	}
	if err := s.accounts.SaveAccount(ctx, account); err != nil {
		return core.SavingsAccount{}, fmt.Errorf("saving account: %w", err)
	}
	s.logger.Info("Created savings account", "account", account.ID, "name", account.Name)
	return account, nil
}

// UpdateAccount replaces a stored account's settings. The balance is
// carried over from the stored version: it only moves through entries.
func (s *Service) UpdateAccount(ctx context.Context, account core.SavingsAccount) error {
	if err := account.Validate(); err != nil {
		return err
	}
	stored, err := s.accounts.GetAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	account.CurrentBalance = stored.CurrentBalance
	return s.accounts.SaveAccount(ctx, account)
}

// DeleteAccount removes an account and invalidates any cached plans
// referencing it.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	if err := s.accounts.DeleteAccount(ctx, id); err != nil {
		return err
	}
	if s.planner != nil {
		s.planner.invalidate()
	}
	s.logger.Info("Deleted savings account", "account", id)
	return nil
}

// Account returns one account by id.
func (s *Service) Account(ctx context.Context, id string) (core.SavingsAccount, error) {
	return s.accounts.GetAccount(ctx, id)
}

// Accounts lists every savings account.
func (s *Service) Accounts(ctx context.Context) ([]core.SavingsAccount, error) {
	return s.accounts.ListAccounts(ctx)
}

// Entries lists the movement book of one account.
func (s *Service) Entries(ctx context.Context, accountID string) ([]core.SavingsEntry, error) {
	return s.accounts.ListEntries(ctx, accountID)
}

// cumulativeDeposits sums every deposit ever booked on the account.
// Withdrawals do not free up room: regulated accounts cap what was paid
// in, not the balance.
func (s *Service) cumulativeDeposits(ctx context.Context, accountID string) (core.Money, error) {
	entries, err := s.accounts.ListEntries(ctx, accountID)
	if err != nil {
		return core.Money{}, err
	}
	var sum int64
	for _, e := range entries {
		if e.Type == core.Deposit {
			sum += e.Amount.Cents
		}
	}
	return core.Money{Cents: sum}, nil
}

// checkDepositLimit rejects a deposit that would push the cumulative
// deposited amount past the account's cap.
func (s *Service) checkDepositLimit(ctx context.Context, account core.SavingsAccount, amount core.Money) error {
	if account.MaxDepositLimit == nil {
		return nil
	}
	deposited, err := s.cumulativeDeposits(ctx, account.ID)
	if err != nil {
		return err
	}
	if deposited.Cents+amount.Cents > account.MaxDepositLimit.Cents {
		return fmt.Errorf("account %s: deposited %s + %s over limit %s: %w",
			account.ID, deposited, amount, *account.MaxDepositLimit, core.ErrDepositLimitExceeded)
	}
	return nil
}

// RecordTransaction books a movement on an account and adjusts its
// balance. Deposits are subject to the deposit limit.
func (s *Service) RecordTransaction(ctx context.Context, accountID string, amount core.Money, entryType core.SavingsEntryType, description string) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if entryType == core.Deposit {
		if err := s.checkDepositLimit(ctx, account, amount); err != nil {
			return err
		}
	}

	entry := core.SavingsEntry{
		ID:          s.newID(),
		AccountID:   accountID,
		Amount:      amount,
		Description: description,
		Date:        s.now().UTC(),
		Type:        entryType,
	}
	if err := s.accounts.AppendEntry(ctx, entry); err != nil {
		return fmt.Errorf("appending entry: %w", err)
	}

	switch entryType {
	case core.Withdrawal:
		account.CurrentBalance = account.CurrentBalance.Sub(amount)
	default:
		account.CurrentBalance = account.CurrentBalance.Add(amount)
	}
	if err := s.accounts.SaveAccount(ctx, account); err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}
	s.logger.Info("Recorded savings movement",
		"account", accountID, "type", entryType, "amount", amount.String())
	return nil
}

// MoveSavingsToAccount transfers one month's savings into a single
// account. The month's latch guarantees the transfer happens at most
// once.
func (s *Service) MoveSavingsToAccount(ctx context.Context, ledger TransferLedger, key core.MonthKey, accountID string, amount core.Money) error {
	if ledger.IsSavingsTransferred(key) {
		return core.ErrSavingsAlreadyTransferred
	}
	description := fmt.Sprintf("Monthly savings %s", key)
	if err := s.RecordTransaction(ctx, accountID, amount, core.Deposit, description); err != nil {
		return err
	}
	return ledger.MarkSavingsTransferred(key)
}

// DistributeAndTransfer splits one month's savings across the plan's
// accounts. Every allocation is checked against its deposit limit
// before any entry is booked, so a failing account leaves the whole
// transfer undone.
func (s *Service) DistributeAndTransfer(ctx context.Context, ledger TransferLedger, key core.MonthKey, amount core.Money, plan core.DistributionPlan) error {
	if ledger.IsSavingsTransferred(key) {
		return core.ErrSavingsAlreadyTransferred
	}
	if err := plan.Validate(); err != nil {
		return err
	}

	// Integer percentage shares can leave a few cents behind; the
	// largest allocation absorbs them so the full amount moves.
	shares := make([]core.Money, len(plan.Distribution))
	var allocated int64
	largest := 0
	for i, alloc := range plan.Distribution {
		shares[i] = core.AllocationAmount(amount, alloc.Percentage)
		allocated += shares[i].Cents
		if alloc.Percentage > plan.Distribution[largest].Percentage {
			largest = i
		}
	}
	if rest := amount.Cents - allocated; rest > 0 && len(shares) > 0 {
		shares[largest].Cents += rest
	}

	type slice struct {
		account core.SavingsAccount
		amount  core.Money
	}
	slices := make([]slice, 0, len(plan.Distribution))
	for i, alloc := range plan.Distribution {
		share := shares[i]
		if share.IsZero() {
			continue
		}
		account, err := s.accounts.GetAccount(ctx, alloc.AccountID)
		if err != nil {
			return err
		}
		if err := s.checkDepositLimit(ctx, account, share); err != nil {
			return err
		}
		slices = append(slices, slice{account: account, amount: share})
	}

	description := fmt.Sprintf("Monthly savings %s", key)
	for _, sl := range slices {
		if err := s.RecordTransaction(ctx, sl.account.ID, sl.amount, core.Deposit, description); err != nil {
			return err
		}
	}
	return ledger.MarkSavingsTransferred(key)
}

// Projections computes the growth projection of every account over the
// standard horizons, feeding planned distributions from the planner.
func (s *Service) Projections(ctx context.Context, start core.MonthKey) ([]core.Projection, error) {
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Projection, 0, len(accounts))
	for _, account := range accounts {
		planned := s.plannedFor(ctx, account.ID)
		out = append(out, core.ProjectAccount(account, start, core.HorizonTenYear, planned))
	}
	return out, nil
}

// plannedFor returns the planned monthly distribution into one account,
// resolved through the planner's month-by-month fallback.
func (s *Service) plannedFor(ctx context.Context, accountID string) func(core.MonthKey) core.Money {
	if s.planner == nil {
		return nil
	}
	return func(key core.MonthKey) core.Money {
		return s.planner.AmountFor(ctx, key, accountID)
	}
}
