package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monbudget/internal/core"
)

type recordedEntry struct {
	accountID   string
	amount      core.Money
	entryType   core.SavingsEntryType
	description string
}

type fakeRecorder struct {
	entries []recordedEntry
	err     error
}

func (f *fakeRecorder) RecordTransaction(_ context.Context, accountID string, amount core.Money, entryType core.SavingsEntryType, description string) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, recordedEntry{accountID, amount, entryType, description})
	return nil
}

func expenseTx(cents int64, description string) core.Transaction {
	return core.Transaction{
		Description: description,
		Amount:      core.Money{Cents: cents},
		Date:        time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC),
		Type:        core.Expense,
	}
}

func TestAddTransactionPinsDate(t *testing.T) {
	s := newTestStore()
	july := key(6, 2025)

	got, err := s.AddTransaction(context.Background(), july, expenseTx(40_00, "groceries"))
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, time.July, got.Date.Month())
	assert.Equal(t, 2025, got.Date.Year())
	assert.Equal(t, 15, got.Date.Day())
	assert.Equal(t, cents(-40_00), s.CurrentBudget(july).RemainingBalance)
}

func TestAddTransactionRejectsInvalid(t *testing.T) {
	s := newTestStore()
	bad := expenseTx(0, "free")
	_, err := s.AddTransaction(context.Background(), key(2, 2025), bad)
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Empty(t, s.Budgets())
}

func TestAddSavingsSourcedTransaction(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestStore(WithSavingsRecorder(rec))
	march := key(2, 2025)
	s.UpdateInitialBalance(march, cents(100_00))

	tx := expenseTx(250_00, "car repair")
	tx.FromSavingsAccount = true
	tx.SavingsAccountID = "acct-1"
	_, err := s.AddTransaction(context.Background(), march, tx)
	require.NoError(t, err)

	// The checking balance is untouched, the savings book gets a
	// withdrawal.
	assert.Equal(t, cents(100_00), s.CurrentBudget(march).RemainingBalance)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, "acct-1", rec.entries[0].accountID)
	assert.Equal(t, core.Withdrawal, rec.entries[0].entryType)
	assert.Equal(t, cents(250_00), rec.entries[0].amount)
	assert.Contains(t, rec.entries[0].description, "car repair")
}

func TestAddSavingsSourcedTransactionRecorderFailureKeepsEntry(t *testing.T) {
	rec := &fakeRecorder{err: fmt.Errorf("book closed")}
	s := newTestStore(WithSavingsRecorder(rec))
	march := key(2, 2025)

	tx := expenseTx(250_00, "car repair")
	tx.FromSavingsAccount = true
	tx.SavingsAccountID = "acct-1"
	_, err := s.AddTransaction(context.Background(), march, tx)
	require.NoError(t, err, "recorder failure must not reject the budget entry")
	assert.Len(t, s.CurrentBudget(march).Transactions, 1)
}

func TestUpdateTransaction(t *testing.T) {
	s := newTestStore()
	march := key(2, 2025)
	added, err := s.AddTransaction(context.Background(), march, expenseTx(40_00, "groceries"))
	require.NoError(t, err)

	added.Amount = cents(55_00)
	require.NoError(t, s.UpdateTransaction(added))
	assert.Equal(t, cents(-55_00), s.CurrentBudget(march).RemainingBalance)

	missing := added
	missing.ID = "nope"
	assert.ErrorIs(t, s.UpdateTransaction(missing), core.ErrNotFound)
}

func TestDeleteTransactionUnwindsBalance(t *testing.T) {
	s := newTestStore()
	march := key(2, 2025)
	s.UpdateInitialBalance(march, cents(100_00))
	added, err := s.AddTransaction(context.Background(), march, expenseTx(40_00, "groceries"))
	require.NoError(t, err)
	assert.Equal(t, cents(60_00), s.CurrentBudget(march).RemainingBalance)

	require.NoError(t, s.DeleteTransaction(march, added.ID))
	got := s.CurrentBudget(march)
	assert.Equal(t, cents(100_00), got.RemainingBalance)
	assert.Empty(t, got.Transactions)

	assert.ErrorIs(t, s.DeleteTransaction(march, added.ID), core.ErrNotFound)
}

func TestYearlyRecurringExpansion(t *testing.T) {
	s := newTestStore()
	march2025 := key(2, 2025)
	s.UpdateInitialBalance(march2025, cents(500_00))
	s.UpdateMonthlySavings(march2025, cents(100_00), true)

	tx := expenseTx(120_00, "insurance")
	tx.IsYearlyRecurring = true
	added, err := s.AddTransaction(context.Background(), march2025, tx)
	require.NoError(t, err)

	// Ten clones, one per following year, in the same calendar month.
	for i := 1; i <= 10; i++ {
		futureKey := key(2, 2025+i)
		fb := s.CurrentBudget(futureKey)
		require.Len(t, fb.Transactions, 1, "year %d", 2025+i)
		clone := fb.Transactions[0]
		assert.Equal(t, fmt.Sprintf("%s-year-%d", added.ID, i), clone.ID)
		assert.Equal(t, 2025+i, clone.Date.Year())
		assert.Equal(t, time.March, clone.Date.Month())
		assert.True(t, clone.IsYearlyRecurring)
		assert.Equal(t, cents(-120_00), fb.RemainingBalance, "synthesized month starts at the clone's own effect")
		assert.Equal(t, cents(100_00), fb.MonthlySavings)
	}
}

func TestYearlyRecurringExpansionIntoExistingBudget(t *testing.T) {
	s := newTestStore()
	march2025, march2026 := key(2, 2025), key(2, 2026)
	s.UpdateInitialBalance(march2026, cents(300_00))

	tx := expenseTx(120_00, "insurance")
	tx.IsYearlyRecurring = true
	_, err := s.AddTransaction(context.Background(), march2025, tx)
	require.NoError(t, err)

	fb := s.CurrentBudget(march2026)
	require.Len(t, fb.Transactions, 1)
	assert.Equal(t, cents(180_00), fb.RemainingBalance)
}

func TestDeleteRecurringOriginCascades(t *testing.T) {
	s := newTestStore()
	march2025 := key(2, 2025)

	tx := expenseTx(120_00, "insurance")
	tx.IsYearlyRecurring = true
	added, err := s.AddTransaction(context.Background(), march2025, tx)
	require.NoError(t, err)

	// An unrelated transaction in a clone month must survive.
	_, err = s.AddTransaction(context.Background(), key(2, 2027), expenseTx(10_00, "coffee"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteTransaction(march2025, added.ID))

	assert.Empty(t, s.CurrentBudget(march2025).Transactions)
	for i := 1; i <= 10; i++ {
		fb := s.CurrentBudget(key(2, 2025+i))
		for _, remaining := range fb.Transactions {
			assert.NotContains(t, remaining.ID, added.ID, "year %d", 2025+i)
		}
	}
	survivors := s.CurrentBudget(key(2, 2027)).Transactions
	require.Len(t, survivors, 1)
	assert.Equal(t, "coffee", survivors[0].Description)
	assert.Equal(t, cents(-10_00), s.CurrentBudget(key(2, 2027)).RemainingBalance)
}

func TestDeleteRecurringCloneCascadesForwardOnly(t *testing.T) {
	s := newTestStore()
	march2025 := key(2, 2025)

	tx := expenseTx(120_00, "insurance")
	tx.IsYearlyRecurring = true
	added, err := s.AddTransaction(context.Background(), march2025, tx)
	require.NoError(t, err)

	// Delete the 2028 clone: 2029+ go with it, 2025-2027 stay.
	cloneID := fmt.Sprintf("%s-year-3", added.ID)
	require.NoError(t, s.DeleteTransaction(key(2, 2028), cloneID))

	for _, year := range []int{2025, 2026, 2027} {
		assert.Len(t, s.CurrentBudget(key(2, year)).Transactions, 1, "year %d", year)
	}
	for year := 2028; year <= 2035; year++ {
		assert.Empty(t, s.CurrentBudget(key(2, year)).Transactions, "year %d", year)
	}
}
