// Package ledger owns the in-memory month-keyed budget collection and
// every mutation path into it. All balance changes route through the
// pure engine in internal/core so the remaining-balance invariant
// holds; the store adds lazy month creation, forward propagation and
// yearly-recurring expansion on top.
package ledger

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"monbudget/internal/core"
)

// SavingsRecorder is the savings-account collaborator: it books a
// movement and atomically adjusts the account balance.
type SavingsRecorder interface {
	RecordTransaction(ctx context.Context, accountID string, amount core.Money, entryType core.SavingsEntryType, description string) error
}

// Store is the single-writer budget ledger. One logical writer (the
// active session) mutates it; the mutex only guards against the HTTP
// surface calling in from multiple connections.
type Store struct {
	mu         sync.Mutex
	budgets    map[core.MonthKey]core.MonthlyBudget
	accounts   []string
	categories []string

	savings  SavingsRecorder
	onChange func()
	newID    func() string
}

// Option configures a Store.
type Option func(*Store)

// WithSavingsRecorder wires the savings collaborator used when a
// savings-sourced expense is booked.
func WithSavingsRecorder(r SavingsRecorder) Option {
	return func(s *Store) { s.savings = r }
}

// WithOnChange registers a hook invoked after every successful
// mutation; the syncer's Notify hangs off it.
func WithOnChange(fn func()) Option {
	return func(s *Store) { s.onChange = fn }
}

// WithIDGenerator overrides transaction/item id generation (tests).
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		budgets: make(map[core.MonthKey]core.MonthlyBudget),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Restore replaces the ledger content with a persisted snapshot.
// Malformed budget keys are dropped with a warning instead of
// poisoning later month comparisons.
func (s *Store) Restore(snap *core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.budgets = make(map[core.MonthKey]core.MonthlyBudget, len(snap.Budgets))
	for raw, b := range snap.Budgets {
		key, err := core.ParseMonthKey(raw)
		if err != nil {
			slog.Warn("Dropping budget with malformed key", "key", raw, "error", err)
			continue
		}
		b.Month, b.Year = key.Month, key.Year
		s.budgets[key] = b.Clone()
	}
	s.accounts = append([]string(nil), snap.Accounts...)
	s.categories = append([]string(nil), snap.Categories...)
}

// Snapshot copies the ledger into its persisted shape. The copy is
// self-contained: budgets are deep-copied so the syncer can encode the
// snapshot on its own goroutine while mutations keep landing here.
func (s *Store) Snapshot() *core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &core.Snapshot{
		Budgets:    make(map[string]core.MonthlyBudget, len(s.budgets)),
		Accounts:   append([]string(nil), s.accounts...),
		Categories: append([]string(nil), s.categories...),
	}
	for key, b := range s.budgets {
		snap.Budgets[key.String()] = b.Clone()
	}
	return snap
}

// ResetAll drops every budget. Accounts and categories survive a reset.
func (s *Store) ResetAll() {
	s.mu.Lock()
	s.budgets = make(map[core.MonthKey]core.MonthlyBudget)
	s.mu.Unlock()
	s.changed()
}

// CurrentBudget returns the budget for key without creating anything;
// absent months read as an empty budget.
func (s *Store) CurrentBudget(key core.MonthKey) core.MonthlyBudget {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.budgets[key]; ok {
		return b.Clone()
	}
	return core.NewMonthlyBudget(key)
}

// Budget returns the budget for key, creating it on first access. A new
// month inherits the monthly savings target and an unsettled copy of
// the fixed items of the nearest prior month; the creation counts as a
// change so the new month gets persisted.
func (s *Store) Budget(key core.MonthKey) core.MonthlyBudget {
	s.mu.Lock()
	_, existed := s.budgets[key]
	b := s.ensure(key).Clone()
	s.mu.Unlock()
	if !existed {
		s.changed()
	}
	return b
}

func (s *Store) ensure(key core.MonthKey) core.MonthlyBudget {
	if b, ok := s.budgets[key]; ok {
		return b
	}
	b := core.NewMonthlyBudget(key)
	if prior, ok := s.nearestPrior(key); ok {
		b.MonthlySavings = prior.MonthlySavings
		for _, income := range prior.FixedIncomes {
			income.IsReceived = false
			b.FixedIncomes = append(b.FixedIncomes, income)
		}
		for _, expense := range prior.FixedExpenses {
			expense.IsPaid = false
			b.FixedExpenses = append(b.FixedExpenses, expense)
		}
		b.RemainingBalance = core.Recompute(b)
	}
	s.budgets[key] = b
	return b
}

func (s *Store) nearestPrior(key core.MonthKey) (core.MonthlyBudget, bool) {
	var best core.MonthKey
	found := false
	for k := range s.budgets {
		if !k.Before(key) {
			continue
		}
		if !found || best.Before(k) {
			best = k
			found = true
		}
	}
	if !found {
		return core.MonthlyBudget{}, false
	}
	return s.budgets[best], true
}

// Budgets returns every month in chronological order.
func (s *Store) Budgets() []core.MonthlyBudget {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.MonthlyBudget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().Before(out[j].Key()) })
	return out
}

// futureKeys returns existing budget keys strictly after key, sorted.
// Callers hold the lock.
func (s *Store) futureKeys(key core.MonthKey) []core.MonthKey {
	var out []core.MonthKey
	for k := range s.budgets {
		if key.Before(k) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// UpdateInitialBalance rebases the month on a new opening balance.
func (s *Store) UpdateInitialBalance(key core.MonthKey, amount core.Money) {
	s.mu.Lock()
	b := s.ensure(key)
	s.budgets[key] = core.WithInitialBalance(b, amount)
	s.mu.Unlock()
	s.changed()
}

// UpdateMonthlySavings sets the month's savings target and, unless
// currentMonthOnly, propagates it to every future month, bootstrapping
// the next three months when none exist yet.
func (s *Store) UpdateMonthlySavings(key core.MonthKey, amount core.Money, currentMonthOnly bool) {
	s.mu.Lock()
	b := s.ensure(key)
	b.MonthlySavings = amount
	s.budgets[key] = b

	if !currentMonthOnly {
		futures := s.futureKeys(key)
		if len(futures) == 0 {
			for i := 1; i <= bootstrapMonths; i++ {
				next := key.AddMonths(i)
				if _, ok := s.budgets[next]; !ok {
					s.budgets[next] = core.NewMonthlyBudget(next)
				}
				futures = append(futures, next)
			}
		}
		for _, fk := range futures {
			fb := s.budgets[fk]
			fb.MonthlySavings = amount
			s.budgets[fk] = fb
		}
	}
	s.mu.Unlock()
	s.changed()
}

// ToggleSavingsSetAside flips the set-aside flag. The remaining balance
// never moves; only AvailableBalance changes its deduction.
func (s *Store) ToggleSavingsSetAside(key core.MonthKey) bool {
	s.mu.Lock()
	b := s.ensure(key)
	b.IsSavingsSetAside = !b.IsSavingsSetAside
	s.budgets[key] = b
	setAside := b.IsSavingsSetAside
	s.mu.Unlock()
	s.changed()
	return setAside
}

// MarkSavingsTransferred latches the month's transfer flag. The latch
// is one-way: a second call is rejected so savings cannot be moved to
// an account twice.
func (s *Store) MarkSavingsTransferred(key core.MonthKey) error {
	s.mu.Lock()
	b := s.ensure(key)
	if b.IsSavingsTransferred {
		s.mu.Unlock()
		return core.ErrSavingsAlreadyTransferred
	}
	b.IsSavingsTransferred = true
	s.budgets[key] = b
	s.mu.Unlock()
	s.changed()
	return nil
}

// IsSavingsTransferred reads the month's latch.
func (s *Store) IsSavingsTransferred(key core.MonthKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.budgets[key]; ok {
		return b.IsSavingsTransferred
	}
	return false
}

// TotalFixedIncomes sums the month's fixed incomes, optionally
// excluding received ones.
func (s *Store) TotalFixedIncomes(key core.MonthKey, excludeReceived bool) core.Money {
	return core.TotalFixedIncomes(s.CurrentBudget(key), excludeReceived)
}

// TotalFixedExpenses sums the month's fixed expenses, optionally
// excluding paid ones.
func (s *Store) TotalFixedExpenses(key core.MonthKey, excludePaid bool) core.Money {
	return core.TotalFixedExpenses(s.CurrentBudget(key), excludePaid)
}

// TotalTransactions sums the month's transactions; savings-sourced
// ones are excluded.
func (s *Store) TotalTransactions(key core.MonthKey) core.Money {
	return core.TotalTransactions(s.CurrentBudget(key))
}

// Accounts returns the known checking accounts.
func (s *Store) Accounts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.accounts...)
}

// Categories returns the known transaction categories.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.categories...)
}

// AddAccount registers a checking account name, deduplicated.
func (s *Store) AddAccount(name string) {
	s.addName(&s.accounts, name)
}

// AddCategory registers a transaction category, deduplicated.
func (s *Store) AddCategory(name string) {
	s.addName(&s.categories, name)
}

func (s *Store) addName(list *[]string, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	s.mu.Lock()
	for _, existing := range *list {
		if existing == name {
			s.mu.Unlock()
			return
		}
	}
	*list = append(*list, name)
	s.mu.Unlock()
	s.changed()
}

// clampDay keeps a day-of-month valid for the target month so pinning
// a date never rolls over into the next month.
func clampDay(key core.MonthKey, day int) int {
	last := key.FirstOfMonth().AddDate(0, 1, -1).Day()
	if day < 1 {
		return 1
	}
	if day > last {
		return last
	}
	return day
}

// pinToMonth moves t into the key's month and year, preserving the day
// and time of day as far as the month allows.
func pinToMonth(key core.MonthKey, t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return time.Date(key.Year, time.Month(key.Month+1), clampDay(key, t.Day()),
		t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
