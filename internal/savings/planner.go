package savings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"monbudget/internal/backend"
	"monbudget/internal/cache"
	"monbudget/internal/core"
)

// planFallbackMonths is how far back the planner walks looking for the
// most recent distribution plan when the requested month has none.
const planFallbackMonths = 12

const (
	planCacheSize = 64
	planCacheTTL  = 5 * time.Minute
)

// Planner resolves the distribution plan in effect for a month. Plans
// are sparse: a month without its own plan inherits the most recent one
// within the fallback window. Resolved plans are normalized against the
// accounts that still exist, healing the stored plan when accounts were
// deleted since it was written.
type Planner struct {
	plans    backend.PlanStore
	accounts backend.AccountStore
	// savingsOf reports the monthly savings target of a month; wired to
	// the budget ledger.
	savingsOf func(core.MonthKey) core.Money

	// defaultRouting routes unplanned savings to a single account
	// instead of failing the lookup; see defaultPlan for the pick order.
	defaultRouting bool

	cache  *cache.LRUCache[core.DistributionPlan]
	logger *slog.Logger
}

func NewPlanner(plans backend.PlanStore, accounts backend.AccountStore, savingsOf func(core.MonthKey) core.Money, defaultRouting bool, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		plans:          plans,
		accounts:       accounts,
		savingsOf:      savingsOf,
		defaultRouting: defaultRouting,
		cache:          cache.NewLRUCache[core.DistributionPlan](planCacheSize, planCacheTTL),
		logger:         logger,
	}
}

// SavePlan validates and stores a month's distribution plan.
func (p *Planner) SavePlan(ctx context.Context, plan core.DistributionPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if err := p.plans.SavePlan(ctx, plan); err != nil {
		return err
	}
	p.invalidate()
	return nil
}

// PlanForMonth returns the plan in effect for key: the month's own plan
// or the nearest one within the fallback window, normalized against the
// accounts that still exist. Returns core.ErrNotFound when no plan is
// in reach and no default routing applies.
func (p *Planner) PlanForMonth(ctx context.Context, key core.MonthKey) (core.DistributionPlan, error) {
	if cached, ok := p.cache.Get(key.String()); ok {
		return cached, nil
	}

	for i := 0; i < planFallbackMonths; i++ {
		candidate := key.AddMonths(-i)
		plan, err := p.plans.GetPlan(ctx, candidate)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return core.DistributionPlan{}, err
		}
		plan, err = p.normalize(ctx, plan)
		if err != nil {
			return core.DistributionPlan{}, err
		}
		// An inherited plan is relabeled to the requested month; healing
		// above still persisted under the month the plan was stored for.
		plan.Month, plan.Year = key.Month, key.Year
		p.cache.Set(key.String(), plan)
		return plan, nil
	}

	if p.defaultRouting {
		if plan, ok := p.defaultPlan(ctx, key); ok {
			p.cache.Set(key.String(), plan)
			return plan, nil
		}
	}
	return core.DistributionPlan{}, core.ErrNotFound
}

// AmountFor resolves the planned deposit into one account for a month:
// the month's savings target split by the plan's percentage. Months
// without a plan or without the account contribute nothing.
func (p *Planner) AmountFor(ctx context.Context, key core.MonthKey, accountID string) core.Money {
	plan, err := p.PlanForMonth(ctx, key)
	if err != nil {
		return core.Money{}
	}
	savings := p.savingsOf(key)
	for _, alloc := range plan.Distribution {
		if alloc.AccountID == accountID {
			return core.AllocationAmount(savings, alloc.Percentage)
		}
	}
	return core.Money{}
}

// normalize drops allocations whose accounts no longer exist and heals
// the stored plan when that changed anything.
func (p *Planner) normalize(ctx context.Context, plan core.DistributionPlan) (core.DistributionPlan, error) {
	accounts, err := p.accounts.ListAccounts(ctx)
	if err != nil {
		return core.DistributionPlan{}, err
	}
	existing := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		existing[a.ID] = true
	}

	normalized, changed := core.NormalizeDistribution(plan.Distribution, existing)
	if !changed {
		return plan, nil
	}
	plan.Distribution = normalized
	p.logger.Info("Healed distribution plan after account removal",
		"month", plan.Key().String(), "allocations", len(normalized))
	if err := p.plans.SavePlan(ctx, plan); err != nil {
		// The healed plan still serves this request.
		p.logger.Warn("Persisting healed plan failed", "month", plan.Key().String(), "error", err)
	}
	return plan, nil
}

// regulatedAccountTypes are the French regulated passbooks eligible to
// receive unplanned savings by default.
var regulatedAccountTypes = map[string]bool{
	"Livret A": true,
	"LEP":      true,
	"LDDS":     true,
}

// defaultPlan synthesizes a 100% allocation when no plan is in reach.
// An account explicitly flagged as default wins; otherwise the
// regulated passbook with the best rate receives everything, falling
// back to the only account when just one exists. The synthesized plan
// is not persisted.
func (p *Planner) defaultPlan(ctx context.Context, key core.MonthKey) (core.DistributionPlan, bool) {
	accounts, err := p.accounts.ListAccounts(ctx)
	if err != nil {
		return core.DistributionPlan{}, false
	}

	var target *core.SavingsAccount
	for i := range accounts {
		if accounts[i].IsDefault {
			target = &accounts[i]
			break
		}
	}
	if target == nil {
		for i := range accounts {
			a := &accounts[i]
			if !regulatedAccountTypes[a.AccountType] {
				continue
			}
			if target == nil || a.InterestRate > target.InterestRate {
				target = a
			}
		}
	}
	if target == nil && len(accounts) == 1 {
		target = &accounts[0]
	}
	if target == nil {
		return core.DistributionPlan{}, false
	}
	return core.DistributionPlan{
		Month:        key.Month,
		Year:         key.Year,
		Distribution: []core.Allocation{{AccountID: target.ID, Percentage: 100}},
	}, true
}

func (p *Planner) invalidate() {
	p.cache.Purge()
}

// CacheCleaner exposes the plan cache for background expiry sweeps.
func (p *Planner) CacheCleaner() cache.Cleaner { return p.cache }
