package savings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monbudget/internal/core"
	"monbudget/internal/remote/memory"
)

func newTestPlanner(t *testing.T, store *memory.Store, defaultRouting bool) *Planner {
	t.Helper()
	savingsOf := func(core.MonthKey) core.Money { return core.Money{Cents: 100_00} }
	return NewPlanner(store, store, savingsOf, defaultRouting, nil)
}

func seedAccount(t *testing.T, store *memory.Store, id string, isDefault bool) {
	t.Helper()
	err := store.SaveAccount(context.Background(), core.SavingsAccount{
		ID:                id,
		Name:              id,
		InterestFrequency: core.Annually,
		InterestType:      core.FixedRate,
	})
	require.NoError(t, err)
	if isDefault {
		account, _ := store.GetAccount(context.Background(), id)
		account.IsDefault = true
		require.NoError(t, store.SaveAccount(context.Background(), account))
	}
}

func TestPlanForMonthFallsBack(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, "a", false)
	p := newTestPlanner(t, store, false)
	ctx := context.Background()

	january := core.DistributionPlan{
		Month: 0, Year: 2025,
		Distribution: []core.Allocation{{AccountID: "a", Percentage: 100}},
	}
	require.NoError(t, p.SavePlan(ctx, january))

	// November 2025 is 10 months later, still inside the window.
	got, err := p.PlanForMonth(ctx, core.MonthKey{Month: 10, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, january.Distribution, got.Distribution)

	// Thirteen months later the window is exhausted.
	_, err = p.PlanForMonth(ctx, core.MonthKey{Month: 1, Year: 2026})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestPlanForMonthPrefersOwnPlan(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, "a", false)
	seedAccount(t, store, "b", false)
	p := newTestPlanner(t, store, false)
	ctx := context.Background()

	require.NoError(t, p.SavePlan(ctx, core.DistributionPlan{
		Month: 0, Year: 2025,
		Distribution: []core.Allocation{{AccountID: "a", Percentage: 100}},
	}))
	require.NoError(t, p.SavePlan(ctx, core.DistributionPlan{
		Month: 2, Year: 2025,
		Distribution: []core.Allocation{{AccountID: "b", Percentage: 100}},
	}))

	got, err := p.PlanForMonth(ctx, core.MonthKey{Month: 2, Year: 2025})
	require.NoError(t, err)
	require.Len(t, got.Distribution, 1)
	assert.Equal(t, "b", got.Distribution[0].AccountID)
}

func TestPlanForMonthHealsDeletedAccounts(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, "a", false)
	seedAccount(t, store, "b", false)
	p := newTestPlanner(t, store, false)
	ctx := context.Background()

	key := core.MonthKey{Month: 2, Year: 2025}
	require.NoError(t, p.SavePlan(ctx, core.DistributionPlan{
		Month: 2, Year: 2025,
		Distribution: []core.Allocation{
			{AccountID: "a", Percentage: 60},
			{AccountID: "b", Percentage: 40},
		},
	}))

	require.NoError(t, store.DeleteAccount(ctx, "b"))

	got, err := p.PlanForMonth(ctx, key)
	require.NoError(t, err)
	require.Len(t, got.Distribution, 1)
	assert.Equal(t, "a", got.Distribution[0].AccountID)
	assert.Equal(t, 100, got.Distribution[0].Percentage)

	// The healed plan was persisted.
	stored, err := store.GetPlan(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, got.Distribution, stored.Distribution)
}

func TestPlanForMonthDefaultRouting(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, "a", false)
	seedAccount(t, store, "d", true)
	ctx := context.Background()

	// Routing off: no plan means not found.
	off := newTestPlanner(t, store, false)
	_, err := off.PlanForMonth(ctx, core.MonthKey{Month: 5, Year: 2025})
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Routing on: everything goes to the default account.
	on := newTestPlanner(t, store, true)
	got, err := on.PlanForMonth(ctx, core.MonthKey{Month: 5, Year: 2025})
	require.NoError(t, err)
	require.Len(t, got.Distribution, 1)
	assert.Equal(t, "d", got.Distribution[0].AccountID)
	assert.Equal(t, 100, got.Distribution[0].Percentage)

	// The synthesized plan is not persisted.
	_, err = store.GetPlan(ctx, core.MonthKey{Month: 5, Year: 2025})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func seedTypedAccount(t *testing.T, store *memory.Store, id, accountType string, rate float64) {
	t.Helper()
	err := store.SaveAccount(context.Background(), core.SavingsAccount{
		ID:                id,
		Name:              id,
		AccountType:       accountType,
		InterestRate:      rate,
		InterestFrequency: core.Annually,
		InterestType:      core.FixedRate,
	})
	require.NoError(t, err)
}

func TestDefaultRoutingPrefersBestRegulatedPassbook(t *testing.T) {
	store := memory.NewStore()
	seedTypedAccount(t, store, "livret", "Livret A", 3.0)
	seedTypedAccount(t, store, "lep", "LEP", 5.0)
	seedTypedAccount(t, store, "broker", "PEA", 8.0)
	p := newTestPlanner(t, store, true)

	got, err := p.PlanForMonth(context.Background(), core.MonthKey{Month: 5, Year: 2025})
	require.NoError(t, err)
	require.Len(t, got.Distribution, 1)
	assert.Equal(t, "lep", got.Distribution[0].AccountID,
		"the regulated passbook with the best rate wins, whatever other accounts earn")
	assert.Equal(t, 100, got.Distribution[0].Percentage)
}

func TestDefaultRoutingFallsBackToOnlyAccount(t *testing.T) {
	store := memory.NewStore()
	seedTypedAccount(t, store, "broker", "PEA", 8.0)
	p := newTestPlanner(t, store, true)
	ctx := context.Background()

	got, err := p.PlanForMonth(ctx, core.MonthKey{Month: 5, Year: 2025})
	require.NoError(t, err)
	require.Len(t, got.Distribution, 1)
	assert.Equal(t, "broker", got.Distribution[0].AccountID)

	// Two unregulated accounts and no default: nothing to route to.
	seedTypedAccount(t, store, "broker2", "PEA", 2.0)
	p2 := newTestPlanner(t, store, true)
	_, err = p2.PlanForMonth(ctx, core.MonthKey{Month: 6, Year: 2025})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInheritedPlanIsRekeyedToRequestedMonth(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, "a", false)
	p := newTestPlanner(t, store, false)
	ctx := context.Background()

	require.NoError(t, p.SavePlan(ctx, core.DistributionPlan{
		Month: 0, Year: 2025,
		Distribution: []core.Allocation{{AccountID: "a", Percentage: 100}},
	}))

	got, err := p.PlanForMonth(ctx, core.MonthKey{Month: 4, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, core.MonthKey{Month: 4, Year: 2025}, got.Key(),
		"the inherited plan carries the month it answers for, not the month it was stored under")
}

func TestAmountFor(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, "a", false)
	seedAccount(t, store, "b", false)
	p := newTestPlanner(t, store, false)
	ctx := context.Background()

	require.NoError(t, p.SavePlan(ctx, core.DistributionPlan{
		Month: 2, Year: 2025,
		Distribution: []core.Allocation{
			{AccountID: "a", Percentage: 70},
			{AccountID: "b", Percentage: 30},
		},
	}))

	key := core.MonthKey{Month: 2, Year: 2025}
	assert.Equal(t, int64(70_00), p.AmountFor(ctx, key, "a").Cents)
	assert.Equal(t, int64(30_00), p.AmountFor(ctx, key, "b").Cents)
	assert.Zero(t, p.AmountFor(ctx, key, "missing").Cents)
}
