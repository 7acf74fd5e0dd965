package core

import "testing"

func monthlyAccount(balanceCents int64, rate float64) SavingsAccount {
	return SavingsAccount{
		ID:                "a",
		Name:              "Livret",
		AccountType:       "Livret A",
		InterestRate:      rate,
		InterestFrequency: Monthly,
		InterestType:      FixedRate,
		IsLiquid:          true,
		CurrentBalance:    Money{Cents: balanceCents},
	}
}

func TestProjectAccountNoInterestNoPlan(t *testing.T) {
	acc := monthlyAccount(1000_00, 0)
	proj := ProjectAccount(acc, MonthKey{Month: 0, Year: 2025}, 24, nil)

	if len(proj.Points) != 25 {
		t.Fatalf("points: %d, want 25", len(proj.Points))
	}
	for _, p := range proj.Points {
		if p.Balance.Cents != 1000_00 {
			t.Fatalf("balance drifted to %d at %v", p.Balance.Cents, p.Key)
		}
	}
	if proj.OneYear.Cents != 1000_00 {
		t.Fatalf("one year: %d", proj.OneYear.Cents)
	}
}

func TestProjectAccountMonthlyInterestCompounds(t *testing.T) {
	// 12% yearly on a monthly account is 1% per month.
	acc := monthlyAccount(1000_00, 12)
	proj := ProjectAccount(acc, MonthKey{Month: 0, Year: 2025}, 2, nil)

	if got := proj.Points[1].Balance.Cents; got != 1010_00 {
		t.Fatalf("month 1: %d, want 101000", got)
	}
	if got := proj.Points[2].Balance.Cents; got != 1020_10 {
		t.Fatalf("month 2: %d, want 102010 (compounded)", got)
	}
}

func TestProjectAccountAnnualInterestOnlyDecember(t *testing.T) {
	acc := monthlyAccount(1000_00, 3)
	acc.InterestFrequency = Annually

	// Start in October: November accrues nothing, December credits 3%.
	proj := ProjectAccount(acc, MonthKey{Month: 9, Year: 2025}, 3, nil)
	if got := proj.Points[1].Balance.Cents; got != 1000_00 {
		t.Fatalf("november: %d, want unchanged", got)
	}
	if got := proj.Points[2].Balance.Cents; got != 1030_00 {
		t.Fatalf("december: %d, want 103000", got)
	}
	if got := proj.Points[3].Balance.Cents; got != 1030_00 {
		t.Fatalf("january: %d, want unchanged", got)
	}
}

func TestProjectAccountDistributionsAdded(t *testing.T) {
	acc := monthlyAccount(0, 0)
	planned := func(k MonthKey) Money { return Money{Cents: 100_00} }
	proj := ProjectAccount(acc, MonthKey{Month: 0, Year: 2025}, HorizonTenYear, planned)

	// Month zero receives no distribution.
	if got := proj.Points[0].Balance.Cents; got != 0 {
		t.Fatalf("month 0: %d", got)
	}
	if got := proj.OneYear.Cents; got != 12*100_00 {
		t.Fatalf("one year: %d, want 120000", got)
	}
	if got := proj.FiveYear.Cents; got != 60*100_00 {
		t.Fatalf("five years: %d", got)
	}
	if got := proj.TenYear.Cents; got != 120*100_00 {
		t.Fatalf("ten years: %d", got)
	}
}
