package core

import "math"

// Projection horizons surfaced to callers, in months.
const (
	HorizonOneYear  = 12
	HorizonFiveYear = 60
	HorizonTenYear  = 120
)

// ProjectionPoint is one simulated month of an account's balance.
type ProjectionPoint struct {
	Key     MonthKey `json:"key"`
	Balance Money    `json:"balance"`
}

// Projection is the result of a forward balance simulation.
type Projection struct {
	AccountID   string            `json:"accountId"`
	AccountName string            `json:"accountName"`
	Points      []ProjectionPoint `json:"points"`
	OneYear     Money             `json:"oneYear"`
	FiveYear    Money             `json:"fiveYear"`
	TenYear     Money             `json:"tenYear"`
}

// ProjectAccount simulates an account balance forward month by month.
// planned returns the savings amount the distribution plan routes to
// this account in a given month (zero when the plan says nothing).
//
// This is a simulation rather than a closed-form computation because
// planned distributions vary month to month. Interest compounds on the
// running balance: monthly accounts accrue rate/12 every month, annual
// accounts accrue the full rate in December only. Month zero is the
// starting month and receives no distribution.
func ProjectAccount(account SavingsAccount, start MonthKey, horizon int, planned func(MonthKey) Money) Projection {
	if horizon < 0 {
		horizon = 0
	}
	balance := account.CurrentBalance.Cents
	proj := Projection{
		AccountID:   account.ID,
		AccountName: account.Name,
		Points:      make([]ProjectionPoint, 0, horizon+1),
	}

	for i := 0; i <= horizon; i++ {
		key := start.AddMonths(i)
		if i > 0 {
			var distribution int64
			if planned != nil {
				distribution = planned(key).Cents
			}
			balance += distribution + interestCents(account, balance, key)
		}
		proj.Points = append(proj.Points, ProjectionPoint{Key: key, Balance: Money{Cents: balance}})
		switch i {
		case HorizonOneYear:
			proj.OneYear = Money{Cents: balance}
		case HorizonFiveYear:
			proj.FiveYear = Money{Cents: balance}
		case HorizonTenYear:
			proj.TenYear = Money{Cents: balance}
		}
	}
	return proj
}

// interestCents is the interest accrued on balance for one simulated
// month, rounded half away from zero to whole cents.
func interestCents(account SavingsAccount, balance int64, key MonthKey) int64 {
	switch account.InterestFrequency {
	case Monthly:
		return int64(math.Round(float64(balance) * account.InterestRate / 100 / 12))
	case Annually:
		if key.Month == 11 { // December
			return int64(math.Round(float64(balance) * account.InterestRate / 100))
		}
	}
	return 0
}
