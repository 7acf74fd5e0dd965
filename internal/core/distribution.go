package core

import "math"

// TotalPercentage sums a distribution's percentages.
func TotalPercentage(dist []Allocation) int {
	total := 0
	for _, a := range dist {
		total += a.Percentage
	}
	return total
}

// NormalizeDistribution drops allocations whose account no longer
// exists and, when that leaves the total strictly between 0 and 100,
// rescales the survivors proportionally back to exactly 100. Integer
// rounding remainders go to the largest allocation so the corrected
// plan converges exactly. The second return value reports whether the
// plan changed and should be persisted (plans self-heal on load).
func NormalizeDistribution(dist []Allocation, existing map[string]bool) ([]Allocation, bool) {
	kept := make([]Allocation, 0, len(dist))
	for _, a := range dist {
		if existing[a.AccountID] {
			kept = append(kept, a)
		}
	}
	dropped := len(kept) != len(dist)
	if !dropped {
		return kept, false
	}

	sum := TotalPercentage(kept)
	if sum <= 0 || sum >= 100 || len(kept) == 0 {
		return kept, true
	}

	scale := 100.0 / float64(sum)
	for i := range kept {
		kept[i].Percentage = int(math.Round(float64(kept[i].Percentage) * scale))
	}
	if diff := 100 - TotalPercentage(kept); diff != 0 {
		largest := 0
		for i := range kept {
			if kept[i].Percentage >= kept[largest].Percentage {
				largest = i
			}
		}
		kept[largest].Percentage += diff
	}
	return kept, true
}

// AllocationAmount is the share of a month's savings an allocation
// receives.
func AllocationAmount(monthlySavings Money, percentage int) Money {
	return Money{Cents: monthlySavings.Cents * int64(percentage) / 100}
}
