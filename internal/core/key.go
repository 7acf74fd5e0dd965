package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthKey identifies a monthly budget. Month is zero-based (0 =
// January, 11 = December), kept for compatibility with persisted
// snapshots that predate this value type. MonthKey is comparable and
// has a defined ordering, which removes the parsing fragility of the
// old "month-year" string keys.
type MonthKey struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (k MonthKey) Validate() error {
	if k.Month < 0 || k.Month > 11 {
		return ErrInvalidMonthKey
	}
	if k.Year < 1970 || k.Year > 9999 {
		return ErrInvalidMonthKey
	}
	return nil
}

// String renders the snapshot wire form, e.g. "3-2025" for April 2025.
func (k MonthKey) String() string {
	return fmt.Sprintf("%d-%d", k.Month, k.Year)
}

// ParseMonthKey parses a "month-year" key. Malformed or out-of-range
// keys are rejected instead of silently failing date comparisons.
func ParseMonthKey(s string) (MonthKey, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	k := MonthKey{Month: month, Year: year}
	if err := k.Validate(); err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return k, nil
}

// Before reports whether k is strictly earlier than o.
func (k MonthKey) Before(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// After reports whether k is strictly later than o.
func (k MonthKey) After(o MonthKey) bool {
	return o.Before(k)
}

// AddMonths returns the key n calendar months later (or earlier for
// negative n), normalizing across year boundaries.
func (k MonthKey) AddMonths(n int) MonthKey {
	t := k.FirstOfMonth().AddDate(0, n, 0)
	return KeyForDate(t)
}

// FirstOfMonth returns midnight UTC on the first day of the month.
func (k MonthKey) FirstOfMonth() time.Time {
	return time.Date(k.Year, time.Month(k.Month+1), 1, 0, 0, 0, 0, time.UTC)
}

// KeyForDate returns the key of the month containing t.
func KeyForDate(t time.Time) MonthKey {
	return MonthKey{Month: int(t.Month()) - 1, Year: t.Year()}
}
