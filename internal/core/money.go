// Package core holds the pure budgeting domain: money, month keys,
// monthly budgets with their balance invariant, savings projections and
// distribution plans. Nothing in this package performs I/O.
package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in euro cents. All balance arithmetic happens on
// cents; floats only appear at interest-computation and display edges.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Euros returns the euro value as a float64 for display purposes.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

func (m Money) Add(o Money) Money      { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money      { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money             { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool           { return m.Cents == 0 }
func (m Money) GreaterThan(o Money) bool { return m.Cents > o.Cents }

// MarshalJSON encodes Money as a bare integer number of cents so
// snapshots stay stable across backends.
func (m Money) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, m.Cents, 10), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var cents int64
	if err := json.Unmarshal(data, &cents); err != nil {
		return fmt.Errorf("money: %w", err)
	}
	m.Cents = cents
	return nil
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Both dot (12.34) and comma
// (12,34) separators are accepted. Only positive amounts are valid;
// the sign of a line always comes from its type, never from input.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}
