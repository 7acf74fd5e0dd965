package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonthKey(t *testing.T) {
	cases := []struct {
		in   string
		want MonthKey
		ok   bool
	}{
		{"3-2025", MonthKey{Month: 3, Year: 2025}, true},
		{"0-1999", MonthKey{Month: 0, Year: 1999}, true},
		{"11-2030", MonthKey{Month: 11, Year: 2030}, true},
		{"12-2025", MonthKey{}, false}, // month out of range
		{"-1-2025", MonthKey{}, false},
		{"3-2025-9", MonthKey{}, false},
		{"avril-2025", MonthKey{}, false},
		{"", MonthKey{}, false},
		{"3-", MonthKey{}, false},
	}
	for _, tc := range cases {
		got, err := ParseMonthKey(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("ParseMonthKey(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("ParseMonthKey(%q) expected error", tc.in)
		}
		if !errors.Is(err, ErrInvalidMonthKey) {
			t.Fatalf("ParseMonthKey(%q) error = %v, want ErrInvalidMonthKey", tc.in, err)
		}
	}
}

func TestMonthKeyOrdering(t *testing.T) {
	jan := MonthKey{Month: 0, Year: 2025}
	dec24 := MonthKey{Month: 11, Year: 2024}
	feb := MonthKey{Month: 1, Year: 2025}

	if !dec24.Before(jan) || !jan.Before(feb) {
		t.Fatalf("ordering broken: %v < %v < %v expected", dec24, jan, feb)
	}
	if jan.Before(jan) || jan.After(jan) {
		t.Fatalf("a key must not be before or after itself")
	}
	if !feb.After(dec24) {
		t.Fatalf("%v should be after %v", feb, dec24)
	}
}

func TestMonthKeyAddMonths(t *testing.T) {
	cases := []struct {
		start MonthKey
		n     int
		want  MonthKey
	}{
		{MonthKey{Month: 10, Year: 2025}, 1, MonthKey{Month: 11, Year: 2025}},
		{MonthKey{Month: 11, Year: 2025}, 1, MonthKey{Month: 0, Year: 2026}},
		{MonthKey{Month: 11, Year: 2025}, 14, MonthKey{Month: 1, Year: 2027}},
		{MonthKey{Month: 0, Year: 2025}, -1, MonthKey{Month: 11, Year: 2024}},
	}
	for _, tc := range cases {
		if got := tc.start.AddMonths(tc.n); got != tc.want {
			t.Fatalf("%v.AddMonths(%d) = %v, want %v", tc.start, tc.n, got, tc.want)
		}
	}
}

func TestMonthKeyStringRoundTrip(t *testing.T) {
	k := MonthKey{Month: 3, Year: 2025}
	if k.String() != "3-2025" {
		t.Fatalf("String() = %q", k.String())
	}
	back, err := ParseMonthKey(k.String())
	if err != nil || back != k {
		t.Fatalf("round trip = %v, %v", back, err)
	}
}

func TestKeyForDate(t *testing.T) {
	d := time.Date(2025, time.April, 17, 10, 0, 0, 0, time.UTC)
	if got := KeyForDate(d); got != (MonthKey{Month: 3, Year: 2025}) {
		t.Fatalf("KeyForDate = %v", got)
	}
	if got := (MonthKey{Month: 3, Year: 2025}).FirstOfMonth(); !got.Equal(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("FirstOfMonth = %v", got)
	}
}
