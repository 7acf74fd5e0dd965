package memory

import (
	"context"
	"errors"
	"testing"

	"monbudget/internal/core"
)

func TestWriteAndReadOverview(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	key := core.MonthKey{Month: 2, Year: 2025}

	ov := core.MonthOverview{
		Key:              key,
		RemainingBalance: core.Money{Cents: 123_45},
		MonthlySavings:   core.Money{Cents: 500_00},
	}
	if err := s.WriteMonthOverview(ctx, ov); err != nil {
		t.Fatalf("WriteMonthOverview() error = %v", err)
	}

	got, err := s.ReadMonthOverview(ctx, key)
	if err != nil {
		t.Fatalf("ReadMonthOverview() error = %v", err)
	}
	if got.RemainingBalance.Cents != 123_45 {
		t.Errorf("RemainingBalance = %d, want 12345", got.RemainingBalance.Cents)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestReadMissingMonth(t *testing.T) {
	s := NewStore()
	_, err := s.ReadMonthOverview(context.Background(), core.MonthKey{Month: 0, Year: 2030})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("ReadMonthOverview() error = %v, want core.ErrNotFound", err)
	}
}

func TestWriteOverwritesSameMonth(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	key := core.MonthKey{Month: 6, Year: 2025}

	s.WriteMonthOverview(ctx, core.MonthOverview{Key: key, RemainingBalance: core.Money{Cents: 100}})
	s.WriteMonthOverview(ctx, core.MonthOverview{Key: key, RemainingBalance: core.Money{Cents: 200}})

	got, err := s.ReadMonthOverview(ctx, key)
	if err != nil {
		t.Fatalf("ReadMonthOverview() error = %v", err)
	}
	if got.RemainingBalance.Cents != 200 {
		t.Errorf("RemainingBalance = %d, want 200", got.RemainingBalance.Cents)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}
