// Package memory keeps exported month overviews in process memory. It
// backs tests and local runs where no spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"monbudget/internal/core"
	ports "monbudget/internal/sheets"
)

type Store struct {
	mu        sync.RWMutex
	overviews map[core.MonthKey]core.MonthOverview
}

var (
	_ ports.OverviewWriter = (*Store)(nil)
	_ ports.OverviewReader = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{overviews: make(map[core.MonthKey]core.MonthOverview)}
}

func (s *Store) WriteMonthOverview(_ context.Context, ov core.MonthOverview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overviews[ov.Key] = ov
	return nil
}

func (s *Store) ReadMonthOverview(_ context.Context, key core.MonthKey) (core.MonthOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ov, ok := s.overviews[key]
	if !ok {
		return core.MonthOverview{}, core.ErrNotFound
	}
	return ov, nil
}

// Len reports how many months have been exported.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overviews)
}
