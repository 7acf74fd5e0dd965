// Package backend selects and assembles the persistence layer. The
// ports below are what the rest of the application programs against;
// the factory binds them to sqlite, postgres or the in-memory store.
package backend

import (
	"context"

	"monbudget/internal/core"
)

// SnapshotStore persists the whole budget ledger as one document.
type SnapshotStore interface {
	// LoadSnapshot returns core.ErrNotFound when nothing was saved yet.
	LoadSnapshot(ctx context.Context) (*core.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap *core.Snapshot) error
}

// AccountStore persists savings accounts and their movement book.
type AccountStore interface {
	ListAccounts(ctx context.Context) ([]core.SavingsAccount, error)
	// GetAccount returns core.ErrNotFound for unknown ids.
	GetAccount(ctx context.Context, id string) (core.SavingsAccount, error)
	// SaveAccount inserts or replaces by id.
	SaveAccount(ctx context.Context, account core.SavingsAccount) error
	DeleteAccount(ctx context.Context, id string) error

	AppendEntry(ctx context.Context, entry core.SavingsEntry) error
	// ListEntries returns the account's movements, oldest first.
	ListEntries(ctx context.Context, accountID string) ([]core.SavingsEntry, error)
}

// PlanStore persists monthly distribution plans.
type PlanStore interface {
	// GetPlan returns core.ErrNotFound when the month has no plan.
	GetPlan(ctx context.Context, key core.MonthKey) (core.DistributionPlan, error)
	// SavePlan inserts or replaces the plan for its month.
	SavePlan(ctx context.Context, plan core.DistributionPlan) error
}

// Store is the unified persistence surface a backend provides.
type Store interface {
	SnapshotStore
	AccountStore
	PlanStore
}

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// Result carries a ready store and its cleanup.
type Result struct {
	Store   Store
	Cleanup CleanupFunc
}

// Factory creates stores from configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*Result, error)
}

// Config holds everything any backend kind might need.
type Config struct {
	Type Type

	// SQLite specific
	SQLitePath string

	// Postgres specific
	PostgresDSN string
}

// Type selects the persistence implementation.
type Type string

const (
	SQLiteStore   Type = "sqlite"
	PostgresStore Type = "postgres"
	MemoryStore   Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid reports whether the type names a known backend.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteStore, PostgresStore, MemoryStore:
		return true
	default:
		return false
	}
}

// Types lists every valid backend type.
func Types() []Type {
	return []Type{SQLiteStore, PostgresStore, MemoryStore}
}
