// Package storage is the SQLite persistence backend. Budgets are stored
// one row per month with the item lists as JSON columns; savings
// accounts, their entries and distribution plans are relational.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"monbudget/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadSnapshot reads every budget row plus the account and category
// lists. An empty database yields core.ErrNotFound.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context) (*core.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT month, year, initial_balance_cents, remaining_balance_cents,
		       monthly_savings_cents, is_savings_set_aside, is_savings_transferred,
		       fixed_incomes, fixed_expenses, transactions
		FROM budgets`)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	snap := &core.Snapshot{Budgets: make(map[string]core.MonthlyBudget)}
	for rows.Next() {
		var (
			b                         core.MonthlyBudget
			setAside, transferred     int
			incomesJSON, expensesJSON []byte
			transactionsJSON          []byte
		)
		if err := rows.Scan(&b.Month, &b.Year,
			&b.InitialBalance.Cents, &b.RemainingBalance.Cents, &b.MonthlySavings.Cents,
			&setAside, &transferred,
			&incomesJSON, &expensesJSON, &transactionsJSON); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.IsSavingsSetAside = setAside != 0
		b.IsSavingsTransferred = transferred != 0
		if err := json.Unmarshal(incomesJSON, &b.FixedIncomes); err != nil {
			return nil, fmt.Errorf("decode fixed incomes for %d-%d: %w", b.Month, b.Year, err)
		}
		if err := json.Unmarshal(expensesJSON, &b.FixedExpenses); err != nil {
			return nil, fmt.Errorf("decode fixed expenses for %d-%d: %w", b.Month, b.Year, err)
		}
		if err := json.Unmarshal(transactionsJSON, &b.Transactions); err != nil {
			return nil, fmt.Errorf("decode transactions for %d-%d: %w", b.Month, b.Year, err)
		}
		snap.Budgets[b.Key().String()] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}

	var accountsJSON, categoriesJSON []byte
	err = r.db.QueryRowContext(ctx,
		`SELECT accounts, categories FROM ledger_meta WHERE id = 1`).
		Scan(&accountsJSON, &categoriesJSON)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if len(snap.Budgets) == 0 {
			return nil, core.ErrNotFound
		}
	case err != nil:
		return nil, fmt.Errorf("query ledger meta: %w", err)
	default:
		if err := json.Unmarshal(accountsJSON, &snap.Accounts); err != nil {
			return nil, fmt.Errorf("decode accounts: %w", err)
		}
		if err := json.Unmarshal(categoriesJSON, &snap.Categories); err != nil {
			return nil, fmt.Errorf("decode categories: %w", err)
		}
	}

	return snap, nil
}

// SaveSnapshot replaces the stored ledger atomically.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, snap *core.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM budgets`); err != nil {
		return fmt.Errorf("clear budgets: %w", err)
	}

	for _, b := range snap.Budgets {
		incomesJSON, err := json.Marshal(b.FixedIncomes)
		if err != nil {
			return fmt.Errorf("encode fixed incomes: %w", err)
		}
		expensesJSON, err := json.Marshal(b.FixedExpenses)
		if err != nil {
			return fmt.Errorf("encode fixed expenses: %w", err)
		}
		transactionsJSON, err := json.Marshal(b.Transactions)
		if err != nil {
			return fmt.Errorf("encode transactions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO budgets (month, year, initial_balance_cents, remaining_balance_cents,
			                     monthly_savings_cents, is_savings_set_aside, is_savings_transferred,
			                     fixed_incomes, fixed_expenses, transactions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.Month, b.Year, b.InitialBalance.Cents, b.RemainingBalance.Cents,
			b.MonthlySavings.Cents, boolToInt(b.IsSavingsSetAside), boolToInt(b.IsSavingsTransferred),
			string(incomesJSON), string(expensesJSON), string(transactionsJSON)); err != nil {
			return fmt.Errorf("insert budget %d-%d: %w", b.Month, b.Year, err)
		}
	}

	accountsJSON, err := json.Marshal(orEmpty(snap.Accounts))
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	categoriesJSON, err := json.Marshal(orEmpty(snap.Categories))
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_meta (id, accounts, categories) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET accounts = excluded.accounts, categories = excluded.categories`,
		string(accountsJSON), string(categoriesJSON)); err != nil {
		return fmt.Errorf("upsert ledger meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Snapshot saved to SQLite", "budgets", len(snap.Budgets))
	return nil
}

// ListAccounts implements backend.AccountStore.
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.SavingsAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, account_type, interest_rate, interest_frequency, interest_type,
		       is_liquid, is_default, max_deposit_limit_cents, current_balance_cents
		FROM savings_accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query savings accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.SavingsAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// GetAccount implements backend.AccountStore.
func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (core.SavingsAccount, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, account_type, interest_rate, interest_frequency, interest_type,
		       is_liquid, is_default, max_deposit_limit_cents, current_balance_cents
		FROM savings_accounts WHERE id = ?`, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsAccount{}, core.ErrNotFound
	}
	return account, err
}

// SaveAccount implements backend.AccountStore.
func (r *SQLiteRepository) SaveAccount(ctx context.Context, account core.SavingsAccount) error {
	var limit *int64
	if account.MaxDepositLimit != nil {
		limit = &account.MaxDepositLimit.Cents
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO savings_accounts (id, name, account_type, interest_rate, interest_frequency,
		                              interest_type, is_liquid, is_default, max_deposit_limit_cents,
		                              current_balance_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			account_type = excluded.account_type,
			interest_rate = excluded.interest_rate,
			interest_frequency = excluded.interest_frequency,
			interest_type = excluded.interest_type,
			is_liquid = excluded.is_liquid,
			is_default = excluded.is_default,
			max_deposit_limit_cents = excluded.max_deposit_limit_cents,
			current_balance_cents = excluded.current_balance_cents`,
		account.ID, account.Name, account.AccountType, account.InterestRate,
		string(account.InterestFrequency), string(account.InterestType),
		boolToInt(account.IsLiquid), boolToInt(account.IsDefault),
		limit, account.CurrentBalance.Cents)
	if err != nil {
		return fmt.Errorf("save savings account %s: %w", account.ID, err)
	}
	return nil
}

// DeleteAccount implements backend.AccountStore. Entries go with the
// account via the foreign key cascade.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM savings_accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete savings account %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// AppendEntry implements backend.AccountStore.
func (r *SQLiteRepository) AppendEntry(ctx context.Context, entry core.SavingsEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO savings_entries (id, account_id, amount_cents, description, entry_date, entry_type)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.AccountID, entry.Amount.Cents, entry.Description,
		entry.Date.UTC().Format(time.RFC3339), string(entry.Type))
	if err != nil {
		return fmt.Errorf("append savings entry: %w", err)
	}
	return nil
}

// ListEntries implements backend.AccountStore.
func (r *SQLiteRepository) ListEntries(ctx context.Context, accountID string) ([]core.SavingsEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, amount_cents, description, entry_date, entry_type
		FROM savings_entries WHERE account_id = ? ORDER BY entry_date`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query savings entries: %w", err)
	}
	defer rows.Close()

	var entries []core.SavingsEntry
	for rows.Next() {
		var (
			e       core.SavingsEntry
			rawDate string
			rawType string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount.Cents, &e.Description, &rawDate, &rawType); err != nil {
			return nil, fmt.Errorf("scan savings entry: %w", err)
		}
		if e.Date, err = time.Parse(time.RFC3339, rawDate); err != nil {
			return nil, fmt.Errorf("parse entry date %q: %w", rawDate, err)
		}
		e.Type = core.SavingsEntryType(rawType)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetPlan implements backend.PlanStore.
func (r *SQLiteRepository) GetPlan(ctx context.Context, key core.MonthKey) (core.DistributionPlan, error) {
	var distJSON []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT distribution FROM distribution_plans WHERE month = ? AND year = ?`,
		key.Month, key.Year).Scan(&distJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DistributionPlan{}, core.ErrNotFound
	}
	if err != nil {
		return core.DistributionPlan{}, fmt.Errorf("query plan %s: %w", key, err)
	}

	plan := core.DistributionPlan{Month: key.Month, Year: key.Year}
	if err := json.Unmarshal(distJSON, &plan.Distribution); err != nil {
		return core.DistributionPlan{}, fmt.Errorf("decode plan %s: %w", key, err)
	}
	return plan, nil
}

// SavePlan implements backend.PlanStore.
func (r *SQLiteRepository) SavePlan(ctx context.Context, plan core.DistributionPlan) error {
	distJSON, err := json.Marshal(orEmpty(plan.Distribution))
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO distribution_plans (month, year, distribution) VALUES (?, ?, ?)
		ON CONFLICT(month, year) DO UPDATE SET distribution = excluded.distribution`,
		plan.Month, plan.Year, string(distJSON))
	if err != nil {
		return fmt.Errorf("save plan %s: %w", plan.Key(), err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.SavingsAccount, error) {
	var (
		a                   core.SavingsAccount
		frequency, itype    string
		isLiquid, isDefault int
		limit               sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.Name, &a.AccountType, &a.InterestRate, &frequency, &itype,
		&isLiquid, &isDefault, &limit, &a.CurrentBalance.Cents)
	if err != nil {
		return core.SavingsAccount{}, err
	}
	a.InterestFrequency = core.InterestFrequency(frequency)
	a.InterestType = core.InterestType(itype)
	a.IsLiquid = isLiquid != 0
	a.IsDefault = isDefault != 0
	if limit.Valid {
		a.MaxDepositLimit = &core.Money{Cents: limit.Int64}
	}
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
