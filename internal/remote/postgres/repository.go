// Package postgres is the Postgres persistence backend, used when the
// ledger is shared between devices through a central database.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"monbudget/internal/core"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	repo := &Repository{pool: pool}
	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS budgets (
			month INT NOT NULL,
			year INT NOT NULL,
			initial_balance_cents BIGINT NOT NULL DEFAULT 0,
			remaining_balance_cents BIGINT NOT NULL DEFAULT 0,
			monthly_savings_cents BIGINT NOT NULL DEFAULT 0,
			is_savings_set_aside BOOLEAN NOT NULL DEFAULT FALSE,
			is_savings_transferred BOOLEAN NOT NULL DEFAULT FALSE,
			fixed_incomes JSONB NOT NULL DEFAULT '[]',
			fixed_expenses JSONB NOT NULL DEFAULT '[]',
			transactions JSONB NOT NULL DEFAULT '[]',
			PRIMARY KEY (month, year)
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_meta (
			id INT PRIMARY KEY CHECK (id = 1),
			accounts JSONB NOT NULL DEFAULT '[]',
			categories JSONB NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS savings_accounts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			account_type TEXT NOT NULL DEFAULT '',
			interest_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			interest_frequency TEXT NOT NULL,
			interest_type TEXT NOT NULL,
			is_liquid BOOLEAN NOT NULL DEFAULT FALSE,
			is_default BOOLEAN NOT NULL DEFAULT FALSE,
			max_deposit_limit_cents BIGINT,
			current_balance_cents BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS savings_entries (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES savings_accounts(id) ON DELETE CASCADE,
			amount_cents BIGINT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			entry_date TIMESTAMPTZ NOT NULL,
			entry_type TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_savings_entries_account
			ON savings_entries (account_id, entry_date)`,
		`CREATE TABLE IF NOT EXISTS distribution_plans (
			month INT NOT NULL,
			year INT NOT NULL,
			distribution JSONB NOT NULL DEFAULT '[]',
			PRIMARY KEY (month, year)
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// LoadSnapshot implements backend.SnapshotStore.
func (r *Repository) LoadSnapshot(ctx context.Context) (*core.Snapshot, error) {
	rows, err := r.pool.Query(ctx, `
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
			incomesJSON, expensesJSON []byte
			transactionsJSON          []byte
		)
		if err := rows.Scan(&b.Month, &b.Year,
			&b.InitialBalance.Cents, &b.RemainingBalance.Cents, &b.MonthlySavings.Cents,
			&b.IsSavingsSetAside, &b.IsSavingsTransferred,
			&incomesJSON, &expensesJSON, &transactionsJSON); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
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
	err = r.pool.QueryRow(ctx, `SELECT accounts, categories FROM ledger_meta WHERE id = 1`).
		Scan(&accountsJSON, &categoriesJSON)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
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

// SaveSnapshot implements backend.SnapshotStore.
func (r *Repository) SaveSnapshot(ctx context.Context, snap *core.Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM budgets`); err != nil {
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
		if _, err := tx.Exec(ctx, `
			INSERT INTO budgets (month, year, initial_balance_cents, remaining_balance_cents,
			                     monthly_savings_cents, is_savings_set_aside, is_savings_transferred,
			                     fixed_incomes, fixed_expenses, transactions)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			b.Month, b.Year, b.InitialBalance.Cents, b.RemainingBalance.Cents,
			b.MonthlySavings.Cents, b.IsSavingsSetAside, b.IsSavingsTransferred,
			incomesJSON, expensesJSON, transactionsJSON); err != nil {
			return fmt.Errorf("insert budget %d-%d: %w", b.Month, b.Year, err)
		}
	}

	accountsJSON, err := json.Marshal(snap.Accounts)
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	categoriesJSON, err := json.Marshal(snap.Categories)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO ledger_meta (id, accounts, categories) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET accounts = EXCLUDED.accounts, categories = EXCLUDED.categories`,
		accountsJSON, categoriesJSON); err != nil {
		return fmt.Errorf("upsert ledger meta: %w", err)
	}

	return tx.Commit(ctx)
}

// ListAccounts implements backend.AccountStore.
func (r *Repository) ListAccounts(ctx context.Context) ([]core.SavingsAccount, error) {
	rows, err := r.pool.Query(ctx, `
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
func (r *Repository) GetAccount(ctx context.Context, id string) (core.SavingsAccount, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, account_type, interest_rate, interest_frequency, interest_type,
		       is_liquid, is_default, max_deposit_limit_cents, current_balance_cents
		FROM savings_accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.SavingsAccount{}, core.ErrNotFound
	}
	return account, err
}

// SaveAccount implements backend.AccountStore.
func (r *Repository) SaveAccount(ctx context.Context, account core.SavingsAccount) error {
	var limit *int64
	if account.MaxDepositLimit != nil {
		limit = &account.MaxDepositLimit.Cents
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO savings_accounts (id, name, account_type, interest_rate, interest_frequency,
		                              interest_type, is_liquid, is_default, max_deposit_limit_cents,
		                              current_balance_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			account_type = EXCLUDED.account_type,
			interest_rate = EXCLUDED.interest_rate,
			interest_frequency = EXCLUDED.interest_frequency,
			interest_type = EXCLUDED.interest_type,
			is_liquid = EXCLUDED.is_liquid,
			is_default = EXCLUDED.is_default,
			max_deposit_limit_cents = EXCLUDED.max_deposit_limit_cents,
			current_balance_cents = EXCLUDED.current_balance_cents`,
		account.ID, account.Name, account.AccountType, account.InterestRate,
		string(account.InterestFrequency), string(account.InterestType),
		account.IsLiquid, account.IsDefault, limit, account.CurrentBalance.Cents)
	if err != nil {
		return fmt.Errorf("save savings account %s: %w", account.ID, err)
	}
	return nil
}

// DeleteAccount implements backend.AccountStore.
func (r *Repository) DeleteAccount(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM savings_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete savings account %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// AppendEntry implements backend.AccountStore.
func (r *Repository) AppendEntry(ctx context.Context, entry core.SavingsEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO savings_entries (id, account_id, amount_cents, description, entry_date, entry_type)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.AccountID, entry.Amount.Cents, entry.Description,
		entry.Date.UTC(), string(entry.Type))
	if err != nil {
		return fmt.Errorf("append savings entry: %w", err)
	}
	return nil
}

// ListEntries implements backend.AccountStore.
func (r *Repository) ListEntries(ctx context.Context, accountID string) ([]core.SavingsEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, amount_cents, description, entry_date, entry_type
		FROM savings_entries WHERE account_id = $1 ORDER BY entry_date`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query savings entries: %w", err)
	}
	defer rows.Close()

	var entries []core.SavingsEntry
	for rows.Next() {
		var (
			e       core.SavingsEntry
			rawType string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount.Cents, &e.Description, &e.Date, &rawType); err != nil {
			return nil, fmt.Errorf("scan savings entry: %w", err)
		}
		e.Type = core.SavingsEntryType(rawType)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetPlan implements backend.PlanStore.
func (r *Repository) GetPlan(ctx context.Context, key core.MonthKey) (core.DistributionPlan, error) {
	var distJSON []byte
	err := r.pool.QueryRow(ctx,
		`SELECT distribution FROM distribution_plans WHERE month = $1 AND year = $2`,
		key.Month, key.Year).Scan(&distJSON)
	if errors.Is(err, pgx.ErrNoRows) {
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
func (r *Repository) SavePlan(ctx context.Context, plan core.DistributionPlan) error {
	distJSON, err := json.Marshal(plan.Distribution)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO distribution_plans (month, year, distribution) VALUES ($1, $2, $3)
		ON CONFLICT (month, year) DO UPDATE SET distribution = EXCLUDED.distribution`,
		plan.Month, plan.Year, distJSON)
	if err != nil {
		return fmt.Errorf("save plan %s: %w", plan.Key(), err)
	}
	return nil
}

func scanAccount(row pgx.Row) (core.SavingsAccount, error) {
	var (
		a                core.SavingsAccount
		frequency, itype string
		limit            *int64
	)
	err := row.Scan(&a.ID, &a.Name, &a.AccountType, &a.InterestRate, &frequency, &itype,
		&a.IsLiquid, &a.IsDefault, &limit, &a.CurrentBalance.Cents)
	if err != nil {
		return core.SavingsAccount{}, err
	}
	a.InterestFrequency = core.InterestFrequency(frequency)
	a.InterestType = core.InterestType(itype)
	if limit != nil {
		a.MaxDepositLimit = &core.Money{Cents: *limit}
	}
	return a, nil
}
