package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monbudget/internal/core"
	"monbudget/internal/ledger"
	"monbudget/internal/remote/memory"
	"monbudget/internal/savings"
)

type testAPI struct {
	srv    *httptest.Server
	ledger *ledger.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	backendStore := memory.NewStore()
	seq := 0
	store := ledger.NewStore(ledger.WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}))

	planner := savings.NewPlanner(backendStore, backendStore, func(key core.MonthKey) core.Money {
		return store.CurrentBudget(key).MonthlySavings
	}, false, nil)
	service := savings.NewService(backendStore, planner, nil)

	s := NewServer(":0", store, service, nil, nil)
	srv := httptest.NewServer(s.Server.Handler)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, ledger: store}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp := api.do(t, http.MethodGet, path, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestBudgetLifecycle(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPut, "/api/budgets/3-2025/initial-balance",
		map[string]any{"amount": 2000_00})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	budget := decode[core.MonthlyBudget](t, resp)
	assert.Equal(t, int64(2000_00), budget.InitialBalance.Cents)
	assert.Equal(t, int64(2000_00), budget.RemainingBalance.Cents)

	resp = api.do(t, http.MethodPost, "/api/budgets/3-2025/incomes",
		map[string]any{"name": "Salary", "amount": 2500_00})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	income := decode[core.FixedIncome](t, resp)
	assert.NotEmpty(t, income.ID)

	resp = api.do(t, http.MethodGet, "/api/budgets/3-2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	budget = decode[core.MonthlyBudget](t, resp)
	assert.Equal(t, int64(4500_00), budget.RemainingBalance.Cents)
	require.Len(t, budget.FixedIncomes, 1)

	// Marking the income received removes its pending contribution.
	resp = api.do(t, http.MethodPut, "/api/budgets/3-2025/incomes/"+income.ID,
		map[string]any{"name": "Salary", "amount": 2500_00, "isReceived": true, "currentMonthOnly": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = api.do(t, http.MethodGet, "/api/budgets/3-2025", nil)
	budget = decode[core.MonthlyBudget](t, resp)
	assert.Equal(t, int64(2000_00), budget.RemainingBalance.Cents)
}

func TestInvalidMonthKey(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(t, http.MethodGet, "/api/budgets/13-20xy", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownFieldRejected(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(t, http.MethodPut, "/api/budgets/3-2025/initial-balance",
		map[string]any{"ammount": 100})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransactionEndpoints(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/budgets/3-2025/transactions", map[string]any{
		"description": "Groceries",
		"amount":      80_00,
		"type":        "expense",
		"category":    "Food",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[core.Transaction](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, time.April, created.Date.Month())
	assert.Equal(t, 2025, created.Date.Year())

	resp = api.do(t, http.MethodGet, "/api/budgets/3-2025", nil)
	budget := decode[core.MonthlyBudget](t, resp)
	assert.Equal(t, int64(-80_00), budget.RemainingBalance.Cents)

	resp = api.do(t, http.MethodDelete, "/api/budgets/3-2025/transactions/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/budgets/3-2025", nil)
	budget = decode[core.MonthlyBudget](t, resp)
	assert.Equal(t, int64(0), budget.RemainingBalance.Cents)
	assert.Empty(t, budget.Transactions)
}

func TestTransactionValidation(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(t, http.MethodPost, "/api/budgets/3-2025/transactions", map[string]any{
		"description": "",
		"amount":      80_00,
		"type":        "expense",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSavingsAccountFlow(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/savings/accounts", map[string]any{
		"name":              "Livret A",
		"accountType":       "livret",
		"interestRate":      3.0,
		"interestFrequency": "annually",
		"interestType":      "fixed",
		"isLiquid":          true,
		"maxDepositLimit":   1000_00,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	account := decode[core.SavingsAccount](t, resp)
	require.NotEmpty(t, account.ID)

	resp = api.do(t, http.MethodPost, "/api/savings/accounts/"+account.ID+"/entries", map[string]any{
		"amount":      600_00,
		"type":        "deposit",
		"description": "Initial deposit",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entries := decode[[]core.SavingsEntry](t, resp)
	require.Len(t, entries, 1)

	// A second deposit beyond the limit is rejected.
	resp = api.do(t, http.MethodPost, "/api/savings/accounts/"+account.ID+"/entries", map[string]any{
		"amount": 500_00,
		"type":   "deposit",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/savings/accounts/"+account.ID, nil)
	got := decode[core.SavingsAccount](t, resp)
	assert.Equal(t, int64(600_00), got.CurrentBalance.Cents)
}

func TestTransferLatch(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/savings/accounts", map[string]any{
		"name":              "Buffer",
		"accountType":       "savings",
		"interestRate":      1.0,
		"interestFrequency": "monthly",
		"interestType":      "variable",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	account := decode[core.SavingsAccount](t, resp)

	body := map[string]any{"accountId": account.ID, "amount": 300_00}
	resp = api.do(t, http.MethodPost, "/api/budgets/4-2025/savings/transfer", body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/budgets/4-2025/savings/transfer", body)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPlanRoundTrip(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/savings/accounts", map[string]any{
		"name":              "Main",
		"accountType":       "savings",
		"interestRate":      2.0,
		"interestFrequency": "annually",
		"interestType":      "fixed",
	})
	account := decode[core.SavingsAccount](t, resp)

	resp = api.do(t, http.MethodPut, "/api/plans/5-2025", map[string]any{
		"distribution": []map[string]any{{"accountId": account.ID, "percentage": 100}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = api.do(t, http.MethodGet, "/api/plans/5-2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	plan := decode[core.DistributionPlan](t, resp)
	require.Len(t, plan.Distribution, 1)
	assert.Equal(t, 100, plan.Distribution[0].Percentage)

	// An invalid split is rejected before persisting.
	resp = api.do(t, http.MethodPut, "/api/plans/5-2025", map[string]any{
		"distribution": []map[string]any{{"accountId": account.ID, "percentage": 60}},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestProjectionsEndpoint(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/savings/accounts", map[string]any{
		"name":              "Growth",
		"accountType":       "savings",
		"interestRate":      2.0,
		"interestFrequency": "monthly",
		"interestType":      "fixed",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = api.do(t, http.MethodGet, "/api/savings/projections?from=1-2025", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	projections := decode[[]core.Projection](t, resp)
	require.Len(t, projections, 1)
	assert.NotEmpty(t, projections[0].AccountID)
	assert.Len(t, projections[0].Points, 121)
}

func TestSyncWithoutSyncer(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(t, http.MethodPost, "/api/sync", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAccountAndCategoryNames(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/accounts", map[string]any{"name": "Checking"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	names := decode[[]string](t, resp)
	assert.Contains(t, names, "Checking")

	resp = api.do(t, http.MethodPost, "/api/categories", map[string]any{"name": "Food"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = api.do(t, http.MethodGet, "/api/categories", nil)
	categories := decode[[]string](t, resp)
	assert.Contains(t, categories, "Food")
}
