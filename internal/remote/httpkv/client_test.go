package httpkv

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monbudget/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		BaseURL:    srv.URL,
		LedgerKey:  "household",
		AuthToken:  "secret-token",
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	// Retries would slow down the error-path tests.
	c.retryClient.RetryMax = 0
	return c
}

func TestNewClientValidatesOptions(t *testing.T) {
	_, err := NewClient(Options{LedgerKey: "k"})
	assert.Error(t, err)

	_, err = NewClient(Options{BaseURL: "http://localhost"})
	assert.Error(t, err)
}

func TestLoadSnapshot(t *testing.T) {
	snap := &core.Snapshot{
		Budgets: map[string]core.MonthlyBudget{
			"3-2025": {Month: 3, Year: 2025},
		},
		Categories: []string{"Groceries"},
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/snapshots/household", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(snap)
	})

	got, err := c.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.Categories, got.Categories)
	assert.Contains(t, got.Budgets, "3-2025")
}

func TestLoadSnapshotNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLoadSnapshotServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "backing store offline"})
	})

	_, err := c.LoadSnapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backing store offline")
}

func TestSaveSnapshot(t *testing.T) {
	var received core.Snapshot
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/snapshots/household", r.URL.Path)
		assert.Equal(t, contentType, r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	})

	snap := &core.Snapshot{
		Budgets:  map[string]core.MonthlyBudget{"3-2025": {Month: 3, Year: 2025}},
		Accounts: []string{"Checking"},
	}
	require.NoError(t, c.SaveSnapshot(context.Background(), snap))
	assert.Equal(t, snap.Accounts, received.Accounts)
}

func TestSaveSnapshotRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	err := c.SaveSnapshot(context.Background(), &core.Snapshot{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
