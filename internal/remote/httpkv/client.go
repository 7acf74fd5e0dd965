// Package httpkv stores ledger snapshots in a remote HTTP key-value
// service. It is the off-device mirror used by the sync worker: each
// ledger lives under a single key, written whole and read whole.
package httpkv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"monbudget/internal/core"
)

const (
	snapshotEndpoint = "/v1/snapshots/"
	contentType      = "application/json"

	defaultTimeout   = 15 * time.Second
	defaultRetries   = 3
	defaultRetryWait = 500 * time.Millisecond
	defaultRetryMax  = 5 * time.Second
)

// Options configures the client.
type Options struct {
	BaseURL    string
	LedgerKey  string
	AuthToken  string
	HTTPClient *http.Client
}

// Client implements backend.SnapshotStore over HTTP.
type Client struct {
	baseURL     string
	ledgerKey   string
	authToken   string
	retryClient *retryablehttp.Client
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if opts.LedgerKey == "" {
		return nil, errors.New("ledger key is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = defaultRetries
	retryClient.RetryWaitMin = defaultRetryWait
	retryClient.RetryWaitMax = defaultRetryMax
	retryClient.Logger = nil

	return &Client{
		baseURL:     opts.BaseURL,
		ledgerKey:   opts.LedgerKey,
		authToken:   opts.AuthToken,
		retryClient: retryClient,
	}, nil
}

// LoadSnapshot implements backend.SnapshotStore.
func (c *Client) LoadSnapshot(ctx context.Context) (*core.Snapshot, error) {
	resp, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, core.ErrNotFound
	default:
		return nil, c.statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read snapshot response")
	}
	var snap core.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, errors.Wrap(err, "failed to decode snapshot")
	}
	if snap.Budgets == nil {
		snap.Budgets = make(map[string]core.MonthlyBudget)
	}
	return &snap, nil
}

// SaveSnapshot implements backend.SnapshotStore.
func (c *Client) SaveSnapshot(ctx context.Context, snap *core.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}

	resp, err := c.do(ctx, http.MethodPut, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return c.statusError(resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+snapshotEndpoint+c.ledgerKey, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", contentType)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	retryReq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build retryable request")
	}
	resp, err := c.retryClient.Do(retryReq)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot request failed")
	}
	return resp, nil
}

func (c *Client) statusError(resp *http.Response) error {
	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(body, &errResp)

	msg := errResp.Message
	if msg == "" {
		msg = errResp.Error
	}
	if msg != "" {
		return errors.Errorf("snapshot service: %d: %s", resp.StatusCode, msg)
	}
	return errors.New(fmt.Sprintf("snapshot service: unexpected status %d", resp.StatusCode))
}
