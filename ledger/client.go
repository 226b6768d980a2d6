// Package ledger reads accounts and account histories from a public
// blockchain JSON-RPC endpoint and extracts upload provenance records.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrRPCUnavailable = errors.New("ledger rpc unavailable")
	ErrRPC            = errors.New("ledger rpc error")
	ErrNotFound       = errors.New("account not found")
)

const (
	DefaultURL = "https://api.hive.blog"

	// MaxHistoryWindow is the largest limit the history API accepts
	MaxHistoryWindow     = 1000
	DefaultHistoryWindow = 100
)

// RPCError is a well formed error object returned by the endpoint
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("ledger rpc error %d: %s", e.Code, e.Message)
}

func (e *RPCError) Is(target error) bool {
	return target == ErrRPC
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
	ID     int64           `json:"id"`
}

// Client makes exactly one attempt per call, retrying is up to the caller
type Client struct {
	URL  string
	HTTP *http.Client

	id atomic.Int64
}

func NewClient(url string) *Client {
	if url == "" {
		url = DefaultURL
	}

	return &Client{
		URL:  strings.TrimSuffix(url, "/"),
		HTTP: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) GetAccount(ctx context.Context, username string) (*Account, error) {
	var accounts []Account

	err := c.call(ctx, "condenser_api.get_accounts", [][]string{{username}}, &accounts)
	if err != nil {
		return nil, err
	}

	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, username)
	}

	return &accounts[0], nil
}

// GetHistory returns up to window of the latest operations of username, most
// recent first. The window is clamped to what the endpoint accepts.
func (c *Client) GetHistory(ctx context.Context, username string, window int) ([]Transaction, error) {
	switch {
	case window <= 0:
		window = DefaultHistoryWindow
	case window > MaxHistoryWindow:
		window = MaxHistoryWindow
	}

	var result struct {
		History [][2]json.RawMessage `json:"history"`
	}

	err := c.call(ctx, "account_history_api.get_account_history", map[string]any{
		"account": username,
		"start":   -1,
		"limit":   window,
	}, &result)
	if err != nil {
		return nil, err
	}

	txs := make([]Transaction, 0, len(result.History))
	for _, entry := range result.History {
		var tx Transaction
		if err := json.Unmarshal(entry[1], &tx); err != nil {
			return nil, fmt.Errorf("%w: malformed history entry, %w", ErrRPCUnavailable, err)
		}

		if err := json.Unmarshal(entry[0], &tx.Index); err != nil {
			return nil, fmt.Errorf("%w: malformed history index, %w", ErrRPCUnavailable, err)
		}

		txs = append(txs, tx)
	}

	// The endpoint answers oldest first
	slices.Reverse(txs)

	return txs, nil
}

// GetProvenance is GetHistory followed by FilterProvenance
func (c *Client) GetProvenance(ctx context.Context, username string, window int, recordKind string) ([]ProvenanceRecord, error) {
	txs, err := c.GetHistory(ctx, username, window)
	if err != nil {
		return nil, err
	}

	return FilterProvenance(txs, recordKind), nil
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.id.Add(1),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRPCUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		zap.L().Error("Ledger request failed", zap.String("method", method), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrRPCUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRPCUnavailable, err)
	}

	var res rpcResponse
	if err := json.Unmarshal(data, &res); err != nil {
		zap.L().Error("Ledger answered with a malformed body", zap.String("method", method), zap.String("status", resp.Status))
		return fmt.Errorf("%w: %s", ErrRPCUnavailable, resp.Status)
	}

	if res.Error != nil {
		zap.L().Warn("Ledger returned an error", zap.String("method", method), zap.Int("code", res.Error.Code), zap.String("message", res.Error.Message))
		return res.Error
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrRPCUnavailable, resp.Status)
	}

	if out != nil && len(res.Result) > 0 {
		if err := json.Unmarshal(res.Result, out); err != nil {
			return fmt.Errorf("%w: failed to decode %s result, %w", ErrRPCUnavailable, method, err)
		}
	}

	return nil
}
