// Package ledger talks to the external settlement layer: a Solana-style
// JSON-RPC node for balance reads and the treasury signer gateway that holds
// the communities' signing authority for transfers.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/0xSardius/dalaran/src/webclient"
)

type Client struct {
	rpcURL      string
	signerURL   string
	explorerURL string
	http        *http.Client
}

func NewClient(rpcURL, signerURL, explorerURL string) *Client {
	return &Client{
		rpcURL:      rpcURL,
		signerURL:   signerURL,
		explorerURL: explorerURL,
		http:        webclient.NewDefault(30 * time.Second),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GetBalance returns the account's balance in lamports. Balance reads are
// idempotent, so transient node errors are retried with backoff.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getBalance",
		Params:  []any{address},
	})
	if err != nil {
		return 0, err
	}

	status, body, err := webclient.DoWithRetry(ctx, 3, 2*time.Second, func() (int, []byte, error) {
		return c.post(ctx, c.rpcURL, payload)
	})
	if err != nil {
		return 0, fmt.Errorf("getBalance %s: %w", address, err)
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("getBalance %s: http %d", address, status)
	}

	var resp struct {
		Result struct {
			Value uint64 `json:"value"`
		} `json:"result"`
		Error *rpcError `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("getBalance %s: %w", address, err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("getBalance %s: rpc %d: %s", address, resp.Error.Code, resp.Error.Message)
	}
	return resp.Result.Value, nil
}

// Transfer submits a transfer instruction through the signer gateway and
// waits for settlement confirmation. Submitted exactly once: a transfer has
// external cost, so retry policy belongs to the caller, not this client.
func (c *Client) Transfer(ctx context.Context, from, to string, lamports uint64) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"from":     from,
		"to":       to,
		"lamports": lamports,
	})
	if err != nil {
		return "", err
	}

	status, body, err := c.post(ctx, c.signerURL+"/transfer", payload)
	if err != nil {
		return "", fmt.Errorf("transfer: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("transfer: http %d: %s", status, body)
	}

	var resp struct {
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("transfer: %w", err)
	}
	if resp.Signature == "" {
		return "", fmt.Errorf("transfer: gateway returned no signature")
	}
	return resp.Signature, nil
}

// ExplorerURL builds the block-explorer link for a settlement reference.
func (c *Client) ExplorerURL(signature string) string {
	return fmt.Sprintf("%s/tx/%s?cluster=devnet", c.explorerURL, signature)
}

func (c *Client) post(ctx context.Context, url string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, buf.Bytes(), nil
}
