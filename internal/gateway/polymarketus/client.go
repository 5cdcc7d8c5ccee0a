// Package polymarketus implements the Polymarket US REST execution gateway.
// Requests are authenticated with an Ed25519 signature over
// timestamp+method+path.
package polymarketus

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is the REST client for the Polymarket US API.
type Client struct {
	baseURL    string
	apiKeyID   string
	privateKey ed25519.PrivateKey
	httpClient *http.Client
}

// NewClient creates a Polymarket US REST client. keyBase64 is the
// base64-encoded Ed25519 private key as issued by the venue; its first 32
// bytes are the seed.
func NewClient(baseURL, apiKeyID, keyBase64 string) (*Client, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(keyBase64))
	if err != nil {
		return nil, fmt.Errorf("polymarketus: decode private key: %w", err)
	}
	if len(raw) < ed25519.SeedSize {
		return nil, fmt.Errorf("polymarketus: private key too short: %d bytes", len(raw))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKeyID:   apiKeyID,
		privateKey: ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize]),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// SignedHeaders returns the auth headers for method+path, also used by the
// websocket feed when opening its connection.
func (c *Client) SignedHeaders(method, path string) (http.Header, error) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	message := ts + strings.ToUpper(method) + path
	sig := base64.StdEncoding.EncodeToString(ed25519.Sign(c.privateKey, []byte(message)))

	h := http.Header{}
	h.Set("X-PM-Access-Key", c.apiKeyID)
	h.Set("X-PM-Timestamp", ts)
	h.Set("X-PM-Signature", sig)
	return h, nil
}

// GetBalances returns the account's cash balances.
func (c *Client) GetBalances(ctx context.Context) (BalancesResponse, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/v1/account/balances", nil)
	if err != nil {
		return BalancesResponse{}, fmt.Errorf("polymarketus: get balances: %w", err)
	}

	var resp BalancesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return BalancesResponse{}, fmt.Errorf("polymarketus: decode balances: %w", err)
	}
	return resp, nil
}

// CreateOrder places a limit order.
func (c *Client) CreateOrder(ctx context.Context, order OrderRequest) (OrderResponse, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/v1/orders", order)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("polymarketus: create order: %w", err)
	}

	var resp OrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return OrderResponse{}, fmt.Errorf("polymarketus: decode order response: %w", err)
	}
	return resp, nil
}

// CancelOrder cancels an open order.
func (c *Client) CancelOrder(ctx context.Context, orderID, marketSlug string) error {
	path := fmt.Sprintf("/v1/order/%s/cancel", url.PathEscape(orderID))
	body := map[string]string{"marketSlug": marketSlug}
	if _, err := c.doRequest(ctx, http.MethodPost, path, body); err != nil {
		return fmt.Errorf("polymarketus: cancel order %s: %w", orderID, err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	headers, err := c.SignedHeaders(method, path)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	for k, vs := range headers {
		req.Header[k] = vs
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("polymarketus: HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
