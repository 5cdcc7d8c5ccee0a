// Package kalshi implements the Kalshi REST execution gateway: RSA-PSS
// request signing, balance queries, and limit order placement.
package kalshi

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is the REST client for the Kalshi trade API.
type Client struct {
	baseURL    string
	signPrefix string // full path prefix signed over, e.g. "/trade-api/v2"
	apiKeyID   string
	privateKey *rsa.PrivateKey
	httpClient *http.Client
}

// NewClient creates a Kalshi REST client. baseURL is the API root, e.g.
// "https://api.elections.kalshi.com/trade-api/v2"; Kalshi signatures cover
// the full path from the host root, so the path component of baseURL is
// included in the signed message.
func NewClient(baseURL, apiKeyID string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("kalshi: parse base url: %w", err)
	}
	return &Client{
		baseURL:    baseURL,
		signPrefix: u.Path,
		apiKeyID:   apiKeyID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// SetRSAPrivateKey loads the RSA private key from PEM-encoded bytes.
func (c *Client) SetRSAPrivateKey(pemBytes []byte) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return fmt.Errorf("kalshi: no PEM block found in private key")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		// Try PKCS1 as fallback.
		pkcs1Key, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return fmt.Errorf("kalshi: parse private key: %w (pkcs1: %v)", err, pkcs1Err)
		}
		c.privateKey = pkcs1Key
		return nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("kalshi: expected RSA private key, got %T", key)
	}
	c.privateKey = rsaKey
	return nil
}

// SignedHeaders returns the auth headers for method+path, for callers that
// open their own connections (the websocket feed).
func (c *Client) SignedHeaders(method, path string) (http.Header, error) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sig, err := c.sign(ts + method + path)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("KALSHI-ACCESS-KEY", c.apiKeyID)
	h.Set("KALSHI-ACCESS-SIGNATURE", sig)
	h.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return h, nil
}

// GetBalance returns the account balance response. The API reports cents.
func (c *Client) GetBalance(ctx context.Context) (BalanceResponse, error) {
	body, err := c.doSignedRequest(ctx, http.MethodGet, "/portfolio/balance", nil)
	if err != nil {
		return BalanceResponse{}, fmt.Errorf("kalshi: get balance: %w", err)
	}

	var resp BalanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return BalanceResponse{}, fmt.Errorf("kalshi: decode balance: %w", err)
	}
	return resp, nil
}

// CreateOrder submits a new order.
func (c *Client) CreateOrder(ctx context.Context, order Order) (OrderResponse, error) {
	body, err := c.doSignedRequest(ctx, http.MethodPost, "/portfolio/orders", order)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("kalshi: create order: %w", err)
	}

	var resp OrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return OrderResponse{}, fmt.Errorf("kalshi: decode order response: %w", err)
	}
	return resp, nil
}

// CancelOrder cancels a resting order by its ID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	path := fmt.Sprintf("/portfolio/orders/%s", url.PathEscape(orderID))
	if _, err := c.doSignedRequest(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("kalshi: cancel order %s: %w", orderID, err)
	}
	return nil
}

// doSignedRequest builds, signs, sends, and reads one HTTP request.
func (c *Client) doSignedRequest(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
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
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	headers, err := c.SignedHeaders(method, c.signPrefix+path)
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
	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// sign produces an RSA-PSS-SHA256 signature over message.
func (c *Client) sign(message string) (string, error) {
	if c.privateKey == nil {
		return "", fmt.Errorf("kalshi: RSA private key not configured")
	}
	hash := sha256.Sum256([]byte(message))
	signature, err := rsa.SignPSS(rand.Reader, c.privateKey, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return "", fmt.Errorf("RSA sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(signature), nil
}

func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr ErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("kalshi: not found: %s (%s)", apiErr.Message, apiErr.Code)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("kalshi: unauthorized: %s (%s)", apiErr.Message, apiErr.Code)
	case http.StatusTooManyRequests:
		return fmt.Errorf("kalshi: rate limited: %s (%s)", apiErr.Message, apiErr.Code)
	case http.StatusBadRequest:
		return fmt.Errorf("kalshi: bad request: %s (%s)", apiErr.Message, apiErr.Code)
	default:
		return fmt.Errorf("kalshi: HTTP %d: %s (%s)", statusCode, apiErr.Message, apiErr.Code)
	}
}
