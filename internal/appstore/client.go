// Package appstore validates App Store in-app purchase receipts against
// Apple's verifyReceipt endpoints and normalizes the decoded payload into
// purchase records usable for entitlement checks.
package appstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// ProductionURL and SandboxURL are Apple's fixed verification endpoints.
	ProductionURL = "https://buy.itunes.apple.com/verifyReceipt"
	SandboxURL    = "https://sandbox.itunes.apple.com/verifyReceipt"

	// ServiceApple tags every validation result with its provider.
	ServiceApple = "apple"

	defaultTimeout = 30 * time.Second
)

// ValidationResult is the outcome of a verification attempt. It is populated
// on every path, including failures, so callers can log what Apple said.
type ValidationResult struct {
	Status  int              `json:"status"`
	Message string           `json:"message"`
	Service string           `json:"service"`
	Receipt *ReceiptResponse `json:"receipt,omitempty"`
}

// Client verifies receipts against Apple. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	httpClient    *http.Client
	sharedSecret  string
	productionURL string
	sandboxURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithSharedSecret sets the app's shared secret, sent as the "password"
// field when the caller does not supply one per call.
func WithSharedSecret(secret string) Option {
	return func(c *Client) {
		c.sharedSecret = secret
	}
}

// WithHTTPClient replaces the underlying HTTP client. Timeouts, proxies and
// connection pooling belong to the supplied client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithProductionURL overrides the production endpoint.
func WithProductionURL(url string) Option {
	return func(c *Client) {
		c.productionURL = url
	}
}

// WithSandboxURL overrides the sandbox endpoint.
func WithSandboxURL(url string) Option {
	return func(c *Client) {
		c.sandboxURL = url
	}
}

// NewClient creates a verification client for Apple's endpoints.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		productionURL: ProductionURL,
		sandboxURL:    SandboxURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type verifyRequest struct {
	ReceiptData string `json:"receipt-data"`
	Password    string `json:"password,omitempty"`
}

// Verify sends the receipt to the production endpoint and, only when Apple
// reports a wrong-environment status (21007 or 21002), retries once against
// the sandbox endpoint. A non-empty password overrides the configured shared
// secret; resolution happens once and covers both attempts.
//
// Verify returns a non-nil ValidationResult on every path. A nil error means
// the receipt is valid and the result carries the decoded payload.
func (c *Client) Verify(ctx context.Context, receiptData, password string) (*ValidationResult, error) {
	if password == "" {
		password = c.sharedSecret
	}
	req := verifyRequest{ReceiptData: receiptData, Password: password}

	resp, err := c.post(ctx, c.productionURL, req)
	if err != nil {
		// A transport failure is not a wrong-environment signal; surface
		// it immediately instead of trying the sandbox.
		return failureResult(StatusFailure, nil), err
	}

	switch classifyStatus(resp.Status, true) {
	case classWrongEnvironment:
		resp, err = c.post(ctx, c.sandboxURL, req)
		if err != nil {
			return failureResult(StatusFailure, nil), err
		}
		if resp.Status != StatusSuccess {
			// No re-fallback from sandbox to production.
			return failureResult(resp.Status, resp), &StatusError{Status: resp.Status, Message: StatusMessage(resp.Status)}
		}
	case classFailure:
		return failureResult(resp.Status, resp), &StatusError{Status: resp.Status, Message: StatusMessage(resp.Status)}
	}

	// Apple returns status 0 for receipts that purchased nothing; an in_app
	// key holding an empty list is a known tamper signal, not a success.
	if r := resp.Receipt; r != nil && r.InApp != nil && len(r.InApp) == 0 {
		return failureResult(StatusEmptyPurchaseList, resp), &TamperError{}
	}

	return &ValidationResult{
		Status:  StatusSuccess,
		Service: ServiceApple,
		Receipt: resp,
	}, nil
}

func (c *Client) post(ctx context.Context, url string, body verifyRequest) (*ReceiptResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &TransportError{Endpoint: url, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Endpoint: url, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Endpoint: url, Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode > 399 {
		return nil, &TransportError{Endpoint: url, Err: fmt.Errorf("unexpected status code: %d", httpResp.StatusCode)}
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: url, Err: err}
	}

	var resp ReceiptResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &TransportError{Endpoint: url, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return &resp, nil
}

func failureResult(status int, resp *ReceiptResponse) *ValidationResult {
	return &ValidationResult{
		Status:  status,
		Message: StatusMessage(status),
		Service: ServiceApple,
		Receipt: resp,
	}
}
