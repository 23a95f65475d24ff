package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"vigri-presale/internal/presale"
	"vigri-presale/internal/solana"
)

// Default client configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// APIError is a failed request the server answered.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Client calls the presale API, signing mutating requests with its keypair.
type Client struct {
	baseURL     string
	signer      *solana.Keypair
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	now         func() time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a client for the API at baseURL. signer may be nil for
// read-only use.
func NewClient(baseURL string, signer *solana.Keypair, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		signer:      signer,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryable reports whether a response status may be retried. Only statuses
// that guarantee the request was not processed qualify.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// do performs a request with retries and exponential backoff. API errors
// are not retried. Every attempt of one call carries the same nonce, so a
// retry after a lost response is answered with ReplayedRequest instead of
// being applied twice.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	if method == http.MethodPost && c.signer == nil {
		return errors.New("signed request without a keypair")
	}

	nonce := uuid.NewString()
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if method == http.MethodPost {
			// Re-signed per attempt so the timestamp stays fresh.
			SignRequest(req, c.signer, nonce, body, c.now())
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if retryable(resp.StatusCode) {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		if resp.StatusCode >= http.StatusBadRequest {
			apiErr := &APIError{Status: resp.StatusCode}
			var er ErrorResponse
			if json.Unmarshal(respBody, &er) == nil {
				apiErr.Code, apiErr.Message = er.Code, er.Message
			} else {
				apiErr.Message = string(respBody)
			}
			return apiErr
		}

		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Initialize creates the sale with the client's signer as admin.
func (c *Client) Initialize(ctx context.Context, collection, paymentMint solana.PublicKey) (*ConfigView, error) {
	var out ConfigView
	if err := c.do(ctx, http.MethodPost, "/v1/initialize", InitializeRequest{CollectionMint: collection, PaymentMint: paymentMint}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InitializeFor creates the sale with admin as its administrator.
func (c *Client) InitializeFor(ctx context.Context, admin, collection, paymentMint solana.PublicKey) (*ConfigView, error) {
	var out ConfigView
	req := InitializeRequest{Admin: &admin, CollectionMint: collection, PaymentMint: paymentMint}
	if err := c.do(ctx, http.MethodPost, "/v1/initialize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Config fetches the sale aggregate.
func (c *Client) Config(ctx context.Context) (*ConfigView, error) {
	var out ConfigView
	if err := c.do(ctx, http.MethodGet, "/v1/config", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateConfig applies patch.
func (c *Client) UpdateConfig(ctx context.Context, patch presale.ConfigPatch) (*ConfigView, error) {
	var out ConfigView
	if err := c.do(ctx, http.MethodPost, "/v1/config", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Mint buys one token as the signer.
func (c *Client) Mint(ctx context.Context, req MintRequest) (*MintResponse, error) {
	var out MintResponse
	if err := c.do(ctx, http.MethodPost, "/v1/mint", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminMint grants one token.
func (c *Client) AdminMint(ctx context.Context, req AdminMintRequest) (*MintResponse, error) {
	var out MintResponse
	if err := c.do(ctx, http.MethodPost, "/v1/admin-mint", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MintSoulbound calls the soulbound entry point.
func (c *Client) MintSoulbound(ctx context.Context, inviteProof []byte) error {
	return c.do(ctx, http.MethodPost, "/v1/mint-ws20", SoulboundRequest{InviteProof: inviteProof}, nil)
}

// Airdrop credits lamports to owner and returns the new balance.
func (c *Client) Airdrop(ctx context.Context, owner solana.PublicKey, lamports uint64) (uint64, error) {
	var out BalanceResponse
	if err := c.do(ctx, http.MethodPost, "/v1/airdrop", AirdropRequest{Owner: owner, Lamports: lamports}, &out); err != nil {
		return 0, err
	}
	return out.Lamports, nil
}

// Balance fetches owner's payment balance.
func (c *Client) Balance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	var out BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/v1/balances/"+owner.String(), nil, &out); err != nil {
		return 0, err
	}
	return out.Lamports, nil
}

// Tokens lists the tokens held by owner.
func (c *Client) Tokens(ctx context.Context, owner solana.PublicKey) ([]TokenView, error) {
	var out []TokenView
	if err := c.do(ctx, http.MethodGet, "/v1/tokens?owner="+url.QueryEscape(owner.String()), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
