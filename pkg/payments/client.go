package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client calls an external payment provider over HTTP. The marketplace
// never captures money itself; intents exist so a frontend can hand the
// buyer to the provider's checkout.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// APIError represents a provider error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrNotConfigured signals that no provider base URL is set.
var ErrNotConfigured = errors.New("payments provider not configured")

// Intent is a provider-side payment intent.
type Intent struct {
	ID           string  `json:"id"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
	ClientSecret string  `json:"clientSecret,omitempty"`
}

// NewClient constructs a provider client. An empty baseURL yields a
// client whose calls fail with ErrNotConfigured.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether a provider is wired.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// CreateIntent opens a payment intent for the given amount in dollars.
func (c *Client) CreateIntent(ctx context.Context, amount float64, currency, reference string) (Intent, error) {
	if !c.Configured() {
		return Intent{}, ErrNotConfigured
	}
	if amount < 0 {
		return Intent{}, fmt.Errorf("amount must be >= 0")
	}
	if currency == "" {
		currency = "usd"
	}
	payload := map[string]any{
		"amount":    amount,
		"currency":  currency,
		"reference": reference,
	}
	var intent Intent
	if err := c.doJSON(ctx, http.MethodPost, "/intents", payload, &intent); err != nil {
		return Intent{}, err
	}
	return intent, nil
}

// GetIntent fetches the current provider-side state of an intent.
func (c *Client) GetIntent(ctx context.Context, id string) (Intent, error) {
	if !c.Configured() {
		return Intent{}, ErrNotConfigured
	}
	var intent Intent
	if err := c.doJSON(ctx, http.MethodGet, "/intents/"+id, nil, &intent); err != nil {
		return Intent{}, err
	}
	return intent, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
