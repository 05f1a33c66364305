package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client delivers transactional mail through an HTTP mail API. An empty
// baseURL yields a no-op client that only logs through the caller.
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewClient constructs a mail client.
func NewClient(baseURL, apiKey, from string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		from:       strings.TrimSpace(from),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether a mail API is wired.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// SendVerificationCode mails an email verification code.
func (c *Client) SendVerificationCode(ctx context.Context, to, code string) error {
	subject := "Verify your email"
	body := fmt.Sprintf("Your verification code is %s. It expires in 24 hours.", code)
	return c.send(ctx, to, subject, body)
}

func (c *Client) send(ctx context.Context, to, subject, body string) error {
	if !c.Configured() {
		return nil
	}
	payload := map[string]string{
		"from":    c.from,
		"to":      to,
		"subject": subject,
		"text":    body,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("mail api error: %s", errResp.Error)
		}
		return fmt.Errorf("mail api error: %s", resp.Status)
	}
	return nil
}
