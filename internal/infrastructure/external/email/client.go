// Package email sends notification mail through an HTTP mail API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/haidang-dev/meeting-insight/pkg/config"
)

// Client is a minimal client for a Resend-style mail API.
type Client struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

// NewClient creates a mail client from config.
func NewClient(cfg *config.EmailConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Send delivers one HTML email.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	body := map[string]interface{}{
		"from":    c.from,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/emails", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("mail API returned status %d", resp.StatusCode)
	}
	return nil
}
