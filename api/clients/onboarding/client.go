// Package onboarding is the HTTP client the lifecycle worker uses to
// call back into the talentr API.
package onboarding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Principal struct {
	Subject string
	Scopes  []string
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Principal  Principal
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = client
	}
}

func WithPrincipal(principal Principal) Option {
	return func(c *Client) {
		c.Principal = principal
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type LeadView struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	ExpiresAt *string `json:"expires_at"`
}

// GetLead returns enough of the lead for the worker to schedule its
// timers.
func (c *Client) GetLead(ctx context.Context, leadID string) (LeadView, error) {
	var out struct {
		Lead LeadView `json:"lead"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/leads/"+url.PathEscape(leadID), &out); err != nil {
		return LeadView{}, err
	}
	return out.Lead, nil
}

// Remind re-sends the invitation for a still-open lead.
func (c *Client) Remind(ctx context.Context, leadID string) error {
	return c.do(ctx, http.MethodPost, "/v1/leads/"+url.PathEscape(leadID)+"/remind", nil)
}

// ExpireLead closes out a lead whose window has passed. Returns whether
// the transition applied; false means the lead already moved on.
func (c *Client) ExpireLead(ctx context.Context, leadID string) (bool, error) {
	var out struct {
		Expired bool `json:"expired"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/leads/"+url.PathEscape(leadID)+"/expire", &out); err != nil {
		return false, err
	}
	return out.Expired, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	if c == nil {
		return fmt.Errorf("onboarding client is nil")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("api base URL is required")
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.Principal.Subject != "" {
		req.Header.Set("X-Principal-Subject", c.Principal.Subject)
	}
	if len(c.Principal.Scopes) > 0 {
		req.Header.Set("X-Principal-Scopes", strings.Join(c.Principal.Scopes, ","))
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s failed: status %d body %s", method, path, resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
