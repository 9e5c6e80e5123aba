package client

import (
	"context"
	"time"
)

// SessionResponse describes the server's Easy-Template session.
type SessionResponse struct {
	State            string     `json:"state"`
	AccessExpiresAt  *time.Time `json:"access_expires_at,omitempty"`
	RefreshExpiresAt *time.Time `json:"refresh_expires_at,omitempty"`
}

// QuotaResponse describes the daily call budget.
type QuotaResponse struct {
	DailyLimit int64     `json:"daily_limit"`
	DailyUsed  int64     `json:"daily_used"`
	Remaining  int64     `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

// Login makes the server log in. Empty credentials use the server's
// configured ones.
func (c *Client) Login(ctx context.Context, clientID, clientSecret string) (*SessionResponse, error) {
	body := map[string]string{}
	if clientID != "" {
		body["client_id"] = clientID
	}
	if clientSecret != "" {
		body["client_secret"] = clientSecret
	}

	var resp SessionResponse
	if err := c.post(ctx, "/api/v1/session/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Session returns the server's session state.
func (c *Client) Session(ctx context.Context) (*SessionResponse, error) {
	var resp SessionResponse
	if err := c.get(ctx, "/api/v1/session", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Quota returns the daily call budget.
func (c *Client) Quota(ctx context.Context) (*QuotaResponse, error) {
	var resp QuotaResponse
	if err := c.get(ctx, "/api/v1/quota", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
