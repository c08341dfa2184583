package cfapi

import (
	"context"
	"fmt"
)

// TokenStatus is the result of /user/tokens/verify.
type TokenStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Account is the subset of /accounts/{id} used to confirm access.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Zone is the subset of /zones/{id} used to confirm access.
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// VerifyToken checks that the configured API token is active.
// Global key credentials have no verify endpoint and return nil status.
func (c *Client) VerifyToken(ctx context.Context) (*TokenStatus, error) {
	if c.creds.APIToken == "" {
		return nil, nil
	}

	resp, err := c.Do(ctx, Request{Method: "GET", Path: "/user/tokens/verify", ContentType: ContentTypeJSON})
	if err != nil {
		return nil, err
	}

	var status TokenStatus
	if err := resp.DecodeResult(&status); err != nil {
		return nil, fmt.Errorf("failed to parse token status: %w", err)
	}
	if status.Status != "active" {
		return &status, fmt.Errorf("token %s is %s", status.ID, status.Status)
	}
	return &status, nil
}

// GetAccount fetches the account, confirming the credentials can reach it.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	resp, err := c.Do(ctx, Request{Method: "GET", Path: "/accounts/" + accountID, ContentType: ContentTypeJSON})
	if err != nil {
		return nil, err
	}

	var acc Account
	if err := resp.DecodeResult(&acc); err != nil {
		return nil, fmt.Errorf("failed to parse account: %w", err)
	}
	return &acc, nil
}

// GetZone fetches the zone, confirming the credentials can reach it.
func (c *Client) GetZone(ctx context.Context, zoneID string) (*Zone, error) {
	resp, err := c.Do(ctx, Request{Method: "GET", Path: "/zones/" + zoneID, ContentType: ContentTypeJSON})
	if err != nil {
		return nil, err
	}

	var z Zone
	if err := resp.DecodeResult(&z); err != nil {
		return nil, fmt.Errorf("failed to parse zone: %w", err)
	}
	return &z, nil
}
