package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"fleetchat/internal/types"
)

// CreateSession registers a new fleet configuration and returns the
// server-assigned session id.
func (c *Client) CreateSession(ctx context.Context, fleet types.FleetConfig) (string, error) {
	req := CreateSessionRequest{
		VehicleFleet: FleetToWire(fleet),
		ChatHistory:  []ChatHistoryEntry{},
	}
	var resp CreateSessionResponse
	if err := c.doJSON(ctx, c.http, http.MethodPost, c.sessionURL+"/sessions/create", req, &resp); err != nil {
		return "", err
	}
	id := strings.TrimSpace(resp.SessionID)
	if id == "" {
		return "", ErrInvalidResponse
	}
	return id, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (types.FleetConfig, error) {
	var resp SessionRecordResponse
	path := c.sessionURL + "/sessions/" + url.PathEscape(strings.TrimSpace(id))
	if err := c.doJSON(ctx, c.http, http.MethodGet, path, nil, &resp); err != nil {
		return types.FleetConfig{}, err
	}
	return FleetFromWire(resp.VehicleFleet), nil
}
