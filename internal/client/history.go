// ABOUTME: History and status lookups against the gateway
// ABOUTME: Wraps GET /api/conversation/history/{id}, /status and /health

package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Turn is one entry of a session's history.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Status reports whether the gateway has a model endpoint.
type Status struct {
	Configured bool   `json:"configured"`
	Message    string `json:"message"`
}

// History returns the turns of sessionID. Unknown sessions yield no turns.
func (c *Client) History(ctx context.Context, sessionID string) ([]Turn, error) {
	var resp struct {
		History []Turn `json:"history"`
	}
	path := sessionPath("/api/conversation/history", sessionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

// Status fetches model readiness.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.doJSON(ctx, http.MethodGet, "/api/conversation/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Health checks the liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// sessionPath joins a route prefix and a session ID.
func sessionPath(prefix, sessionID string) string {
	return strings.TrimRight(prefix, "/") + "/" + url.PathEscape(sessionID)
}
