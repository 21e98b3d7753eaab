// ABOUTME: Conversation calls: send a message and reset a session
// ABOUTME: Wraps POST /api/conversation/message and /api/conversation/reset

package client

import (
	"context"
	"net/http"
	"time"
)

// MessageReply is the result of a conversation turn.
type MessageReply struct {
	SessionID string    `json:"session_id"`
	RawReply  string    `json:"raw_reply"`
	Timestamp time.Time `json:"timestamp"`
}

type messageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// SendMessage sends one user message. An empty sessionID starts a new session.
func (c *Client) SendMessage(ctx context.Context, message, sessionID string) (*MessageReply, error) {
	var reply MessageReply
	err := c.doJSON(ctx, http.MethodPost, "/api/conversation/message",
		messageRequest{Message: message, SessionID: sessionID}, &reply)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// Reset discards sessionID on the server and returns a fresh session ID.
func (c *Client) Reset(ctx context.Context, sessionID string) (string, error) {
	var resp struct {
		SessionID string `json:"session_id"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/conversation/reset",
		map[string]string{"session_id": sessionID}, &resp)
	if err != nil {
		return "", err
	}
	return resp.SessionID, nil
}
