// Package client is a small HTTP client for a running proposal-gateway.
//
// It backs the CLI subcommands (chat, status, history, watch, health):
//
//	c := client.New("localhost:5000", token)
//	reply, err := c.SendMessage(ctx, "I want to detect fraud", "")
//	turns, err := c.History(ctx, reply.SessionID)
//
// Non-2xx responses come back as *APIError carrying the server's
// "error" and "details" fields.
package client
