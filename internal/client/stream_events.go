// ABOUTME: Server-Sent Events consumer for a session's turn stream
// ABOUTME: Parses GET /api/conversation/events/{id} and hands each turn to a callback

package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StreamTurns follows sessionID and calls fn for every appended turn.
// Returns nil when the server ends the stream or ctx is canceled.
func (c *Client) StreamTurns(ctx context.Context, sessionID string, fn func(Turn) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, sessionPath("/api/conversation/events", sessionID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: the stream stays open until either side ends it
	resp, err := (&http.Client{Transport: c.httpClient.Transport}).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	err = readEvents(resp.Body, func(event, data string) error {
		if event != "turn" {
			return nil
		}
		var t Turn
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			return fmt.Errorf("parsing event data: %w", err)
		}
		return fn(t)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readEvents splits an SSE body into (event, data) pairs.
func readEvents(body io.Reader, handle func(event, data string) error) error {
	scanner := bufio.NewScanner(body)

	var eventType string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line signals end of event
		if line == "" {
			if eventType != "" && len(dataLines) > 0 {
				if err := handle(eventType, strings.Join(dataLines, "\n")); err != nil {
					return err
				}
			}
			eventType = ""
			dataLines = nil
			continue
		}

		if strings.HasPrefix(line, "event:") {
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	return scanner.Err()
}
