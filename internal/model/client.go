// ABOUTME: HTTP adapter that sends one prompt to the remote model endpoint per call
// ABOUTME: Builds the multipart request, propagates the session ID and classifies failures

package model

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultTimeout bounds a single model call.
	DefaultTimeout = 120 * time.Second

	// DefaultWorkflowTimeout is the server-side workflow budget in seconds.
	DefaultWorkflowTimeout = 1800

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 << 20
)

// Config holds the connection parameters for the remote model service.
type Config struct {
	Endpoint        string
	Cookie          string
	Timeout         time.Duration
	WorkflowTimeout int
}

// Client talks to the remote model endpoint.
type Client struct {
	endpoint        string
	cookie          string
	workflowTimeout int
	httpClient      *http.Client
	logger          *slog.Logger
}

// NewClient creates a model client. Zero Timeout and WorkflowTimeout fall back
// to their defaults. A nil logger uses slog.Default().
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	workflowTimeout := cfg.WorkflowTimeout
	if workflowTimeout <= 0 {
		workflowTimeout = DefaultWorkflowTimeout
	}

	return &Client{
		endpoint:        cfg.Endpoint,
		cookie:          cfg.Cookie,
		workflowTimeout: workflowTimeout,
		httpClient:      &http.Client{Timeout: timeout},
		logger:          logger.With("component", "model"),
	}
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool {
	return c.endpoint != ""
}

// Send posts prompt to the model and returns the reply text. sessionID may be
// empty on the first turn. Exactly one request is made; there is no retry.
func (c *Client) Send(ctx context.Context, prompt, sessionID string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	reqURL, err := c.requestURL(sessionID)
	if err != nil {
		return "", fmt.Errorf("building request url: %w", err)
	}

	body, contentType, err := encodeForm(prompt)
	if err != nil {
		return "", fmt.Errorf("encoding form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	c.logger.Debug("sending prompt", "url", reqURL, "session_id", sessionID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("no response from model", "error", err, "duration", time.Since(start))
		return "", fmt.Errorf("%w: %w", ErrNoResponse, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %w", ErrNoResponse, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remoteErr := &RemoteError{
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(resp.StatusCode, data),
		}
		c.logger.Error("model returned error",
			"status", remoteErr.StatusCode,
			"detail", remoteErr.Detail,
		)
		return "", remoteErr
	}

	reply := gjson.GetBytes(data, "message")
	if !gjson.ValidBytes(data) || !reply.Exists() || reply.String() == "" {
		c.logger.Error("unexpected model response format", "body_bytes", len(data))
		return "", ErrMalformedResponse
	}

	c.logger.Debug("received reply",
		"session_id", sessionID,
		"reply_len", len(reply.String()),
		"duration", time.Since(start),
	)
	return reply.String(), nil
}

// requestURL appends the fixed query parameters and optional session ID.
func (c *Client) requestURL(sessionID string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("stream", "false")
	q.Set("use_responses_api", "false")
	q.Set("no_summary", "false")
	q.Set("workflow_timeout", strconv.Itoa(c.workflowTimeout))
	q.Set("background_job", "false")
	if sessionID != "" {
		q.Set("model_session_id_param", sessionID)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// encodeForm builds the multipart body. The empty fields are required by the
// remote service.
func encodeForm(prompt string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"q", prompt},
		{"uploaded_file", ""},
		{"filter_by_file", ""},
		{"chunks", ""},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

// errorDetail picks the most specific explanation available: the body's
// "detail" field, then "message", then the HTTP status text.
func errorDetail(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"detail", "message"} {
			if r := gjson.GetBytes(body, path); r.Exists() && r.String() != "" {
				return r.String()
			}
		}
	}
	return http.StatusText(status)
}
