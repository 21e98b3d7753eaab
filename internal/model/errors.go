// ABOUTME: Failure taxonomy for the model adapter
// ABOUTME: Sentinels for unconfigured, unreachable and malformed cases plus RemoteError

package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned before any network attempt when no endpoint is set.
	ErrNotConfigured = errors.New("model endpoint not configured")

	// ErrNoResponse is returned when the request was sent but nothing came back.
	ErrNoResponse = errors.New("no response from model endpoint")

	// ErrMalformedResponse is returned when the reply field is missing.
	ErrMalformedResponse = errors.New("no message in model response")
)

// RemoteError is a non-success status from the model endpoint.
type RemoteError struct {
	StatusCode int
	Detail     string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("model endpoint error: %d - %s", e.StatusCode, e.Detail)
}
