// ABOUTME: Error taxonomy surfaced by the conversation orchestrator
// ABOUTME: Validation, unavailable service and wrapped model gateway failures

package conversation

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation means the user input was empty or whitespace-only.
	ErrValidation = errors.New("message is required")

	// ErrServiceUnavailable means the model gateway is not configured.
	ErrServiceUnavailable = errors.New("model service not configured")
)

// GatewayError wraps a failed model call. Cause is one of the model package
// errors and can be inspected with errors.Is / errors.As.
type GatewayError struct {
	Cause error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("model request failed: %v", e.Cause)
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}
