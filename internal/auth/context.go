// ABOUTME: Authentication context for tracking identity through request handlers
// ABOUTME: Provides WithAuth/FromContext for propagating auth info via context

package auth

import (
	"context"
)

// authContextKey is the key type for storing the principal in context.Context.
type authContextKey struct{}

// WithAuth returns a new context with the principal attached.
func WithAuth(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, authContextKey{}, p)
}

// FromContext retrieves the principal from the context, returning nil if not present.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(authContextKey{}).(*Principal)
	return p
}
