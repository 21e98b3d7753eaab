// ABOUTME: Store interface and data types for proposal-gateway conversation sessions
// ABOUTME: Defines Session, Turn and the SessionStore contract plus session ID generation

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested session does not exist
var ErrNotFound = errors.New("not found")

// Role identifies who authored a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a session's history. Content is stored unmodified.
type Turn struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// Session is a conversation identity and its ordered turn history
type Session struct {
	ID        string
	Turns     []*Turn
	CreatedAt time.Time
}

// SessionStore holds per-session turn history keyed by an opaque session ID.
type SessionStore interface {
	// GetOrCreate returns the session for id. An empty or unknown id mints a
	// new session with a fresh ID and empty history; the supplied id is never
	// adopted.
	GetOrCreate(ctx context.Context, id string) (*Session, error)

	// Append adds a turn to an existing session. Unknown ids are a no-op.
	Append(ctx context.Context, id string, turn *Turn) error

	// Reset removes the session. Unknown ids are a no-op.
	Reset(ctx context.Context, id string) error

	// History returns the session's turns in insertion order.
	// Returns ErrNotFound for unknown ids.
	History(ctx context.Context, id string) ([]*Turn, error)

	// Close releases any resources held by the store
	Close() error
}

// NewSessionID returns a collision-resistant session identifier built from a
// millisecond timestamp and a random suffix, e.g. conv_1730000000000_3f9a1c2b7.
func NewSessionID() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	return fmt.Sprintf("conv_%d_%s", time.Now().UnixMilli(), suffix)
}

// copyTurns returns a new slice of copied turns so callers cannot mutate
// stored history.
func copyTurns(turns []*Turn) []*Turn {
	out := make([]*Turn, 0, len(turns))
	for _, t := range turns {
		c := *t
		out = append(out, &c)
	}
	return out
}
