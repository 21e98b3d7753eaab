// ABOUTME: In-memory SessionStore backed by a map guarded by a RWMutex
// ABOUTME: Default backend; sessions live for the process lifetime with no eviction

package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore is an in-memory SessionStore implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by session ID
	newID    func() string
	now      func() time.Time
	logger   *slog.Logger
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		newID:    NewSessionID,
		now:      time.Now,
		logger:   slog.Default().With("component", "store"),
	}
}

// GetOrCreate returns a copy of the session for id, minting a new one if id
// is empty or unknown.
func (m *MemoryStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if s, ok := m.sessions[id]; ok {
			return &Session{ID: s.ID, Turns: copyTurns(s.Turns), CreatedAt: s.CreatedAt}, nil
		}
	}

	s := &Session{
		ID:        m.uniqueIDLocked(),
		CreatedAt: m.now(),
	}
	m.sessions[s.ID] = s
	m.logger.Debug("created session", "session_id", s.ID, "requested_id", id)

	return &Session{ID: s.ID, Turns: []*Turn{}, CreatedAt: s.CreatedAt}, nil
}

// uniqueIDLocked draws IDs until one is unused. Must be called with mu held.
func (m *MemoryStore) uniqueIDLocked() string {
	for {
		id := m.newID()
		if _, exists := m.sessions[id]; !exists {
			return id
		}
	}
}

// Append stores a copy of turn on the session. Unknown ids are ignored.
func (m *MemoryStore) Append(ctx context.Context, id string, turn *Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		m.logger.Debug("append to unknown session ignored", "session_id", id)
		return nil
	}

	t := *turn
	s.Turns = append(s.Turns, &t)
	return nil
}

// Reset deletes the session if present.
func (m *MemoryStore) Reset(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// History returns a copy of the session's turns.
func (m *MemoryStore) History(ctx context.Context, id string) ([]*Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTurns(s.Turns), nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
