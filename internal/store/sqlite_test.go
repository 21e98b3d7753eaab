// ABOUTME: Tests for the SQLite SessionStore
// ABOUTME: Covers database creation, durability across reopen and ID collisions

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	sess, err := s.GetOrCreate(ctx, "")
	require.NoError(t, err)
	ts := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	require.NoError(t, s.Append(ctx, sess.ID, &Turn{Role: RoleUser, Content: "hello", Timestamp: ts}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	history, err := reopened.History(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)
	assert.True(t, ts.Equal(history[0].Timestamp), "timestamp should round-trip with nanosecond precision")
}

func TestSQLiteStore_RetriesOnIDCollision(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer s.Close()

	ids := []string{"conv_1", "conv_1", "conv_2"}
	s.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	ctx := context.Background()
	first, err := s.GetOrCreate(ctx, "")
	require.NoError(t, err)
	second, err := s.GetOrCreate(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, "conv_1", first.ID)
	assert.Equal(t, "conv_2", second.ID)
}

func TestSQLiteStore_ResetRemovesTurns(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	sess, err := s.GetOrCreate(ctx, "")
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, sess.ID, userTurn("a")))
	require.NoError(t, s.Reset(ctx, sess.ID))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM turns WHERE session_id = ?`, sess.ID).Scan(&n))
	assert.Zero(t, n)
}
