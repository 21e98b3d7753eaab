// ABOUTME: SQLite implementation of the SessionStore interface using modernc.org/sqlite
// ABOUTME: Durable backend for session turn history with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements SessionStore using SQLite
type SQLiteStore struct {
	db     *sql.DB
	newID  func() string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		newID:  NewSessionID,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS turns (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
			CHECK (role IN ('user', 'assistant'))
		);

		CREATE INDEX IF NOT EXISTS idx_turns_session_seq
			ON turns(session_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// GetOrCreate returns the session for id with its history, or inserts a new
// session when id is empty or unknown.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if id != "" {
		session, err := s.getSession(ctx, id)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	now := time.Now()
	for {
		newID := s.newID()
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO sessions (id, created_at) VALUES (?, ?)`,
			newID, now.UTC().Format(time.RFC3339Nano),
		)
		if isConstraintViolation(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("inserting session: %w", err)
		}

		s.logger.Debug("created session", "session_id", newID, "requested_id", id)
		return &Session{ID: newID, Turns: []*Turn{}, CreatedAt: now}, nil
	}
}

// getSession loads a session row and its turns.
func (s *SQLiteStore) getSession(ctx context.Context, id string) (*Session, error) {
	var createdAtStr string
	err := s.db.QueryRowContext(ctx, `SELECT created_at FROM sessions WHERE id = ?`, id).Scan(&createdAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	turns, err := s.listTurns(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Session{ID: id, Turns: turns, CreatedAt: createdAt}, nil
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// Append inserts a turn only if the session exists.
func (s *SQLiteStore) Append(ctx context.Context, id string, turn *Turn) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (session_id, role, content, created_at)
		SELECT id, ?, ?, ? FROM sessions WHERE id = ?
	`,
		string(turn.Role),
		turn.Content,
		turn.Timestamp.UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		s.logger.Debug("append to unknown session ignored", "session_id", id)
	}
	return nil
}

// Reset deletes the session and its turns.
func (s *SQLiteStore) Reset(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("deleting turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	return tx.Commit()
}

// History returns the session's turns in insertion order.
func (s *SQLiteStore) History(ctx context.Context, id string) ([]*Turn, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	return s.listTurns(ctx, id)
}

func (s *SQLiteStore) listTurns(ctx context.Context, id string) ([]*Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at
		FROM turns
		WHERE session_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	turns := []*Turn{}
	for rows.Next() {
		var t Turn
		var role, createdAtStr string

		if err := rows.Scan(&role, &t.Content, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning turn row: %w", err)
		}

		t.Role = Role(role)
		t.Timestamp, err = time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing turn created_at: %w", err)
		}

		turns = append(turns, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turn rows: %w", err)
	}

	return turns, nil
}
