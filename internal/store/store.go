// Package store persists session emotion state in SQLite.
// It uses modernc.org/sqlite for pure-Go, CGO-free database access.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/normanking/cortexaffect/internal/emotion"
)

//go:embed migrations/001_sessions.sql
var sessionsSchema string

// ErrNotFound is returned when no state is stored for a session.
var ErrNotFound = errors.New("session not found")

// Store provides access to the session database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// LogEntry is one row of the animation log.
type LogEntry struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	PrimaryEmotion string    `json:"primary_emotion"`
	Intensity      float64   `json:"intensity"`
	TextLength     int       `json:"text_length"`
	TotalDuration  float64   `json:"total_duration"`
	CreatedAt      time.Time `json:"created_at"`
}

// Open opens or creates the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, now: time.Now}

	if err := s.initPragmas(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize pragmas: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

func (s *Store) initPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range strings.Split(sessionsSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

// Save upserts the engine state for a session.
func (s *Store) Save(ctx context.Context, sessionID string, state emotion.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	primary, intensity := state.Current.Primary()
	now := s.now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, state, primary_emotion, intensity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			primary_emotion = excluded.primary_emotion,
			intensity = excluded.intensity,
			updated_at = excluded.updated_at`,
		sessionID, string(data), primary.String(), intensity, now, now)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

// Load returns the stored state for a session, or ErrNotFound.
func (s *Store) Load(ctx context.Context, sessionID string) (emotion.State, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM sessions WHERE id = ?`, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return emotion.State{}, ErrNotFound
	}
	if err != nil {
		return emotion.State{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var state emotion.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return emotion.State{}, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return state, nil
}

// Delete removes a session and its animation log. Deleting an unknown session
// is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// Sessions lists stored session ids, most recently updated first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Log appends an animation log entry. The session row must exist.
func (s *Store) Log(ctx context.Context, entry LogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO animation_log (id, session_id, primary_emotion, intensity, text_length, total_duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SessionID, entry.PrimaryEmotion, entry.Intensity,
		entry.TextLength, entry.TotalDuration, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("log animation %s: %w", entry.ID, err)
	}
	return nil
}

// Recent returns up to limit log entries for a session, newest first.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, primary_emotion, intensity, text_length, total_duration, created_at
		FROM animation_log
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query animation log: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.PrimaryEmotion, &e.Intensity,
			&e.TextLength, &e.TotalDuration, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan animation log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Health checks that the database answers queries.
func (s *Store) Health(ctx context.Context) error {
	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
