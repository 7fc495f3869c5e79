// Package journal persists session history to SQLite. It observes the
// pipeline; it never drives it. The in-memory session remains the source
// of truth while an import is running.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"gridsight/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when schema.sql changes shape. Old journals are
// rejected rather than migrated; history is disposable.
const schemaVersion = 1

// ErrSchemaMismatch indicates the journal was written by an incompatible
// version.
var ErrSchemaMismatch = errors.New("journal schema version mismatch")

// ErrNotFound indicates the requested session has no journal entry.
var ErrNotFound = errors.New("session not found in journal")

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.JournalPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// RecordTransition upserts the session row and appends one transition.
// The stage payload is stored as JSON when present.
func (s *Store) RecordTransition(ctx context.Context, rec Transition) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var payload any
	if rec.Payload != nil {
		raw, err := json.Marshal(rec.Payload)
		if err != nil {
			return fmt.Errorf("encode transition payload: %w", err)
		}
		payload = string(raw)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, source_path, state, error_msg, started_at, deadline_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             state = excluded.state,
             error_msg = excluded.error_msg,
             updated_at = excluded.updated_at`,
		rec.SessionID,
		rec.SourcePath,
		rec.To,
		rec.ErrorMsg,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.DeadlineAt.UTC().Format(time.RFC3339Nano),
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", rec.SessionID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transitions (session_id, from_state, to_state, stage, payload, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.From,
		rec.To,
		rec.Stage,
		payload,
		rec.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert transition for %s: %w", rec.SessionID, err)
	}
	return tx.Commit()
}

// ListSessions returns journaled sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_path, state, error_msg, started_at, deadline_at, updated_at
         FROM sessions ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetSession returns one journaled session by id.
func (s *Store) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_path, state, error_msg, started_at, deadline_at, updated_at
         FROM sessions WHERE id = ?`, id)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, ErrNotFound
	}
	return rec, err
}

// Transitions returns a session's transition history in order.
func (s *Store) Transitions(ctx context.Context, sessionID string) ([]TransitionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_state, to_state, stage, payload, created_at
         FROM transitions WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list transitions for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var records []TransitionRecord
	for rows.Next() {
		var rec TransitionRecord
		var payload sql.NullString
		var createdAt string
		if err := rows.Scan(&rec.From, &rec.To, &rec.Stage, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &rec.Payload); err != nil {
				return nil, fmt.Errorf("decode transition payload: %w", err)
			}
		}
		rec.At = parseTimestamp(createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var rec SessionRecord
	var startedAt, deadlineAt, updatedAt string
	if err := row.Scan(&rec.ID, &rec.SourcePath, &rec.State, &rec.ErrorMsg, &startedAt, &deadlineAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SessionRecord{}, sql.ErrNoRows
		}
		return SessionRecord{}, fmt.Errorf("scan session: %w", err)
	}
	rec.StartedAt = parseTimestamp(startedAt)
	rec.DeadlineAt = parseTimestamp(deadlineAt)
	rec.UpdatedAt = parseTimestamp(updatedAt)
	return rec, nil
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
