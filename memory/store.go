// Package memory persists observation sessions, detected tasks, the
// append-only boundary log, clarifying questions, and the user profile in a
// local SQLite database.
package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewInMemory creates an in-memory store for testing.
func NewInMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL,
		ended_at    TEXT
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id               TEXT PRIMARY KEY,
		session_id       TEXT NOT NULL REFERENCES sessions(id),
		position         INTEGER NOT NULL,
		name             TEXT NOT NULL,
		status           TEXT NOT NULL,
		start_time       TEXT NOT NULL,
		end_time         TEXT,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		user_explanation TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_session ON tasks(session_id, position);

	CREATE TABLE IF NOT EXISTS app_segments (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id          TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		position         INTEGER NOT NULL,
		app              TEXT NOT NULL,
		window_title     TEXT NOT NULL DEFAULT '',
		start_time       TEXT NOT NULL,
		end_time         TEXT,
		duration_seconds INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_segments_task ON app_segments(task_id, position);

	CREATE TABLE IF NOT EXISTS task_screenshots (
		task_id       TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		position      INTEGER NOT NULL,
		screenshot_id TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_task_screenshots ON task_screenshots(task_id, position);

	CREATE TABLE IF NOT EXISTS boundary_events (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id      TEXT NOT NULL REFERENCES sessions(id),
		type            TEXT NOT NULL,
		trigger_kind    TEXT NOT NULL,
		at              TEXT NOT NULL,
		ended_task_id   TEXT,
		started_task_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_boundaries_session ON boundary_events(session_id, id);

	CREATE TABLE IF NOT EXISTS questions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		asked_at   TEXT NOT NULL,
		question   TEXT NOT NULL,
		answer     TEXT
	);

	CREATE TABLE IF NOT EXISTS profile (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
