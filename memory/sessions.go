package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	ID        uuid.UUID
	StartedAt time.Time
	EndedAt   *time.Time
}

func (s *Store) CreateSession(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, started_at) VALUES (?, ?)",
		id.String(), formatTime(startedAt),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) EndSession(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET ended_at = ? WHERE id = ?",
		formatTime(endedAt), id.String(),
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, started_at, ended_at FROM sessions WHERE id = ?",
		id.String(),
	)

	var rawID, startedAt string
	var endedAt sql.NullString
	if err := row.Scan(&rawID, &startedAt, &endedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	session := &Session{ID: id}
	var err error
	if session.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("get session: parse started_at: %w", err)
	}
	if endedAt.Valid {
		ended, err := parseTime(endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("get session: parse ended_at: %w", err)
		}
		session.EndedAt = &ended
	}

	return session, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, ended_at FROM sessions ORDER BY started_at",
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var rawID, startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&rawID, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}

		var session Session
		if session.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("list sessions: parse id: %w", err)
		}
		if session.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("list sessions: parse started_at: %w", err)
		}
		if endedAt.Valid {
			ended, err := parseTime(endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("list sessions: parse ended_at: %w", err)
			}
			session.EndedAt = &ended
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
