package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Question is a clarifying question the system asked the user when the model
// was confused about the current activity. The record store is append-only;
// only the answer column is ever filled in later.
type Question struct {
	ID       int64
	AskedAt  time.Time
	Question string
	Answer   *string
}

func (s *Store) AppendQuestion(ctx context.Context, sessionID uuid.UUID, askedAt time.Time, question string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO questions (session_id, asked_at, question) VALUES (?, ?, ?)",
		sessionID.String(), formatTime(askedAt), question,
	)
	if err != nil {
		return 0, fmt.Errorf("append question: %w", err)
	}
	return result.LastInsertId()
}

func (s *Store) AnswerQuestion(ctx context.Context, id int64, answer string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE questions SET answer = ? WHERE id = ?",
		answer, id,
	)
	if err != nil {
		return fmt.Errorf("answer question: %w", err)
	}
	return nil
}

func (s *Store) QuestionsForSession(ctx context.Context, sessionID uuid.UUID) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, asked_at, question, answer FROM questions WHERE session_id = ? ORDER BY id",
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var q Question
		var askedAt string
		var answer sql.NullString
		if err := rows.Scan(&q.ID, &askedAt, &q.Question, &answer); err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
		if q.AskedAt, err = parseTime(askedAt); err != nil {
			return nil, fmt.Errorf("load questions: parse asked_at: %w", err)
		}
		if answer.Valid {
			q.Answer = &answer.String
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
