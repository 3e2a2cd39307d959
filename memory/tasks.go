package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scribeworks/scribe/detect"
)

// SaveTasks replaces the stored task list for a session with the given
// ordered snapshot. The detector owns the in-flight list; persistence always
// writes whole snapshots rather than patching rows.
func (s *Store) SaveTasks(ctx context.Context, sessionID uuid.UUID, tasks []*detect.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM tasks WHERE session_id = ?", sessionID.String(),
	); err != nil {
		return fmt.Errorf("save tasks: clear previous: %w", err)
	}

	for position, task := range tasks {
		if err := insertTask(ctx, tx, sessionID, position, task); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

func insertTask(ctx context.Context, tx *sql.Tx, sessionID uuid.UUID, position int, task *detect.Task) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (id, session_id, position, name, status, start_time, end_time, duration_seconds, user_explanation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID.String(), sessionID.String(), position, task.Name, string(task.Status),
		formatTime(task.StartTime), formatTimePtr(task.EndTime),
		int64(task.Duration.Seconds()), task.UserExplanation,
	)
	if err != nil {
		return fmt.Errorf("save tasks: insert task %s: %w", task.ID, err)
	}

	for i, segment := range task.Segments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO app_segments (task_id, position, app, window_title, start_time, end_time, duration_seconds)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			task.ID.String(), i, segment.App, segment.WindowTitle,
			formatTime(segment.StartTime), formatTimePtr(segment.EndTime),
			int64(segment.Duration.Seconds()),
		)
		if err != nil {
			return fmt.Errorf("save tasks: insert segment: %w", err)
		}
	}

	for i, screenshotID := range task.ScreenshotIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO task_screenshots (task_id, position, screenshot_id)
			VALUES (?, ?, ?)`,
			task.ID.String(), i, screenshotID.String(),
		)
		if err != nil {
			return fmt.Errorf("save tasks: insert screenshot ref: %w", err)
		}
	}

	return nil
}

// TasksForSession loads the ordered task list recorded for a session.
func (s *Store) TasksForSession(ctx context.Context, sessionID uuid.UUID) ([]*detect.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, status, start_time, end_time, duration_seconds, user_explanation
		FROM tasks WHERE session_id = ? ORDER BY position`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*detect.Task
	for rows.Next() {
		var rawID, name, status, startTime, userExplanation string
		var endTime sql.NullString
		var durationSeconds int64
		if err := rows.Scan(&rawID, &name, &status, &startTime, &endTime, &durationSeconds, &userExplanation); err != nil {
			return nil, fmt.Errorf("load tasks: %w", err)
		}

		task := &detect.Task{
			SessionID:       sessionID,
			Name:            name,
			Status:          detect.TaskStatus(status),
			Duration:        time.Duration(durationSeconds) * time.Second,
			UserExplanation: userExplanation,
		}
		if task.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("load tasks: parse id: %w", err)
		}
		if task.StartTime, err = parseTime(startTime); err != nil {
			return nil, fmt.Errorf("load tasks: parse start_time: %w", err)
		}
		if endTime.Valid {
			end, err := parseTime(endTime.String)
			if err != nil {
				return nil, fmt.Errorf("load tasks: parse end_time: %w", err)
			}
			task.EndTime = &end
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, task := range tasks {
		if task.Segments, err = s.segmentsForTask(ctx, task.ID); err != nil {
			return nil, err
		}
		if task.ScreenshotIDs, err = s.screenshotsForTask(ctx, task.ID); err != nil {
			return nil, err
		}
	}

	return tasks, nil
}

func (s *Store) segmentsForTask(ctx context.Context, taskID uuid.UUID) ([]detect.AppSegment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT app, window_title, start_time, end_time, duration_seconds
		FROM app_segments WHERE task_id = ? ORDER BY position`,
		taskID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}
	defer rows.Close()

	var segments []detect.AppSegment
	for rows.Next() {
		var app, windowTitle, startTime string
		var endTime sql.NullString
		var durationSeconds int64
		if err := rows.Scan(&app, &windowTitle, &startTime, &endTime, &durationSeconds); err != nil {
			return nil, fmt.Errorf("load segments: %w", err)
		}

		segment := detect.AppSegment{
			App:         app,
			WindowTitle: windowTitle,
			Duration:    time.Duration(durationSeconds) * time.Second,
		}
		if segment.StartTime, err = parseTime(startTime); err != nil {
			return nil, fmt.Errorf("load segments: parse start_time: %w", err)
		}
		if endTime.Valid {
			end, err := parseTime(endTime.String)
			if err != nil {
				return nil, fmt.Errorf("load segments: parse end_time: %w", err)
			}
			segment.EndTime = &end
		}
		segments = append(segments, segment)
	}
	return segments, rows.Err()
}

func (s *Store) screenshotsForTask(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT screenshot_id FROM task_screenshots WHERE task_id = ? ORDER BY position`,
		taskID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load screenshot refs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("load screenshot refs: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("load screenshot refs: parse id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
