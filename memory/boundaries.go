package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scribeworks/scribe/detect"
)

// BoundaryRecord is one row of the append-only boundary log.
type BoundaryRecord struct {
	SessionID     uuid.UUID
	Type          detect.BoundaryType
	Trigger       detect.Trigger
	At            time.Time
	EndedTaskID   *uuid.UUID
	StartedTaskID *uuid.UUID
}

// AppendBoundary records a boundary event. The log is append-only; records
// are never updated or deleted.
func (s *Store) AppendBoundary(ctx context.Context, sessionID uuid.UUID, evt detect.BoundaryEvent) error {
	record := BoundaryRecord{
		SessionID: sessionID,
		Type:      evt.BoundaryType(),
		Trigger:   evt.BoundaryTrigger(),
		At:        evt.OccurredAt(),
	}

	switch evt := evt.(type) {
	case *detect.TaskStart:
		record.StartedTaskID = &evt.Started.ID
	case *detect.TaskEnd:
		record.EndedTaskID = &evt.Ended.ID
	case *detect.TaskSwitch:
		record.EndedTaskID = &evt.Ended.ID
		record.StartedTaskID = &evt.Started.ID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO boundary_events (session_id, type, trigger_kind, at, ended_task_id, started_task_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID.String(), string(record.Type), string(record.Trigger), formatTime(record.At),
		uuidPtrString(record.EndedTaskID), uuidPtrString(record.StartedTaskID),
	)
	if err != nil {
		return fmt.Errorf("append boundary: %w", err)
	}
	return nil
}

// BoundariesForSession returns the boundary log for a session in append
// order.
func (s *Store) BoundariesForSession(ctx context.Context, sessionID uuid.UUID) ([]BoundaryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, trigger_kind, at, ended_task_id, started_task_id
		FROM boundary_events WHERE session_id = ? ORDER BY id`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("load boundaries: %w", err)
	}
	defer rows.Close()

	var records []BoundaryRecord
	for rows.Next() {
		var kind, trigger, at string
		var endedID, startedID sql.NullString
		if err := rows.Scan(&kind, &trigger, &at, &endedID, &startedID); err != nil {
			return nil, fmt.Errorf("load boundaries: %w", err)
		}

		record := BoundaryRecord{
			SessionID: sessionID,
			Type:      detect.BoundaryType(kind),
			Trigger:   detect.Trigger(trigger),
		}
		if record.At, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("load boundaries: parse at: %w", err)
		}
		if record.EndedTaskID, err = parseUUIDPtr(endedID); err != nil {
			return nil, fmt.Errorf("load boundaries: parse ended_task_id: %w", err)
		}
		if record.StartedTaskID, err = parseUUIDPtr(startedID); err != nil {
			return nil, fmt.Errorf("load boundaries: parse started_task_id: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func uuidPtrString(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func parseUUIDPtr(raw sql.NullString) (*uuid.UUID, error) {
	if !raw.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(raw.String)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
