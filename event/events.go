// Package event is the detector's outbound surface: typed lifecycle events
// routed to whoever subscribes (session bookkeeping, storage, UI). The
// detector has no knowledge of its listeners.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/scribeworks/scribe/detect"
)

// Event type constants
const (
	TypeTaskStarted     = "task.started"
	TypeTaskEnded       = "task.ended"
	TypeTaskSwitched    = "task.switched"
	TypeTaskInterrupted = "task.interrupted"
	TypeTaskResumed     = "task.resumed"
	TypeTaskMerged      = "task.merged"
	TypeTaskNamed       = "task.named"
	TypeTaskBoundary    = "task.boundary"

	TypeSessionQuestion = "session.question"
	TypeDetectorWarning = "detector.warning"
)

// StreamEvent is the envelope delivered to subscribers.
type StreamEvent struct {
	// Type is the event type string (e.g. "task.started", "task.boundary").
	Type string

	// Timestamp is when the event was published.
	Timestamp time.Time

	// SessionID scopes the event to an observation session.
	SessionID uuid.UUID

	// TaskID is the optional task scope for filtering. Nil for events that
	// concern no single task.
	TaskID *uuid.UUID

	// Payload is the domain payload (e.g. *TaskEventPayload).
	Payload any
}

// TaskEventPayload carries the task snapshot for single-task events.
type TaskEventPayload struct {
	Task    *detect.Task
	Trigger detect.Trigger
}

// SwitchEventPayload carries both sides of a task switch.
type SwitchEventPayload struct {
	Ended   *detect.Task
	Started *detect.Task
	Trigger detect.Trigger
}

// MergeEventPayload carries the merge inputs and result.
type MergeEventPayload struct {
	First  *detect.Task
	Second *detect.Task
	Merged *detect.Task
}

// BoundaryEventPayload carries the raw boundary record.
type BoundaryEventPayload struct {
	Event detect.BoundaryEvent
}

// QuestionPayload carries a clarifying question for the user.
type QuestionPayload struct {
	Question string
}

// WarningPayload surfaces tolerated input malformations.
type WarningPayload struct {
	Message string
}

// --- constructors ---

func NewTaskStartedEvent(sessionID uuid.UUID, task *detect.Task, trigger detect.Trigger) *StreamEvent {
	return taskEvent(TypeTaskStarted, sessionID, task, trigger)
}

func NewTaskEndedEvent(sessionID uuid.UUID, task *detect.Task, trigger detect.Trigger) *StreamEvent {
	return taskEvent(TypeTaskEnded, sessionID, task, trigger)
}

func NewTaskInterruptedEvent(sessionID uuid.UUID, task *detect.Task) *StreamEvent {
	return taskEvent(TypeTaskInterrupted, sessionID, task, detect.TriggerTimeGap)
}

func NewTaskResumedEvent(sessionID uuid.UUID, task *detect.Task) *StreamEvent {
	return taskEvent(TypeTaskResumed, sessionID, task, "")
}

func NewTaskNamedEvent(sessionID uuid.UUID, task *detect.Task) *StreamEvent {
	return taskEvent(TypeTaskNamed, sessionID, task, "")
}

func NewTaskSwitchedEvent(sessionID uuid.UUID, ended, started *detect.Task, trigger detect.Trigger) *StreamEvent {
	return &StreamEvent{
		Type:      TypeTaskSwitched,
		Timestamp: time.Now(),
		SessionID: sessionID,
		TaskID:    &started.ID,
		Payload: &SwitchEventPayload{
			Ended:   ended,
			Started: started,
			Trigger: trigger,
		},
	}
}

func NewTaskMergedEvent(sessionID uuid.UUID, first, second, merged *detect.Task) *StreamEvent {
	return &StreamEvent{
		Type:      TypeTaskMerged,
		Timestamp: time.Now(),
		SessionID: sessionID,
		TaskID:    &merged.ID,
		Payload: &MergeEventPayload{
			First:  first,
			Second: second,
			Merged: merged,
		},
	}
}

func NewTaskBoundaryEvent(sessionID uuid.UUID, boundary detect.BoundaryEvent) *StreamEvent {
	return &StreamEvent{
		Type:      TypeTaskBoundary,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Payload: &BoundaryEventPayload{
			Event: boundary,
		},
	}
}

func NewSessionQuestionEvent(sessionID uuid.UUID, question string) *StreamEvent {
	return &StreamEvent{
		Type:      TypeSessionQuestion,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Payload: &QuestionPayload{
			Question: question,
		},
	}
}

func NewDetectorWarningEvent(sessionID uuid.UUID, message string) *StreamEvent {
	return &StreamEvent{
		Type:      TypeDetectorWarning,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Payload: &WarningPayload{
			Message: message,
		},
	}
}

func taskEvent(eventType string, sessionID uuid.UUID, task *detect.Task, trigger detect.Trigger) *StreamEvent {
	return &StreamEvent{
		Type:      eventType,
		Timestamp: time.Now(),
		SessionID: sessionID,
		TaskID:    &task.ID,
		Payload: &TaskEventPayload{
			Task:    task,
			Trigger: trigger,
		},
	}
}
