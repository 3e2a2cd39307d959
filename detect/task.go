// Package detect implements the task boundary detection engine: it consumes
// the capture layer's screenshot and app-switch stream, decides when one unit
// of work ends and another begins, and maintains the per-session task
// timeline. Naming and merge logic for detected tasks lives here too.
package detect

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlaceholderName is the sentinel name a task carries until naming runs or
// the user supplies one.
const PlaceholderName = "Unnamed Task"

type TaskStatus string

const (
	TaskStatusActive      TaskStatus = "active"
	TaskStatusCompleted   TaskStatus = "completed"
	TaskStatusInterrupted TaskStatus = "interrupted"
)

// AppSegment is a contiguous span of time spent in one application during one
// task. The window title is refreshed in place while the segment is open.
type AppSegment struct {
	App         string
	WindowTitle string
	StartTime   time.Time
	EndTime     *time.Time
	Duration    time.Duration
}

// Open reports whether the segment has not been closed yet.
func (s *AppSegment) Open() bool {
	return s.EndTime == nil
}

func (s *AppSegment) close(at time.Time) {
	end := at
	s.EndTime = &end
	s.Duration = end.Sub(s.StartTime)
}

// Task is a detected unit of user work composed of ordered app segments.
type Task struct {
	ID              uuid.UUID
	SessionID       uuid.UUID
	Name            string
	StartTime       time.Time
	EndTime         *time.Time
	Duration        time.Duration
	Status          TaskStatus
	Segments        []AppSegment
	ScreenshotIDs   []uuid.UUID
	UserExplanation string
}

func newTask(sessionID uuid.UUID, start time.Time) *Task {
	return &Task{
		ID:        uuid.Must(uuid.NewV7()),
		SessionID: sessionID,
		Name:      PlaceholderName,
		StartTime: start,
		Status:    TaskStatusActive,
	}
}

// Apps returns the distinct application names used by the task, in first-use
// order.
func (t *Task) Apps() []string {
	seen := make(map[string]struct{}, len(t.Segments))
	apps := make([]string, 0, len(t.Segments))
	for _, segment := range t.Segments {
		if _, ok := seen[segment.App]; ok {
			continue
		}
		seen[segment.App] = struct{}{}
		apps = append(apps, segment.App)
	}
	return apps
}

// UsedApp reports whether any of the task's segments ran the application.
// Application names compare case-insensitively, like everywhere else in the
// engine.
func (t *Task) UsedApp(app string) bool {
	for _, segment := range t.Segments {
		if strings.EqualFold(segment.App, app) {
			return true
		}
	}
	return false
}

// Titles returns the distinct non-empty window titles seen by the task, in
// first-seen order, up to limit (no limit when limit <= 0).
func (t *Task) Titles(limit int) []string {
	seen := make(map[string]struct{}, len(t.Segments))
	titles := make([]string, 0, len(t.Segments))
	for _, segment := range t.Segments {
		if segment.WindowTitle == "" {
			continue
		}
		if _, ok := seen[segment.WindowTitle]; ok {
			continue
		}
		seen[segment.WindowTitle] = struct{}{}
		titles = append(titles, segment.WindowTitle)
		if limit > 0 && len(titles) == limit {
			break
		}
	}
	return titles
}

// Elapsed is the wall-clock span of the task, measured to now for an active
// task. It is independent of how much of the span was idle. For a merged task
// the stored Duration is additive instead; see MergeTasks.
func (t *Task) Elapsed(now time.Time) time.Duration {
	if t.EndTime != nil {
		return t.EndTime.Sub(t.StartTime)
	}
	return now.Sub(t.StartTime)
}

// Named reports whether the task still carries the placeholder name.
func (t *Task) Named() bool {
	return t.Name != PlaceholderName
}

// Snapshot returns a deep copy of the task. Events hand tasks to external
// consumers as snapshots, never as shared mutable references.
func (t *Task) Snapshot() *Task {
	if t == nil {
		return nil
	}

	clone := *t
	if t.EndTime != nil {
		end := *t.EndTime
		clone.EndTime = &end
	}

	clone.Segments = make([]AppSegment, len(t.Segments))
	for i, segment := range t.Segments {
		clone.Segments[i] = segment
		if segment.EndTime != nil {
			end := *segment.EndTime
			clone.Segments[i].EndTime = &end
		}
	}

	clone.ScreenshotIDs = make([]uuid.UUID, len(t.ScreenshotIDs))
	copy(clone.ScreenshotIDs, t.ScreenshotIDs)

	return &clone
}
