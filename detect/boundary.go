package detect

import "time"

type BoundaryType string

const (
	BoundaryTaskStart  BoundaryType = "task_start"
	BoundaryTaskEnd    BoundaryType = "task_end"
	BoundaryTaskSwitch BoundaryType = "task_switch"
)

// Trigger tags a boundary with the signal that fired it.
type Trigger string

const (
	TriggerAppSwitch      Trigger = "app_switch"
	TriggerTimeGap        Trigger = "time_gap"
	TriggerContextChange  Trigger = "context_change"
	TriggerTimePattern    Trigger = "time_pattern"
	TriggerUserIndication Trigger = "user_indication"
)

// BoundaryEvent is an immutable record of a task lifecycle transition. It is
// a closed union: exactly one of TaskStart, TaskEnd or TaskSwitch, each
// carrying only the task references that variant has.
type BoundaryEvent interface {
	BoundaryType() BoundaryType
	OccurredAt() time.Time
	BoundaryTrigger() Trigger
}

// TaskStart records a task beginning with no predecessor ending.
type TaskStart struct {
	Timestamp time.Time
	Trigger   Trigger
	Started   *Task
}

func (e *TaskStart) BoundaryType() BoundaryType { return BoundaryTaskStart }
func (e *TaskStart) OccurredAt() time.Time      { return e.Timestamp }
func (e *TaskStart) BoundaryTrigger() Trigger   { return e.Trigger }

// TaskEnd records a task ending with no successor starting.
type TaskEnd struct {
	Timestamp time.Time
	Trigger   Trigger
	Ended     *Task
}

func (e *TaskEnd) BoundaryType() BoundaryType { return BoundaryTaskEnd }
func (e *TaskEnd) OccurredAt() time.Time      { return e.Timestamp }
func (e *TaskEnd) BoundaryTrigger() Trigger   { return e.Trigger }

// TaskSwitch records one task ending and another starting at the same moment.
type TaskSwitch struct {
	Timestamp time.Time
	Trigger   Trigger
	Ended     *Task
	Started   *Task
}

func (e *TaskSwitch) BoundaryType() BoundaryType { return BoundaryTaskSwitch }
func (e *TaskSwitch) OccurredAt() time.Time      { return e.Timestamp }
func (e *TaskSwitch) BoundaryTrigger() Trigger   { return e.Trigger }
