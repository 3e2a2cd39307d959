package detect

// Notification is the closed set of lifecycle notifications a Detector
// publishes to its sink. Task references inside notifications are snapshots;
// mutating them does not affect detector state.
type Notification interface {
	notification()
}

type TaskStarted struct {
	Task    *Task
	Trigger Trigger
}

type TaskEnded struct {
	Task    *Task
	Trigger Trigger
}

type TaskSwitched struct {
	Ended   *Task
	Started *Task
	Trigger Trigger
}

type TaskInterrupted struct {
	Task *Task
}

type TaskResumed struct {
	Task *Task
}

type TaskNamed struct {
	Task *Task
}

type TaskMerged struct {
	First  *Task
	Second *Task
	Merged *Task
}

type BoundaryRecorded struct {
	Event BoundaryEvent
}

// ClarificationNeeded is raised when the continuity check reports a context
// change below the acting-confidence threshold: enough signal to ask the
// user, not enough to cut the task.
type ClarificationNeeded struct {
	Question string
}

// InputWarning surfaces tolerated input malformations (e.g. a screenshot with
// no application name) without interrupting the pipeline.
type InputWarning struct {
	Message string
}

func (TaskStarted) notification()         {}
func (TaskEnded) notification()           {}
func (TaskSwitched) notification()        {}
func (TaskInterrupted) notification()     {}
func (TaskResumed) notification()         {}
func (TaskNamed) notification()           {}
func (TaskMerged) notification()          {}
func (BoundaryRecorded) notification()    {}
func (ClarificationNeeded) notification() {}
func (InputWarning) notification()        {}

// Sink receives detector notifications. Implementations must not block; the
// detector calls Notify synchronously on the screenshot path.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(n Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

type nopSink struct{}

func (nopSink) Notify(Notification) {}
