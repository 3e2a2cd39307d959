package event

import (
	"github.com/google/uuid"

	"github.com/scribeworks/scribe/detect"
)

// DetectorSink adapts a Router into the detector's notification sink,
// translating each lifecycle notification into a routed StreamEvent.
type DetectorSink struct {
	router    *Router
	sessionID uuid.UUID
}

var _ detect.Sink = (*DetectorSink)(nil)

func NewDetectorSink(router *Router, sessionID uuid.UUID) *DetectorSink {
	return &DetectorSink{
		router:    router,
		sessionID: sessionID,
	}
}

func (s *DetectorSink) Notify(n detect.Notification) {
	switch n := n.(type) {
	case detect.TaskStarted:
		s.router.Publish(NewTaskStartedEvent(s.sessionID, n.Task, n.Trigger))
	case detect.TaskEnded:
		s.router.Publish(NewTaskEndedEvent(s.sessionID, n.Task, n.Trigger))
	case detect.TaskSwitched:
		s.router.Publish(NewTaskSwitchedEvent(s.sessionID, n.Ended, n.Started, n.Trigger))
	case detect.TaskInterrupted:
		s.router.Publish(NewTaskInterruptedEvent(s.sessionID, n.Task))
	case detect.TaskResumed:
		s.router.Publish(NewTaskResumedEvent(s.sessionID, n.Task))
	case detect.TaskNamed:
		s.router.Publish(NewTaskNamedEvent(s.sessionID, n.Task))
	case detect.TaskMerged:
		s.router.Publish(NewTaskMergedEvent(s.sessionID, n.First, n.Second, n.Merged))
	case detect.BoundaryRecorded:
		s.router.Publish(NewTaskBoundaryEvent(s.sessionID, n.Event))
	case detect.ClarificationNeeded:
		s.router.Publish(NewSessionQuestionEvent(s.sessionID, n.Question))
	case detect.InputWarning:
		s.router.Publish(NewDetectorWarningEvent(s.sessionID, n.Message))
	}
}
