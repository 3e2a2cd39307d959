package detect

import "errors"

// These errors flag caller-contract violations in session bookkeeping code.
// Unlike malformed input or completion-service failures, they cross the
// detector's API boundary so the caller can decide on session-level recovery.
var (
	ErrNotInitialized = errors.New("detector has not been initialized for a session")
	ErrNoActiveTask   = errors.New("no task is currently active")
	ErrTaskNotEnded   = errors.New("task has no end time")
	ErrNotAdjacent    = errors.New("tasks are not adjacent in time")
)
