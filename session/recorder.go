package session

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/scribeworks/scribe/detect"
	"github.com/scribeworks/scribe/event"
	"github.com/scribeworks/scribe/memory"
)

// Recorder subscribes to one session's event stream and mirrors the evolving
// timeline into the store so a crash mid-session loses at most the current
// task's open segment.
type Recorder struct {
	log       *slog.Logger
	store     *memory.Store
	router    *event.Router
	sessionID uuid.UUID

	// ordered live view of the session's tasks, keyed by position
	tasks []*detect.Task
}

func NewRecorder(router *event.Router, store *memory.Store, sessionID uuid.UUID, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		log:       log,
		store:     store,
		router:    router,
		sessionID: sessionID,
	}
}

// Listen subscribes to the session's stream immediately and returns the
// consume loop. Subscribe before starting producers, otherwise their first
// events are published to nobody; then call the returned function, which
// drains the stream until the context is cancelled or the router closes.
func (r *Recorder) Listen(ctx context.Context) func() {
	events, cancel := r.router.Subscribe(ctx, event.SubscribeOptions{
		SessionID: r.sessionID,
	})
	return func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				r.handle(ctx, evt)
			}
		}
	}
}

// Run subscribes and consumes in a single call.
func (r *Recorder) Run(ctx context.Context) {
	r.Listen(ctx)()
}

func (r *Recorder) handle(ctx context.Context, evt *event.StreamEvent) {
	switch evt.Type {
	case event.TypeTaskStarted, event.TypeTaskResumed,
		event.TypeTaskEnded, event.TypeTaskInterrupted, event.TypeTaskNamed:
		if p, ok := evt.Payload.(*event.TaskEventPayload); ok {
			r.upsert(p.Task)
		}
	case event.TypeTaskSwitched:
		if p, ok := evt.Payload.(*event.SwitchEventPayload); ok {
			r.upsert(p.Ended)
			r.upsert(p.Started)
		}
	case event.TypeTaskMerged:
		if p, ok := evt.Payload.(*event.MergeEventPayload); ok {
			r.remove(p.Second.ID)
			r.upsert(p.Merged)
		}
	case event.TypeTaskBoundary:
		if p, ok := evt.Payload.(*event.BoundaryEventPayload); ok {
			r.appendBoundary(ctx, p.Event)
		}
		return
	case event.TypeSessionQuestion:
		if p, ok := evt.Payload.(*event.QuestionPayload); ok {
			r.appendQuestion(ctx, evt.Timestamp, p.Question)
		}
		return
	default:
		return
	}
	r.flush(ctx)
}

// Tasks returns the recorder's current ordered view.
func (r *Recorder) Tasks() []*detect.Task {
	out := make([]*detect.Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

func (r *Recorder) upsert(task *detect.Task) {
	if task == nil {
		return
	}
	for i, existing := range r.tasks {
		if existing.ID == task.ID {
			r.tasks[i] = task
			return
		}
	}
	r.tasks = append(r.tasks, task)
}

func (r *Recorder) remove(id uuid.UUID) {
	r.tasks = slices.DeleteFunc(r.tasks, func(t *detect.Task) bool {
		return t.ID == id
	})
}

func (r *Recorder) flush(ctx context.Context) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveTasks(ctx, r.sessionID, r.tasks); err != nil {
		r.log.Error("failed to persist task snapshot",
			"session_id", r.sessionID,
			"error", err,
		)
	}
}

func (r *Recorder) appendQuestion(ctx context.Context, askedAt time.Time, question string) {
	if r.store == nil || question == "" {
		return
	}
	if _, err := r.store.AppendQuestion(ctx, r.sessionID, askedAt, question); err != nil {
		r.log.Error("failed to persist clarifying question",
			"session_id", r.sessionID,
			"error", err,
		)
	}
}

func (r *Recorder) appendBoundary(ctx context.Context, evt detect.BoundaryEvent) {
	if r.store == nil || evt == nil {
		return
	}
	if err := r.store.AppendBoundary(ctx, r.sessionID, evt); err != nil {
		r.log.Error("failed to persist boundary event",
			"session_id", r.sessionID,
			"error", err,
		)
	}
}
