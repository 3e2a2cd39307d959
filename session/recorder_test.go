package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/scribe/detect"
	"github.com/scribeworks/scribe/event"
	"github.com/scribeworks/scribe/memory"
)

var sessionEpoch = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func completedTask(sessionID uuid.UUID, app string, start time.Time, duration time.Duration) *detect.Task {
	end := start.Add(duration)
	return &detect.Task{
		ID:        uuid.Must(uuid.NewV7()),
		SessionID: sessionID,
		StartTime: start,
		EndTime:   &end,
		Duration:  duration,
		Status:    detect.TaskStatusCompleted,
		Segments: []detect.AppSegment{{
			App:       app,
			StartTime: start,
			EndTime:   &end,
			Duration:  duration,
		}},
	}
}

func newTestRecorder(t *testing.T) (*Recorder, *memory.Store, uuid.UUID) {
	t.Helper()
	store, err := memory.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessionID := uuid.Must(uuid.NewV7())
	require.NoError(t, store.CreateSession(context.Background(), sessionID, sessionEpoch))

	return NewRecorder(nil, store, sessionID, slog.Default()), store, sessionID
}

func TestRecorderUpsertsOnLifecycleEvents(t *testing.T) {
	recorder, store, sessionID := newTestRecorder(t)
	ctx := context.Background()

	task := completedTask(sessionID, "Microsoft Excel", sessionEpoch, 10*time.Minute)

	recorder.handle(ctx, event.NewTaskStartedEvent(sessionID, task, detect.TriggerTimePattern))

	persisted, err := store.TasksForSession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, task.ID, persisted[0].ID)

	// A later event for the same task replaces it in place.
	renamed := *task
	renamed.Name = "Budget review"
	recorder.handle(ctx, event.NewTaskNamedEvent(sessionID, &renamed))

	persisted, err = store.TasksForSession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "Budget review", persisted[0].Name)
}

func TestRecorderHandlesSwitch(t *testing.T) {
	recorder, store, sessionID := newTestRecorder(t)
	ctx := context.Background()

	ended := completedTask(sessionID, "Visual Studio Code", sessionEpoch, 10*time.Minute)
	started := completedTask(sessionID, "Microsoft Excel", sessionEpoch.Add(10*time.Minute), 5*time.Minute)

	recorder.handle(ctx, event.NewTaskSwitchedEvent(sessionID, ended, started, detect.TriggerAppSwitch))

	persisted, err := store.TasksForSession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.Equal(t, ended.ID, persisted[0].ID)
	assert.Equal(t, started.ID, persisted[1].ID)
}

func TestRecorderMergeRemovesSecondTask(t *testing.T) {
	recorder, store, sessionID := newTestRecorder(t)
	ctx := context.Background()

	first := completedTask(sessionID, "Microsoft Excel", sessionEpoch, time.Minute)
	second := completedTask(sessionID, "Microsoft Excel", sessionEpoch.Add(2*time.Minute), time.Minute)

	recorder.handle(ctx, event.NewTaskStartedEvent(sessionID, first, detect.TriggerTimePattern))
	recorder.handle(ctx, event.NewTaskStartedEvent(sessionID, second, detect.TriggerAppSwitch))

	merged, err := detect.MergeTasks(first, second)
	require.NoError(t, err)
	recorder.handle(ctx, event.NewTaskMergedEvent(sessionID, first, second, merged))

	persisted, err := store.TasksForSession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, first.ID, persisted[0].ID)
	assert.Equal(t, 2*time.Minute, persisted[0].Duration)
}

func TestRecorderPersistsBoundaries(t *testing.T) {
	recorder, store, sessionID := newTestRecorder(t)
	ctx := context.Background()

	task := completedTask(sessionID, "Microsoft Excel", sessionEpoch, 10*time.Minute)
	recorder.handle(ctx, event.NewTaskBoundaryEvent(sessionID, &detect.TaskStart{
		Timestamp: sessionEpoch,
		Trigger:   detect.TriggerTimePattern,
		Started:   task,
	}))

	records, err := store.BoundariesForSession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, detect.BoundaryTaskStart, records[0].Type)

	// Boundary events do not touch the task snapshot.
	persisted, err := store.TasksForSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestRecorderPersistsQuestions(t *testing.T) {
	recorder, store, sessionID := newTestRecorder(t)
	ctx := context.Background()

	recorder.handle(ctx, event.NewSessionQuestionEvent(sessionID, "Are you still working on the budget?"))

	questions, err := store.QuestionsForSession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "Are you still working on the budget?", questions[0].Question)
	assert.Nil(t, questions[0].Answer)
}

func TestRecorderIgnoresWarnings(t *testing.T) {
	recorder, store, sessionID := newTestRecorder(t)
	ctx := context.Background()

	recorder.handle(ctx, event.NewDetectorWarningEvent(sessionID, "empty application name"))

	persisted, err := store.TasksForSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestRecorderRunConsumesRouterStream(t *testing.T) {
	store, err := memory.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessionID := uuid.Must(uuid.NewV7())
	require.NoError(t, store.CreateSession(context.Background(), sessionID, sessionEpoch))

	router := event.NewRouter(16, nil)
	t.Cleanup(func() { router.Close() })

	recorder := NewRecorder(router, store, sessionID, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		recorder.Run(ctx)
		close(done)
	}()

	// Let the subscription register before publishing.
	time.Sleep(10 * time.Millisecond)

	task := completedTask(sessionID, "Microsoft Excel", sessionEpoch, 10*time.Minute)
	router.Publish(event.NewTaskStartedEvent(sessionID, task, detect.TriggerTimePattern))

	require.Eventually(t, func() bool {
		tasks, err := store.TasksForSession(context.Background(), sessionID)
		return err == nil && len(tasks) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recorder did not stop on context cancellation")
	}
}

func TestRecorderListenSubscribesBeforeConsuming(t *testing.T) {
	store, err := memory.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessionID := uuid.Must(uuid.NewV7())
	require.NoError(t, store.CreateSession(context.Background(), sessionID, sessionEpoch))

	router := event.NewRouter(16, nil)
	recorder := NewRecorder(router, store, sessionID, slog.Default())

	// An event published after Listen but before the consume loop runs
	// must still reach the store.
	consume := recorder.Listen(context.Background())

	task := completedTask(sessionID, "Microsoft Excel", sessionEpoch, 10*time.Minute)
	router.Publish(event.NewTaskStartedEvent(sessionID, task, detect.TriggerTimePattern))
	router.Close()

	consume()

	tasks, err := store.TasksForSession(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
}
