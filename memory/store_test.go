package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/scribe/detect"
)

var storeEpoch = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func storedTask(sessionID uuid.UUID, start time.Time, duration time.Duration) *detect.Task {
	end := start.Add(duration)
	return &detect.Task{
		ID:        uuid.Must(uuid.NewV7()),
		SessionID: sessionID,
		Name:      "Budget review",
		StartTime: start,
		EndTime:   &end,
		Duration:  duration,
		Status:    detect.TaskStatusCompleted,
		Segments: []detect.AppSegment{{
			App:         "Microsoft Excel",
			WindowTitle: "Budget.xlsx",
			StartTime:   start,
			EndTime:     &end,
			Duration:    duration,
		}},
		ScreenshotIDs: []uuid.UUID{uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())},
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := uuid.Must(uuid.NewV7())
	require.NoError(t, store.CreateSession(ctx, id, storeEpoch))

	session, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, storeEpoch, session.StartedAt)
	assert.Nil(t, session.EndedAt)

	endedAt := storeEpoch.Add(time.Hour)
	require.NoError(t, store.EndSession(ctx, id, endedAt))

	session, err = store.GetSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, session.EndedAt)
	assert.Equal(t, endedAt, *session.EndedAt)
}

func TestEndSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.EndSession(context.Background(), uuid.Must(uuid.NewV7()), storeEpoch)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGetSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSession(context.Background(), uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListSessionsOrdersByStart(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := uuid.Must(uuid.NewV7())
	second := uuid.Must(uuid.NewV7())
	require.NoError(t, store.CreateSession(ctx, second, storeEpoch.Add(time.Hour)))
	require.NoError(t, store.CreateSession(ctx, first, storeEpoch))

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first, sessions[0].ID)
	assert.Equal(t, second, sessions[1].ID)
}

func TestSaveTasksRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID := uuid.Must(uuid.NewV7())
	require.NoError(t, store.CreateSession(ctx, sessionID, storeEpoch))

	tasks := []*detect.Task{
		storedTask(sessionID, storeEpoch, 10*time.Minute),
		storedTask(sessionID, storeEpoch.Add(time.Hour), 5*time.Minute),
	}
	tasks[1].UserExplanation = "reviewing contracts"
	require.NoError(t, store.SaveTasks(ctx, sessionID, tasks))

	loaded, err := store.TasksForSession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, tasks[0].ID, loaded[0].ID)
	assert.Equal(t, tasks[0].Name, loaded[0].Name)
	assert.Equal(t, tasks[0].Status, loaded[0].Status)
	assert.Equal(t, tasks[0].StartTime, loaded[0].StartTime)
	require.NotNil(t, loaded[0].EndTime)
	assert.Equal(t, *tasks[0].EndTime, *loaded[0].EndTime)
	assert.Equal(t, tasks[0].Duration, loaded[0].Duration)
	assert.Equal(t, "reviewing contracts", loaded[1].UserExplanation)

	if diff := cmp.Diff(tasks[0].Segments, loaded[0].Segments); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, tasks[0].ScreenshotIDs, loaded[0].ScreenshotIDs)
}

func TestSaveTasksReplacesSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID := uuid.Must(uuid.NewV7())
	require.NoError(t, store.CreateSession(ctx, sessionID, storeEpoch))

	first := storedTask(sessionID, storeEpoch, 10*time.Minute)
	second := storedTask(sessionID, storeEpoch.Add(time.Hour), 5*time.Minute)

	require.NoError(t, store.SaveTasks(ctx, sessionID, []*detect.Task{first, second}))

	// A later snapshot without the second task removes it.
	first.Name = "Renamed budget work"
	require.NoError(t, store.SaveTasks(ctx, sessionID, []*detect.Task{first}))

	loaded, err := store.TasksForSession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Renamed budget work", loaded[0].Name)
}

func TestAppendBoundaryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID := uuid.Must(uuid.NewV7())
	require.NoError(t, store.CreateSession(ctx, sessionID, storeEpoch))

	started := storedTask(sessionID, storeEpoch, 10*time.Minute)
	ended := storedTask(sessionID, storeEpoch.Add(time.Hour), 5*time.Minute)

	require.NoError(t, store.AppendBoundary(ctx, sessionID, &detect.TaskStart{
		Timestamp: storeEpoch,
		Trigger:   detect.TriggerTimePattern,
		Started:   started,
	}))
	require.NoError(t, store.AppendBoundary(ctx, sessionID, &detect.TaskSwitch{
		Timestamp: storeEpoch.Add(time.Hour),
		Trigger:   detect.TriggerAppSwitch,
		Ended:     started,
		Started:   ended,
	}))

	records, err := store.BoundariesForSession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, detect.BoundaryTaskStart, records[0].Type)
	assert.Equal(t, detect.TriggerTimePattern, records[0].Trigger)
	require.NotNil(t, records[0].StartedTaskID)
	assert.Equal(t, started.ID, *records[0].StartedTaskID)
	assert.Nil(t, records[0].EndedTaskID)

	assert.Equal(t, detect.BoundaryTaskSwitch, records[1].Type)
	require.NotNil(t, records[1].EndedTaskID)
	require.NotNil(t, records[1].StartedTaskID)
	assert.Equal(t, started.ID, *records[1].EndedTaskID)
	assert.Equal(t, ended.ID, *records[1].StartedTaskID)
}

func TestQuestionsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID := uuid.Must(uuid.NewV7())
	require.NoError(t, store.CreateSession(ctx, sessionID, storeEpoch))

	id, err := store.AppendQuestion(ctx, sessionID, storeEpoch, "Are you still working on the budget?")
	require.NoError(t, err)

	questions, err := store.QuestionsForSession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Nil(t, questions[0].Answer)

	require.NoError(t, store.AnswerQuestion(ctx, id, "yes"))

	questions, err = store.QuestionsForSession(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, questions[0].Answer)
	assert.Equal(t, "yes", *questions[0].Answer)
}

func TestProfileUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	value, err := store.GetProfile(ctx, ProfileKeyRoleSummary)
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.SetProfile(ctx, ProfileKeyRoleSummary, "staff accountant"))
	require.NoError(t, store.SetProfile(ctx, ProfileKeyRoleSummary, "senior accountant"))

	value, err = store.GetProfile(ctx, ProfileKeyRoleSummary)
	require.NoError(t, err)
	assert.Equal(t, "senior accountant", value)
}
