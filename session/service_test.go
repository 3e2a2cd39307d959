package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/scribe/activity"
	"github.com/scribeworks/scribe/detect"
	"github.com/scribeworks/scribe/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store, err := memory.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewService(ServiceOptions{Store: store}), store
}

func serviceShot(app, title string, at time.Time) activity.Screenshot {
	return activity.Screenshot{
		ID:                uuid.Must(uuid.NewV7()),
		Timestamp:         at,
		ActiveApplication: app,
		WindowTitle:       title,
	}
}

func TestServiceLifecycle(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx))
	assert.Error(t, svc.Start(ctx), "double start must be rejected")

	session, err := store.GetSession(ctx, svc.SessionID())
	require.NoError(t, err)
	assert.Nil(t, session.EndedAt)

	_, err = svc.HandleScreenshot(ctx, serviceShot("Visual Studio Code", "main.go", sessionEpoch))
	require.NoError(t, err)
	_, err = svc.HandleScreenshot(ctx, serviceShot("Visual Studio Code", "detector.go", sessionEpoch.Add(4*time.Minute)))
	require.NoError(t, err)

	tasks, err := svc.End(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 4*time.Minute, tasks[0].Duration)

	persisted, err := store.TasksForSession(ctx, svc.SessionID())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, tasks[0].ID, persisted[0].ID)

	session, err = store.GetSession(ctx, svc.SessionID())
	require.NoError(t, err)
	assert.NotNil(t, session.EndedAt)
}

func TestServiceEndProducesConsistentTimeline(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Start(ctx))

	// Two Excel bursts split by a trip to Mail produce three tasks, all of
	// them closed and internally consistent after the end-of-session pass.
	_, err := svc.HandleScreenshot(ctx, serviceShot("Microsoft Excel", "Budget.xlsx", sessionEpoch))
	require.NoError(t, err)
	_, err = svc.HandleScreenshot(ctx, serviceShot("Microsoft Excel", "Budget.xlsx", sessionEpoch.Add(50*time.Second)))
	require.NoError(t, err)
	_, err = svc.HandleScreenshot(ctx, serviceShot("Mail", "Inbox", sessionEpoch.Add(60*time.Second)))
	require.NoError(t, err)
	_, err = svc.HandleScreenshot(ctx, serviceShot("Microsoft Excel", "Budget.xlsx", sessionEpoch.Add(80*time.Second)))
	require.NoError(t, err)
	_, err = svc.HandleScreenshot(ctx, serviceShot("Microsoft Excel", "Budget.xlsx", sessionEpoch.Add(130*time.Second)))
	require.NoError(t, err)

	tasks, err := svc.End(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	for _, task := range tasks {
		assert.NotEmpty(t, task.Segments)
		require.NotNil(t, task.EndTime)
		assert.False(t, task.EndTime.Before(task.StartTime))
	}
}

func TestServiceIndicateTask(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Start(context.Background()))

	task, err := svc.IndicateTask("quarterly budget review")
	require.NoError(t, err)
	assert.Equal(t, "quarterly budget review", task.Name)
	assert.Equal(t, "quarterly budget review", task.UserExplanation)
}

func TestServiceUpdateConfig(t *testing.T) {
	svc, _ := newTestService(t)

	before := svc.Config()
	svc.UpdateConfig(detect.Config{IdleThreshold: 10 * time.Minute})

	after := svc.Config()
	assert.Equal(t, 10*time.Minute, after.IdleThreshold)
	assert.Equal(t, before.MinTaskDuration, after.MinTaskDuration)
}
