package analytics

import (
	"github.com/posthog/posthog-go"
)

// Client aliases the posthog client so callers can hold one without
// importing the SDK. A nil client disables all emission.
type Client = posthog.Client

func EmitSessionStarted(client Client, sessionID string) {
	if client == nil {
		return
	}
	client.Enqueue(posthog.Capture{
		DistinctId: "user",
		Event:      "session_started",
		Properties: map[string]interface{}{
			"session_id": sessionID,
		},
	})
}

func EmitSessionEnded(client Client, sessionID string, taskCount int) {
	if client == nil {
		return
	}
	client.Enqueue(posthog.Capture{
		DistinctId: "user",
		Event:      "session_ended",
		Properties: map[string]interface{}{
			"session_id": sessionID,
			"task_count": taskCount,
		},
	})
}

func EmitTaskDetected(client Client, sessionID string, taskID string, trigger string) {
	if client == nil {
		return
	}
	client.Enqueue(posthog.Capture{
		DistinctId: "user",
		Event:      "task_detected",
		Properties: map[string]interface{}{
			"session_id": sessionID,
			"task_id":    taskID,
			"trigger":    trigger,
		},
	})
}

func EmitTasksMerged(client Client, sessionID string, mergedTaskID string) {
	if client == nil {
		return
	}
	client.Enqueue(posthog.Capture{
		DistinctId: "user",
		Event:      "tasks_merged",
		Properties: map[string]interface{}{
			"session_id":     sessionID,
			"merged_task_id": mergedTaskID,
		},
	})
}

func EmitTimelineExported(client Client, sessionID string, format string, taskCount int) {
	if client == nil {
		return
	}
	client.Enqueue(posthog.Capture{
		DistinctId: "user",
		Event:      "timeline_exported",
		Properties: map[string]interface{}{
			"session_id": sessionID,
			"format":     format,
			"task_count": taskCount,
		},
	})
}
