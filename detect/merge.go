package detect

import (
	"time"
)

// maxMergeGap is the largest pause between two tasks that still counts as
// over-segmentation rather than genuinely separate work.
const maxMergeGap = 2 * time.Minute

// ShouldMergeTasks reports whether two adjacent short tasks (first strictly
// precedes second) are over-segmentation noise: both ended, close together,
// sharing at least one application, and each shorter than minDuration. The
// check is intentionally order-sensitive.
func ShouldMergeTasks(first, second *Task, minDuration time.Duration) bool {
	if first.EndTime == nil || second.EndTime == nil {
		return false
	}

	gap := second.StartTime.Sub(*first.EndTime)
	if gap < 0 || gap > maxMergeGap {
		return false
	}

	if !sharesApp(first, second) {
		return false
	}

	return first.Duration < minDuration && second.Duration < minDuration
}

// MergeTasks collapses second into first: the merged task keeps first's
// identity (id, start time, name, user explanation) and takes second's end
// time and status. The merged duration is the sum of both durations, not the
// wall-clock span; any idle time between the two is deliberately not counted
// as effort. Segment and screenshot lists are concatenated in original order.
//
// Both tasks must be ended and first must precede second, otherwise the
// bookkeeping code calling this has a bug and gets an error.
func MergeTasks(first, second *Task) (*Task, error) {
	if first.EndTime == nil || second.EndTime == nil {
		return nil, ErrTaskNotEnded
	}
	if second.StartTime.Before(*first.EndTime) {
		return nil, ErrNotAdjacent
	}

	merged := first.Snapshot()
	end := *second.EndTime
	merged.EndTime = &end
	merged.Status = second.Status
	merged.Duration = first.Duration + second.Duration
	merged.Segments = append(merged.Segments, second.Snapshot().Segments...)
	merged.ScreenshotIDs = append(merged.ScreenshotIDs, second.ScreenshotIDs...)

	return merged, nil
}

// CollapseTasks runs the merge heuristic over an ordered task list, folding
// runs of adjacent mergeable tasks left to right. Each merge replaces the
// earlier task in place and drops the later one; a notification is published
// per merge. Returns the collapsed list.
func CollapseTasks(tasks []*Task, minDuration time.Duration, sink Sink) ([]*Task, error) {
	if sink == nil {
		sink = nopSink{}
	}

	collapsed := make([]*Task, 0, len(tasks))
	for _, task := range tasks {
		if len(collapsed) > 0 {
			last := collapsed[len(collapsed)-1]
			if ShouldMergeTasks(last, task, minDuration) {
				merged, err := MergeTasks(last, task)
				if err != nil {
					return nil, err
				}
				collapsed[len(collapsed)-1] = merged
				sink.Notify(TaskMerged{First: last.Snapshot(), Second: task.Snapshot(), Merged: merged.Snapshot()})
				continue
			}
		}
		collapsed = append(collapsed, task)
	}

	return collapsed, nil
}

func sharesApp(first, second *Task) bool {
	for _, app := range first.Apps() {
		if second.UsedApp(app) {
			return true
		}
	}
	return false
}
