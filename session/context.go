// Package session owns the bookkeeping around one observation session: it
// wires a detector to the event router, assembles context snapshots for
// completion prompts, persists the evolving timeline, and runs the
// end-of-session merge and naming passes.
package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/scribeworks/scribe/activity"
	"github.com/scribeworks/scribe/detect"
	"github.com/scribeworks/scribe/memory"
)

// contextRecentLimit caps how many recent app names and window titles the
// assembled context carries.
const contextRecentLimit = 10

// ContextAssembler builds the read-only context snapshot the detector's
// completion prompts consult: the current task theory, recently seen
// applications and titles, and the user's role summary from the profile
// store.
type ContextAssembler struct {
	detector *detect.Detector
	store    *memory.Store
	log      *slog.Logger
}

var _ activity.ContextProvider = (*ContextAssembler)(nil)

func NewContextAssembler(detector *detect.Detector, store *memory.Store, log *slog.Logger) *ContextAssembler {
	if log == nil {
		log = slog.Default()
	}
	return &ContextAssembler{
		detector: detector,
		store:    store,
		log:      log,
	}
}

func (a *ContextAssembler) Assemble(ctx context.Context, sessionID uuid.UUID) (*activity.AssembledContext, error) {
	assembled := &activity.AssembledContext{}

	if current := a.detector.CurrentTask(); current != nil && current.Named() {
		assembled.TaskTheory = current.Name
	}

	for _, task := range a.detector.Tasks() {
		for _, segment := range task.Segments {
			assembled.RecentApps = appendBounded(assembled.RecentApps, segment.App, contextRecentLimit)
			if segment.WindowTitle != "" {
				assembled.RecentTitles = appendBounded(assembled.RecentTitles, segment.WindowTitle, contextRecentLimit)
			}
		}
	}

	if a.store != nil {
		role, err := a.store.GetProfile(ctx, memory.ProfileKeyRoleSummary)
		if err != nil {
			a.log.Warn("failed to load role summary for context", "error", err)
		} else {
			assembled.RoleSummary = role
		}
	}

	return assembled, nil
}

// appendBounded appends value keeping the slice deduplicated and capped at
// limit, dropping the oldest entries first.
func appendBounded(values []string, value string, limit int) []string {
	for i, existing := range values {
		if existing == value {
			return append(append(values[:i], values[i+1:]...), value)
		}
	}
	values = append(values, value)
	if len(values) > limit {
		values = values[len(values)-limit:]
	}
	return values
}
