package activity

import (
	"context"

	"github.com/google/uuid"
)

// AssembledContext is the read-only snapshot of what the system currently
// believes about the user, consulted when building completion prompts. The
// detector reads it; it never writes back.
type AssembledContext struct {
	// TaskTheory is the current working theory of what the user is doing,
	// usually the name of the active task.
	TaskTheory string

	// RecentApps lists application names seen recently, most recent last.
	RecentApps []string

	// RecentTitles lists window titles seen recently, most recent last.
	RecentTitles []string

	// RoleSummary describes the user's role and typical work, from their
	// baseline profile.
	RoleSummary string
}

// ContextProvider assembles the context snapshot for a session on demand.
type ContextProvider interface {
	Assemble(ctx context.Context, sessionID uuid.UUID) (*AssembledContext, error)
}
