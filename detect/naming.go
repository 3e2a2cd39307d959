package detect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/scribeworks/scribe/activity"
	"github.com/scribeworks/scribe/model"
)

// namingTitleLimit caps how many distinct window titles go into the prompt.
const namingTitleLimit = 5

// Namer assigns human-readable names to finished tasks via the completion
// service. Calls are independent and read-only on shared state, so naming
// multiple tasks concurrently is safe.
type Namer struct {
	provider model.VisionProvider
	timeout  time.Duration
	log      *slog.Logger
	sink     Sink
}

func NewNamer(provider model.VisionProvider, timeout time.Duration, log *slog.Logger, sink Sink) *Namer {
	if log == nil {
		log = slog.Default()
	}
	if sink == nil {
		sink = nopSink{}
	}
	return &Namer{
		provider: provider,
		timeout:  timeout,
		log:      log,
		sink:     sink,
	}
}

// InferTaskName asks the completion service for a 2-5 word name. On any
// failure it falls back to "Work in {primary application}", or the
// placeholder name if the task used no applications at all. It never returns
// an error; naming failure is not a failure of the timeline.
func (n *Namer) InferTaskName(ctx context.Context, task *Task, actx *activity.AssembledContext) string {
	apps := task.Apps()

	name, err := n.requestName(ctx, task, apps, actx)
	if err != nil || name == "" {
		if err != nil {
			n.log.Warn("task naming failed, using fallback", "task_id", task.ID, "error", err)
		}
		return fallbackName(apps)
	}

	return name
}

func (n *Namer) requestName(ctx context.Context, task *Task, apps []string, actx *activity.AssembledContext) (string, error) {
	if n.provider == nil {
		return "", fmt.Errorf("no completion provider configured")
	}

	var sb strings.Builder
	sb.WriteString("Name the task a user was working on, in 2-5 words.\n")
	if len(apps) > 0 {
		fmt.Fprintf(&sb, "Applications used: %s\n", strings.Join(apps, ", "))
	}
	if titles := task.Titles(namingTitleLimit); len(titles) > 0 {
		fmt.Fprintf(&sb, "Window titles seen: %s\n", strings.Join(titles, "; "))
	}
	fmt.Fprintf(&sb, "Task duration: %d minutes\n", int(task.Duration.Minutes()))
	if actx != nil && actx.RoleSummary != "" {
		fmt.Fprintf(&sb, "The user's role: %s\n", actx.RoleSummary)
	}
	sb.WriteString("Respond with only the task name, no quotes or punctuation.")

	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	text, err := n.provider.Complete(callCtx, nil, sb.String(),
		model.WithMaxTokens(32),
		model.WithTemperature(0.5),
	)
	if err != nil {
		return "", err
	}

	name := strings.TrimSpace(strings.Trim(strings.TrimSpace(text), `"'`))
	if line, _, found := strings.Cut(name, "\n"); found {
		name = strings.TrimSpace(line)
	}
	return name, nil
}

// NameUnnamedTasks names every task still carrying the placeholder name that
// has at least one segment, publishing a notification per successful rename.
// Tasks named via explicit user indication keep their name; they no longer
// carry the placeholder.
func (n *Namer) NameUnnamedTasks(ctx context.Context, tasks []*Task, actx *activity.AssembledContext) {
	for _, task := range tasks {
		if task.Named() || len(task.Segments) == 0 {
			continue
		}

		name := n.InferTaskName(ctx, task, actx)
		if name == PlaceholderName {
			continue
		}

		task.Name = name
		n.sink.Notify(TaskNamed{Task: task.Snapshot()})

		n.log.Debug("task named", "task_id", task.ID, "name", name)
	}
}

func fallbackName(apps []string) string {
	if len(apps) == 0 {
		return PlaceholderName
	}
	return fmt.Sprintf("Work in %s", apps[0])
}
