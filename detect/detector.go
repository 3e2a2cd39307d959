package detect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scribeworks/scribe/activity"
)

// recentWindowSize is how many screenshots the detector remembers for the
// context-change check.
const recentWindowSize = 5

// Detector converts one session's screenshot/app-switch stream into a task
// timeline. It owns the current task and the session's task list exclusively;
// callers must deliver events sequentially and never invoke it concurrently
// for the same session. Multiple sessions get independent Detector instances.
type Detector struct {
	log     *slog.Logger
	sink    Sink
	pairs   *PairTable
	checker ContextChecker
	now     func() time.Time

	initialized  bool
	sessionID    uuid.UUID
	cfg          Config
	current      *Task
	openSeg      *AppSegment
	tasks        []*Task
	lastActivity time.Time
	lastShot     *activity.Screenshot
	recent       []activity.Screenshot
}

type DetectorOption func(*Detector)

func WithLogger(log *slog.Logger) DetectorOption {
	return func(d *Detector) {
		d.log = log
	}
}

// WithSink sets the notification sink lifecycle events are published to.
func WithSink(sink Sink) DetectorOption {
	return func(d *Detector) {
		d.sink = sink
	}
}

// WithPairs replaces the default same-task pair table.
func WithPairs(pairs *PairTable) DetectorOption {
	return func(d *Detector) {
		d.pairs = pairs
	}
}

// WithContextChecker enables the LLM-assisted same-application context-change
// check. Without a checker the detector relies on app switches and idle gaps
// alone.
func WithContextChecker(checker ContextChecker) DetectorOption {
	return func(d *Detector) {
		d.checker = checker
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) DetectorOption {
	return func(d *Detector) {
		d.now = now
	}
}

func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		log:   slog.Default(),
		sink:  nopSink{},
		pairs: DefaultSameTaskPairs(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init resets all state and binds the detector to a session. It must be
// called exactly once per observation session before any screenshot is
// processed. Non-zero fields of overrides replace the defaults.
func (d *Detector) Init(sessionID uuid.UUID, overrides *Config) {
	d.initialized = true
	d.sessionID = sessionID
	d.cfg = DefaultConfig().merged(overrides)
	d.current = nil
	d.openSeg = nil
	d.tasks = nil
	d.lastActivity = time.Time{}
	d.lastShot = nil
	d.recent = nil
}

// Config returns the current detection parameters.
func (d *Detector) Config() Config {
	return d.cfg
}

// UpdateConfig applies the non-zero fields of partial. The change takes
// effect on the next processed event, not retroactively.
func (d *Detector) UpdateConfig(partial Config) {
	d.cfg = d.cfg.merged(&partial)
}

// SessionID returns the session the detector is bound to.
func (d *Detector) SessionID() uuid.UUID {
	return d.sessionID
}

// CurrentTask returns a snapshot of the active task, or nil.
func (d *Detector) CurrentTask() *Task {
	return d.current.Snapshot()
}

// Tasks returns a snapshot of the session's task list so far.
func (d *Detector) Tasks() []*Task {
	return d.snapshotTasks()
}

// ProcessScreenshot feeds one screenshot through boundary detection. It
// returns the boundary event the screenshot produced, or nil. Malformed input
// degrades to "no boundary detected" and surfaces a warning notification;
// only the uninitialized-detector contract violation is returned as an error.
func (d *Detector) ProcessScreenshot(ctx context.Context, shot activity.Screenshot, actx *activity.AssembledContext) (BoundaryEvent, error) {
	if !d.initialized {
		return nil, ErrNotInitialized
	}

	d.lastActivity = d.now()

	app := shot.ActiveApplication
	if app == "" {
		d.log.Warn("screenshot has no application name, treating as empty", "screenshot_id", shot.ID)
		d.notify(InputWarning{Message: "screenshot has no application name"})
	}

	prev := d.lastShot

	// An idle gap is resolved before the screenshot is attributed to any
	// task: the old task is interrupted as of the last screenshot before the
	// gap, and this screenshot opens a fresh work period.
	var idleEnd *TaskEnd
	if d.current != nil && prev != nil && shot.Timestamp.Sub(prev.Timestamp) >= d.cfg.IdleThreshold {
		ended := d.interruptCurrent(prev.Timestamp)
		idleEnd = &TaskEnd{Timestamp: shot.Timestamp, Trigger: TriggerTimeGap, Ended: ended}
		d.recordBoundary(idleEnd)
		d.recent = nil
		d.startTask(shot, TriggerTimeGap)
	}

	if d.current == nil {
		last := d.lastRecordedTask()
		switch {
		case last != nil && last.Status == TaskStatusInterrupted && last.UsedApp(app):
			d.resumeTask(last, shot)
		case last != nil && last.Status == TaskStatusInterrupted:
			d.startTask(shot, TriggerTimeGap)
		default:
			d.startTask(shot, TriggerTimePattern)
		}
	}

	d.current.ScreenshotIDs = append(d.current.ScreenshotIDs, shot.ID)
	d.recent = append(d.recent, shot)
	if len(d.recent) > recentWindowSize {
		d.recent = d.recent[1:]
	}

	var result BoundaryEvent
	if idleEnd != nil {
		result = idleEnd
	} else {
		result = d.detectSwitch(ctx, prev, shot, actx)
	}

	d.lastShot = &shot
	return result, nil
}

// detectSwitch runs the app-switch and context-change checks for a screenshot
// that did not follow an idle gap.
func (d *Detector) detectSwitch(ctx context.Context, prev *activity.Screenshot, shot activity.Screenshot, actx *activity.AssembledContext) BoundaryEvent {
	app := shot.ActiveApplication

	if d.openSeg == nil {
		d.openSegment(shot)
		return nil
	}

	if !strings.EqualFold(d.openSeg.App, app) {
		if prev != nil && d.appSwitchSignificant(prev.ActiveApplication, app, shot.Timestamp.Sub(prev.Timestamp)) {
			return d.switchTask(shot, TriggerAppSwitch)
		}
		// A brief excursion or an unconfirmed switch stays inside the task.
		d.rollSegment(shot)
		return nil
	}

	d.openSeg.WindowTitle = shot.WindowTitle

	// The completion call is only worth its cost once the user has settled
	// into one application.
	if d.checker != nil && d.sameAppRun() >= contextCheckMinRun {
		signal, ok := d.checker.Check(ctx, d.sameAppWindow(), actx)
		if ok && !signal.SameTask {
			if signal.Confidence >= ContextChangeConfidence {
				d.log.Info("model detected context change within application",
					"app", app,
					"confidence", signal.Confidence,
					"reason", signal.Reason,
				)
				return d.switchTask(shot, TriggerContextChange)
			}
			d.notify(ClarificationNeeded{Question: clarifyingQuestion(app, actx)})
		}
	}

	return nil
}

// appSwitchSignificant decides whether moving between the two applications,
// observed this far apart, ends the current task. The same-task pair table is
// consulted before anything else.
func (d *Detector) appSwitchSignificant(from, to string, elapsed time.Duration) bool {
	if d.pairs.SameTask(from, to) {
		return false
	}
	if elapsed < d.cfg.AppSwitchDebounce {
		return false
	}
	if IsNewTaskIndicator(to) {
		d.log.Debug("switch into communication application", "app", to)
	}
	return true
}

// DetectBoundary runs the boundary detection algorithm over a screenshot
// window, usable standalone by callers that batch screenshots. Unlike
// ProcessScreenshot it does not attribute screenshots to tasks: an idle gap
// interrupts the current task and leaves the current-task pointer cleared for
// the next screenshot to resume or restart.
func (d *Detector) DetectBoundary(ctx context.Context, window []activity.Screenshot, actx *activity.AssembledContext) (BoundaryEvent, error) {
	if !d.initialized {
		return nil, ErrNotInitialized
	}
	if len(window) < 2 {
		return nil, nil
	}

	prev := window[len(window)-2]
	cur := window[len(window)-1]

	if gap := cur.Timestamp.Sub(prev.Timestamp); gap >= d.cfg.IdleThreshold {
		if d.current == nil {
			return nil, nil
		}
		ended := d.interruptCurrent(prev.Timestamp)
		d.recent = nil
		evt := &TaskEnd{Timestamp: cur.Timestamp, Trigger: TriggerTimeGap, Ended: ended}
		d.recordBoundary(evt)
		return evt, nil
	}

	if d.current == nil {
		return nil, nil
	}

	if !strings.EqualFold(prev.ActiveApplication, cur.ActiveApplication) {
		if d.appSwitchSignificant(prev.ActiveApplication, cur.ActiveApplication, cur.Timestamp.Sub(prev.Timestamp)) {
			return d.switchTask(cur, TriggerAppSwitch), nil
		}
		return nil, nil
	}

	if d.checker != nil && sameAppTail(window) >= contextCheckMinRun {
		signal, ok := d.checker.Check(ctx, window, actx)
		if ok && !signal.SameTask && signal.Confidence >= ContextChangeConfidence {
			return d.switchTask(cur, TriggerContextChange), nil
		}
	}

	return nil, nil
}

// HandleAppSwitch reacts to the capture layer's own app-switch detection. The
// capture layer has already confirmed the switch persisted, so no debounce
// applies; the same-task pair exclusion still does.
func (d *Detector) HandleAppSwitch(ctx context.Context, event activity.AppSwitchEvent, actx *activity.AssembledContext) (BoundaryEvent, error) {
	if !d.initialized {
		return nil, ErrNotInitialized
	}

	d.lastActivity = d.now()

	at := event.Previous.EndTime
	if at.IsZero() {
		at = d.now()
	}

	if d.current == nil {
		shot := activity.Screenshot{
			SessionID:         d.sessionID,
			Timestamp:         at,
			ActiveApplication: event.Current.App,
			WindowTitle:       event.Current.Title,
		}
		d.startTask(shot, TriggerAppSwitch)
		return nil, nil
	}

	if d.openSeg != nil && strings.EqualFold(d.openSeg.App, event.Current.App) {
		d.openSeg.WindowTitle = event.Current.Title
		return nil, nil
	}

	shot := activity.Screenshot{
		SessionID:         d.sessionID,
		Timestamp:         at,
		ActiveApplication: event.Current.App,
		WindowTitle:       event.Current.Title,
	}

	if d.pairs.SameTask(event.Previous.App, event.Current.App) {
		d.rollSegment(shot)
		return nil, nil
	}

	if IsNewTaskIndicator(event.Current.App) {
		d.log.Debug("switch into communication application", "app", event.Current.App)
	}

	return d.switchTask(shot, TriggerAppSwitch), nil
}

// HandleUserTaskIndication is the explicit user override: the supplied
// description becomes the new task's name and explanation immediately, and
// automatic naming never overwrites it. Returns a snapshot of the new task.
func (d *Detector) HandleUserTaskIndication(description string) (*Task, error) {
	if !d.initialized {
		return nil, ErrNotInitialized
	}

	at := d.now()

	if d.current != nil {
		ended := d.endCurrent(at, TaskStatusCompleted)
		started := d.beginTask(at)
		started.Name = description
		started.UserExplanation = description

		evt := &TaskSwitch{Timestamp: at, Trigger: TriggerUserIndication, Ended: ended.Snapshot(), Started: started.Snapshot()}
		d.recordBoundary(evt)
		d.notify(TaskSwitched{Ended: ended.Snapshot(), Started: started.Snapshot(), Trigger: TriggerUserIndication})
		return started.Snapshot(), nil
	}

	started := d.beginTask(at)
	started.Name = description
	started.UserExplanation = description

	d.recordBoundary(&TaskStart{Timestamp: at, Trigger: TriggerUserIndication, Started: started.Snapshot()})
	d.notify(TaskStarted{Task: started.Snapshot(), Trigger: TriggerUserIndication})
	return started.Snapshot(), nil
}

// EndSession ends any active task, returns a snapshot of the session's task
// list, and clears all internal state. Calling it with no current task simply
// returns the accumulated list.
func (d *Detector) EndSession() []*Task {
	if d.current != nil {
		at := d.now()
		if d.lastShot != nil && d.lastShot.Timestamp.After(d.current.StartTime) {
			at = d.lastShot.Timestamp
		}
		ended := d.endCurrent(at, TaskStatusCompleted)
		evt := &TaskEnd{Timestamp: at, Trigger: TriggerTimePattern, Ended: ended.Snapshot()}
		d.recordBoundary(evt)
		d.notify(TaskEnded{Task: ended.Snapshot(), Trigger: TriggerTimePattern})
	}

	tasks := d.snapshotTasks()

	d.initialized = false
	d.current = nil
	d.openSeg = nil
	d.tasks = nil
	d.lastShot = nil
	d.recent = nil

	return tasks
}

// --- internal state transitions ---

// beginTask creates a task at the given time with no open segment yet.
func (d *Detector) beginTask(at time.Time) *Task {
	task := newTask(d.sessionID, at)
	d.current = task
	d.openSeg = nil
	d.tasks = append(d.tasks, task)
	return task
}

// startTask creates a task for a screenshot and publishes the start.
func (d *Detector) startTask(shot activity.Screenshot, trigger Trigger) *Task {
	task := d.beginTask(shot.Timestamp)
	d.openSegment(shot)

	d.recordBoundary(&TaskStart{Timestamp: shot.Timestamp, Trigger: trigger, Started: task.Snapshot()})
	d.notify(TaskStarted{Task: task.Snapshot(), Trigger: trigger})

	d.log.Debug("task started",
		"task_id", task.ID,
		"app", shot.ActiveApplication,
		"trigger", string(trigger),
	)
	return task
}

func (d *Detector) openSegment(shot activity.Screenshot) {
	d.openSeg = &AppSegment{
		App:         shot.ActiveApplication,
		WindowTitle: shot.WindowTitle,
		StartTime:   shot.Timestamp,
	}
}

// rollSegment closes the open segment and opens a new one for the
// screenshot's application inside the same task.
func (d *Detector) rollSegment(shot activity.Screenshot) {
	if d.openSeg != nil {
		d.openSeg.close(shot.Timestamp)
		d.current.Segments = append(d.current.Segments, *d.openSeg)
	}
	d.openSegment(shot)
}

// endCurrent closes the open segment and the current task, clears the
// current-task pointer, and returns the ended task.
func (d *Detector) endCurrent(at time.Time, status TaskStatus) *Task {
	task := d.current

	if d.openSeg != nil {
		d.openSeg.close(at)
		task.Segments = append(task.Segments, *d.openSeg)
		d.openSeg = nil
	}

	end := at
	task.EndTime = &end
	task.Duration = task.Elapsed(at)
	task.Status = status
	d.current = nil

	return task
}

// interruptCurrent ends the current task as interrupted and publishes the
// interruption. Returns a snapshot of the interrupted task.
func (d *Detector) interruptCurrent(at time.Time) *Task {
	task := d.endCurrent(at, TaskStatusInterrupted)
	snapshot := task.Snapshot()
	d.notify(TaskInterrupted{Task: snapshot})

	d.log.Debug("task interrupted by idle gap", "task_id", task.ID)
	return snapshot
}

// resumeTask reopens an interrupted task whose segment history contains the
// screenshot's application.
func (d *Detector) resumeTask(task *Task, shot activity.Screenshot) {
	task.Status = TaskStatusActive
	task.EndTime = nil
	d.current = task
	d.openSegment(shot)

	d.notify(TaskResumed{Task: task.Snapshot()})

	d.log.Debug("task resumed",
		"task_id", task.ID,
		"app", shot.ActiveApplication,
	)
}

// switchTask ends the current task and starts a new one seeded with the
// screenshot's application, publishing a single switch notification.
func (d *Detector) switchTask(shot activity.Screenshot, trigger Trigger) *TaskSwitch {
	ended := d.endCurrent(shot.Timestamp, TaskStatusCompleted)
	started := d.beginTask(shot.Timestamp)
	d.openSegment(shot)

	// The run window restarts with the new task so the context check never
	// sees screenshots from the one that just ended.
	d.recent = append(d.recent[:0], shot)

	evt := &TaskSwitch{
		Timestamp: shot.Timestamp,
		Trigger:   trigger,
		Ended:     ended.Snapshot(),
		Started:   started.Snapshot(),
	}
	d.recordBoundary(evt)
	d.notify(TaskSwitched{Ended: ended.Snapshot(), Started: started.Snapshot(), Trigger: trigger})

	d.log.Debug("task switch",
		"ended_task_id", ended.ID,
		"started_task_id", started.ID,
		"trigger", string(trigger),
	)
	return evt
}

func (d *Detector) recordBoundary(evt BoundaryEvent) {
	d.notify(BoundaryRecorded{Event: evt})
}

func (d *Detector) notify(n Notification) {
	d.sink.Notify(n)
}

// clarifyingQuestion phrases an ambiguous continuity verdict as a question
// for the user instead of guessing at a boundary.
func clarifyingQuestion(app string, actx *activity.AssembledContext) string {
	if actx != nil && actx.TaskTheory != "" {
		return fmt.Sprintf("Are you still working on %q, or is this something new in %s?", actx.TaskTheory, app)
	}
	return fmt.Sprintf("Have you started a new task in %s?", app)
}

func (d *Detector) lastRecordedTask() *Task {
	if len(d.tasks) == 0 {
		return nil
	}
	return d.tasks[len(d.tasks)-1]
}

func (d *Detector) snapshotTasks() []*Task {
	tasks := make([]*Task, len(d.tasks))
	for i, task := range d.tasks {
		tasks[i] = task.Snapshot()
	}
	return tasks
}

// sameAppRun counts how many screenshots at the end of the recent window
// share the current application.
func (d *Detector) sameAppRun() int {
	return sameAppTail(d.recent)
}

// sameAppWindow returns the trailing screenshots sharing one application.
func (d *Detector) sameAppWindow() []activity.Screenshot {
	run := sameAppTail(d.recent)
	return d.recent[len(d.recent)-run:]
}

func sameAppTail(shots []activity.Screenshot) int {
	if len(shots) == 0 {
		return 0
	}
	app := shots[len(shots)-1].ActiveApplication
	run := 0
	for i := len(shots) - 1; i >= 0; i-- {
		if !strings.EqualFold(shots[i].ActiveApplication, app) {
			break
		}
		run++
	}
	return run
}
