package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scribeworks/scribe/activity"
	"github.com/scribeworks/scribe/analytics"
	"github.com/scribeworks/scribe/detect"
	"github.com/scribeworks/scribe/event"
	"github.com/scribeworks/scribe/memory"
	"github.com/scribeworks/scribe/model"
)

const defaultVisionTimeout = 30 * time.Second

// Service drives one observation session end to end. It owns the detector
// instance for the session; the single-writer discipline on the detector is
// inherited by the Service, so callers must not feed it concurrently.
type Service struct {
	log       *slog.Logger
	store     *memory.Store
	router    *event.Router
	detector  *detect.Detector
	namer     *detect.Namer
	contexts  activity.ContextProvider
	analytics analytics.Client
	sink      detect.Sink

	sessionID uuid.UUID
	started   bool
}

type ServiceOptions struct {
	Log    *slog.Logger
	Store  *memory.Store
	Router *event.Router

	// Vision enables model-assisted continuity checks and task naming. Nil
	// runs the detector on heuristics alone.
	Vision        model.VisionProvider
	VisionTimeout time.Duration

	// Namer and Checker override the ones built from Vision, for tests.
	Namer   *detect.Namer
	Checker detect.ContextChecker

	Pairs           *detect.PairTable
	Analytics       analytics.Client
	ConfigOverrides *detect.Config
}

func NewService(opts ServiceOptions) *Service {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	svc := &Service{
		log:       log,
		store:     opts.Store,
		router:    opts.Router,
		analytics: opts.Analytics,
	}

	sessionID := uuid.Must(uuid.NewV7())
	svc.sessionID = sessionID

	sink := detect.Sink(detect.SinkFunc(func(detect.Notification) {}))
	if opts.Router != nil {
		sink = event.NewDetectorSink(opts.Router, sessionID)
	}
	if opts.Analytics != nil {
		sink = withAnalytics(sink, opts.Analytics, sessionID)
	}
	svc.sink = sink

	visionTimeout := opts.VisionTimeout
	if visionTimeout <= 0 {
		visionTimeout = defaultVisionTimeout
	}

	svc.namer = opts.Namer
	if svc.namer == nil && opts.Vision != nil {
		svc.namer = detect.NewNamer(opts.Vision, visionTimeout, log, sink)
	}

	checker := opts.Checker
	if checker == nil && opts.Vision != nil {
		checker = detect.NewModelChecker(opts.Vision, visionTimeout, log)
	}

	detectorOpts := []detect.DetectorOption{
		detect.WithLogger(log),
		detect.WithSink(sink),
	}
	if opts.Pairs != nil {
		detectorOpts = append(detectorOpts, detect.WithPairs(opts.Pairs))
	}
	if checker != nil {
		detectorOpts = append(detectorOpts, detect.WithContextChecker(checker))
	}

	svc.detector = detect.NewDetector(detectorOpts...)
	svc.detector.Init(sessionID, opts.ConfigOverrides)
	svc.contexts = NewContextAssembler(svc.detector, opts.Store, log)

	return svc
}

func (s *Service) SessionID() uuid.UUID {
	return s.sessionID
}

// Start records the session and begins accepting activity.
func (s *Service) Start(ctx context.Context) error {
	if s.started {
		return fmt.Errorf("session %s already started", s.sessionID)
	}

	if s.store != nil {
		if err := s.store.CreateSession(ctx, s.sessionID, time.Now()); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
	}

	s.started = true
	analytics.EmitSessionStarted(s.analytics, s.sessionID.String())
	s.log.Info("observation session started", "session_id", s.sessionID)
	return nil
}

// HandleScreenshot feeds one screenshot through the detector with a fresh
// context snapshot.
func (s *Service) HandleScreenshot(ctx context.Context, shot activity.Screenshot) (detect.BoundaryEvent, error) {
	actx := s.assemble(ctx)
	return s.detector.ProcessScreenshot(ctx, shot, actx)
}

// HandleAppSwitch feeds a capture-layer app-switch event through the
// detector.
func (s *Service) HandleAppSwitch(ctx context.Context, evt activity.AppSwitchEvent) (detect.BoundaryEvent, error) {
	actx := s.assemble(ctx)
	return s.detector.HandleAppSwitch(ctx, evt, actx)
}

// IndicateTask applies an explicit user task indication.
func (s *Service) IndicateTask(description string) (*detect.Task, error) {
	return s.detector.HandleUserTaskIndication(description)
}

// Config returns the detector's current parameters.
func (s *Service) Config() detect.Config {
	return s.detector.Config()
}

// UpdateConfig adjusts detection parameters for subsequent events.
func (s *Service) UpdateConfig(partial detect.Config) {
	s.detector.UpdateConfig(partial)
}

// End flushes the session: ends any active task, collapses over-segmented
// tasks, names the rest, persists the final timeline, and returns it.
func (s *Service) End(ctx context.Context) ([]*detect.Task, error) {
	cfg := s.detector.Config()
	actx := s.assemble(ctx)

	tasks := s.detector.EndSession()

	collapsed, err := detect.CollapseTasks(tasks, cfg.MinTaskDuration, s.sink)
	if err != nil {
		return nil, fmt.Errorf("end session: merge pass: %w", err)
	}

	if s.namer != nil {
		s.namer.NameUnnamedTasks(ctx, collapsed, actx)
	}

	if s.store != nil {
		if err := s.store.SaveTasks(ctx, s.sessionID, collapsed); err != nil {
			return nil, fmt.Errorf("end session: persist tasks: %w", err)
		}
		if err := s.store.EndSession(ctx, s.sessionID, time.Now()); err != nil {
			return nil, fmt.Errorf("end session: %w", err)
		}
	}

	analytics.EmitSessionEnded(s.analytics, s.sessionID.String(), len(collapsed))
	s.log.Info("observation session ended",
		"session_id", s.sessionID,
		"tasks", len(collapsed),
	)
	return collapsed, nil
}

// withAnalytics layers usage emission on top of the base sink. Emission is
// fire and forget; it must never slow the notification path down.
func withAnalytics(base detect.Sink, client analytics.Client, sessionID uuid.UUID) detect.Sink {
	return detect.SinkFunc(func(n detect.Notification) {
		base.Notify(n)
		switch v := n.(type) {
		case detect.TaskStarted:
			analytics.EmitTaskDetected(client, sessionID.String(), v.Task.ID.String(), string(v.Trigger))
		case detect.TaskSwitched:
			analytics.EmitTaskDetected(client, sessionID.String(), v.Started.ID.String(), string(v.Trigger))
		case detect.TaskMerged:
			analytics.EmitTasksMerged(client, sessionID.String(), v.Merged.ID.String())
		}
	})
}

func (s *Service) assemble(ctx context.Context) *activity.AssembledContext {
	if s.contexts == nil {
		return nil
	}
	actx, err := s.contexts.Assemble(ctx, s.sessionID)
	if err != nil {
		s.log.Warn("context assembly failed", "error", err)
		return nil
	}
	return actx
}
