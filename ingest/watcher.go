// Package ingest bridges the capture layer to the detection engine. The
// capture agent drops one JSON envelope per observation into a spool
// directory; the watcher replays them into the session in filename order and
// removes consumed files.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/scribeworks/scribe/activity"
	"github.com/scribeworks/scribe/detect"
)

// Envelope kinds accepted from the spool directory.
const (
	KindScreenshot = "screenshot"
	KindAppSwitch  = "app_switch"
)

// Envelope is the on-disk wire format for one captured observation.
type Envelope struct {
	Kind       string                   `json:"kind"`
	Screenshot *activity.Screenshot     `json:"screenshot,omitempty"`
	AppSwitch  *activity.AppSwitchEvent `json:"app_switch,omitempty"`
}

// Feeder receives observations in capture order. *session.Service satisfies
// it.
type Feeder interface {
	HandleScreenshot(ctx context.Context, shot activity.Screenshot) (detect.BoundaryEvent, error)
	HandleAppSwitch(ctx context.Context, evt activity.AppSwitchEvent) (detect.BoundaryEvent, error)
}

// Watcher tails a spool directory and feeds envelopes sequentially. One
// watcher per session; it is the single writer into the Feeder.
type Watcher struct {
	log    *slog.Logger
	dir    string
	feeder Feeder
}

func NewWatcher(dir string, feeder Feeder, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{log: log, dir: dir, feeder: feeder}
}

// Run drains any envelopes already present, then watches for new ones until
// the context ends.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create spool directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start spool watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch spool directory: %w", err)
	}

	// Drain after the watch is established so nothing lands in the gap.
	if err := w.drain(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) {
				continue
			}
			if !isEnvelopeFile(evt.Name) {
				continue
			}
			// A create can race the producer's write; re-drain the whole
			// directory so partially written files get retried in order.
			if err := w.drain(ctx); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("spool watcher error", "error", err)
		}
	}
}

// drain consumes every parseable envelope in filename order. Capture agents
// name files with a sortable timestamp prefix, so lexical order is capture
// order.
func (w *Watcher) drain(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read spool directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isEnvelopeFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil
		}
		path := filepath.Join(w.dir, name)
		if err := w.consume(ctx, path); err != nil {
			// Likely a partial write; leave the file for the next pass.
			w.log.Warn("skipping spool file", "file", name, "error", err)
			continue
		}
		if err := os.Remove(path); err != nil {
			w.log.Warn("failed to remove consumed spool file", "file", name, "error", err)
		}
	}
	return nil
}

func (w *Watcher) consume(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("parse envelope: %w", err)
	}

	switch env.Kind {
	case KindScreenshot:
		if env.Screenshot == nil {
			return fmt.Errorf("screenshot envelope without payload")
		}
		_, err = w.feeder.HandleScreenshot(ctx, *env.Screenshot)
	case KindAppSwitch:
		if env.AppSwitch == nil {
			return fmt.Errorf("app_switch envelope without payload")
		}
		_, err = w.feeder.HandleAppSwitch(ctx, *env.AppSwitch)
	default:
		return fmt.Errorf("unknown envelope kind %q", env.Kind)
	}
	return err
}

func isEnvelopeFile(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(filepath.Base(name), ".")
}
