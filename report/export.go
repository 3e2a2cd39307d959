// Package report renders a session's task timeline to files.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/scribeworks/scribe/detect"
)

type jsonExport struct {
	ExportedAt string     `json:"exported_at"`
	SessionID  string     `json:"session_id"`
	Count      int        `json:"count"`
	Tasks      []jsonTask `json:"tasks"`
}

type jsonTask struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Status      string        `json:"status"`
	StartTime   string        `json:"start_time"`
	EndTime     string        `json:"end_time,omitempty"`
	DurationSec int64         `json:"duration_seconds"`
	Duration    string        `json:"duration"`
	Apps        []string      `json:"apps"`
	Explanation string        `json:"explanation,omitempty"`
	Segments    []jsonSegment `json:"segments"`
}

type jsonSegment struct {
	App         string `json:"app"`
	WindowTitle string `json:"window_title,omitempty"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time,omitempty"`
	DurationSec int64  `json:"duration_seconds"`
}

// ToJSON writes the timeline as an indented JSON document.
func ToJSON(sessionID string, tasks []*detect.Task, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		SessionID:  sessionID,
		Count:      len(tasks),
	}

	for _, t := range tasks {
		jt := jsonTask{
			ID:          t.ID.String(),
			Name:        t.Name,
			Status:      string(t.Status),
			StartTime:   t.StartTime.Local().Format(time.RFC3339),
			DurationSec: int64(t.Duration / time.Second),
			Duration:    formatDuration(t.Duration),
			Apps:        t.Apps(),
			Explanation: t.UserExplanation,
		}
		if t.EndTime != nil {
			jt.EndTime = t.EndTime.Local().Format(time.RFC3339)
		}
		for _, seg := range t.Segments {
			js := jsonSegment{
				App:         seg.App,
				WindowTitle: seg.WindowTitle,
				StartTime:   seg.StartTime.Local().Format(time.RFC3339),
				DurationSec: int64(seg.Duration / time.Second),
			}
			if seg.EndTime != nil {
				js.EndTime = seg.EndTime.Local().Format(time.RFC3339)
			}
			jt.Segments = append(jt.Segments, js)
		}
		export.Tasks = append(export.Tasks, jt)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// ToCSV writes one row per task.
func ToCSV(tasks []*detect.Task, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Name", "Status", "Start", "End", "Duration (s)", "Duration", "Apps"}); err != nil {
		return err
	}

	for _, t := range tasks {
		endStr := ""
		if t.EndTime != nil {
			endStr = t.EndTime.Local().Format(time.RFC3339)
		}

		row := []string{
			t.ID.String(),
			t.Name,
			string(t.Status),
			t.StartTime.Local().Format(time.RFC3339),
			endStr,
			fmt.Sprintf("%d", int64(t.Duration/time.Second)),
			formatDuration(t.Duration),
			strings.Join(t.Apps(), "; "),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
