package detect

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wildcard matches any application name on its side of a pair.
const Wildcard = "*"

// AppPair is an application-switch pattern. Matching is case-insensitive
// substring matching, so "chrome" matches "Google Chrome".
type AppPair struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// PairTable classifies app switches that are brief excursions rather than new
// tasks. The table is data-driven so the heuristic list stays easy to extend
// without touching control flow.
type PairTable struct {
	pairs []AppPair
}

// DefaultSameTaskPairs covers the common quick detours: browser lookups,
// calculator/notes/file-manager glances, and brief chat checks, regardless of
// which main application they interrupt.
func DefaultSameTaskPairs() *PairTable {
	return &PairTable{pairs: []AppPair{
		{From: Wildcard, To: "chrome"},
		{From: Wildcard, To: "safari"},
		{From: Wildcard, To: "firefox"},
		{From: Wildcard, To: "edge"},
		{From: Wildcard, To: "arc"},
		{From: Wildcard, To: "calculator"},
		{From: Wildcard, To: "notes"},
		{From: Wildcard, To: "stickies"},
		{From: Wildcard, To: "finder"},
		{From: Wildcard, To: "explorer"},
		{From: Wildcard, To: "slack"},
		{From: Wildcard, To: "discord"},
		{From: Wildcard, To: "messages"},
	}}
}

// NewTaskIndicators are communication and meeting applications whose
// appearance is logged as a signal that a switch is significant. They gate
// nothing on their own; the debounce and same-task exclusion still apply.
var NewTaskIndicators = []string{
	"mail",
	"outlook",
	"gmail",
	"calendar",
	"zoom",
	"teams",
	"meet",
	"webex",
}

// SameTask reports whether switching from one application to the other is
// classified as staying inside the same task.
func (t *PairTable) SameTask(from, to string) bool {
	if t == nil {
		return false
	}
	for _, pair := range t.pairs {
		if matchApp(pair.From, from) && matchApp(pair.To, to) {
			return true
		}
	}
	return false
}

// Extend appends additional pairs to the table.
func (t *PairTable) Extend(pairs ...AppPair) {
	t.pairs = append(t.pairs, pairs...)
}

// Len returns the number of pairs in the table.
func (t *PairTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.pairs)
}

// IsNewTaskIndicator reports whether the application is on the
// communication/meeting indicator list.
func IsNewTaskIndicator(app string) bool {
	for _, indicator := range NewTaskIndicators {
		if matchApp(indicator, app) {
			return true
		}
	}
	return false
}

func matchApp(pattern, app string) bool {
	if pattern == Wildcard {
		return true
	}
	return strings.Contains(strings.ToLower(app), strings.ToLower(pattern))
}

// LoadPairsFile reads user-supplied same-task pairs from a YAML file and
// appends them to the table. A missing file is not an error.
func (t *PairTable) LoadPairsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read same-task pairs file: %w", err)
	}

	var file struct {
		Pairs []AppPair `yaml:"pairs"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse same-task pairs file: %w", err)
	}

	t.Extend(file.Pairs...)
	return nil
}
