package detect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/scribeworks/scribe/activity"
	"github.com/scribeworks/scribe/model"
)

// stubProvider returns a canned completion and records the prompts it saw.
type stubProvider struct {
	response string
	err      error
	prompts  []string
	images   [][]model.Image
}

func (p *stubProvider) Complete(ctx context.Context, images []model.Image, prompt string, opts ...model.CompleteOption) (string, error) {
	p.prompts = append(p.prompts, prompt)
	p.images = append(p.images, images)
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func TestInferTaskNameUsesCompletion(t *testing.T) {
	provider := &stubProvider{response: "Quarterly budget review"}
	namer := NewNamer(provider, time.Second, nil, nil)

	task := endedTask("Microsoft Excel", testEpoch, 10*time.Minute)
	name := namer.InferTaskName(context.Background(), task, nil)

	assert.Equal(t, "Quarterly budget review", name)
	assert.Contains(t, provider.prompts[0], "Microsoft Excel")
}

func TestInferTaskNameStripsQuotesAndExtraLines(t *testing.T) {
	provider := &stubProvider{response: "\"Writing project report\"\nIt looks like the user was editing a document."}
	namer := NewNamer(provider, time.Second, nil, nil)

	task := endedTask("Microsoft Word", testEpoch, 10*time.Minute)
	name := namer.InferTaskName(context.Background(), task, nil)

	assert.Equal(t, "Writing project report", name)
}

func TestInferTaskNameFallsBackOnError(t *testing.T) {
	provider := &stubProvider{err: errors.New("service unavailable")}
	namer := NewNamer(provider, time.Second, nil, nil)

	task := endedTask("Microsoft Excel", testEpoch, 10*time.Minute)
	name := namer.InferTaskName(context.Background(), task, nil)

	assert.Equal(t, "Work in Microsoft Excel", name)
}

func TestInferTaskNameFallsBackWithoutProvider(t *testing.T) {
	namer := NewNamer(nil, time.Second, nil, nil)

	task := endedTask("Terminal", testEpoch, 10*time.Minute)
	assert.Equal(t, "Work in Terminal", namer.InferTaskName(context.Background(), task, nil))
}

func TestInferTaskNameFallsBackToPlaceholderWithoutApps(t *testing.T) {
	namer := NewNamer(nil, time.Second, nil, nil)

	task := newTask(uuid.Must(uuid.NewV7()), testEpoch)
	assert.Equal(t, PlaceholderName, namer.InferTaskName(context.Background(), task, nil))
}

func TestInferTaskNameIncludesRoleSummary(t *testing.T) {
	provider := &stubProvider{response: "Closing the books"}
	namer := NewNamer(provider, time.Second, nil, nil)

	task := endedTask("Microsoft Excel", testEpoch, 10*time.Minute)
	namer.InferTaskName(context.Background(), task, &activity.AssembledContext{RoleSummary: "staff accountant"})

	assert.Contains(t, provider.prompts[0], "staff accountant")
}

func TestNameUnnamedTasks(t *testing.T) {
	provider := &stubProvider{response: "Budget review"}
	sink := &recordingSink{}
	namer := NewNamer(provider, time.Second, nil, sink)

	named := endedTask("Microsoft Word", testEpoch, 10*time.Minute)
	named.Name = "User supplied name"
	unnamed := endedTask("Microsoft Excel", testEpoch.Add(time.Hour), 10*time.Minute)
	empty := newTask(uuid.Must(uuid.NewV7()), testEpoch.Add(2*time.Hour))

	tasks := []*Task{named, unnamed, empty}
	namer.NameUnnamedTasks(context.Background(), tasks, nil)

	assert.Equal(t, "User supplied name", named.Name)
	assert.Equal(t, "Budget review", unnamed.Name)
	assert.Equal(t, PlaceholderName, empty.Name)

	renames := sink.ofType(func(n Notification) bool {
		_, ok := n.(TaskNamed)
		return ok
	})
	assert.Len(t, renames, 1)
	assert.Len(t, provider.prompts, 1)
}
