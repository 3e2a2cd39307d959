package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/scribeworks/scribe/activity"
	"github.com/scribeworks/scribe/model"
)

// ContextChangeConfidence is the minimum model confidence required to treat a
// same-application context change as a task boundary. It is deliberately a
// separate constant from any other confidence threshold in the system; the
// two have no documented relationship.
const ContextChangeConfidence = 0.7

// contextCheckMinRun is how many consecutive screenshots must share one
// application before a completion call is worth its cost.
const contextCheckMinRun = 3

// contextCheckMaxImages caps how many screenshot images are sent per check.
const contextCheckMaxImages = 3

// ContinuitySignal is the model's judgement on whether the user is still on
// the same task within a single application.
type ContinuitySignal struct {
	SameTask   bool    `json:"sameTask" jsonschema_description:"Whether the screenshots show a continuation of the current task"`
	Confidence float64 `json:"confidence" jsonschema_description:"Confidence in the judgement, 0.0 to 1.0"`
	Reason     string  `json:"reason,omitempty" jsonschema_description:"One-sentence justification"`
}

// ContextChecker judges same-task continuation inside one application. The
// second return value is false when there is no usable signal (service
// unreachable, unparsable response, timeout); the caller treats that as
// "task continues".
type ContextChecker interface {
	Check(ctx context.Context, shots []activity.Screenshot, actx *activity.AssembledContext) (ContinuitySignal, bool)
}

// ModelChecker implements ContextChecker against a vision completion
// provider. Every failure path degrades to "no signal"; this call never
// raises beyond its own boundary and never blocks past its timeout.
type ModelChecker struct {
	provider model.VisionProvider
	timeout  time.Duration
	log      *slog.Logger
	schema   string
}

func NewModelChecker(provider model.VisionProvider, timeout time.Duration, log *slog.Logger) *ModelChecker {
	if log == nil {
		log = slog.Default()
	}

	reflector := jsonschema.Reflector{DoNotReference: true}
	schemaJSON, err := json.Marshal(reflector.Reflect(&ContinuitySignal{}))
	if err != nil {
		// Reflection over a static struct cannot fail at runtime; fall back
		// to an empty schema rather than refusing to construct.
		schemaJSON = []byte("{}")
	}

	return &ModelChecker{
		provider: provider,
		timeout:  timeout,
		log:      log,
		schema:   string(schemaJSON),
	}
}

func (c *ModelChecker) Check(ctx context.Context, shots []activity.Screenshot, actx *activity.AssembledContext) (signal ContinuitySignal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("context change check panicked, treating as no signal", "error", r)
			signal, ok = ContinuitySignal{}, false
		}
	}()

	if c.provider == nil || len(shots) == 0 {
		return ContinuitySignal{}, false
	}

	if len(shots) > contextCheckMaxImages {
		shots = shots[len(shots)-contextCheckMaxImages:]
	}

	images := make([]model.Image, 0, len(shots))
	for _, shot := range shots {
		if shot.ImagePath == "" {
			continue
		}
		data, err := os.ReadFile(shot.ImagePath)
		if err != nil {
			c.log.Warn("failed to read screenshot image", "path", shot.ImagePath, "error", err)
			continue
		}
		images = append(images, model.Image{MediaType: "image/png", Data: data})
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.provider.Complete(callCtx, images, c.buildPrompt(shots, actx),
		model.WithSystemPrompt("You analyze sequences of desktop screenshots to judge whether the user is still working on the same task."),
		model.WithMaxTokens(256),
	)
	if err != nil {
		c.log.Warn("context change check failed, treating as no signal", "error", err)
		return ContinuitySignal{}, false
	}

	raw, found := model.ExtractJSONObject(text)
	if !found {
		c.log.Warn("context change response contained no JSON object")
		return ContinuitySignal{}, false
	}

	if err := json.Unmarshal(raw, &signal); err != nil {
		c.log.Warn("context change response JSON did not match expected shape", "error", err)
		return ContinuitySignal{}, false
	}

	return signal, true
}

func (c *ModelChecker) buildPrompt(shots []activity.Screenshot, actx *activity.AssembledContext) string {
	var sb strings.Builder

	sb.WriteString("The user has stayed in the application ")
	fmt.Fprintf(&sb, "%q across the attached screenshots.\n", shots[len(shots)-1].ActiveApplication)

	if actx != nil {
		if actx.TaskTheory != "" {
			fmt.Fprintf(&sb, "Current task theory: %s\n", actx.TaskTheory)
		}
		if len(actx.RecentApps) > 0 {
			fmt.Fprintf(&sb, "Recently used applications: %s\n", strings.Join(actx.RecentApps, ", "))
		}
		if len(actx.RecentTitles) > 0 {
			fmt.Fprintf(&sb, "Recent window titles: %s\n", strings.Join(actx.RecentTitles, "; "))
		}
	}

	titles := make([]string, 0, len(shots))
	for _, shot := range shots {
		if shot.WindowTitle != "" {
			titles = append(titles, shot.WindowTitle)
		}
	}
	if len(titles) > 0 {
		fmt.Fprintf(&sb, "Window titles in the screenshot sequence: %s\n", strings.Join(titles, "; "))
	}

	sb.WriteString("\nJudge whether the screenshots show a continuation of the same task or a shift to different work.\n")
	fmt.Fprintf(&sb, "Respond with a single JSON object matching this schema:\n%s\n", c.schema)

	return sb.String()
}
