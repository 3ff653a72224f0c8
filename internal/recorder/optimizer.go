// internal/recorder/optimizer.go
package recorder

import (
	"fmt"
	"time"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

// DefaultDebounceWindow collapses same-type events closer together than this.
const DefaultDebounceWindow = 100 * time.Millisecond

// OptimizeSteps turns a raw ordered capture log into semantic workflow steps.
// Pure and deterministic: identical input always yields identical output.
//
// Rules, in order: debounce same-type neighbors inside the window, map each
// survivor 1:1 to its step action, carry the relative timestamp, assign
// indices in emission order.
func OptimizeSteps(actions []schemas.RecordedAction, debounce time.Duration) []schemas.WorkflowStep {
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}
	debounceMs := debounce.Milliseconds()

	steps := make([]schemas.WorkflowStep, 0, len(actions))
	for i, action := range actions {
		if i > 0 {
			prev := actions[i-1]
			if prev.Type == action.Type && action.TimestampMs-prev.TimestampMs < debounceMs {
				continue
			}
		}

		stepAction, ok := mapAction(action.Type)
		if !ok {
			continue
		}
		steps = append(steps, schemas.WorkflowStep{
			Index:       len(steps),
			Action:      stepAction,
			Fingerprint: action.Fingerprint,
			Payload:     action.Payload,
			TimingMs:    action.TimestampMs,
			Description: describeStep(stepAction, action),
		})
	}
	return steps
}

// mapAction is the fixed 1:1 event-to-step mapping.
func mapAction(t schemas.ActionType) (schemas.StepAction, bool) {
	switch t {
	case schemas.ActionInput:
		return schemas.StepFillField, true
	case schemas.ActionClick:
		return schemas.StepClickElement, true
	case schemas.ActionSelect:
		return schemas.StepSelectOption, true
	case schemas.ActionKeypress:
		return schemas.StepKeyPress, true
	case schemas.ActionNavigation:
		return schemas.StepNavigate, true
	default:
		return "", false
	}
}

// describeStep renders a deterministic human-readable step summary, used for
// audit and debugging, never for matching.
func describeStep(action schemas.StepAction, raw schemas.RecordedAction) string {
	target := describeTarget(raw.Fingerprint)
	switch action {
	case schemas.StepFillField:
		return fmt.Sprintf("Fill %s with %q", target, clip(raw.Payload, 40))
	case schemas.StepClickElement:
		return fmt.Sprintf("Click %s", target)
	case schemas.StepSelectOption:
		return fmt.Sprintf("Select %q in %s", clip(raw.Payload, 40), target)
	case schemas.StepKeyPress:
		return fmt.Sprintf("Press %s", raw.Payload)
	case schemas.StepNavigate:
		return fmt.Sprintf("Navigate to %s", raw.Payload)
	default:
		return fmt.Sprintf("Unknown action on %s", target)
	}
}

func describeTarget(fp schemas.ElementFingerprint) string {
	switch {
	case fp.ID != "":
		return fmt.Sprintf("%s#%s", fp.Tag, fp.ID)
	case fp.Name != "":
		return fmt.Sprintf("%s[name=%s]", fp.Tag, fp.Name)
	case fp.Text != "":
		return fmt.Sprintf("%s %q", fp.Tag, clip(fp.Text, 30))
	case fp.Tag != "":
		return fp.Tag
	default:
		return "element"
	}
}

func clip(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
