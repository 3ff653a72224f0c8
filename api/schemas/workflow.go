// api/schemas/workflow.go
package schemas

import "time"

// ActionType classifies a raw event captured during a recording session.
type ActionType string

const (
	ActionClick      ActionType = "click"
	ActionInput      ActionType = "input"
	ActionSelect     ActionType = "select"
	ActionKeypress   ActionType = "keypress"
	ActionNavigation ActionType = "navigation"
)

// StepAction is the tag of the semantic step union. The variant set is fixed;
// every dispatch site switches exhaustively over it and treats any other value
// as a per-step error, never a crash.
type StepAction string

const (
	StepFillField    StepAction = "fill_field"
	StepClickElement StepAction = "click_element"
	StepSelectOption StepAction = "select_option"
	StepKeyPress     StepAction = "key_press"
	StepNavigate     StepAction = "navigate"
)

// ElementFingerprint is a structural description of a DOM element, captured at
// recording time and used to re-locate a best-match element at replay time.
// It is never a stable identifier across unrelated page loads.
type ElementFingerprint struct {
	Tag         string   `json:"tag"`
	ID          string   `json:"id,omitempty"`
	Classes     []string `json:"classes,omitempty"`
	Text        string   `json:"text,omitempty"` // Visible text excerpt, capped at 100 chars.
	Name        string   `json:"name,omitempty"`
	Type        string   `json:"type,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Path        string   `json:"path,omitempty"` // Structural path, e.g. "form>div:nth-of-type(2)>input".
}

// RecordedAction is one raw captured event. Immutable once appended to a
// session log; timestamps are milliseconds relative to session start.
type RecordedAction struct {
	TimestampMs int64              `json:"timestamp_ms"`
	Type        ActionType         `json:"type"`
	Fingerprint ElementFingerprint `json:"fingerprint"`
	Payload     string             `json:"payload,omitempty"`
	PageURL     string             `json:"page_url,omitempty"`
}

// WorkflowStep is one semantic replayable action, derived 1:1 from a
// post-debounce RecordedAction.
type WorkflowStep struct {
	Index       int                `json:"index"`
	Action      StepAction         `json:"action"`
	Fingerprint ElementFingerprint `json:"fingerprint"`
	Payload     string             `json:"payload,omitempty"`
	TimingMs    int64              `json:"timing_ms"` // Offset from session start.
	Description string             `json:"description"`
}

// SavedWorkflow is a persisted, replayable interaction flow. Usage statistics
// are updated on every execution with last-writer-wins semantics.
type SavedWorkflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Platform    string         `json:"platform"`
	Steps       []WorkflowStep `json:"steps"`
	RecordedAt  time.Time      `json:"recorded_at"`
	DurationMs  int64          `json:"duration_ms"`
	SuccessRate float64        `json:"success_rate"` // Always in [0,1].
	UsageCount  int            `json:"usage_count"`
	LastUsed    time.Time      `json:"last_used"`
}

// ReplaySpeed selects the base inter-step delay during replay.
type ReplaySpeed string

const (
	SpeedFast   ReplaySpeed = "fast"
	SpeedNormal ReplaySpeed = "normal"
	SpeedSlow   ReplaySpeed = "slow"
)

// ExecutionReport summarizes one replay run. Success follows the canonical
// policy: true only when every step executed. Per-step misses are not fatal;
// they lower ExecutedSteps and are listed in SkippedSteps.
type ExecutionReport struct {
	WorkflowID    string `json:"workflow_id"`
	Success       bool   `json:"success"`
	ExecutedSteps int    `json:"executed_steps"`
	TotalSteps    int    `json:"total_steps"`
	SkippedSteps  []int  `json:"skipped_steps,omitempty"`
	Message       string `json:"message,omitempty"`
}
