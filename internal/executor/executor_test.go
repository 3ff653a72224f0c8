// internal/executor/executor_test.go
package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
	"github.com/xkilldash9x/formpilot-cli/internal/config"
	"github.com/xkilldash9x/formpilot-cli/internal/resolver"
	"github.com/xkilldash9x/formpilot-cli/internal/store"
	"github.com/xkilldash9x/formpilot-cli/internal/workflow"
)

// pageCall is one recorded interaction with the fake page.
type pageCall struct {
	op    string
	el    schemas.ElementDescription
	value string
}

// fakePage serves a fixed snapshot and records every interaction.
type fakePage struct {
	snapshot *schemas.PageSnapshot
	calls    []pageCall
	inputErr error
}

var _ schemas.PageController = (*fakePage)(nil)

func (f *fakePage) GetState(context.Context) (*schemas.PageSnapshot, error) {
	return f.snapshot, nil
}

func (f *fakePage) InputText(_ context.Context, el schemas.ElementDescription, text string) error {
	if f.inputErr != nil {
		return f.inputErr
	}
	f.calls = append(f.calls, pageCall{op: "input", el: el, value: text})
	return nil
}

func (f *fakePage) ClickElement(_ context.Context, el schemas.ElementDescription) error {
	f.calls = append(f.calls, pageCall{op: "click", el: el})
	return nil
}

func (f *fakePage) SelectOption(_ context.Context, el schemas.ElementDescription, text string) error {
	f.calls = append(f.calls, pageCall{op: "select", el: el, value: text})
	return nil
}

func (f *fakePage) SendKeys(_ context.Context, keys string) error {
	f.calls = append(f.calls, pageCall{op: "keys", value: keys})
	return nil
}

func (f *fakePage) NavigateTo(_ context.Context, url string) error {
	f.calls = append(f.calls, pageCall{op: "navigate", value: url})
	return nil
}

func (f *fakePage) Evaluate(context.Context, string, any) error              { return nil }
func (f *fakePage) DropdownOptions(context.Context, schemas.ElementDescription) ([]schemas.DropdownOption, error) {
	return nil, nil
}
func (f *fakePage) CurrentURL(context.Context) (string, error)       { return "https://x", nil }
func (f *fakePage) WaitForLoad(context.Context, time.Duration) error { return nil }
func (f *fakePage) Screenshot(context.Context) ([]byte, error)       { return nil, nil }

type fakeProfile struct {
	data map[string]string
	err  error
}

func (f *fakeProfile) AutoFillData(context.Context) (map[string]string, error) {
	return f.data, f.err
}

func newTestExecutor(t *testing.T, page *fakePage, profile schemas.ProfileProvider, cfg config.ExecutorConfig) (*Executor, *workflow.Store) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	flows := workflow.NewStore(store.NewMemory(), logger)
	ex := New(page, flows, resolver.New(logger), profile, cfg, logger)
	// Deterministic, instant pacing in tests.
	ex.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	ex.jitter = func(time.Duration) time.Duration { return 0 }
	return ex, flows
}

func stepFor(index int, action schemas.StepAction, id, payload string) schemas.WorkflowStep {
	return schemas.WorkflowStep{
		Index:       index,
		Action:      action,
		Payload:     payload,
		Fingerprint: schemas.ElementFingerprint{Tag: "input", ID: id},
	}
}

func snapshotWith(ids ...string) *schemas.PageSnapshot {
	snap := &schemas.PageSnapshot{URL: "https://jobs.example.com"}
	for _, id := range ids {
		snap.Elements = append(snap.Elements, schemas.ElementDescription{Tag: "input", ID: id})
	}
	return snap
}

func TestExecute_AllStepsSucceed(t *testing.T) {
	page := &fakePage{snapshot: snapshotWith("email", "submit", "country")}
	ex, _ := newTestExecutor(t, page, nil, config.ExecutorConfig{})

	flow := &schemas.SavedWorkflow{
		ID: "wf-1",
		Steps: []schemas.WorkflowStep{
			stepFor(0, schemas.StepFillField, "email", "jane@example.com"),
			stepFor(1, schemas.StepClickElement, "submit", ""),
			stepFor(2, schemas.StepSelectOption, "country", "United States"),
			stepFor(3, schemas.StepKeyPress, "", "Tab"),
		},
	}

	report, err := ex.Execute(context.Background(), flow, schemas.SpeedFast)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 4, report.ExecutedSteps)
	assert.Equal(t, 4, report.TotalSteps)
	assert.Empty(t, report.SkippedSteps)

	require.Len(t, page.calls, 4)
	assert.Equal(t, "input", page.calls[0].op)
	assert.Equal(t, "jane@example.com", page.calls[0].value)
	assert.Equal(t, "click", page.calls[1].op)
	assert.Equal(t, "select", page.calls[2].op)
	assert.Equal(t, "United States", page.calls[2].value)
	assert.Equal(t, "keys", page.calls[3].op)
	assert.Equal(t, "Tab", page.calls[3].value)
}

// A step whose target vanished is skipped; the rest of the run continues.
func TestExecute_MissingTargetSkipsStep(t *testing.T) {
	page := &fakePage{snapshot: snapshotWith("email", "submit", "country")}
	ex, _ := newTestExecutor(t, page, nil, config.ExecutorConfig{})

	flow := &schemas.SavedWorkflow{
		ID: "wf-1",
		Steps: []schemas.WorkflowStep{
			stepFor(0, schemas.StepFillField, "email", "jane@example.com"),
			stepFor(1, schemas.StepClickElement, "vanished-button", ""),
			stepFor(2, schemas.StepSelectOption, "country", "Canada"),
			stepFor(3, schemas.StepClickElement, "submit", ""),
		},
	}

	report, err := ex.Execute(context.Background(), flow, schemas.SpeedNormal)
	require.NoError(t, err)

	assert.False(t, report.Success)
	assert.Equal(t, 3, report.ExecutedSteps)
	assert.Equal(t, 4, report.TotalSteps)
	assert.Equal(t, []int{1}, report.SkippedSteps)
	assert.Len(t, page.calls, 3)
}

func TestExecute_NavigationStep(t *testing.T) {
	page := &fakePage{snapshot: snapshotWith()}
	ex, _ := newTestExecutor(t, page, nil, config.ExecutorConfig{})

	flow := &schemas.SavedWorkflow{
		ID:    "wf-1",
		Steps: []schemas.WorkflowStep{stepFor(0, schemas.StepNavigate, "", "https://jobs.example.com/page2")},
	}

	report, err := ex.Execute(context.Background(), flow, schemas.SpeedFast)
	require.NoError(t, err)
	assert.True(t, report.Success)
	require.Len(t, page.calls, 1)
	assert.Equal(t, "navigate", page.calls[0].op)
	assert.Equal(t, "https://jobs.example.com/page2", page.calls[0].value)
}

func TestExecute_ProfileSubstitution(t *testing.T) {
	page := &fakePage{snapshot: snapshotWith("email", "first_name", "notes")}
	profile := &fakeProfile{data: map[string]string{
		"email":      "current@example.com",
		"first_name": "Jane",
	}}
	ex, _ := newTestExecutor(t, page, profile, config.ExecutorConfig{UseProfileData: true})

	flow := &schemas.SavedWorkflow{
		ID: "wf-1",
		Steps: []schemas.WorkflowStep{
			stepFor(0, schemas.StepFillField, "email", "stale@example.com"),
			stepFor(1, schemas.StepFillField, "first_name", "Old Name"),
			stepFor(2, schemas.StepFillField, "notes", "keep as recorded"),
		},
	}

	report, err := ex.Execute(context.Background(), flow, schemas.SpeedFast)
	require.NoError(t, err)
	require.True(t, report.Success)

	require.Len(t, page.calls, 3)
	assert.Equal(t, "current@example.com", page.calls[0].value)
	assert.Equal(t, "Jane", page.calls[1].value)
	assert.Equal(t, "keep as recorded", page.calls[2].value)
}

func TestExecute_ProfileErrorFallsBackToRecorded(t *testing.T) {
	page := &fakePage{snapshot: snapshotWith("email")}
	profile := &fakeProfile{err: errors.New("store offline")}
	ex, _ := newTestExecutor(t, page, profile, config.ExecutorConfig{UseProfileData: true})

	flow := &schemas.SavedWorkflow{
		ID:    "wf-1",
		Steps: []schemas.WorkflowStep{stepFor(0, schemas.StepFillField, "email", "recorded@example.com")},
	}

	report, err := ex.Execute(context.Background(), flow, schemas.SpeedFast)
	require.NoError(t, err)
	require.True(t, report.Success)
	assert.Equal(t, "recorded@example.com", page.calls[0].value)
}

func TestExecute_CancellationStopsBetweenSteps(t *testing.T) {
	page := &fakePage{snapshot: snapshotWith("a", "b")}
	ex, _ := newTestExecutor(t, page, nil, config.ExecutorConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	ex.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel() // cancel after the first step's pacing delay
		return ctx.Err()
	}

	flow := &schemas.SavedWorkflow{
		ID: "wf-1",
		Steps: []schemas.WorkflowStep{
			stepFor(0, schemas.StepClickElement, "a", ""),
			stepFor(1, schemas.StepClickElement, "b", ""),
		},
	}

	report, err := ex.Execute(ctx, flow, schemas.SpeedFast)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, report.Success)
	assert.Equal(t, 1, report.ExecutedSteps)
	assert.Len(t, page.calls, 1)
}

func TestReplay_RecordsUsageStats(t *testing.T) {
	page := &fakePage{snapshot: snapshotWith("email")}
	ex, flows := newTestExecutor(t, page, nil, config.ExecutorConfig{})
	ctx := context.Background()

	require.NoError(t, flows.Save(ctx, schemas.SavedWorkflow{
		ID:    "wf-1",
		Name:  "Acme",
		Steps: []schemas.WorkflowStep{stepFor(0, schemas.StepFillField, "email", "j@x.com")},
	}))

	report, err := ex.Replay(ctx, "wf-1", schemas.SpeedFast)
	require.NoError(t, err)
	assert.True(t, report.Success)

	flow, err := flows.Get(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 1, flow.UsageCount)
	assert.InDelta(t, 1.0, flow.SuccessRate, 1e-9)
}

func TestReplay_MissingWorkflow(t *testing.T) {
	page := &fakePage{snapshot: snapshotWith()}
	ex, _ := newTestExecutor(t, page, nil, config.ExecutorConfig{})

	_, err := ex.Replay(context.Background(), "ghost", schemas.SpeedFast)
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
}

func TestSpeedDelays(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, speedDelays[schemas.SpeedFast])
	assert.Equal(t, 300*time.Millisecond, speedDelays[schemas.SpeedNormal])
	assert.Equal(t, 800*time.Millisecond, speedDelays[schemas.SpeedSlow])
}
