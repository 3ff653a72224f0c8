// internal/recorder/recorder_test.go
package recorder

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
	"github.com/xkilldash9x/formpilot-cli/internal/store"
	"github.com/xkilldash9x/formpilot-cli/internal/workflow"
)

// fakePage is a scriptable PageController for recorder tests. Evaluate
// dispatches on the known capture scripts; event batches queue up and drain
// in FIFO order.
type fakePage struct {
	url      string
	urlErr   error
	evalErr  error
	batches  [][]capturedEvent
	installs int
}

var _ schemas.PageController = (*fakePage)(nil)

func (f *fakePage) Evaluate(_ context.Context, script string, out any) error {
	if f.evalErr != nil {
		return f.evalErr
	}
	switch script {
	case captureInstallScript:
		f.installs++
		if b, ok := out.(*bool); ok {
			*b = true
		}
	case captureDrainScript:
		events := out.(*[]capturedEvent)
		if len(f.batches) > 0 {
			*events = f.batches[0]
			f.batches = f.batches[1:]
		}
	}
	return nil
}

func (f *fakePage) CurrentURL(context.Context) (string, error) { return f.url, f.urlErr }

func (f *fakePage) GetState(context.Context) (*schemas.PageSnapshot, error) { return nil, nil }
func (f *fakePage) InputText(context.Context, schemas.ElementDescription, string) error {
	return nil
}
func (f *fakePage) ClickElement(context.Context, schemas.ElementDescription) error { return nil }
func (f *fakePage) SelectOption(context.Context, schemas.ElementDescription, string) error {
	return nil
}
func (f *fakePage) DropdownOptions(context.Context, schemas.ElementDescription) ([]schemas.DropdownOption, error) {
	return nil, nil
}
func (f *fakePage) SendKeys(context.Context, string) error             { return nil }
func (f *fakePage) NavigateTo(context.Context, string) error           { return nil }
func (f *fakePage) WaitForLoad(context.Context, time.Duration) error   { return nil }
func (f *fakePage) Screenshot(context.Context) ([]byte, error)         { return nil, nil }

func newTestRecorder(t *testing.T, page *fakePage) (*Recorder, *workflow.Store) {
	t.Helper()
	flows := workflow.NewStore(store.NewMemory(), zaptest.NewLogger(t))
	rec := New(page, flows, config.RecorderConfig{
		PollInterval:   time.Second,
		DebounceWindow: DefaultDebounceWindow,
	}, zaptest.NewLogger(t))
	return rec, flows
}

func pageEvent(tsMs int64, evType, id, payload string) capturedEvent {
	ev := capturedEvent{Type: evType, TS: tsMs, Payload: payload}
	ev.FP.Tag = "input"
	ev.FP.ID = id
	return ev
}

func TestRecorder_StartTwiceFails(t *testing.T) {
	page := &fakePage{url: "https://jobs.example.com"}
	rec, _ := newTestRecorder(t, page)
	ctx := context.Background()

	id, err := rec.Start(ctx, "first")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, rec.IsRecording())

	_, err = rec.Start(ctx, "second")
	assert.ErrorIs(t, err, ErrAlreadyRecording)
}

func TestRecorder_StartUnreachablePage(t *testing.T) {
	page := &fakePage{urlErr: errors.New("tab closed")}
	rec, _ := newTestRecorder(t, page)

	_, err := rec.Start(context.Background(), "x")
	assert.ErrorIs(t, err, ErrPageUnreachable)
	assert.False(t, rec.IsRecording())
}

func TestRecorder_StopWithoutSession(t *testing.T) {
	rec, _ := newTestRecorder(t, &fakePage{url: "https://jobs.example.com"})
	_, err := rec.Stop(context.Background())
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestRecorder_EmptySessionReportsFailure(t *testing.T) {
	page := &fakePage{url: "https://jobs.example.com"}
	rec, flows := newTestRecorder(t, page)
	ctx := context.Background()

	_, err := rec.Start(ctx, "empty run")
	require.NoError(t, err)

	res, err := rec.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Nil(t, res.Workflow)
	assert.False(t, rec.IsRecording())

	saved, err := flows.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestRecorder_CapturesAndSavesWorkflow(t *testing.T) {
	page := &fakePage{url: "https://boards.greenhouse.io/acme/jobs/1"}
	rec, flows := newTestRecorder(t, page)
	rec.now = func() time.Time { return time.UnixMilli(10_000) }
	ctx := context.Background()

	_, err := rec.Start(ctx, "Acme application")
	require.NoError(t, err)

	page.batches = [][]capturedEvent{{
		pageEvent(10_500, "input", "email", "jane@example.com"),
		pageEvent(11_200, "click", "submit", ""),
	}}
	require.NoError(t, rec.Poll(ctx))

	res, err := rec.Stop(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.Workflow)

	flow := res.Workflow
	assert.Equal(t, "Acme application", flow.Name)
	assert.Equal(t, "greenhouse", flow.Platform)
	require.Len(t, flow.Steps, 2)
	assert.Equal(t, schemas.StepFillField, flow.Steps[0].Action)
	assert.Equal(t, int64(500), flow.Steps[0].TimingMs)
	assert.Equal(t, schemas.StepClickElement, flow.Steps[1].Action)

	// The workflow is persisted and retrievable by ID.
	got, err := flows.Get(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, flow.Name, got.Name)
}

func TestRecorder_PollRecordsNavigation(t *testing.T) {
	page := &fakePage{url: "https://jobs.example.com/step1"}
	rec, _ := newTestRecorder(t, page)
	rec.now = func() time.Time { return time.UnixMilli(50_000) }
	ctx := context.Background()

	_, err := rec.Start(ctx, "nav run")
	require.NoError(t, err)

	page.url = "https://jobs.example.com/step2"
	require.NoError(t, rec.Poll(ctx))

	res, err := rec.Stop(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Workflow.Steps, 1)
	assert.Equal(t, schemas.StepNavigate, res.Workflow.Steps[0].Action)
	assert.Equal(t, "https://jobs.example.com/step2", res.Workflow.Steps[0].Payload)
	// Hooks reinstall after navigation: once at Start plus once per change.
	assert.GreaterOrEqual(t, page.installs, 2)
}

func TestRecorder_TimestampsStayMonotonic(t *testing.T) {
	page := &fakePage{url: "https://jobs.example.com"}
	rec, _ := newTestRecorder(t, page)
	rec.now = func() time.Time { return time.UnixMilli(1_000) }
	ctx := context.Background()

	_, err := rec.Start(ctx, "clock wobble")
	require.NoError(t, err)

	// Second event carries an earlier page timestamp than the first.
	page.batches = [][]capturedEvent{{
		pageEvent(3_000, "input", "a", "x"),
		pageEvent(2_500, "click", "b", ""),
	}}
	require.NoError(t, rec.Poll(ctx))

	res, err := rec.Stop(ctx)
	require.NoError(t, err)
	require.Len(t, res.Workflow.Steps, 2)
	assert.Equal(t, res.Workflow.Steps[0].TimingMs, res.Workflow.Steps[1].TimingMs)
}
