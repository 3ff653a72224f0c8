// internal/recorder/recorder.go
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
	"github.com/xkilldash9x/formpilot-cli/internal/config"
	"github.com/xkilldash9x/formpilot-cli/internal/workflow"
)

// Errors of the recording contract.
var (
	// ErrAlreadyRecording is returned by Start while a session is active.
	// One recorder owns at most one session; duplicate starts are explicit
	// errors, not silent successes, so orchestration can surface them.
	ErrAlreadyRecording = errors.New("a recording session is already active")
	// ErrNotRecording is returned by Stop and Poll without an active session.
	ErrNotRecording = errors.New("no recording session is active")
	// ErrPageUnreachable is a hard setup failure: without a working page
	// handle nothing can be captured.
	ErrPageUnreachable = errors.New("page controller unreachable")
)

// StopResult is the outcome of ending a session. Success is false when the
// session captured nothing; Workflow is set only on success.
type StopResult struct {
	Success  bool
	Workflow *schemas.SavedWorkflow
}

// capturedEvent mirrors the page-side capture record.
type capturedEvent struct {
	Type    string `json:"type"`
	TS      int64  `json:"ts"`
	Payload string `json:"payload"`
	FP      struct {
		Tag         string   `json:"tag"`
		ID          string   `json:"id"`
		Classes     []string `json:"classes"`
		Text        string   `json:"text"`
		Name        string   `json:"name"`
		Type        string   `json:"type"`
		Placeholder string   `json:"placeholder"`
		Path        string   `json:"path"`
	} `json:"fp"`
}

// session holds the state of one active recording. The action log is
// append-only; timestamps are milliseconds relative to session start and
// monotonically non-decreasing.
type session struct {
	id          string
	name        string
	startedAt   time.Time
	startUnixMs int64
	actions     []schemas.RecordedAction
	urls        []string
	lastURL     string
	lastTsMs    int64
}

// Recorder captures a live interaction flow into a replayable workflow.
type Recorder struct {
	page      schemas.PageController
	workflows *workflow.Store
	cfg       config.RecorderConfig
	log       *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	current *session
}

// New creates a recorder.
func New(page schemas.PageController, workflows *workflow.Store, cfg config.RecorderConfig, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	return &Recorder{
		page:      page,
		workflows: workflows,
		cfg:       cfg,
		log:       logger.Named("recorder"),
		now:       time.Now,
	}
}

// Start opens a recording session and installs the capture hooks.
func (r *Recorder) Start(ctx context.Context, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return "", ErrAlreadyRecording
	}

	url, err := r.page.CurrentURL(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPageUnreachable, err)
	}

	var installed bool
	if err := r.page.Evaluate(ctx, captureInstallScript, &installed); err != nil {
		return "", fmt.Errorf("%w: failed to install capture hooks: %v", ErrPageUnreachable, err)
	}

	now := r.now()
	r.current = &session{
		id:          uuid.NewString(),
		name:        name,
		startedAt:   now,
		startUnixMs: now.UnixMilli(),
		lastURL:     url,
		urls:        []string{url},
	}
	r.log.Info("Recording session started.",
		zap.String("session_id", r.current.id),
		zap.String("url", url))
	return r.current.id, nil
}

// Poll drains the page capture buffer and samples the URL once. Intended to
// run on the configured interval between Start and Stop.
func (r *Recorder) Poll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.current
	if s == nil {
		return ErrNotRecording
	}

	var events []capturedEvent
	if err := r.page.Evaluate(ctx, captureDrainScript, &events); err != nil {
		// Transient page churn (navigation teardown) is expected; capture
		// resumes once the hooks reinstall on the next poll.
		r.log.Debug("Capture drain failed, skipping tick.", zap.Error(err))
	} else {
		for _, ev := range events {
			s.append(r.toAction(s, ev))
		}
		if len(events) > 0 {
			// Re-arm hooks in case a same-tick navigation wiped them.
			var installed bool
			_ = r.page.Evaluate(ctx, captureInstallScript, &installed)
		}
	}

	url, err := r.page.CurrentURL(ctx)
	if err != nil {
		r.log.Debug("URL poll failed, skipping tick.", zap.Error(err))
		return nil
	}
	if url != "" && url != s.lastURL {
		s.lastURL = url
		s.urls = append(s.urls, url)
		s.append(schemas.RecordedAction{
			TimestampMs: r.now().UnixMilli() - s.startUnixMs,
			Type:        schemas.ActionNavigation,
			Payload:     url,
			PageURL:     url,
		})
		var installed bool
		_ = r.page.Evaluate(ctx, captureInstallScript, &installed)
	}
	return nil
}

// Run polls until the context is cancelled, then stops and returns the
// session result.
func (r *Recorder) Run(ctx context.Context, name string) (*StopResult, error) {
	if _, err := r.Start(ctx, name); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final drain happens on a fresh context; the session must still
			// close cleanly after cancellation.
			return r.Stop(context.WithoutCancel(ctx))
		case <-ticker.C:
			if err := r.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.log.Warn("Recording poll failed.", zap.Error(err))
			}
		}
	}
}

// Stop freezes the session, optimizes the capture log into steps, and
// persists the workflow. A session with zero captured actions reports
// Success=false and persists nothing.
func (r *Recorder) Stop(ctx context.Context) (*StopResult, error) {
	// One last drain before freezing.
	_ = r.Poll(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.current
	if s == nil {
		return nil, ErrNotRecording
	}
	r.current = nil

	if len(s.actions) == 0 {
		r.log.Info("Recording session ended with no captured actions.",
			zap.String("session_id", s.id))
		return &StopResult{Success: false}, nil
	}

	steps := OptimizeSteps(s.actions, r.cfg.DebounceWindow)
	name := s.name
	if name == "" {
		name = "Recording " + s.startedAt.Format("2006-01-02 15:04")
	}

	flow := schemas.SavedWorkflow{
		ID:         uuid.NewString(),
		Name:       name,
		Platform:   DetectPlatform(s.urls),
		Steps:      steps,
		RecordedAt: s.startedAt,
		DurationMs: r.now().Sub(s.startedAt).Milliseconds(),
	}
	if err := r.workflows.Save(ctx, flow); err != nil {
		return nil, fmt.Errorf("failed to persist workflow: %w", err)
	}

	r.log.Info("Recording session saved.",
		zap.String("workflow_id", flow.ID),
		zap.String("platform", flow.Platform),
		zap.Int("raw_actions", len(s.actions)),
		zap.Int("steps", len(steps)))
	return &StopResult{Success: true, Workflow: &flow}, nil
}

// IsRecording reports whether a session is active.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// toAction converts a page capture record into a RecordedAction with a
// monotonic session-relative timestamp.
func (r *Recorder) toAction(s *session, ev capturedEvent) schemas.RecordedAction {
	rel := ev.TS - s.startUnixMs
	if rel < 0 {
		rel = 0
	}
	return schemas.RecordedAction{
		TimestampMs: rel,
		Type:        mapEventType(ev.Type),
		Payload:     ev.Payload,
		PageURL:     s.lastURL,
		Fingerprint: schemas.ElementFingerprint{
			Tag:         ev.FP.Tag,
			ID:          ev.FP.ID,
			Classes:     ev.FP.Classes,
			Text:        clip(ev.FP.Text, 100),
			Name:        ev.FP.Name,
			Type:        ev.FP.Type,
			Placeholder: ev.FP.Placeholder,
			Path:        ev.FP.Path,
		},
	}
}

// append adds an action, clamping the timestamp so the log stays monotonic
// even if page clocks wobble.
func (s *session) append(a schemas.RecordedAction) {
	if a.TimestampMs < s.lastTsMs {
		a.TimestampMs = s.lastTsMs
	}
	s.lastTsMs = a.TimestampMs
	s.actions = append(s.actions, a)
}

func mapEventType(t string) schemas.ActionType {
	switch t {
	case "click":
		return schemas.ActionClick
	case "input":
		return schemas.ActionInput
	case "select":
		return schemas.ActionSelect
	case "keypress":
		return schemas.ActionKeypress
	case "navigation":
		return schemas.ActionNavigation
	default:
		return schemas.ActionType(t)
	}
}
