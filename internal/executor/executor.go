// internal/executor/executor.go
package executor

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
	"github.com/xkilldash9x/formpilot-cli/internal/config"
	"github.com/xkilldash9x/formpilot-cli/internal/resolver"
	"github.com/xkilldash9x/formpilot-cli/internal/workflow"
)

// Pacing bases per replay speed. A random jitter of up to MaxJitter is added
// on top so replays do not tick like a metronome.
var speedDelays = map[schemas.ReplaySpeed]time.Duration{
	schemas.SpeedFast:   100 * time.Millisecond,
	schemas.SpeedNormal: 300 * time.Millisecond,
	schemas.SpeedSlow:   800 * time.Millisecond,
}

// DefaultMaxJitter caps the random pacing jitter added to every step delay.
const DefaultMaxJitter = 200 * time.Millisecond

// profileSubstitutions maps field-hint keywords to profile keys. When replay
// runs with profile data enabled, a fill step whose target mentions one of
// these hints uses the operator's current value instead of the recorded one.
var profileSubstitutions = []struct {
	hint string
	key  string
}{
	{"email", "email"},
	{"phone", "phone"},
	{"first", "first_name"},
	{"last", "last_name"},
}

// Executor replays saved workflows against a live page, re-targeting each
// step's fingerprint against a fresh snapshot.
type Executor struct {
	page      schemas.PageController
	workflows *workflow.Store
	resolver  *resolver.Resolver
	profile   schemas.ProfileProvider
	cfg       config.ExecutorConfig
	log       *zap.Logger

	// sleep and jitter are injectable for tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

// New creates an executor. profile may be nil when substitution is disabled.
func New(page schemas.PageController, workflows *workflow.Store, res *resolver.Resolver, profile schemas.ProfileProvider, cfg config.ExecutorConfig, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxJitter <= 0 {
		cfg.MaxJitter = DefaultMaxJitter
	}
	return &Executor{
		page:      page,
		workflows: workflows,
		resolver:  res,
		profile:   profile,
		cfg:       cfg,
		log:       logger.Named("executor"),
		sleep:     sleepCtx,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

// Replay loads a workflow by ID, replays it, and records the outcome in the
// workflow's usage statistics. The report is returned even on partial runs;
// the error is reserved for setup failures and cancellation.
func (e *Executor) Replay(ctx context.Context, workflowID string, speed schemas.ReplaySpeed) (*schemas.ExecutionReport, error) {
	flow, err := e.workflows.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	report, err := e.Execute(ctx, flow, speed)
	if report != nil {
		if recErr := e.workflows.RecordUse(ctx, workflowID, report.Success); recErr != nil {
			e.log.Warn("Failed to record workflow usage.",
				zap.String("workflow_id", workflowID), zap.Error(recErr))
		}
	}
	return report, err
}

// Execute replays the given workflow without touching stored statistics.
// Steps run strictly in order. A step whose target cannot be re-located on
// the live page is skipped and the run continues; Success is true only when
// every step executed.
func (e *Executor) Execute(ctx context.Context, flow *schemas.SavedWorkflow, speed schemas.ReplaySpeed) (*schemas.ExecutionReport, error) {
	report := &schemas.ExecutionReport{
		WorkflowID: flow.ID,
		TotalSteps: len(flow.Steps),
	}

	baseDelay, ok := speedDelays[speed]
	if !ok {
		baseDelay = speedDelays[schemas.SpeedNormal]
	}

	var autofill map[string]string
	if e.cfg.UseProfileData && e.profile != nil {
		data, err := e.profile.AutoFillData(ctx)
		if err != nil {
			e.log.Warn("Profile data unavailable, replaying recorded values.", zap.Error(err))
		} else {
			autofill = data
		}
	}

	e.log.Info("Replaying workflow.",
		zap.String("workflow_id", flow.ID),
		zap.String("name", flow.Name),
		zap.Int("steps", len(flow.Steps)),
		zap.String("speed", string(speed)))

	for _, step := range flow.Steps {
		if err := ctx.Err(); err != nil {
			report.Message = "replay cancelled"
			report.Success = false
			return report, err
		}

		if err := e.runStep(ctx, step, autofill); err != nil {
			e.log.Warn("Step skipped.",
				zap.Int("index", step.Index),
				zap.String("description", step.Description),
				zap.Error(err))
			report.SkippedSteps = append(report.SkippedSteps, step.Index)
		} else {
			report.ExecutedSteps++
		}

		if err := e.sleep(ctx, baseDelay+e.jitter(e.cfg.MaxJitter)); err != nil {
			report.Message = "replay cancelled"
			report.Success = false
			return report, err
		}
	}

	report.Success = report.ExecutedSteps == report.TotalSteps
	if report.Success {
		report.Message = "all steps executed"
	} else {
		report.Message = fmt.Sprintf("%d of %d steps executed", report.ExecutedSteps, report.TotalSteps)
	}
	return report, nil
}

// runStep resolves and performs a single step. Any failure is a skip.
func (e *Executor) runStep(ctx context.Context, step schemas.WorkflowStep, autofill map[string]string) error {
	switch step.Action {
	case schemas.StepNavigate:
		if err := e.page.NavigateTo(ctx, step.Payload); err != nil {
			return fmt.Errorf("navigation failed: %w", err)
		}
		return e.page.WaitForLoad(ctx, 15*time.Second)
	case schemas.StepKeyPress:
		return e.page.SendKeys(ctx, step.Payload)
	}

	// The remaining variants target an element.
	snapshot, err := e.page.GetState(ctx)
	if err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}
	el, ok := e.resolver.Resolve(step.Fingerprint, snapshot)
	if !ok {
		return fmt.Errorf("no live element matches target %q", describeFingerprint(step.Fingerprint))
	}

	switch step.Action {
	case schemas.StepFillField:
		return e.page.InputText(ctx, el, substituteProfile(step, autofill))
	case schemas.StepClickElement:
		return e.page.ClickElement(ctx, el)
	case schemas.StepSelectOption:
		return e.page.SelectOption(ctx, el, step.Payload)
	default:
		return fmt.Errorf("unknown step action %q", step.Action)
	}
}

// substituteProfile swaps the recorded fill value for the operator's current
// profile value when the target field clearly names a profile-backed hint.
func substituteProfile(step schemas.WorkflowStep, autofill map[string]string) string {
	if len(autofill) == 0 {
		return step.Payload
	}
	hintSource := strings.ToLower(strings.Join([]string{
		step.Fingerprint.Name,
		step.Fingerprint.ID,
		step.Fingerprint.Placeholder,
	}, " "))
	for _, sub := range profileSubstitutions {
		if strings.Contains(hintSource, sub.hint) {
			if v, ok := autofill[sub.key]; ok && v != "" {
				return v
			}
		}
	}
	return step.Payload
}

func describeFingerprint(fp schemas.ElementFingerprint) string {
	switch {
	case fp.ID != "":
		return fp.Tag + "#" + fp.ID
	case fp.Name != "":
		return fp.Tag + "[name=" + fp.Name + "]"
	default:
		return fp.Tag
	}
}

// sleepCtx pauses for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
