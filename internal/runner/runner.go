// internal/runner/runner.go
package runner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
	"github.com/xkilldash9x/formpilot-cli/internal/config"
	"github.com/xkilldash9x/formpilot-cli/internal/profile"
	"github.com/xkilldash9x/formpilot-cli/internal/recorder"
	"github.com/xkilldash9x/formpilot-cli/internal/watcher"
)

// ApplyReport summarizes one fast-fill run.
type ApplyReport struct {
	URL           string        `json:"url"`
	StaticFilled  int           `json:"static_filled"`
	DynamicFilled int           `json:"dynamic_filled"`
	Skipped       int           `json:"skipped"`
	Elapsed       time.Duration `json:"elapsed"`
	BudgetExpired bool          `json:"budget_expired"`
}

// Executor is the replay collaborator the runner drives.
type Executor interface {
	Replay(ctx context.Context, workflowID string, speed schemas.ReplaySpeed) (*schemas.ExecutionReport, error)
}

// BatchRunner wires the page session, recorder, executor and watcher into
// the operations the CLI exposes. All runs share one page session and one
// oracle call budget.
type BatchRunner struct {
	page     schemas.PageController
	recorder *recorder.Recorder
	executor Executor
	watcher  *watcher.Watcher
	resolver *watcher.AnswerResolver
	profiles *profile.Provider
	cfg      config.ApplyConfig
	log      *zap.Logger

	now func() time.Time
}

// New creates a batch runner.
func New(page schemas.PageController, rec *recorder.Recorder, ex Executor, w *watcher.Watcher, resolver *watcher.AnswerResolver, profiles *profile.Provider, cfg config.ApplyConfig, logger *zap.Logger) *BatchRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &BatchRunner{
		page:     page,
		recorder: rec,
		executor: ex,
		watcher:  w,
		resolver: resolver,
		profiles: profiles,
		cfg:      cfg,
		log:      logger.Named("runner"),
		now:      time.Now,
	}
}

// Record runs a recording session until ctx is cancelled, then persists the
// workflow. The recorder itself guards against concurrent sessions.
func (r *BatchRunner) Record(ctx context.Context, name string) (*recorder.StopResult, error) {
	return r.recorder.Run(ctx, name)
}

// Replay replays a saved workflow.
func (r *BatchRunner) Replay(ctx context.Context, workflowID string, speed schemas.ReplaySpeed) (*schemas.ExecutionReport, error) {
	return r.executor.Replay(ctx, workflowID, speed)
}

// Apply navigates to a form and fills it: one static pass over the current
// snapshot, then the change watcher picks up dynamically revealed fields
// until the wall-clock budget lapses. Budget expiry is a normal outcome, not
// an error; whatever was filled stays filled.
func (r *BatchRunner) Apply(ctx context.Context, url string, answerCtx schemas.AnswerContext) (*ApplyReport, error) {
	start := r.now()
	report := &ApplyReport{URL: url}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	if err := r.page.NavigateTo(runCtx, url); err != nil {
		return nil, err
	}
	if err := r.page.WaitForLoad(runCtx, 30*time.Second); err != nil {
		return nil, err
	}

	r.watcher.SetContext(answerCtx)
	if err := r.watcher.Install(runCtx); err != nil {
		r.log.Warn("Failed to install change watcher; dynamic fields will be missed.", zap.Error(err))
	}

	static, skipped, err := r.fillStatic(runCtx, answerCtx)
	report.StaticFilled = static
	report.Skipped = skipped
	if err != nil && !isBudgetExpiry(err) {
		return report, err
	}

	// Let the watcher chase dynamically revealed fields for the rest of the
	// budget.
	g, watchCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		err := r.watcher.Run(watchCtx)
		if errors.Is(err, context.Canceled) || isBudgetExpiry(err) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return report, err
	}

	report.DynamicFilled = r.watcher.Filled()
	report.Elapsed = r.now().Sub(start)
	report.BudgetExpired = isBudgetExpiry(runCtx.Err())
	r.log.Info("Apply run finished.",
		zap.String("url", url),
		zap.Int("static_filled", report.StaticFilled),
		zap.Int("skipped", report.Skipped),
		zap.Duration("elapsed", report.Elapsed),
		zap.Bool("budget_expired", report.BudgetExpired))
	return report, nil
}

// fillStatic answers the fields already present on the page. The budget is
// rechecked before every fill so expiry skips the remainder instead of
// aborting the run.
func (r *BatchRunner) fillStatic(ctx context.Context, answerCtx schemas.AnswerContext) (filled, skipped int, err error) {
	snapshot, err := r.page.GetState(ctx)
	if err != nil {
		return 0, 0, err
	}

	profileData := map[string]string{}
	if r.profiles != nil {
		if data, perr := r.profiles.AutoFillData(ctx); perr == nil {
			profileData = data
		}
	}

	var fields []schemas.FormField
	for _, el := range snapshot.Elements {
		f := watcher.FieldFromElement(el)
		if f.Label == "" || !f.IsQuestion {
			continue
		}

		// Identity fields come straight from the profile.
		if value, ok := profile.MatchField(f.Fingerprint, profileData); ok {
			if ctx.Err() != nil {
				skipped++
				continue
			}
			if ferr := r.page.InputText(ctx, el, value); ferr != nil {
				r.log.Warn("Failed to fill identity field.", zap.String("label", f.Label), zap.Error(ferr))
				skipped++
				continue
			}
			r.watcher.MarkAnswered(f.Hash)
			filled++
			continue
		}
		fields = append(fields, f)
	}

	answers, deferred := r.resolver.Resolve(ctx, fields, answerCtx)
	skipped += len(deferred)

	elements := make(map[string]schemas.ElementDescription, len(snapshot.Elements))
	for _, el := range snapshot.Elements {
		elements[watcher.FieldFromElement(el).Hash] = el
	}

	for _, f := range fields {
		answer, ok := answers[f.Hash]
		if !ok {
			continue
		}
		if ctx.Err() != nil {
			skipped++
			continue
		}
		el := elements[f.Hash]
		if ferr := r.page.InputText(ctx, el, answer); ferr != nil {
			r.log.Warn("Failed to fill field.", zap.String("label", f.Label), zap.Error(ferr))
			skipped++
			continue
		}
		r.watcher.MarkAnswered(f.Hash)
		filled++
	}
	return filled, skipped, ctx.Err()
}

func isBudgetExpiry(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
