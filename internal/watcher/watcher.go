// internal/watcher/watcher.go
package watcher

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
	"github.com/xkilldash9x/formpilot-cli/internal/config"
)

// fieldRecord mirrors the page-side observer record.
type fieldRecord struct {
	Tag         string   `json:"tag"`
	ID          string   `json:"id"`
	Classes     []string `json:"classes"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Placeholder string   `json:"placeholder"`
	Text        string   `json:"text"`
	Required    bool     `json:"required"`
	Multiline   bool     `json:"multiline"`
	Path        string   `json:"path"`
}

// Watcher answers form fields that appear dynamically after page load.
// One goroutine drains a page-side MutationObserver buffer on a fixed tick;
// if a drain is still in flight when the next tick fires, that tick is
// skipped without touching the buffer, so pending fields are deferred to the
// following tick rather than dropped.
type Watcher struct {
	page     schemas.PageController
	resolver *AnswerResolver
	cfg      config.WatcherConfig
	log      *zap.Logger

	inFlight atomic.Bool

	mu        sync.Mutex
	answered  map[string]bool
	deferred  []schemas.FormField
	answerCtx schemas.AnswerContext
	filled    int
}

// New creates a watcher.
func New(page schemas.PageController, resolver *AnswerResolver, cfg config.WatcherConfig, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = time.Second
	}
	return &Watcher{
		page:     page,
		resolver: resolver,
		cfg:      cfg,
		log:      logger.Named("watcher"),
		answered: make(map[string]bool),
	}
}

// SetContext updates the substitution context used for subsequent answers.
func (w *Watcher) SetContext(answerCtx schemas.AnswerContext) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.answerCtx = answerCtx
}

// Filled reports how many dynamic fields the watcher has answered so far.
func (w *Watcher) Filled() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.filled
}

// MarkAnswered records hashes answered outside the watcher (the fast-fill
// pass) so the session never answers one concept twice.
func (w *Watcher) MarkAnswered(hashes ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range hashes {
		w.answered[h] = true
	}
}

// Install injects the page-side observer. Idempotent.
func (w *Watcher) Install(ctx context.Context) error {
	var installed bool
	return w.page.Evaluate(ctx, observerInstallScript, &installed)
}

// Run installs the observer and drains on the configured interval until the
// context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Install(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one drain-resolve-fill cycle. Returns the number of fields
// answered this cycle; a tick skipped because the previous one is still in
// flight reports -1 without reading the buffer.
func (w *Watcher) Tick(ctx context.Context) int {
	if !w.inFlight.CompareAndSwap(false, true) {
		// Previous cycle still running; leave the buffer accumulating.
		return -1
	}
	defer w.inFlight.Store(false)

	var records []fieldRecord
	if err := w.page.Evaluate(ctx, observerDrainScript, &records); err != nil {
		w.log.Debug("Observer drain failed, skipping cycle.", zap.Error(err))
		return 0
	}

	fields, answerCtx := w.collect(records)
	if len(fields) == 0 {
		return 0
	}

	answers, deferred := w.resolver.Resolve(ctx, fields, answerCtx)

	w.mu.Lock()
	w.deferred = deferred
	w.mu.Unlock()

	filled := 0
	for _, f := range fields {
		answer, ok := answers[f.Hash]
		if !ok {
			continue
		}
		if err := w.fill(ctx, f, answer); err != nil {
			w.log.Warn("Failed to fill dynamic field.",
				zap.String("label", f.Label), zap.Error(err))
			continue
		}
		filled++
		w.mu.Lock()
		w.answered[f.Hash] = true
		w.filled++
		w.mu.Unlock()
	}

	if filled > 0 {
		w.log.Info("Dynamic fields answered.",
			zap.Int("observed", len(records)),
			zap.Int("filled", filled),
			zap.Int("deferred", len(deferred)))
	}
	return filled
}

// collect merges freshly drained records with the deferred batch, dedups
// against session-answered hashes, and orders by priority.
func (w *Watcher) collect(records []fieldRecord) ([]schemas.FormField, schemas.AnswerContext) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fields := w.deferred
	w.deferred = nil

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		seen[f.Hash] = true
	}

	for i, rec := range records {
		f := FieldFromElement(schemas.ElementDescription{
			Index:       i,
			Tag:         rec.Tag,
			ID:          rec.ID,
			Classes:     rec.Classes,
			Name:        rec.Name,
			Type:        rec.Type,
			Placeholder: rec.Placeholder,
			Text:        rec.Text,
			Required:    rec.Required,
			Multiline:   rec.Multiline,
			Path:        rec.Path,
		})
		if f.Label == "" || !f.IsQuestion {
			continue
		}
		if w.answered[f.Hash] || seen[f.Hash] {
			continue
		}
		seen[f.Hash] = true
		fields = append(fields, f)
	}

	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Priority > fields[j].Priority
	})
	return fields, w.answerCtx
}

// fill writes one answer into the page and fires synthetic events so bound
// frameworks register the change.
func (w *Watcher) fill(ctx context.Context, f schemas.FormField, answer string) error {
	el := elementFor(f)
	if err := w.page.InputText(ctx, el, answer); err != nil {
		return err
	}
	var dispatched bool
	if err := w.page.Evaluate(ctx, syntheticEventScript(el.Selector()), &dispatched); err != nil {
		w.log.Debug("Synthetic event dispatch failed.",
			zap.String("selector", el.Selector()), zap.Error(err))
	}
	return nil
}
