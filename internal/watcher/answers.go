// internal/watcher/answers.go
package watcher

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
	"github.com/xkilldash9x/formpilot-cli/internal/cache"
	"github.com/xkilldash9x/formpilot-cli/internal/ratelimit"
)

// oracleConfidence is the confidence recorded for answers that came from the
// external service, versus full confidence for deterministic templates.
const oracleConfidence = 0.8

// AnswerResolver runs the shared answer pipeline: deterministic templates
// first, then the concept cache, then one batched oracle call per category
// under the hard rate limit. Standard fields never reach the cache or the
// oracle. Both the change watcher and the fast-fill runner resolve through
// one instance so the session shares a single call budget.
type AnswerResolver struct {
	cache   *cache.QuestionCache
	oracle  schemas.OracleClient
	limiter *ratelimit.Limiter
	profile schemas.ProfileProvider
	log     *zap.Logger
}

// NewAnswerResolver creates the pipeline. oracle may be nil, in which case
// uncached non-template questions stay unanswered.
func NewAnswerResolver(qc *cache.QuestionCache, oracle schemas.OracleClient, limiter *ratelimit.Limiter, profile schemas.ProfileProvider, logger *zap.Logger) *AnswerResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerResolver{
		cache:   qc,
		oracle:  oracle,
		limiter: limiter,
		profile: profile,
		log:     logger.Named("answers"),
	}
}

// Resolve answers the given fields. The returned map is keyed by concept
// hash; deferred holds the fields whose oracle batch was denied by the rate
// limiter and should be retried on a later tick.
func (r *AnswerResolver) Resolve(ctx context.Context, fields []schemas.FormField, answerCtx schemas.AnswerContext) (answers map[string]string, deferred []schemas.FormField) {
	answers = make(map[string]string)
	profileData := r.profileData(ctx)
	pending := make(map[schemas.FieldCategory][]schemas.FormField)

	for _, f := range fields {
		if f.Label == "" || !f.IsQuestion {
			continue
		}

		if answer, ok := cache.TemplateAnswer(f.Label, profileData); ok {
			answers[f.Hash] = answer
			r.cache.Put(ctx, f.Label, answer, 1.0, answerCtx)
			continue
		}
		if f.Category == schemas.CategoryStandard {
			// Standard fields are template-or-nothing.
			continue
		}
		if answer, ok := r.cache.Get(ctx, f.Label, answerCtx); ok {
			answers[f.Hash] = answer
			continue
		}
		pending[f.Category] = append(pending[f.Category], f)
	}

	if r.oracle == nil {
		return answers, nil
	}

	// Deterministic category order keeps call budgeting reproducible.
	categories := make([]schemas.FieldCategory, 0, len(pending))
	for c := range pending {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	for _, category := range categories {
		batch := pending[category]
		if !r.limiter.Allow() {
			r.log.Info("Oracle call budget exhausted, deferring batch.",
				zap.String("category", string(category)),
				zap.Int("questions", len(batch)))
			deferred = append(deferred, batch...)
			continue
		}

		questions := make([]string, len(batch))
		for i, f := range batch {
			questions[i] = f.Label
		}
		got, err := r.oracle.AnswerBatch(ctx, schemas.OracleRequest{
			Category:  category,
			Questions: questions,
			Context:   answerCtx,
		})
		if err != nil {
			r.log.Warn("Oracle batch failed, leaving questions unanswered.",
				zap.String("category", string(category)), zap.Error(err))
			continue
		}

		cached := make([]schemas.CachedAnswer, 0, len(batch))
		for i, f := range batch {
			if i >= len(got) || got[i] == "" {
				continue
			}
			answers[f.Hash] = got[i]
			cached = append(cached, schemas.CachedAnswer{
				Question:   f.Label,
				Answer:     got[i],
				Confidence: oracleConfidence,
				Context:    answerCtx,
			})
		}
		r.cache.PutBatch(ctx, cached)
	}

	return answers, deferred
}

// profileData loads auto-fill data, degrading to nil on any failure.
func (r *AnswerResolver) profileData(ctx context.Context) map[string]string {
	if r.profile == nil {
		return nil
	}
	data, err := r.profile.AutoFillData(ctx)
	if err != nil {
		r.log.Debug("Profile data unavailable.", zap.Error(err))
		return nil
	}
	return data
}
