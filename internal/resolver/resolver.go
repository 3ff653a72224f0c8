// internal/resolver/resolver.go
package resolver

import (
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

// Fuzzy matching is inherently approximate, so the scoring rules live behind
// Scorer and can be tuned without touching the executor or optimizer state
// machines.

// Scorer rates how well a live element matches a stored fingerprint. Higher
// wins; a non-positive score means no match.
type Scorer interface {
	Score(fp schemas.ElementFingerprint, el schemas.ElementDescription) int
}

// Match priorities of the default scorer. Exact ID beats exact name beats a
// visible-text prefix hit; within one priority the first element in document
// order wins, keeping resolution deterministic for identical snapshots.
const (
	scoreIDMatch   = 300
	scoreNameMatch = 200
	scoreTextMatch = 100

	textPrefixLen = 50
)

// defaultScorer implements the stock matching rules.
type defaultScorer struct{}

func (defaultScorer) Score(fp schemas.ElementFingerprint, el schemas.ElementDescription) int {
	if fp.ID != "" && fp.ID == el.ID {
		return scoreIDMatch
	}
	if fp.Name != "" && fp.Name == el.Name {
		return scoreNameMatch
	}
	if excerpt := normalize(truncate(fp.Text, textPrefixLen)); excerpt != "" {
		if strings.Contains(normalize(el.Text), excerpt) {
			return scoreTextMatch
		}
	}
	return 0
}

// Resolver re-targets stored fingerprints against live page snapshots.
type Resolver struct {
	scorer Scorer
	log    *zap.Logger
}

// New creates a resolver with the default scoring rules.
func New(logger *zap.Logger) *Resolver {
	return NewWithScorer(logger, defaultScorer{})
}

// NewWithScorer creates a resolver with custom scoring rules.
func NewWithScorer(logger *zap.Logger, scorer Scorer) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{scorer: scorer, log: logger.Named("resolver")}
}

// Resolve finds the best matching live element for the fingerprint. The
// second return is false when nothing matches; callers must treat that as
// skip-this-step, not abort-the-run.
func (r *Resolver) Resolve(fp schemas.ElementFingerprint, snapshot *schemas.PageSnapshot) (schemas.ElementDescription, bool) {
	if snapshot == nil {
		return schemas.ElementDescription{}, false
	}

	best := -1
	bestScore := 0
	for i, el := range snapshot.Elements {
		if s := r.scorer.Score(fp, el); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		r.log.Debug("No live element matched fingerprint.",
			zap.String("tag", fp.Tag), zap.String("id", fp.ID), zap.String("name", fp.Name))
		return schemas.ElementDescription{}, false
	}
	return snapshot.Elements[best], true
}

// normalize folds case and collapses runs of whitespace so cosmetic markup
// churn does not defeat text matching.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
