// internal/cache/cache.go
package cache

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
	"github.com/xkilldash9x/formpilot-cli/internal/config"
)

// storeKey is the document under which the whole answer collection persists.
const storeKey = "answer_cache"

// questionAuditLen caps the stored question text; the hash, not the text, is
// the lookup key, so the text exists purely for audit.
const questionAuditLen = 200

// scoreAgePenalty is the age divisor of the eviction score: one use "buys"
// thirty days of retention.
const scoreAgePenalty = 30 * 24 * time.Hour

// QuestionCache is the concept-hash keyed question -> answer cache. Entries
// expire after the configured TTL and the collection never exceeds
// MaxEntries after an insert-triggered cleanup pass. Storage failures are
// degraded to cache misses, never propagated.
type QuestionCache struct {
	mu      sync.Mutex
	store   schemas.DocumentStore
	entries map[string]*schemas.CachedAnswer
	max     int
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// New creates a question cache backed by the document store. The persisted
// collection is loaded eagerly; a read failure starts empty (fail open).
func New(ctx context.Context, cfg config.CacheConfig, store schemas.DocumentStore, logger *zap.Logger) *QuestionCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &QuestionCache{
		store:   store,
		entries: make(map[string]*schemas.CachedAnswer),
		max:     cfg.MaxEntries,
		ttl:     cfg.TTL,
		now:     time.Now,
		log:     logger.Named("question_cache"),
	}
	if c.max <= 0 {
		c.max = 1000
	}
	if c.ttl <= 0 {
		c.ttl = 30 * 24 * time.Hour
	}
	c.load(ctx)
	return c
}

// Get returns the cached answer for the question's concept cluster. A hit
// older than the TTL is evicted and reported as a miss. Hits bump usage
// stats and substitute context placeholders into the stored answer.
func (c *QuestionCache) Get(ctx context.Context, question string, answerCtx schemas.AnswerContext) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := Hash(question)
	entry, ok := c.entries[hash]
	if !ok {
		return "", false
	}

	now := c.now()
	if now.Sub(entry.CreatedAt) > c.ttl {
		delete(c.entries, hash)
		c.persist(ctx)
		c.log.Debug("Evicted expired cache entry on read.", zap.String("hash", hash))
		return "", false
	}

	entry.LastUsed = now
	entry.UseCount++
	c.persist(ctx)
	return substituteContext(entry.Answer, answerCtx), true
}

// Put upserts one answer and runs the capacity cleanup.
func (c *QuestionCache) Put(ctx context.Context, question, answer string, confidence float64, answerCtx schemas.AnswerContext) {
	c.PutBatch(ctx, []schemas.CachedAnswer{{
		Question:   question,
		Answer:     answer,
		Confidence: confidence,
		Context:    answerCtx,
	}})
}

// PutBatch upserts N answers atomically with a single persistence write.
// ConceptHash, CreatedAt and usage stats are assigned here; callers only
// provide question, answer, confidence and context.
func (c *QuestionCache) PutBatch(ctx context.Context, answers []schemas.CachedAnswer) {
	if len(answers) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for _, a := range answers {
		hash := Hash(a.Question)
		if existing, ok := c.entries[hash]; ok {
			existing.Answer = a.Answer
			existing.Confidence = a.Confidence
			existing.Context = a.Context
			existing.LastUsed = now
			continue
		}
		c.entries[hash] = &schemas.CachedAnswer{
			ConceptHash: hash,
			Question:    truncateQuestion(a.Question),
			Answer:      a.Answer,
			Confidence:  a.Confidence,
			CreatedAt:   now,
			LastUsed:    now,
			UseCount:    0,
			Context:     a.Context,
		}
	}

	c.cleanup()
	c.persist(ctx)
}

// Len reports the current entry count.
func (c *QuestionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Export renders the collection as a self-describing backup envelope.
func (c *QuestionCache) Export() (*schemas.ExportEnvelope, error) {
	c.mu.Lock()
	entries := make([]schemas.CachedAnswer, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, *e)
	}
	c.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].ConceptHash < entries[j].ConceptHash })
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	return &schemas.ExportEnvelope{
		Version:   schemas.ExportVersion,
		Timestamp: c.now(),
		Entries:   raw,
		Stats:     schemas.ExportStats{EntryCount: len(entries), Kind: "answers"},
	}, nil
}

// Import merges a backup envelope into the cache, newest entry wins.
func (c *QuestionCache) Import(ctx context.Context, envelope *schemas.ExportEnvelope) (int, error) {
	var entries []schemas.CachedAnswer
	if err := json.Unmarshal(envelope.Entries, &entries); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	imported := 0
	for i := range entries {
		e := entries[i]
		if e.ConceptHash == "" {
			continue
		}
		if existing, ok := c.entries[e.ConceptHash]; ok && existing.LastUsed.After(e.LastUsed) {
			continue
		}
		c.entries[e.ConceptHash] = &e
		imported++
	}
	c.cleanup()
	c.persist(ctx)
	return imported, nil
}

// cleanup enforces the capacity bound: TTL-expired entries drop first, then
// the lowest-scoring entries until the cache fits. Score weighs use frequency
// with a small recency penalty. Caller holds the lock.
func (c *QuestionCache) cleanup() {
	if len(c.entries) <= c.max {
		return
	}

	now := c.now()
	for hash, e := range c.entries {
		if now.Sub(e.CreatedAt) > c.ttl {
			delete(c.entries, hash)
		}
	}
	if len(c.entries) <= c.max {
		return
	}

	type scored struct {
		hash  string
		score float64
	}
	ranked := make([]scored, 0, len(c.entries))
	for hash, e := range c.entries {
		age := now.Sub(e.CreatedAt)
		ranked = append(ranked, scored{
			hash:  hash,
			score: float64(e.UseCount) - float64(age)/float64(scoreAgePenalty),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		return ranked[i].hash < ranked[j].hash
	})

	for _, s := range ranked[:len(c.entries)-c.max] {
		delete(c.entries, s.hash)
	}
	c.log.Debug("Capacity cleanup complete.", zap.Int("entries", len(c.entries)))
}

// load reads the persisted collection. Any failure starts the cache empty.
func (c *QuestionCache) load(ctx context.Context) {
	raw, err := c.store.Get(ctx, storeKey)
	if err != nil {
		if !errors.Is(err, schemas.ErrNotFound) {
			c.log.Warn("Failed to load answer cache, starting empty.", zap.Error(err))
		}
		return
	}
	var entries []schemas.CachedAnswer
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.log.Warn("Corrupt answer cache document, starting empty.", zap.Error(err))
		return
	}
	for i := range entries {
		c.entries[entries[i].ConceptHash] = &entries[i]
	}
	c.log.Info("Answer cache loaded.", zap.Int("entries", len(c.entries)))
}

// persist writes the whole collection. Write failures are logged and ignored;
// the in-memory cache keeps serving. Caller holds the lock.
func (c *QuestionCache) persist(ctx context.Context) {
	entries := make([]schemas.CachedAnswer, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ConceptHash < entries[j].ConceptHash })

	raw, err := json.Marshal(entries)
	if err != nil {
		c.log.Warn("Failed to marshal answer cache.", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, storeKey, raw); err != nil {
		c.log.Warn("Failed to persist answer cache.", zap.Error(err))
	}
}

// substituteContext replaces the context placeholders of a stored answer.
func substituteContext(answer string, answerCtx schemas.AnswerContext) string {
	replacements := [...][2]string{
		{"{company}", answerCtx.Company},
		{"{job}", answerCtx.Job},
		{"{industry}", answerCtx.Industry},
		{"{position}", answerCtx.Position},
	}
	for _, r := range replacements {
		if r[1] != "" {
			answer = strings.ReplaceAll(answer, r[0], r[1])
		}
	}
	return answer
}

func truncateQuestion(q string) string {
	if len(q) <= questionAuditLen {
		return q
	}
	return q[:questionAuditLen]
}
