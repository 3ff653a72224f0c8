// internal/cache/cache_test.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
	"github.com/xkilldash9x/formpilot-cli/internal/config"
	"github.com/xkilldash9x/formpilot-cli/internal/store"
)

func setupCache(t *testing.T, cfg config.CacheConfig) *QuestionCache {
	t.Helper()
	return New(context.Background(), cfg, store.NewMemory(), zaptest.NewLogger(t))
}

func TestConceptTags(t *testing.T) {
	tests := []struct {
		question string
		want     []string
	}{
		{"Are you authorized to work in the US?", []string{TagWorkAuthorization}},
		{"Do you have work authorization?", []string{TagWorkAuthorization}},
		{"Will you require visa sponsorship?", []string{TagVisaSponsorship}},
		{"What is your favorite color?", []string{TagGeneral}},
		{"Do you have a Bachelor's degree?", []string{TagEducation}},
		{"What are your salary expectations for this role?", []string{TagCompensation}},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, ConceptTags(tt.question))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "are you authorized to work", Normalize("  Are YOU authorized, to work?! "))
	assert.Equal(t, "h 1b visa", Normalize("H-1B visa"))
}

// TestCache_ConceptClusterHit is the canonical rephrasing scenario: an answer
// stored for one phrasing is returned for a different phrasing of the same
// concept.
func TestCache_ConceptClusterHit(t *testing.T) {
	c := setupCache(t, config.CacheConfig{})
	ctx := context.Background()

	_, ok := c.Get(ctx, "Are you authorized to work in the US?", schemas.AnswerContext{})
	require.False(t, ok, "cold cache must miss")

	c.Put(ctx, "Are you authorized to work in the US?", "Yes", 0.9, schemas.AnswerContext{})

	answer, ok := c.Get(ctx, "Do you have work authorization?", schemas.AnswerContext{})
	require.True(t, ok, "rephrased question must hit the shared concept entry")
	assert.Equal(t, "Yes", answer)
}

func TestCache_ContextSubstitution(t *testing.T) {
	c := setupCache(t, config.CacheConfig{})
	ctx := context.Background()

	c.Put(ctx, "Why do you want to join us?", "I admire {company}'s work in {industry}.", 0.8, schemas.AnswerContext{})

	answer, ok := c.Get(ctx, "Why are you interested in this position?", schemas.AnswerContext{
		Company: "Acme", Industry: "robotics",
	})
	require.True(t, ok)
	assert.Equal(t, "I admire Acme's work in robotics.", answer)
}

func TestCache_TTLEvictionOnRead(t *testing.T) {
	c := setupCache(t, config.CacheConfig{TTL: 30 * 24 * time.Hour})
	ctx := context.Background()

	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Put(ctx, "Will you require sponsorship?", "No", 1.0, schemas.AnswerContext{})

	// Within TTL: hit.
	c.now = func() time.Time { return base.Add(29 * 24 * time.Hour) }
	_, ok := c.Get(ctx, "Will you require sponsorship?", schemas.AnswerContext{})
	require.True(t, ok)

	// Past TTL: evicted, miss.
	c.now = func() time.Time { return base.Add(31 * 24 * time.Hour) }
	_, ok = c.Get(ctx, "Will you require sponsorship?", schemas.AnswerContext{})
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

// TestCache_CapacityEviction inserts 1,001 distinct questions and verifies
// the capacity bound plus lowest-score-first eviction.
func TestCache_CapacityEviction(t *testing.T) {
	c := setupCache(t, config.CacheConfig{MaxEntries: 1000})
	ctx := context.Background()

	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	// Distinct general questions get distinct concept hashes.
	batch := make([]schemas.CachedAnswer, 0, 1000)
	for i := 0; i < 1000; i++ {
		batch = append(batch, schemas.CachedAnswer{
			Question: fmt.Sprintf("Custom question number %d about topic %d?", i, i),
			Answer:   "answer",
		})
	}
	c.PutBatch(ctx, batch)
	require.Equal(t, 1000, c.Len())

	// Make one entry clearly the most valuable.
	favorite := "Custom question number 42 about topic 42?"
	for i := 0; i < 5; i++ {
		_, ok := c.Get(ctx, favorite, schemas.AnswerContext{})
		require.True(t, ok)
	}

	// Entry 1001 triggers a cleanup pass; size stays bounded and the
	// frequently used entry survives.
	c.Put(ctx, "One more brand new question?", "answer", 1.0, schemas.AnswerContext{})
	assert.LessOrEqual(t, c.Len(), 1000)

	_, ok := c.Get(ctx, favorite, schemas.AnswerContext{})
	assert.True(t, ok, "highest-scoring entry must not be evicted")
}

func TestCache_UsageStatsBumpOnHit(t *testing.T) {
	c := setupCache(t, config.CacheConfig{})
	ctx := context.Background()

	c.Put(ctx, "Do you have a bachelor degree?", "Yes", 1.0, schemas.AnswerContext{})
	hash := Hash("Do you have a bachelor degree?")

	for i := 1; i <= 3; i++ {
		_, ok := c.Get(ctx, "Do you have a bachelor degree?", schemas.AnswerContext{})
		require.True(t, ok)
		c.mu.Lock()
		assert.Equal(t, i, c.entries[hash].UseCount)
		c.mu.Unlock()
	}
}

func TestCache_PersistsAcrossInstances(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	first := New(ctx, config.CacheConfig{}, mem, zaptest.NewLogger(t))
	first.Put(ctx, "Are you eligible to work here?", "Yes", 1.0, schemas.AnswerContext{})

	second := New(ctx, config.CacheConfig{}, mem, zaptest.NewLogger(t))
	answer, ok := second.Get(ctx, "Are you eligible to work here?", schemas.AnswerContext{})
	require.True(t, ok)
	assert.Equal(t, "Yes", answer)
}

// wrappedNotFoundStore annotates the miss the way a store layer would.
type wrappedNotFoundStore struct{}

func (wrappedNotFoundStore) Get(context.Context, string) (json.RawMessage, error) {
	return nil, fmt.Errorf("document %q: %w", storeKey, schemas.ErrNotFound)
}

func (wrappedNotFoundStore) Set(context.Context, string, json.RawMessage) error { return nil }

func TestCache_WrappedNotFoundStartsEmptyQuietly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := New(context.Background(), config.CacheConfig{}, wrappedNotFoundStore{}, zap.New(core))

	assert.Equal(t, 0, c.Len())
	assert.Zero(t, logs.Len(), "a missing document is a cold start, not a load failure")
}

func TestCache_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := setupCache(t, config.CacheConfig{})
	c.Put(ctx, "Will you require sponsorship?", "No", 1.0, schemas.AnswerContext{})
	c.Put(ctx, "Do you have a degree?", "Yes", 1.0, schemas.AnswerContext{})

	envelope, err := c.Export()
	require.NoError(t, err)
	assert.Equal(t, schemas.ExportVersion, envelope.Version)
	assert.Equal(t, 2, envelope.Stats.EntryCount)
	assert.Equal(t, "answers", envelope.Stats.Kind)

	fresh := setupCache(t, config.CacheConfig{})
	imported, err := fresh.Import(ctx, envelope)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	answer, ok := fresh.Get(ctx, "Do you require visa sponsorship?", schemas.AnswerContext{})
	require.True(t, ok)
	assert.Equal(t, "No", answer)
}

func TestTemplateAnswer(t *testing.T) {
	profile := map[string]string{
		"desired_salary":   "$120,000",
		"years_experience": "7",
	}

	tests := []struct {
		question string
		want     string
		wantOK   bool
	}{
		{"Do you have a bachelor's degree?", "Yes", true},
		{"Will you now or in the future require sponsorship?", "No", true},
		{"What are your salary expectations?", "$120,000", true},
		{"How many years of experience do you have with Go?", "7", true},
		{"Are you willing to relocate for this role?", "Yes", true},
		{"Describe a project you are proud of.", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got, ok := TemplateAnswer(tt.question, profile)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplateAnswer_DefaultsWithoutProfile(t *testing.T) {
	got, ok := TemplateAnswer("What is your expected salary?", nil)
	require.True(t, ok)
	assert.Equal(t, "Negotiable", got)
}
