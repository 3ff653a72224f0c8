// internal/ratelimit/limiter_test.go
package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// setupLimiter builds a limiter with a controllable clock.
func setupLimiter(t *testing.T, max int, window time.Duration) (*Limiter, *time.Time) {
	t.Helper()
	l := New(max, window, zaptest.NewLogger(t))
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_AllowUpToBudget(t *testing.T) {
	l, _ := setupLimiter(t, 10, time.Minute)

	for i := 0; i < 10; i++ {
		require.True(t, l.Allow(), "call %d should be allowed", i)
	}
	assert.False(t, l.Allow(), "11th call in window must be denied")
	assert.Equal(t, 0, l.Remaining())
}

func TestLimiter_WindowPruning(t *testing.T) {
	l, now := setupLimiter(t, 2, time.Minute)

	require.True(t, l.Allow())
	require.True(t, l.Allow())
	require.False(t, l.Allow())

	// Advance past the window; old permits must be pruned.
	*now = now.Add(61 * time.Second)
	assert.True(t, l.Allow())
	assert.Equal(t, 1, l.Remaining())
}

func TestLimiter_PartialExpiry(t *testing.T) {
	l, now := setupLimiter(t, 2, time.Minute)

	require.True(t, l.Allow())
	*now = now.Add(40 * time.Second)
	require.True(t, l.Allow())
	require.False(t, l.Allow())

	// Only the first permit has aged out.
	*now = now.Add(25 * time.Second)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestLimiter_DefensiveDefaults(t *testing.T) {
	l := New(0, 0, nil)
	assert.Equal(t, 10, l.max)
	assert.Equal(t, time.Minute, l.window)
}
