// internal/ratelimit/limiter.go
package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Limiter enforces a fixed rolling window budget on oracle calls: at most
// MaxCalls permits per Window. Denied callers must reschedule the work, not
// fail it; the watcher requeues a denied batch for its next drain tick.
type Limiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	calls  []time.Time
	now    func() time.Time
	log    *zap.Logger
}

// New creates a fixed-window limiter. A non-positive max or window falls back
// to 10 calls per minute.
func New(max int, window time.Duration, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		max:    max,
		window: window,
		now:    time.Now,
		log:    logger.Named("ratelimit"),
	}
}

// Allow prunes timestamps older than the window and, if capacity remains,
// records a permit and returns true.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.calls) >= l.max {
		l.log.Debug("Oracle call budget exhausted, caller must defer.",
			zap.Int("in_window", len(l.calls)),
			zap.Duration("window", l.window))
		return false
	}
	l.calls = append(l.calls, now)
	return true
}

// Remaining reports how many permits are left in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return l.max - len(l.calls)
}

// prune drops timestamps that have aged out. Caller holds the lock.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	kept := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.calls = kept
}
