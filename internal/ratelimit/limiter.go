// Package ratelimit paces outbound crawler requests against sliding
// per-minute and per-hour budgets with exponential backoff after errors.
// One Limiter instance is shared by every fetch call site in the process;
// state is process-lifetime only.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"jobingest/internal/common/config"
	"jobingest/internal/common/metrics"
)

// Limiter admits at most MaxRequestsPerMinute requests per sliding minute
// and MaxRequestsPerHour per sliding hour. After consecutive errors the
// minimum spacing between requests grows as base * multiplier^errors,
// capped at maxDelay; one success resets the error counter.
type Limiter struct {
	mu sync.Mutex

	maxPerMinute int
	maxPerHour   int

	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64

	requests          []time.Time // timestamps within the last hour
	consecutiveErrors int
	lastRequest       time.Time

	// now is swapped out in tests.
	now func() time.Time
}

// New builds a Limiter from config.
func New(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		maxPerMinute: cfg.MaxRequestsPerMinute,
		maxPerHour:   cfg.MaxRequestsPerHour,
		baseDelay:    time.Duration(cfg.BaseDelayMs) * time.Millisecond,
		maxDelay:     time.Duration(cfg.MaxDelayMs) * time.Millisecond,
		multiplier:   cfg.BackoffMultiplier,
		now:          time.Now,
	}
}

// AwaitSlot blocks until a request may be issued without exceeding either
// window, or until ctx is done. When a window is already full the caller is
// suspended until the oldest counted request ages out, then the check is
// retried. A full window is re-evaluated, not merely delayed once.
func (l *Limiter) AwaitSlot(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.RateLimiterWait.Observe(time.Since(start).Seconds())
	}()

	for {
		wait, ok := l.tryAdmit()
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter wait: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
}

// tryAdmit either admits the request now (recording it) or returns how long
// to sleep before re-checking.
func (l *Limiter) tryAdmit() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	// Backoff spacing after errors takes precedence over window capacity.
	if l.consecutiveErrors > 0 && !l.lastRequest.IsZero() {
		nextAllowed := l.lastRequest.Add(l.backoffDelay())
		if now.Before(nextAllowed) {
			return nextAllowed.Sub(now), false
		}
	}

	minuteAgo := now.Add(-time.Minute)
	minuteCount := 0
	var oldestInMinute time.Time
	for _, t := range l.requests {
		if t.After(minuteAgo) {
			if minuteCount == 0 {
				oldestInMinute = t
			}
			minuteCount++
		}
	}

	if minuteCount >= l.maxPerMinute {
		return oldestInMinute.Add(time.Minute).Sub(now), false
	}
	if len(l.requests) >= l.maxPerHour {
		return l.requests[0].Add(time.Hour).Sub(now), false
	}

	l.requests = append(l.requests, now)
	l.lastRequest = now
	return 0, true
}

// RecordSuccess resets the error counter.
func (l *Limiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecutiveErrors = 0
}

// RecordError increments the error counter, growing the backoff spacing.
func (l *Limiter) RecordError() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecutiveErrors++
}

// ConsecutiveErrors reports the current error streak.
func (l *Limiter) ConsecutiveErrors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.consecutiveErrors
}

func (l *Limiter) backoffDelay() time.Duration {
	delay := time.Duration(float64(l.baseDelay) * math.Pow(l.multiplier, float64(l.consecutiveErrors-1)))
	if delay > l.maxDelay {
		delay = l.maxDelay
	}
	return delay
}

// prune drops timestamps older than one hour.
func (l *Limiter) prune(now time.Time) {
	hourAgo := now.Add(-time.Hour)
	i := 0
	for ; i < len(l.requests); i++ {
		if l.requests[i].After(hourAgo) {
			break
		}
	}
	l.requests = l.requests[i:]
}
