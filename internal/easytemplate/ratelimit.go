package easytemplate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrQuotaExhausted is returned when the configured daily call quota is used up.
var ErrQuotaExhausted = errors.New("daily call quota exhausted")

// RateLimiter paces outbound calls with a token bucket and an optional
// daily quota. It keeps the client from provoking 429s in the first place;
// the retry policy handles the ones that still happen.
type RateLimiter struct {
	limiter  *rate.Limiter
	maxDaily int64

	mu      sync.Mutex
	used    int64
	resetAt time.Time
	nowFunc func() time.Time
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterNowFunc overrides the time function for testing.
func WithRateLimiterNowFunc(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.nowFunc = f
	}
}

// NewRateLimiter allows perSecond calls with the given burst. A maxDaily of
// zero disables the quota.
func NewRateLimiter(perSecond float64, burst int, maxDaily int64, opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		maxDaily: maxDaily,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.resetAt = r.nowFunc().Add(24 * time.Hour)
	return r
}

// Wait blocks until a call may proceed or ctx is done. A call that never
// gets past the token bucket does not count against the daily quota.
func (r *RateLimiter) Wait(ctx context.Context) error {
	window, err := r.take()
	if err != nil {
		return err
	}
	if err := r.limiter.Wait(ctx); err != nil {
		r.refund(window)
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// Remaining returns the calls left in the current window, or -1 when no
// quota is configured.
func (r *RateLimiter) Remaining() int64 {
	if r.maxDaily <= 0 {
		return -1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetIfDueLocked()
	return max(r.maxDaily-r.used, 0)
}

// MaxDaily returns the configured daily quota, zero when disabled.
func (r *RateLimiter) MaxDaily() int64 {
	return r.maxDaily
}

// DailyCount returns the calls made in the current window.
func (r *RateLimiter) DailyCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetIfDueLocked()
	return r.used
}

// ResetAt returns when the current quota window ends.
func (r *RateLimiter) ResetAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetAt
}

// take reserves a quota slot and returns the window it was charged to.
func (r *RateLimiter) take() (time.Time, error) {
	if r.maxDaily <= 0 {
		return time.Time{}, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetIfDueLocked()
	if r.used >= r.maxDaily {
		return time.Time{}, fmt.Errorf("%w (%d/%d)", ErrQuotaExhausted, r.used, r.maxDaily)
	}
	r.used++
	return r.resetAt, nil
}

// refund returns a slot reserved by take, unless its window has already
// rolled over.
func (r *RateLimiter) refund(window time.Time) {
	if r.maxDaily <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resetAt.Equal(window) && r.used > 0 {
		r.used--
	}
}

func (r *RateLimiter) resetIfDueLocked() {
	now := r.nowFunc()
	if now.After(r.resetAt) {
		r.used = 0
		r.resetAt = now.Add(24 * time.Hour)
	}
}
