package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateLimiter paces GitHub API calls
type RateLimiter interface {
	// Pause inserts one of the fixed delays between pages or pull requests.
	Pause(ctx context.Context, d time.Duration) error
	// Wait blocks until the primary quota has reset when it is nearly exhausted.
	Wait(ctx context.Context) error
	UpdateLimit(remaining int, resetTime time.Time)
}

// githubRateLimiter implements RateLimiter for GitHub API
type githubRateLimiter struct {
	mu        sync.Mutex
	remaining int
	resetTime time.Time
	threshold int

	sleep SleepFunc
	now   func() time.Time
	log   *slog.Logger
}

// NewRateLimiter creates a rate limiter that sleeps through the given SleepFunc.
func NewRateLimiter(sleep SleepFunc, log *slog.Logger) RateLimiter {
	if sleep == nil {
		sleep = Sleep
	}
	return &githubRateLimiter{
		remaining: 5000, // GitHub API default limit
		resetTime: time.Now().Add(time.Hour),
		threshold: 10,
		sleep:     sleep,
		now:       time.Now,
		log:       log,
	}
}

func (r *githubRateLimiter) Pause(ctx context.Context, d time.Duration) error {
	return r.sleep(ctx, d)
}

func (r *githubRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	remaining, resetTime := r.remaining, r.resetTime
	r.mu.Unlock()

	if remaining > r.threshold {
		return nil
	}

	waitDuration := resetTime.Sub(r.now())
	if waitDuration > 0 {
		r.log.Warn("rate limit low, waiting until reset",
			slog.Int("remaining", remaining),
			slog.Duration("wait", waitDuration.Round(time.Second)),
		)
		if err := r.sleep(ctx, waitDuration); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.remaining = 5000
	r.resetTime = r.now().Add(time.Hour)
	r.mu.Unlock()
	return nil
}

func (r *githubRateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	r.resetTime = resetTime
}
