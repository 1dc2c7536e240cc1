package rest

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket gating outbound requests so a burst of
// strategy activity cannot trip the exchange's request weight limits.
type RateLimiter struct {
	rate  float64 // tokens added per second
	burst int     // bucket capacity

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a limiter that starts with a full bucket.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:   requestsPerSecond,
		burst:  burst,
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Rate returns the refill rate in tokens per second.
func (rl *RateLimiter) Rate() float64 {
	return rl.rate
}

// Burst returns the bucket capacity.
func (rl *RateLimiter) Burst() int {
	return rl.burst
}

// TryAcquire takes a token if one is available, without blocking.
func (rl *RateLimiter) TryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

// Wait blocks until a token is available or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rl.TryAcquire() {
			return nil
		}
		if rl.rate == 0 {
			// No refill will ever happen.
			return context.DeadlineExceeded
		}

		interval := time.Duration(float64(time.Second) / rl.rate)
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reset restores the bucket to full capacity.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = float64(rl.burst)
	rl.last = time.Now()
}

// refill adds tokens for the elapsed time. Caller holds the mutex.
func (rl *RateLimiter) refill() {
	now := time.Now()
	rl.tokens += now.Sub(rl.last).Seconds() * rl.rate
	if rl.tokens > float64(rl.burst) {
		rl.tokens = float64(rl.burst)
	}
	rl.last = now
}
