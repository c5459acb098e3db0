package adapters

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/Rajchodisetti/quotedash/internal/observ"
)

// DefaultRateLimitInterval keeps Alpha Vantage's free tier (5 calls/minute)
// satisfied.
const DefaultRateLimitInterval = 12 * time.Second

// RateLimiter spaces outbound calls by a fixed interval across all symbols.
// The first call is granted immediately; later callers queue in call order,
// each granted one interval after the previous grant.
type RateLimiter struct {
	interval time.Duration
	limiter  *rate.Limiter
}

func NewRateLimiter(interval time.Duration) *RateLimiter {
	if interval <= 0 {
		interval = DefaultRateLimitInterval
	}
	return &RateLimiter{
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (r *RateLimiter) Interval() time.Duration { return r.interval }

// Acquire blocks until the caller's grant time.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	observ.RecordDuration("rate_limit_wait", time.Since(start), nil)
	return nil
}

// Reserve books the next grant for a call issued at now and returns the grant
// time without sleeping.
func (r *RateLimiter) Reserve(now time.Time) time.Time {
	res := r.limiter.ReserveN(now, 1)
	return now.Add(res.DelayFrom(now))
}
