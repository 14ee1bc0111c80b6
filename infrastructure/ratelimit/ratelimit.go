// Package ratelimit provides a token-bucket request limiter backed by
// golang.org/x/time/rate, used to cap the rate of outbound calls to the L3
// remote cache so a burst of concurrent resolves on many engine instances
// never overwhelms the shared backing store.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config configures a RateLimiter.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns settings sized for a single engine instance talking
// to a shared L3: generous enough that normal resolve traffic never waits,
// tight enough to shed load under a spike.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 200,
		Burst:             400,
	}
}

// RateLimiter wraps a token-bucket limiter plus a coarser per-minute bucket,
// so a caller can distinguish "too fast right now" from "too much this
// minute" when deciding whether to log a warning.
type RateLimiter struct {
	mu        sync.RWMutex
	limiter   *rate.Limiter
	perMinute *rate.Limiter
	config    Config
}

// New creates a RateLimiter from cfg. A non-positive RequestsPerSecond
// becomes DefaultConfig's 200; a non-positive Burst becomes twice the
// (possibly defaulted) RequestsPerSecond.
func New(cfg Config) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 200
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond * 2)
	}
	return &RateLimiter{
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		perMinute: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond*60), cfg.Burst*2),
		config:    cfg,
	}
}

// Allow reports whether a call may proceed right now, consuming a token if
// so. It never blocks.
func (r *RateLimiter) Allow() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiter.Allow()
}

// AllowN reports whether n calls may proceed at time now.
func (r *RateLimiter) AllowN(now time.Time, n int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiter.AllowN(now, n)
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.RLock()
	l := r.limiter
	r.mu.RUnlock()
	return l.Wait(ctx)
}

// PerMinuteExceeded reports whether the coarser per-minute bucket is
// currently exhausted, without consuming a token from the per-second
// bucket. Useful for deciding whether a rejected call is a brief spike or a
// sustained overload worth a louder log line.
func (r *RateLimiter) PerMinuteExceeded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.perMinute.Allow()
}

// Reset recreates both buckets at full capacity, discarding any consumed
// tokens.
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiter = rate.NewLimiter(rate.Limit(r.config.RequestsPerSecond), r.config.Burst)
	r.perMinute = rate.NewLimiter(rate.Limit(r.config.RequestsPerSecond*60), r.config.Burst*2)
}
