// Package cache provides the engine's multi-layer resolve cache: an
// in-process L1, an optional on-disk L2, and an optional remote L3, composed
// behind a single engine.ResolveCache implementation with promotion on a
// lower-layer hit.
package cache

import (
	"context"
	"time"

	engine "github.com/R3E-Network/actorcore/system/core"
	"github.com/R3E-Network/actorcore/infrastructure/logging"
	"github.com/R3E-Network/actorcore/infrastructure/ratelimit"
	"github.com/R3E-Network/actorcore/infrastructure/resilience"
)

// Option configures a MultiLayerCache.
type Option func(*MultiLayerCache)

// WithL2 adds the on-disk layer.
func WithL2(l2 *L2) Option { return func(c *MultiLayerCache) { c.l2 = l2 } }

// WithL3 adds the remote layer, wrapped in breaker for fault isolation.
func WithL3(l3 *L3, breaker *resilience.L3Breaker) Option {
	return func(c *MultiLayerCache) {
		c.l3 = l3
		c.l3breaker = breaker
	}
}

// WithLogger attaches a structured logger for cache hit/miss/promotion
// tracing.
func WithLogger(l *logging.Logger) Option { return func(c *MultiLayerCache) { c.logger = l } }

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option { return func(c *MultiLayerCache) { c.metrics = m } }

// WithL3RateLimit caps the rate of outbound L3 calls. Without it every L1
// miss falls through to L3 unconditionally; with it, a call that would
// exceed the limiter is treated the same as an L3 miss instead of adding to
// a remote store that's already under load.
func WithL3RateLimit(limiter *ratelimit.RateLimiter) Option {
	return func(c *MultiLayerCache) { c.l3limiter = limiter }
}

// MultiLayerCache implements engine.ResolveCache across up to three layers.
type MultiLayerCache struct {
	l1        *L1
	l2        *L2
	l3        *L3
	l3breaker *resilience.L3Breaker
	l3limiter *ratelimit.RateLimiter
	logger    *logging.Logger
	metrics   *Metrics
}

// NewMultiLayerCache creates a cache with l1 always present; l2/l3 are added
// via WithL2/WithL3.
func NewMultiLayerCache(l1 *L1, opts ...Option) *MultiLayerCache {
	c := &MultiLayerCache{l1: l1}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements engine.ResolveCache. It checks L1, then L2, then L3 (if
// configured), promoting a hit up to every faster layer it skipped.
func (c *MultiLayerCache) Get(ctx context.Context, fp engine.Fingerprint) (*engine.Snapshot, bool, error) {
	if snap, ok, _ := c.l1.Get(ctx, fp); ok {
		c.recordHit("l1", fp)
		return snap, true, nil
	}

	if c.l2 != nil {
		if snap, ok, err := c.l2.Get(fp); err == nil && ok {
			c.recordHit("l2", fp)
			c.promote(ctx, fp, snap, "l2", "l1")
			return snap, true, nil
		}
	}

	if c.l3 != nil && c.l3breaker != nil && c.l3Allowed() {
		var snap *engine.Snapshot
		var found bool
		err := c.l3breaker.Execute(ctx, func(ctx context.Context) error {
			s, ok, err := c.l3.Get(ctx, fp)
			if err != nil {
				return err
			}
			snap, found = s, ok
			return nil
		})
		if err == nil && found {
			c.recordHit("l3", fp)
			c.promote(ctx, fp, snap, "l3", "l1")
			if c.l2 != nil {
				c.l2.Set(fp, snap, 0)
				c.recordPromotion("l3", "l2")
			}
			return snap, true, nil
		}
	}

	c.recordMiss(fp)
	return nil, false, nil
}

// Set implements engine.ResolveCache. L1 is write-through and its failure
// (which cannot currently happen) would be a hard error; L2/L3 failures are
// logged and swallowed, since both are accelerators a resolve never depends
// on for correctness.
func (c *MultiLayerCache) Set(ctx context.Context, fp engine.Fingerprint, snap *engine.Snapshot, ttl time.Duration) error {
	if err := c.l1.Set(ctx, fp, snap, ttl); err != nil {
		return err
	}

	if c.l2 != nil {
		if err := c.l2.Set(fp, snap, ttl); err != nil && c.logger != nil {
			c.logger.Warn(ctx, "l2 cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if c.l3 != nil && c.l3breaker != nil && c.l3Allowed() {
		err := c.l3breaker.Execute(ctx, func(ctx context.Context) error {
			return c.l3.Set(ctx, fp, snap, ttl)
		})
		if err != nil && c.logger != nil {
			c.logger.Warn(ctx, "l3 cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}

	return nil
}

// Invalidate removes fp from every configured layer.
func (c *MultiLayerCache) Invalidate(ctx context.Context, fp engine.Fingerprint) {
	c.l1.Remove(fp)
	if c.l2 != nil {
		c.l2.Remove(fp)
	}
	if c.l3 != nil && c.l3breaker != nil {
		c.l3breaker.Execute(ctx, func(ctx context.Context) error { return c.l3.Delete(ctx, fp) })
	}
}

// ClearAll purges L1 and, if present, drops L2's index (its on-disk bytes
// are reclaimed lazily by the next Compact). L3 is left alone: it may be
// shared by other engine instances that haven't cleared their own epoch.
func (c *MultiLayerCache) ClearAll() {
	c.l1.Purge()
	if c.l2 != nil {
		c.l2.mu.Lock()
		c.l2.index = make(map[string]int64)
		c.l2.mu.Unlock()
	}
}

// l3Allowed reports whether an L3 call may proceed, given the configured
// rate limiter. A cache with no limiter configured never throttles L3.
func (c *MultiLayerCache) l3Allowed() bool {
	if c.l3limiter == nil {
		return true
	}
	return c.l3limiter.Allow()
}

func (c *MultiLayerCache) promote(ctx context.Context, fp engine.Fingerprint, snap *engine.Snapshot, from, to string) {
	c.l1.Set(ctx, fp, snap, 0)
	c.recordPromotion(from, to)
}

func (c *MultiLayerCache) recordHit(layer string, fp engine.Fingerprint) {
	if c.metrics != nil {
		c.metrics.HitsTotal.WithLabelValues(layer).Inc()
	}
	if c.logger != nil {
		c.logger.LogCacheHit(context.Background(), layer, fp.String())
	}
}

func (c *MultiLayerCache) recordMiss(fp engine.Fingerprint) {
	if c.metrics != nil {
		c.metrics.MissesTotal.Inc()
	}
	if c.logger != nil {
		c.logger.LogCacheMiss(context.Background(), fp.String())
	}
}

func (c *MultiLayerCache) recordPromotion(from, to string) {
	if c.metrics != nil {
		c.metrics.PromotionsTotal.WithLabelValues(from, to).Inc()
	}
}
