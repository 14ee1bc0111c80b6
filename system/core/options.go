package engine

import "time"

// Option configures an Engine at Build time.
type Option func(*Engine)

// WithCache installs the resolve cache. The default is an in-process
// no-op cache (every resolve recomputes), which is sufficient for tests
// and for embedding the engine in a process that layers its own caching
// in front of Resolve.
func WithCache(c ResolveCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithLogger installs a structured logger. The default is a no-op logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics installs a metrics sink. The default is a no-op sink.
func WithMetrics(m MetricsSink) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithExtendedBuckets enables the EXPONENTIAL, LOGARITHMIC, and CONDITIONAL
// buckets. Combiner rules that reference an extended bucket fail to load
// unless this is set.
func WithExtendedBuckets(enabled bool) Option {
	return func(e *Engine) { e.extendedBuckets = enabled }
}

// WithStrictCaps sets ComposeOptions.Strict for every resolve: an empty cap
// range (min > max) that reaches normalization becomes a hard resolve
// failure instead of collapsing to a single-point range. An empty range
// produced inside one layer, or by the INTERSECT policy, fails the resolve
// with CapRangeEmpty whether or not this is set, and no other policy
// produces one, so in practice the collapse does not occur.
func WithStrictCaps(strict bool) Option {
	return func(e *Engine) { e.strictCaps = strict }
}

// WithClampDirection overrides the collapse direction used for a dimension
// when its cap range comes out empty in non-strict mode. Dimensions not
// named here collapse toward their minimum.
func WithClampDirection(dim Dimension, dir ClampDirection) Option {
	return func(e *Engine) {
		if e.clampDirection == nil {
			e.clampDirection = make(map[Dimension]ClampDirection)
		}
		e.clampDirection[dim] = dir
	}
}

// WithDefaultTTL sets how long a freshly computed Snapshot stays valid in
// the resolve cache before a subsequent Get is treated as a miss. The
// default is five minutes.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.defaultTTL = ttl }
}
