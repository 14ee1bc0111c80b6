package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Logger is the structured logging sink an Engine reports through.
// infrastructure/logging provides the concrete adapter used in production;
// tests and standalone embeddings may pass a no-op or a recording stub.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// MetricsSink receives resolve-pipeline measurements. infrastructure/metrics
// provides the Prometheus-backed adapter.
type MetricsSink interface {
	ObserveResolveDuration(d time.Duration)
	IncCacheHit()
	IncCacheMiss()
	IncSubsystemError(systemID string)
}

// ResolveCache stores Snapshots keyed by Fingerprint. infrastructure/cache
// provides the layered (in-process / local / remote) implementation; the
// engine itself only ever needs this narrow interface.
type ResolveCache interface {
	Get(ctx context.Context, fp Fingerprint) (*Snapshot, bool, error)
	Set(ctx context.Context, fp Fingerprint, snap *Snapshot, ttl time.Duration) error
}

type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

type noopMetrics struct{}

func (noopMetrics) ObserveResolveDuration(time.Duration) {}
func (noopMetrics) IncCacheHit()                         {}
func (noopMetrics) IncCacheMiss()                        {}
func (noopMetrics) IncSubsystemError(string)             {}

type noopCache struct{}

func (noopCache) Get(context.Context, Fingerprint) (*Snapshot, bool, error) { return nil, false, nil }
func (noopCache) Set(context.Context, Fingerprint, *Snapshot, time.Duration) error { return nil }

// Engine orchestrates one resolve pipeline: subsystem registry, combiner
// rules, cap layers, cap composition, caching, and single-flight
// deduplication. An Engine is built once by a Builder and is safe for
// concurrent use by any number of callers of Resolve.
type Engine struct {
	registry     *Registry
	combiners    *CombinerRegistry
	capLayers    *CapLayerRegistry
	capsProvider *CapsProvider

	cache           ResolveCache
	logger          Logger
	metrics         MetricsSink
	extendedBuckets bool
	strictCaps      bool
	clampDirection  map[Dimension]ClampDirection
	defaultTTL      time.Duration

	sf singleflight.Group

	mu          sync.Mutex
	actorEpochs map[string]uint64
	globalEpoch uint64
}

// Builder wires a Registry, CombinerRegistry, and CapLayerRegistry into one
// Engine. Callers populate the registries before calling Build; the Engine
// keeps the same registries, so later changes made through
// Engine.Registry(), Engine.Combiners() or Engine.CapLayers() take effect
// on the next Resolve.
type Builder struct {
	registry  *Registry
	combiners *CombinerRegistry
	capLayers *CapLayerRegistry
	opts      []Option
}

// NewBuilder creates a Builder with an empty Registry, an empty
// CombinerRegistry (dimensions fall back to DefaultCombinerRule), and a
// CapLayerRegistry under the STRICT across-layer policy.
func NewBuilder() *Builder {
	return &Builder{
		registry:  NewRegistry(),
		combiners: NewCombinerRegistry(),
		capLayers: NewCapLayerRegistry(PolicyStrict),
	}
}

// Registry returns the Builder's Registry for subsystem registration.
func (b *Builder) Registry() *Registry { return b.registry }

// Combiners returns the Builder's CombinerRegistry for per-dimension rules.
func (b *Builder) Combiners() *CombinerRegistry { return b.combiners }

// CapLayers returns the Builder's CapLayerRegistry for cap layer setup.
func (b *Builder) CapLayers() *CapLayerRegistry { return b.capLayers }

// With appends Options applied when Build runs.
func (b *Builder) With(opts ...Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// Build finalizes the Engine. Build never fails on its own; configuration
// errors surface earlier, from Register/Set/LoadRules/LoadLayers calls
// against the Builder's registries.
func (b *Builder) Build() (*Engine, error) {
	e := &Engine{
		registry:    b.registry,
		combiners:   b.combiners,
		capLayers:   b.capLayers,
		cache:       noopCache{},
		logger:      noopLogger{},
		metrics:     noopMetrics{},
		defaultTTL:  5 * time.Minute,
		actorEpochs: make(map[string]uint64),
	}
	e.capsProvider = NewCapsProvider(e.capLayers)
	for _, opt := range b.opts {
		opt(e)
	}
	return e, nil
}

// Registry exposes the Engine's subsystem registry for post-build
// registration changes (Register/Unregister take effect on the next
// Resolve, since the registry's own version counter feeds the fingerprint).
func (e *Engine) Registry() *Registry { return e.registry }

// Combiners exposes the Engine's combiner registry for hot-reloading
// per-dimension rules.
func (e *Engine) Combiners() *CombinerRegistry { return e.combiners }

// CapLayers exposes the Engine's cap layer registry for hot-reloading cap
// layer configuration.
func (e *Engine) CapLayers() *CapLayerRegistry { return e.capLayers }

// Resolve computes the actor's Snapshot: it collects Contributions from
// every selected Subsystem, reduces them per dimension under the
// CombinerRegistry's rules, composes EffectiveCaps from the collected
// CapContributions, clamps, and returns the result. Identical inputs
// (actor state, registry/rule versions, and any explicit Invalidate epoch)
// always resolve to a Snapshot identical in everything but CreatedAt.
func (e *Engine) Resolve(ctx context.Context, actor *Actor) (*Snapshot, error) {
	return e.resolve(ctx, actor)
}

// Invalidate forces the next Resolve for actorID to recompute rather than
// reuse a cached Snapshot, even if the actor's own state did not change.
// It works by bumping a per-actor epoch that feeds the Fingerprint, so
// stale cache entries simply become unreachable rather than requiring an
// explicit cache delete (which the layered cache's L3 tier may not support
// atomically across a cluster).
func (e *Engine) Invalidate(actorID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.actorEpochs[actorID]++
}

// ClearAll invalidates every actor at once by bumping the global epoch.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.globalEpoch++
}

func (e *Engine) epochFor(actorID string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.globalEpoch<<32 | e.actorEpochs[actorID]
}
