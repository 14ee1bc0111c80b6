// Package metrics provides Prometheus metrics collection for the resolve
// pipeline and its multi-layer cache.
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/R3E-Network/actorcore/infrastructure/runtime"
)

// Metrics holds all Prometheus collectors for one engine instance.
type Metrics struct {
	ResolveDuration   *prometheus.HistogramVec
	ResolvesTotal     *prometheus.CounterVec
	ResolvesInFlight  prometheus.Gauge
	SubsystemErrors   *prometheus.CounterVec
	CacheHitsTotal    *prometheus.CounterVec
	CacheMissesTotal  prometheus.Counter
	CachePromotions   *prometheus.CounterVec
	CapViolations     *prometheus.CounterVec
	ServiceUptime     prometheus.Gauge
	ServiceInfo       *prometheus.GaugeVec
}

// New creates a new Metrics instance registered against the default
// Prometheus registerer.
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registerer.
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "actorcore_resolve_duration_seconds",
				Help:    "Time to resolve one actor's stat snapshot",
				Buckets: []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"service"},
		),
		ResolvesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actorcore_resolves_total",
				Help: "Total number of resolve calls, by outcome",
			},
			[]string{"service", "status"},
		),
		ResolvesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "actorcore_resolves_in_flight",
				Help: "Current number of resolve calls in progress",
			},
		),
		SubsystemErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actorcore_subsystem_errors_total",
				Help: "Total number of subsystem contributions rejected, by subsystem id",
			},
			[]string{"service", "subsystem"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actorcore_cache_hits_total",
				Help: "Total number of cache hits, by layer",
			},
			[]string{"service", "layer"},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "actorcore_cache_misses_total",
				Help: "Total number of resolves that missed every cache layer",
			},
		),
		CachePromotions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actorcore_cache_promotions_total",
				Help: "Total number of entries promoted to a faster layer after a lower-layer hit",
			},
			[]string{"service", "from_layer", "to_layer"},
		),
		CapViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "actorcore_cap_violations_total",
				Help: "Total number of across-layer cap policy violations, by dimension",
			},
			[]string{"service", "dimension"},
		),
		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "actorcore_uptime_seconds",
				Help: "Engine process uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "actorcore_info",
				Help: "Engine build/deployment information",
			},
			[]string{"service", "version", "environment"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.ResolveDuration,
			m.ResolvesTotal,
			m.ResolvesInFlight,
			m.SubsystemErrors,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
			m.CachePromotions,
			m.CapViolations,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0", getEnvironment()).Set(1)

	return m
}

// RecordResolve records the outcome and duration of one Resolve call.
func (m *Metrics) RecordResolve(service, status string, duration time.Duration) {
	m.ResolvesTotal.WithLabelValues(service, status).Inc()
	m.ResolveDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordSubsystemError records a subsystem contribution being rejected.
func (m *Metrics) RecordSubsystemError(service, subsystemID string) {
	m.SubsystemErrors.WithLabelValues(service, subsystemID).Inc()
}

// RecordCacheHit records a cache hit at the given layer ("l1", "l2", "l3").
func (m *Metrics) RecordCacheHit(service, layer string) {
	m.CacheHitsTotal.WithLabelValues(service, layer).Inc()
}

// RecordCacheMiss records a resolve that missed every cache layer.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMissesTotal.Inc()
}

// RecordCachePromotion records an entry being copied up from a slower layer
// to a faster one after a hit.
func (m *Metrics) RecordCachePromotion(service, fromLayer, toLayer string) {
	m.CachePromotions.WithLabelValues(service, fromLayer, toLayer).Inc()
}

// RecordCapViolation records an across-layer cap policy violation for a
// dimension.
func (m *Metrics) RecordCapViolation(service, dimension string) {
	m.CapViolations.WithLabelValues(service, dimension).Inc()
}

// UpdateUptime sets the uptime gauge relative to startTime.
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

// IncrementInFlight increments the in-flight resolve gauge.
func (m *Metrics) IncrementInFlight() { m.ResolvesInFlight.Inc() }

// DecrementInFlight decrements the in-flight resolve gauge.
func (m *Metrics) DecrementInFlight() { m.ResolvesInFlight.Dec() }

func getEnvironment() string {
	return string(runtime.Env())
}

// Enabled returns whether Prometheus metrics should be exposed.
//
// Defaults:
// - production: disabled unless explicitly enabled via METRICS_ENABLED
// - non-production: enabled unless explicitly disabled via METRICS_ENABLED
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return !runtime.IsProduction()
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Global metrics instance

var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance.
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("actorcore")
	}
	return globalMetrics
}

// EngineAdapter adapts a *Metrics to engine.MetricsSink, so it can be passed
// to engine.WithMetrics without system/core importing this package.
type EngineAdapter struct {
	m       *Metrics
	service string
	start   time.Time
}

// NewEngineAdapter wraps m for use as an engine.MetricsSink.
func NewEngineAdapter(m *Metrics, service string) *EngineAdapter {
	return &EngineAdapter{m: m, service: service, start: time.Now()}
}

func (a *EngineAdapter) ObserveResolveDuration(d time.Duration) {
	a.m.RecordResolve(a.service, "ok", d)
}

func (a *EngineAdapter) IncCacheHit() {
	a.m.RecordCacheHit(a.service, "l1")
}

func (a *EngineAdapter) IncCacheMiss() {
	a.m.RecordCacheMiss()
}

func (a *EngineAdapter) IncSubsystemError(systemID string) {
	a.m.RecordSubsystemError(a.service, systemID)
}
