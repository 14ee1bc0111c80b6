// Package logging provides structured logging with trace ID support.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys.
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID.
	TraceIDKey ContextKey = "trace_id"
	// ActorIDKey is the context key for the actor a log line concerns.
	ActorIDKey ContextKey = "actor_id"
	// ServiceKey is the context key for service name.
	ServiceKey ContextKey = "service"
)

// Logger wraps logrus.Logger with resolve-pipeline-specific helpers.
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a new Logger instance.
func New(service, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, service: service}
}

// NewFromEnv constructs a logger using LOG_LEVEL and LOG_FORMAT environment
// variables. Defaults to "info" and "json" when unset.
func NewFromEnv(service string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(service, level, format)
}

// WithContext creates a logger entry carrying the trace/actor ids found on
// ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("service", l.service)
	if traceID := ctx.Value(TraceIDKey); traceID != nil {
		entry = entry.WithField("trace_id", traceID)
	}
	if actorID := ctx.Value(ActorIDKey); actorID != nil {
		entry = entry.WithField("actor_id", actorID)
	}
	return entry
}

// WithFields creates a logger entry with custom fields.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["service"] = l.service
	return l.Logger.WithFields(fields)
}

// SetOutput sets the logger output.
func (l *Logger) SetOutput(output io.Writer) {
	l.Logger.SetOutput(output)
}

// Context helper functions

// NewTraceID generates a new trace ID.
func NewTraceID() string { return uuid.New().String() }

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// WithActorID adds an actor id to the context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorIDKey, actorID)
}

// GetActorID retrieves the actor id from context.
func GetActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(ActorIDKey).(string); ok {
		return actorID
	}
	return ""
}

// Resolve-pipeline structured logging helpers

// LogResolveStart logs the start of a resolve for one actor.
func (l *Logger) LogResolveStart(ctx context.Context, actorID string, subsystemCount int) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"actor_id":        actorID,
		"subsystem_count": subsystemCount,
	}).Debug("resolve started")
}

// LogResolvePhase logs a transition between resolve pipeline phases
// (collecting, reducing, clamping, stored, failed).
func (l *Logger) LogResolvePhase(ctx context.Context, actorID, phase string, duration time.Duration) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"actor_id":    actorID,
		"phase":       phase,
		"duration_ms": duration.Milliseconds(),
	}).Debug("resolve phase")
}

// LogCacheHit logs a cache hit at a given layer.
func (l *Logger) LogCacheHit(ctx context.Context, layer, fingerprint string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"layer":       layer,
		"fingerprint": fingerprint,
	}).Debug("cache hit")
}

// LogCacheMiss logs a cache miss across all layers.
func (l *Logger) LogCacheMiss(ctx context.Context, fingerprint string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"fingerprint": fingerprint,
	}).Debug("cache miss")
}

// LogSubsystemError logs a subsystem rejecting a resolve.
func (l *Logger) LogSubsystemError(ctx context.Context, systemID string, err error) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"subsystem": systemID,
		"error":     err.Error(),
	}).Error("subsystem contribution rejected")
}

// LogCapViolation logs an across-layer cap policy violation.
func (l *Logger) LogCapViolation(ctx context.Context, dimension, policy string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"dimension": dimension,
		"policy":    policy,
	}).Warn("cap layer violation")
}

// LogConfigReload logs a hot reload of combiner rules or cap layers.
func (l *Logger) LogConfigReload(ctx context.Context, what string, count int, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"what":  what,
		"count": count,
	})
	if err != nil {
		entry.WithError(err).Error("config reload failed")
		return
	}
	entry.Info("config reloaded")
}

// Level helpers

func (l *Logger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).Debug(message)
}

func (l *Logger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).Info(message)
}

func (l *Logger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.WithContext(ctx).WithFields(fields).Warn(message)
}

func (l *Logger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	entry := l.WithContext(ctx)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.WithFields(fields).Error(message)
}

// Global logger instance (can be initialized once at startup)
var defaultLogger *Logger

// InitDefault initializes the default logger.
func InitDefault(service, level, format string) {
	defaultLogger = New(service, level, format)
}

// Default returns the default logger, creating a fallback one if
// InitDefault was never called.
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New("actorcore", "info", "json")
	}
	return defaultLogger
}

// FormatDuration formats a duration in milliseconds, for log lines that
// want a human-friendly field instead of a raw integer.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
}

// EngineAdapter binds a Logger to a fixed background context and exposes
// the context-free method set system/core.Logger expects, so a *Logger can
// be passed to engine.WithLogger without system/core importing this
// package.
type EngineAdapter struct {
	*Logger
	ctx context.Context
}

// NewEngineAdapter wraps l for use as an engine.Logger.
func NewEngineAdapter(l *Logger) *EngineAdapter {
	return &EngineAdapter{Logger: l, ctx: context.Background()}
}

func (a *EngineAdapter) Debug(msg string, fields map[string]any) {
	a.Logger.Debug(a.ctx, msg, fields)
}
func (a *EngineAdapter) Info(msg string, fields map[string]any) {
	a.Logger.Info(a.ctx, msg, fields)
}
func (a *EngineAdapter) Warn(msg string, fields map[string]any) {
	a.Logger.Warn(a.ctx, msg, fields)
}
func (a *EngineAdapter) Error(msg string, fields map[string]any) {
	a.Logger.Error(a.ctx, msg, nil, fields)
}
