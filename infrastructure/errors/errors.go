// Package errors provides structured error handling for the infrastructure
// packages (config, cache, resilience). It mirrors the shape of
// system/core's EngineError without importing it, so infrastructure stays
// usable standalone, before any Engine is built.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a specific infrastructure error condition.
type ErrorCode string

const (
	// Config errors (1xxx)
	ErrCodeConfigMissing    ErrorCode = "CFG_1001"
	ErrCodeConfigMalformed  ErrorCode = "CFG_1002"
	ErrCodeConfigOutOfRange ErrorCode = "CFG_1003"

	// Cache errors (2xxx)
	ErrCodeCacheIO       ErrorCode = "CACHE_2001"
	ErrCodeCacheCorrupt  ErrorCode = "CACHE_2002"
	ErrCodeCacheCapacity ErrorCode = "CACHE_2003"

	// Resilience errors (3xxx)
	ErrCodeCircuitOpen   ErrorCode = "RESIL_3001"
	ErrCodeRetryExceeded ErrorCode = "RESIL_3002"

	// Generic infrastructure errors (9xxx)
	ErrCodeInternal ErrorCode = "INFRA_9001"
	ErrCodeTimeout  ErrorCode = "INFRA_9002"
)

// InfraError is a structured error carrying a stable Code, message, and a
// details map for diagnostics.
type InfraError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *InfraError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *InfraError) Unwrap() error { return e.Err }

// WithDetails attaches a diagnostic key/value and returns e for chaining.
func (e *InfraError) WithDetails(key string, value interface{}) *InfraError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an InfraError with no underlying cause.
func New(code ErrorCode, message string) *InfraError {
	return &InfraError{Code: code, Message: message}
}

// Wrap creates an InfraError around an existing error.
func Wrap(code ErrorCode, message string, err error) *InfraError {
	return &InfraError{Code: code, Message: message, Err: err}
}

// Config errors

func ConfigMissing(path string) *InfraError {
	return New(ErrCodeConfigMissing, "configuration file not found").WithDetails("path", path)
}

func ConfigMalformed(path string, err error) *InfraError {
	return Wrap(ErrCodeConfigMalformed, "configuration file could not be parsed", err).
		WithDetails("path", path)
}

func ConfigOutOfRange(field string, value interface{}) *InfraError {
	return New(ErrCodeConfigOutOfRange, "configuration value out of range").
		WithDetails("field", field).
		WithDetails("value", value)
}

// Cache errors

func CacheIO(layer string, err error) *InfraError {
	return Wrap(ErrCodeCacheIO, "cache I/O failed", err).WithDetails("layer", layer)
}

func CacheCorrupt(layer, detail string) *InfraError {
	return New(ErrCodeCacheCorrupt, "cache store is corrupt").
		WithDetails("layer", layer).
		WithDetails("detail", detail)
}

func CacheCapacity(layer string, capacity int) *InfraError {
	return New(ErrCodeCacheCapacity, "cache layer at capacity").
		WithDetails("layer", layer).
		WithDetails("capacity", capacity)
}

// Resilience errors

func CircuitOpen(name string) *InfraError {
	return New(ErrCodeCircuitOpen, "circuit breaker is open").WithDetails("breaker", name)
}

func RetryExceeded(name string, attempts int, err error) *InfraError {
	return Wrap(ErrCodeRetryExceeded, "retry attempts exhausted", err).
		WithDetails("operation", name).
		WithDetails("attempts", attempts)
}

// Generic errors

func Internal(message string, err error) *InfraError {
	return Wrap(ErrCodeInternal, message, err)
}

func Timeout(operation string) *InfraError {
	return New(ErrCodeTimeout, "operation timed out").WithDetails("operation", operation)
}

// Helper functions

// IsInfraError checks if an error is an InfraError.
func IsInfraError(err error) bool {
	var infraErr *InfraError
	return errors.As(err, &infraErr)
}

// GetInfraError extracts an InfraError from an error chain.
func GetInfraError(err error) *InfraError {
	var infraErr *InfraError
	if errors.As(err, &infraErr) {
		return infraErr
	}
	return nil
}
