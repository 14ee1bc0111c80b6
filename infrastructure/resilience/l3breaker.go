// Package resilience provides fault tolerance patterns backed by
// github.com/sony/gobreaker/v2 (circuit breaking) and
// github.com/cenkalti/backoff/v4 (retry with exponential backoff), applied
// to the L3 remote cache so a struggling or unreachable remote layer never
// fails a resolve: a tripped breaker or exhausted retry just falls through
// as a cache miss.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// State mirrors gobreaker's three-state model.
type State int

const (
	StateClosed   State = State(gobreaker.StateClosed)
	StateHalfOpen State = State(gobreaker.StateHalfOpen)
	StateOpen     State = State(gobreaker.StateOpen)
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	ErrCircuitOpen     = errors.New("l3 circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config configures the L3 breaker and its retry policy.
type Config struct {
	MaxFailures   int
	Timeout       time.Duration
	HalfOpenMax   int
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns settings tuned for a cache layer: a few retries with
// short backoff, then a breaker that trips fast and recovers in seconds
// rather than minutes, since L3 is always an optional accelerator and never
// the only source of truth.
func DefaultConfig() Config {
	return Config{
		MaxFailures:  5,
		Timeout:      10 * time.Second,
		HalfOpenMax:  1,
		MaxAttempts:  3,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
	}
}

// L3Breaker wraps calls to the remote cache layer with retry-then-breaker
// protection.
type L3Breaker struct {
	name string
	cfg  Config
	gb   *gobreaker.CircuitBreaker[any]
}

// New creates an L3Breaker named name (used as the gobreaker instance name
// and in OnStateChange callbacks).
func New(name string, cfg Config) *L3Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	maxFailures := uint32(cfg.MaxFailures)
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.HalfOpenMax),
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(n string, from, to gobreaker.State) {
			cfg.OnStateChange(n, State(from), State(to))
		}
	}

	return &L3Breaker{
		name: name,
		cfg:  cfg,
		gb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State returns the breaker's current state.
func (b *L3Breaker) State() State { return State(b.gb.State()) }

// Execute runs fn with exponential-backoff retry inside circuit-breaker
// protection: the breaker sees one "call" per Execute regardless of how
// many retry attempts happened inside it, which is what lets ReadyToTrip
// count sustained remote failures instead of individual transient ones.
func (b *L3Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.gb.Execute(func() (any, error) {
		return nil, b.retry(ctx, fn)
	})
	if err != nil {
		return mapGobreakerError(err)
	}
	return nil
}

func (b *L3Breaker) retry(ctx context.Context, fn func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.cfg.InitialDelay
	bo.MaxInterval = b.cfg.MaxDelay
	bo.MaxElapsedTime = 0

	withMax := backoff.WithMaxRetries(bo, uint64(b.cfg.MaxAttempts-1))
	withCtx := backoff.WithContext(withMax, ctx)

	return backoff.Retry(func() error {
		return fn(ctx)
	}, withCtx)
}

func mapGobreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) {
		return ErrCircuitOpen
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrTooManyRequests
	}
	return err
}
