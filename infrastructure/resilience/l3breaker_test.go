package resilience_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/R3E-Network/actorcore/infrastructure/resilience"
)

func TestL3BreakerRetriesBeforeSucceeding(t *testing.T) {
	var attempts int32
	b := resilience.New("test", resilience.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		MaxFailures:  10,
	})

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestL3BreakerOpensAfterSustainedFailures(t *testing.T) {
	b := resilience.New("test", resilience.Config{
		MaxAttempts:  1,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		MaxFailures:  2,
		Timeout:      50 * time.Millisecond,
	})

	fail := func(ctx context.Context) error { return errors.New("boom") }

	for i := 0; i < 2; i++ {
		if err := b.Execute(context.Background(), fail); err == nil {
			t.Fatalf("expected failure on attempt %d", i)
		}
	}

	if b.State() != resilience.StateOpen {
		t.Fatalf("expected breaker to be open, got %v", b.State())
	}

	if err := b.Execute(context.Background(), fail); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestL3BreakerRespectsContextCancellation(t *testing.T) {
	b := resilience.New("test", resilience.Config{
		MaxAttempts:  5,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		MaxFailures:  10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Execute(ctx, func(ctx context.Context) error {
		return errors.New("should not matter, context is already cancelled")
	})
	if err == nil {
		t.Fatal("expected an error when context is already cancelled")
	}
}
