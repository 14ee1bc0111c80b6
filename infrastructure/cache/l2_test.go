package cache_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/R3E-Network/actorcore/infrastructure/cache"
	engine "github.com/R3E-Network/actorcore/system/core"
)

func TestL2SetGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "l2.log")
	l2, err := cache.OpenL2(path)
	if err != nil {
		t.Fatalf("OpenL2: %v", err)
	}
	defer l2.Close()

	var fp engine.Fingerprint
	fp[0] = 9
	snap := testSnapshot("actor-l2")

	if err := l2.Set(fp, snap, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := l2.Get(fp)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.ActorID != "actor-l2" {
		t.Errorf("expected actor-l2, got %s", got.ActorID)
	}
}

func TestL2SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "l2.log")
	l2, err := cache.OpenL2(path)
	if err != nil {
		t.Fatalf("OpenL2: %v", err)
	}
	var fp engine.Fingerprint
	fp[0] = 7
	if err := l2.Set(fp, testSnapshot("persisted"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := l2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := cache.OpenL2(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get(fp)
	if err != nil || !ok {
		t.Fatalf("expected hit after reopen, got ok=%v err=%v", ok, err)
	}
	if got.ActorID != "persisted" {
		t.Errorf("expected persisted, got %s", got.ActorID)
	}
}

func TestL2ExpiredEntryIsAMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "l2.log")
	l2, err := cache.OpenL2(path)
	if err != nil {
		t.Fatalf("OpenL2: %v", err)
	}
	defer l2.Close()

	var fp engine.Fingerprint
	fp[0] = 3
	if err := l2.Set(fp, testSnapshot("short-lived"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(time.Millisecond)

	if _, ok, _ := l2.Get(fp); ok {
		t.Error("expected expired entry to be a miss")
	}
}

func TestL2Compact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "l2.log")
	l2, err := cache.OpenL2(path)
	if err != nil {
		t.Fatalf("OpenL2: %v", err)
	}
	defer l2.Close()

	var fp engine.Fingerprint
	fp[0] = 5
	l2.Set(fp, testSnapshot("v1"), 0)
	l2.Set(fp, testSnapshot("v2"), 0) // supersedes v1, leaves dead space

	if err := l2.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	got, ok, err := l2.Get(fp)
	if err != nil || !ok {
		t.Fatalf("expected hit after compact, got ok=%v err=%v", ok, err)
	}
	if got.ActorID != "v2" {
		t.Errorf("expected v2 to survive compaction, got %s", got.ActorID)
	}
	if l2.Len() != 1 {
		t.Errorf("expected 1 live entry after compact, got %d", l2.Len())
	}
}
