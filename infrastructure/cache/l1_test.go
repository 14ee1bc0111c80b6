package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/R3E-Network/actorcore/infrastructure/cache"
	engine "github.com/R3E-Network/actorcore/system/core"
)

func testSnapshot(actorID string) *engine.Snapshot {
	return &engine.Snapshot{
		ActorID:      actorID,
		ActorVersion: 1,
		Values:       map[engine.Dimension]float64{"attack_power": 42},
		Caps:         engine.EffectiveCaps{"attack_power": {Min: 0, Max: 100}},
		CreatedAt:    time.Unix(0, 0),
	}
}

func TestL1GetSetRoundTrip(t *testing.T) {
	l1 := cache.NewL1(16, time.Minute)
	ctx := context.Background()
	var fp engine.Fingerprint
	fp[0] = 1

	if _, ok, _ := l1.Get(ctx, fp); ok {
		t.Fatal("expected miss before any Set")
	}

	snap := testSnapshot("actor-1")
	if err := l1.Set(ctx, fp, snap, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := l1.Get(ctx, fp)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.ActorID != "actor-1" {
		t.Errorf("expected actor-1, got %s", got.ActorID)
	}
}

func TestL1EvictsLeastRecentlyUsed(t *testing.T) {
	l1 := cache.NewL1(2, time.Minute)
	ctx := context.Background()

	var fp1, fp2, fp3 engine.Fingerprint
	fp1[0], fp2[0], fp3[0] = 1, 2, 3

	l1.Set(ctx, fp1, testSnapshot("a1"), 0)
	l1.Set(ctx, fp2, testSnapshot("a2"), 0)
	l1.Set(ctx, fp3, testSnapshot("a3"), 0) // evicts fp1 (size cap 2)

	if _, ok, _ := l1.Get(ctx, fp1); ok {
		t.Error("expected fp1 to have been evicted")
	}
	if _, ok, _ := l1.Get(ctx, fp3); !ok {
		t.Error("expected fp3 to be present")
	}
}

func TestL1Remove(t *testing.T) {
	l1 := cache.NewL1(16, time.Minute)
	ctx := context.Background()
	var fp engine.Fingerprint
	l1.Set(ctx, fp, testSnapshot("a1"), 0)

	if !l1.Remove(fp) {
		t.Fatal("expected Remove to report the entry existed")
	}
	if _, ok, _ := l1.Get(ctx, fp); ok {
		t.Error("expected miss after Remove")
	}
}
