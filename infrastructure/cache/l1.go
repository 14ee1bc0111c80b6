package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	engine "github.com/R3E-Network/actorcore/system/core"
)

// defaultL1Size is used when NewL1 is given a non-positive size.
const defaultL1Size = 4096

// L1 is the in-process cache layer: a bounded, TTL-expiring LRU of
// fingerprint -> Snapshot, checked on every resolve before any other layer.
type L1 struct {
	lru *expirable.LRU[string, *engine.Snapshot]
	ttl time.Duration
}

// NewL1 creates an L1 holding at most size entries, each expiring after ttl.
func NewL1(size int, ttl time.Duration) *L1 {
	if size <= 0 {
		size = defaultL1Size
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &L1{lru: expirable.NewLRU[string, *engine.Snapshot](size, nil, ttl), ttl: ttl}
}

func (l *L1) Get(_ context.Context, fp engine.Fingerprint) (*engine.Snapshot, bool, error) {
	v, ok := l.lru.Get(fp.String())
	return v, ok, nil
}

// Set stores snap under fp. L1's TTL is fixed at construction (it backs a
// single expirable.LRU shared across all entries), and the expirable.LRU
// doesn't support per-entry TTL overrides, so the ttl argument is ignored:
// every entry expires after L1's own TTL, whether the caller asked for a
// shorter or a longer one.
func (l *L1) Set(_ context.Context, fp engine.Fingerprint, snap *engine.Snapshot, _ time.Duration) error {
	l.lru.Add(fp.String(), snap)
	return nil
}

// Remove evicts fp from L1, if present.
func (l *L1) Remove(fp engine.Fingerprint) bool { return l.lru.Remove(fp.String()) }

// Purge clears L1 entirely.
func (l *L1) Purge() { l.lru.Purge() }

// Len returns the current number of entries in L1.
func (l *L1) Len() int { return l.lru.Len() }
