package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	engine "github.com/R3E-Network/actorcore/system/core"
	infraerrors "github.com/R3E-Network/actorcore/infrastructure/errors"
)

const defaultL3Prefix = "actorcore:snapshot:"

// L3 is the optional remote cache layer, shared across engine instances
// (e.g. multiple processes behind the same actor population). It's always
// wrapped in an L3Breaker by MultiLayerCache, so a Redis outage degrades to
// "no L3" rather than a failed resolve.
type L3 struct {
	rdb    *redis.Client
	prefix string
}

// NewL3 wraps an already-configured *redis.Client. prefix namespaces keys;
// it defaults to "actorcore:snapshot:" when empty.
func NewL3(rdb *redis.Client, prefix string) *L3 {
	if prefix == "" {
		prefix = defaultL3Prefix
	}
	return &L3{rdb: rdb, prefix: prefix}
}

func (l *L3) key(fp engine.Fingerprint) string { return l.prefix + fp.String() }

// Get fetches fp's snapshot from Redis.
func (l *L3) Get(ctx context.Context, fp engine.Fingerprint) (*engine.Snapshot, bool, error) {
	data, err := l.rdb.Get(ctx, l.key(fp)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, infraerrors.CacheIO("l3", err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, false, infraerrors.Wrap(infraerrors.ErrCodeCacheCorrupt, "l3 payload corrupt", err).WithDetails("fingerprint", fp.String())
	}
	return snap, true, nil
}

// Set writes fp's snapshot to Redis with the given TTL. A zero TTL means no
// expiry, matching redis.Client.Set's own convention.
func (l *L3) Set(ctx context.Context, fp engine.Fingerprint, snap *engine.Snapshot, ttl time.Duration) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return infraerrors.Wrap(infraerrors.ErrCodeCacheIO, "l3 encode failed", err)
	}
	if err := l.rdb.Set(ctx, l.key(fp), data, ttl).Err(); err != nil {
		return infraerrors.CacheIO("l3", err)
	}
	return nil
}

// Delete removes fp's entry from Redis.
func (l *L3) Delete(ctx context.Context, fp engine.Fingerprint) error {
	if err := l.rdb.Del(ctx, l.key(fp)).Err(); err != nil {
		return infraerrors.CacheIO("l3", err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (l *L3) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}
