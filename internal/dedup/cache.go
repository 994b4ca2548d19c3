package dedup

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "bus:fp:"

// CachedIndex is a read-through Redis cache over the store-backed
// fingerprint index. It is strictly advisory: any cache failure degrades
// to a direct lookup and never fails the crawl.
type CachedIndex struct {
	client *redis.Client
	inner  Index
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedIndex(client *redis.Client, inner Index, ttl time.Duration, logger *slog.Logger) *CachedIndex {
	return &CachedIndex{client: client, inner: inner, ttl: ttl, logger: logger}
}

func (c *CachedIndex) Lookup(ctx context.Context, fingerprint string) (int64, bool, error) {
	key := cacheKeyPrefix + fingerprint

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		if id, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
			return id, true, nil
		}
	} else if err != redis.Nil {
		c.logger.Warn("fingerprint cache read failed, falling through", "error", err)
	}

	id, found, err := c.inner.Lookup(ctx, fingerprint)
	if err != nil || !found {
		return id, found, err
	}

	// Positive entries only: bus rows are never hard-deleted, so a cached
	// id cannot go stale.
	if setErr := c.client.Set(ctx, key, strconv.FormatInt(id, 10), c.ttl).Err(); setErr != nil {
		c.logger.Warn("fingerprint cache write failed", "error", setErr)
	}

	return id, true, nil
}
