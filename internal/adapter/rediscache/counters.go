package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counters implements counter.Store on Redis. INCR is atomic server-side,
// so concurrent attempts never undercount. This is the fast leg of the
// throttle's failover chain.
type Counters struct {
	client *redis.Client
	prefix string
}

// NewCounters creates a Redis-backed counter store.
func NewCounters(client *redis.Client, prefix string) *Counters {
	return &Counters{client: client, prefix: prefix}
}

// Incr increments the key's counter. The window TTL is attached only when
// the increment created the key, so the window does not slide on later
// attempts.
func (c *Counters) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	k := c.prefix + key
	count, err := c.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 {
		if err := c.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("expire %s: %w", key, err)
		}
		return count, time.Now().Add(window), nil
	}

	ttl, err := c.client.PTTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		// Key exists without a TTL (expire lost between INCR and PEXPIRE
		// on a crashed client). Reattach the window.
		_ = c.client.PExpire(ctx, k, window).Err()
		ttl = window
	}
	return count, time.Now().Add(ttl), nil
}

// Peek reads the counter without incrementing. A missing key reads as zero.
func (c *Counters) Peek(ctx context.Context, key string) (int64, time.Time, error) {
	k := c.prefix + key
	count, err := c.client.Get(ctx, k).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, time.Time{}, nil
		}
		return 0, time.Time{}, fmt.Errorf("peek %s: %w", key, err)
	}

	ttl, err := c.client.PTTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		return count, time.Time{}, nil
	}
	return count, time.Now().Add(ttl), nil
}
