package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Counters implements counter.Store on a rate_counters table. It is the
// durable leg of the throttle's failover chain: slower than Redis, but a
// counter survives restarts and cache flushes.
type Counters struct {
	pool *pgxpool.Pool
}

// NewCounters creates a durable counter store on the given pool.
func NewCounters(pool *pgxpool.Pool) *Counters {
	return &Counters{pool: pool}
}

// Incr atomically increments the key's counter, starting a fresh window
// when none is active. The upsert races correctly under concurrency: the
// row is locked for the CASE evaluation, so no increment is lost.
func (c *Counters) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	var count int64
	var expiresAt time.Time
	err := c.pool.QueryRow(ctx,
		`INSERT INTO rate_counters (key, count, expires_at)
		 VALUES ($1, 1, now() + $2)
		 ON CONFLICT (key) DO UPDATE SET
		   count = CASE WHEN rate_counters.expires_at <= now() THEN 1
		                ELSE rate_counters.count + 1 END,
		   expires_at = CASE WHEN rate_counters.expires_at <= now() THEN now() + $2
		                     ELSE rate_counters.expires_at END
		 RETURNING count, expires_at`,
		key, window,
	).Scan(&count, &expiresAt)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("incr counter %s: %w", key, err)
	}
	return count, expiresAt, nil
}

// Peek reads the key's counter without consuming an attempt. A missing or
// expired window reads as zero.
func (c *Counters) Peek(ctx context.Context, key string) (int64, time.Time, error) {
	var count int64
	var expiresAt time.Time
	err := c.pool.QueryRow(ctx,
		`SELECT count, expires_at FROM rate_counters
		 WHERE key = $1 AND expires_at > now()`, key,
	).Scan(&count, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, time.Time{}, nil
		}
		return 0, time.Time{}, fmt.Errorf("peek counter %s: %w", key, err)
	}
	return count, expiresAt, nil
}

// PruneExpired removes counters whose window has long passed. Called from
// the maintenance loop in main.
func (c *Counters) PruneExpired(ctx context.Context) (int64, error) {
	tag, err := c.pool.Exec(ctx,
		`DELETE FROM rate_counters WHERE expires_at < now() - interval '1 hour'`)
	if err != nil {
		return 0, fmt.Errorf("prune counters: %w", err)
	}
	return tag.RowsAffected(), nil
}
