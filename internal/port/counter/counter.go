// Package counter defines the port interface for fixed-window rate counters.
package counter

import (
	"context"
	"time"
)

// Store is the port interface for atomic windowed counters. Incr must be
// atomic in the backing store (no read-then-write), so concurrent attempts
// never undercount.
type Store interface {
	// Incr increments the counter for key, starting a new window of the
	// given length on first increment. It returns the post-increment count
	// and the window expiry.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, expiresAt time.Time, err error)

	// Peek returns the current count and expiry without consuming an
	// attempt. A missing or expired key reports count 0.
	Peek(ctx context.Context, key string) (count int64, expiresAt time.Time, err error)
}
