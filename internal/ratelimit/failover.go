package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hearthhub/hearth/internal/port/counter"
)

// FailoverCounter chains a fast counter store in front of a durable one.
// When the fast store errors, the call degrades to the durable store with
// identical semantics; only latency and persistence differ.
type FailoverCounter struct {
	fast    counter.Store
	durable counter.Store
}

// NewFailoverCounter creates a failover chain. Both stores are required.
func NewFailoverCounter(fast, durable counter.Store) *FailoverCounter {
	return &FailoverCounter{fast: fast, durable: durable}
}

func (f *FailoverCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	count, expiresAt, err := f.fast.Incr(ctx, key, window)
	if err == nil {
		return count, expiresAt, nil
	}
	slog.Warn("fast counter store failed, degrading to durable store", "key", key, "error", err)
	return f.durable.Incr(ctx, key, window)
}

func (f *FailoverCounter) Peek(ctx context.Context, key string) (int64, time.Time, error) {
	count, expiresAt, err := f.fast.Peek(ctx, key)
	if err == nil {
		return count, expiresAt, nil
	}
	slog.Warn("fast counter store failed, degrading to durable store", "key", key, "error", err)
	return f.durable.Peek(ctx, key)
}
