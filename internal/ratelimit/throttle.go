package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/hearthhub/hearth/internal/port/counter"
)

// State describes a throttle key without consuming an attempt.
type State struct {
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// Throttle is a fixed-window counter throttle over a counter store. The
// decision depends only on the counter value, so swapping the backing
// store (Redis, Postgres, failover chain) never changes the outcome.
type Throttle struct {
	counters counter.Store
}

// NewThrottle creates a throttle over the given counter store.
func NewThrottle(counters counter.Store) *Throttle {
	return &Throttle{counters: counters}
}

// Attempt consumes one attempt for key and reports whether it is allowed.
// The increment happens before the comparison; a denied attempt still
// counts, matching strict fixed-window semantics.
func (t *Throttle) Attempt(ctx context.Context, key string, max int64, window time.Duration) (bool, error) {
	count, _, err := t.counters.Incr(ctx, key, window)
	if err != nil {
		return false, fmt.Errorf("throttle incr: %w", err)
	}
	return count <= max, nil
}

// GetState reports the key's current budget without consuming an attempt.
func (t *Throttle) GetState(ctx context.Context, key string, max int64, window time.Duration) (State, error) {
	count, expiresAt, err := t.counters.Peek(ctx, key)
	if err != nil {
		return State{}, fmt.Errorf("throttle peek: %w", err)
	}
	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(window)
	}
	return State{Limit: max, Remaining: remaining, ResetAt: expiresAt}, nil
}
