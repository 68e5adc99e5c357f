// Package ratelimit implements the two request throttles: a persisted
// login brute-force guard and a generic fixed-window API throttle.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Login guard tuning. The window and lockout are deliberately equal: a
// locked identifier becomes eligible again exactly when its oldest failure
// ages out of the counting window.
const (
	MaxAttempts     = 5
	AttemptWindow   = 15 * time.Minute
	LockoutDuration = 15 * time.Minute

	// pruneProbability samples prune runs so cleanup cost is amortized
	// across logins instead of needing a background job.
	pruneProbability = 0.01
)

// AttemptStore persists login attempts. Implemented by the Postgres store.
type AttemptStore interface {
	CountFailedAttempts(ctx context.Context, identifier, kind string, since time.Time) (int, time.Time, error)
	RecordAttempt(ctx context.Context, identifier, kind, ip string, success bool, at time.Time) error
	ClearFailedAttempts(ctx context.Context, identifier, kind string) error
	PruneAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Decision is the outcome of a lockout check.
type Decision struct {
	Limited    bool
	Remaining  int
	RetryAfter time.Duration
}

// LoginGuard rate-limits authentication attempts per identifier. Counting
// is durable (Postgres) because lockout is a security control: a restart
// must not reset an attacker's budget.
type LoginGuard struct {
	store AttemptStore
	now   func() time.Time
	randF func() float64
}

// NewLoginGuard creates a guard over the given attempt store.
func NewLoginGuard(store AttemptStore) *LoginGuard {
	return &LoginGuard{store: store, now: time.Now, randF: rand.Float64}
}

// Check reports whether the identifier is currently locked out. kind
// separates counter families (e.g. "login" by email vs by source IP).
func (g *LoginGuard) Check(ctx context.Context, identifier, kind string) (Decision, error) {
	now := g.now()
	count, last, err := g.store.CountFailedAttempts(ctx, identifier, kind, now.Add(-AttemptWindow))
	if err != nil {
		return Decision{}, fmt.Errorf("count failed attempts: %w", err)
	}

	remaining := MaxAttempts - count
	if remaining < 0 {
		remaining = 0
	}
	if count >= MaxAttempts {
		if retryAfter := last.Add(LockoutDuration).Sub(now); retryAfter > 0 {
			return Decision{Limited: true, Remaining: 0, RetryAfter: retryAfter}, nil
		}
	}
	return Decision{Limited: false, Remaining: remaining}, nil
}

// Record persists the outcome of an attempt. A successful attempt clears
// the identifier's failure history so a correct password immediately lifts
// the lockout bookkeeping. Occasionally prunes expired rows.
func (g *LoginGuard) Record(ctx context.Context, identifier, kind, ip string, success bool) error {
	now := g.now()
	if err := g.store.RecordAttempt(ctx, identifier, kind, ip, success, now); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	if success {
		if err := g.store.ClearFailedAttempts(ctx, identifier, kind); err != nil {
			return fmt.Errorf("clear attempts: %w", err)
		}
	}

	if g.randF() < pruneProbability {
		cutoff := now.Add(-(AttemptWindow + LockoutDuration))
		if n, err := g.store.PruneAttemptsBefore(ctx, cutoff); err != nil {
			slog.Warn("login attempt prune failed", "error", err)
		} else if n > 0 {
			slog.Debug("pruned expired login attempts", "rows", n)
		}
	}
	return nil
}
