package ratelimit

import (
	"context"
	"testing"
	"time"
)

type attempt struct {
	identifier string
	kind       string
	success    bool
	at         time.Time
}

type fakeAttempts struct {
	attempts []attempt
	pruned   int
}

func (f *fakeAttempts) CountFailedAttempts(_ context.Context, identifier, kind string, since time.Time) (int, time.Time, error) {
	count := 0
	var last time.Time
	for _, a := range f.attempts {
		if a.identifier == identifier && a.kind == kind && !a.success && a.at.After(since) {
			count++
			if a.at.After(last) {
				last = a.at
			}
		}
	}
	return count, last, nil
}

func (f *fakeAttempts) RecordAttempt(_ context.Context, identifier, kind, _ string, success bool, at time.Time) error {
	f.attempts = append(f.attempts, attempt{identifier, kind, success, at})
	return nil
}

func (f *fakeAttempts) ClearFailedAttempts(_ context.Context, identifier, kind string) error {
	kept := f.attempts[:0]
	for _, a := range f.attempts {
		if a.identifier == identifier && a.kind == kind && !a.success {
			continue
		}
		kept = append(kept, a)
	}
	f.attempts = kept
	return nil
}

func (f *fakeAttempts) PruneAttemptsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.pruned++
	return 0, nil
}

func testGuard(store AttemptStore, now time.Time) *LoginGuard {
	g := NewLoginGuard(store)
	g.now = func() time.Time { return now }
	g.randF = func() float64 { return 1 } // no pruning unless a test opts in
	return g
}

func TestLoginGuardLockout(t *testing.T) {
	// Five failures inside the window lock the identifier; the sixth check
	// reports a positive retry-after.
	store := &fakeAttempts{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := testGuard(store, now)
	ctx := context.Background()

	for i := 0; i < MaxAttempts; i++ {
		d, err := g.Check(ctx, "user@example.com", "login")
		if err != nil {
			t.Fatal(err)
		}
		if d.Limited {
			t.Fatalf("attempt %d: locked out too early", i+1)
		}
		if d.Remaining != MaxAttempts-i {
			t.Fatalf("attempt %d: remaining = %d, want %d", i+1, d.Remaining, MaxAttempts-i)
		}
		if err := g.Record(ctx, "user@example.com", "login", "10.0.0.1", false); err != nil {
			t.Fatal(err)
		}
	}

	d, err := g.Check(ctx, "user@example.com", "login")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Limited {
		t.Fatal("expected lockout after max failures")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > LockoutDuration {
		t.Fatalf("unexpected retry-after %v", d.RetryAfter)
	}
}

func TestLoginGuardSuccessClearsHistory(t *testing.T) {
	store := &fakeAttempts{}
	now := time.Now()
	g := testGuard(store, now)
	ctx := context.Background()

	for i := 0; i < MaxAttempts; i++ {
		if err := g.Record(ctx, "user@example.com", "login", "10.0.0.1", false); err != nil {
			t.Fatal(err)
		}
	}
	if d, _ := g.Check(ctx, "user@example.com", "login"); !d.Limited {
		t.Fatal("expected lockout before success")
	}

	if err := g.Record(ctx, "user@example.com", "login", "10.0.0.1", true); err != nil {
		t.Fatal(err)
	}

	d, err := g.Check(ctx, "user@example.com", "login")
	if err != nil {
		t.Fatal(err)
	}
	if d.Limited {
		t.Fatal("success must clear the lockout")
	}
	if d.Remaining != MaxAttempts {
		t.Fatalf("remaining = %d, want full budget %d", d.Remaining, MaxAttempts)
	}
}

func TestLoginGuardIdentifiersIsolated(t *testing.T) {
	store := &fakeAttempts{}
	g := testGuard(store, time.Now())
	ctx := context.Background()

	for i := 0; i < MaxAttempts; i++ {
		if err := g.Record(ctx, "victim@example.com", "login", "10.0.0.1", false); err != nil {
			t.Fatal(err)
		}
	}

	if d, _ := g.Check(ctx, "other@example.com", "login"); d.Limited {
		t.Fatal("lockout leaked across identifiers")
	}
	if d, _ := g.Check(ctx, "victim@example.com", "ip"); d.Limited {
		t.Fatal("lockout leaked across kinds")
	}
}

func TestLoginGuardLockoutExpires(t *testing.T) {
	store := &fakeAttempts{}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := testGuard(store, start)
	ctx := context.Background()

	for i := 0; i < MaxAttempts; i++ {
		if err := g.Record(ctx, "user@example.com", "login", "10.0.0.1", false); err != nil {
			t.Fatal(err)
		}
	}

	// Advance past both window and lockout.
	g.now = func() time.Time { return start.Add(AttemptWindow + time.Minute) }
	d, err := g.Check(ctx, "user@example.com", "login")
	if err != nil {
		t.Fatal(err)
	}
	if d.Limited {
		t.Fatal("lockout should expire with the window")
	}
}

func TestLoginGuardPruneSampling(t *testing.T) {
	store := &fakeAttempts{}
	g := testGuard(store, time.Now())
	ctx := context.Background()

	if err := g.Record(ctx, "a@b.c", "login", "10.0.0.1", false); err != nil {
		t.Fatal(err)
	}
	if store.pruned != 0 {
		t.Fatal("prune ran despite sampling miss")
	}

	g.randF = func() float64 { return 0 }
	if err := g.Record(ctx, "a@b.c", "login", "10.0.0.1", false); err != nil {
		t.Fatal(err)
	}
	if store.pruned != 1 {
		t.Fatal("prune did not run on sampling hit")
	}
}
