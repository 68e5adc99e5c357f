package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeCounter is an in-memory fixed-window counter store.
type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Time
	err     error
	incrs   int
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Time{}}
}

func (f *fakeCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	if f.err != nil {
		return 0, time.Time{}, f.err
	}
	f.incrs++
	if _, ok := f.counts[key]; !ok {
		f.expires[key] = time.Now().Add(window)
	}
	f.counts[key]++
	return f.counts[key], f.expires[key], nil
}

func (f *fakeCounter) Peek(_ context.Context, key string) (int64, time.Time, error) {
	if f.err != nil {
		return 0, time.Time{}, f.err
	}
	return f.counts[key], f.expires[key], nil
}

func TestThrottleFixedWindow(t *testing.T) {
	th := NewThrottle(newFakeCounter())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := th.Attempt(ctx, "k", 3, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("attempt %d denied under the limit", i+1)
		}
	}

	ok, err := th.Attempt(ctx, "k", 3, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("attempt over the limit was allowed")
	}
}

func TestThrottleGetStateDoesNotConsume(t *testing.T) {
	counters := newFakeCounter()
	th := NewThrottle(counters)
	ctx := context.Background()

	if _, err := th.Attempt(ctx, "k", 5, time.Minute); err != nil {
		t.Fatal(err)
	}
	before := counters.incrs

	st, err := th.GetState(ctx, "k", 5, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if counters.incrs != before {
		t.Fatal("GetState consumed an attempt")
	}
	if st.Limit != 5 || st.Remaining != 4 {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.ResetAt.IsZero() {
		t.Fatal("expected a reset time")
	}
}

func TestThrottlePropagatesStoreErrors(t *testing.T) {
	counters := newFakeCounter()
	counters.err = errors.New("connection refused")
	th := NewThrottle(counters)

	if _, err := th.Attempt(context.Background(), "k", 5, time.Minute); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestFailoverCounterUsesFastStore(t *testing.T) {
	fast, durable := newFakeCounter(), newFakeCounter()
	fc := NewFailoverCounter(fast, durable)

	if _, _, err := fc.Incr(context.Background(), "k", time.Minute); err != nil {
		t.Fatal(err)
	}
	if fast.incrs != 1 || durable.incrs != 0 {
		t.Fatalf("expected fast-store increment, got fast=%d durable=%d", fast.incrs, durable.incrs)
	}
}

func TestFailoverCounterDegradesWithoutChangingDecisions(t *testing.T) {
	fast, durable := newFakeCounter(), newFakeCounter()
	fast.err = errors.New("connection refused")
	th := NewThrottle(NewFailoverCounter(fast, durable))
	ctx := context.Background()

	// Decisions through the degraded chain match a healthy throttle.
	reference := NewThrottle(newFakeCounter())
	for i := 0; i < 5; i++ {
		got, err := th.Attempt(ctx, "k", 3, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		want, err := reference.Attempt(ctx, "k", 3, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("attempt %d: degraded decision %v differs from reference %v", i+1, got, want)
		}
	}
	if durable.incrs != 5 {
		t.Fatalf("expected durable store to carry the load, got %d increments", durable.incrs)
	}
}

func TestFailoverCounterErrorsWhenBothFail(t *testing.T) {
	fast, durable := newFakeCounter(), newFakeCounter()
	fast.err = errors.New("redis down")
	durable.err = errors.New("postgres down")
	fc := NewFailoverCounter(fast, durable)

	if _, _, err := fc.Incr(context.Background(), "k", time.Minute); err == nil {
		t.Fatal("expected error when both stores fail")
	}
}
