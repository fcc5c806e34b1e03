package workpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestForEachRunsAll(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]bool)
	n, err := ForEach(context.Background(), 20, 3, func(_ context.Context, i int) {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n != 20 || len(seen) != 20 {
		t.Fatalf("expected 20 calls got %d (%d distinct)", n, len(seen))
	}
}

func TestForEachBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	_, _ = ForEach(context.Background(), 12, 2, func(_ context.Context, _ int) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	})
	if peak > 2 {
		t.Fatalf("expected at most 2 in flight got %d", peak)
	}
}

func TestForEachStopsSchedulingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	var detachedErr error
	n, err := ForEach(ctx, 10, 1, func(c context.Context, i int) {
		atomic.AddInt32(&calls, 1)
		if i == 1 {
			cancel()
			time.Sleep(5 * time.Millisecond)
			detachedErr = c.Err()
		}
	})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled got %v", err)
	}
	if n >= 10 || int(calls) != n {
		t.Fatalf("expected early stop, started %d calls %d", n, calls)
	}
	if detachedErr != nil {
		t.Fatalf("in-flight call saw cancellation: %v", detachedErr)
	}
}
