package sweep

import (
	"context"
	"sync"
	"time"
)

// Alert modes for journeys without a lead.
const (
	AlertOnce  = "once"
	AlertEvery = "every"
)

// AlertGuard decides whether the captain-unassigned alert of a journey is
// sent. Implementations must be safe for concurrent use.
type AlertGuard interface {
	// Allow reports whether the alert may be sent now and records it.
	Allow(ctx context.Context, journeyID string, ttl time.Duration) (bool, error)
}

// Lease makes a sweep run exclusive across instances.
type Lease interface {
	// Acquire takes the named lease for ttl. ok is false when another holder
	// has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// AlwaysGuard allows every alert.
type AlwaysGuard struct{}

func (AlwaysGuard) Allow(context.Context, string, time.Duration) (bool, error) { return true, nil }

// MemoryGuard allows one alert per journey until ttl expires.
type MemoryGuard struct {
	mu   sync.Mutex
	sent map[string]time.Time
	now  func() time.Time
}

// NewMemoryGuard creates an in-process guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{sent: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) Allow(_ context.Context, journeyID string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.now()
	for id, exp := range g.sent {
		if !t.Before(exp) {
			delete(g.sent, id)
		}
	}
	if _, ok := g.sent[journeyID]; ok {
		return false, nil
	}
	g.sent[journeyID] = t.Add(ttl)
	return true, nil
}

// LocalLease serializes sweeps inside one process.
type LocalLease struct {
	mu sync.Mutex
}

func (l *LocalLease) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}
