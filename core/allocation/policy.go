package allocation

import "time"

// Window is the mutation policy that applies to a journey.
type Window int

const (
	// WindowFree allows a full recompute.
	WindowFree Window = iota
	// WindowFreeze keeps an existing allocation and only fills a missing one.
	WindowFreeze
	// WindowLocked forbids any allocation write.
	WindowLocked
)

func (w Window) String() string {
	switch w {
	case WindowFree:
		return "free"
	case WindowFreeze:
		return "freeze"
	case WindowLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Policy holds the window thresholds measured back from departure.
type Policy struct {
	Lock   time.Duration
	Freeze time.Duration
}

// DefaultPolicy locks at T-24h and freezes at T-72h.
func DefaultPolicy() Policy {
	return Policy{Lock: 24 * time.Hour, Freeze: 72 * time.Hour}
}

// Classify returns the window of a departure at time now.
func (p Policy) Classify(departure, now time.Time) Window {
	d := departure.Sub(now)
	switch {
	case d <= p.Lock:
		return WindowLocked
	case d <= p.Freeze:
		return WindowFreeze
	default:
		return WindowFree
	}
}
