// Package eventbus fans domain events out to in-process subscribers.
package eventbus

import "sync"

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// EventBus is a publish/subscribe bus with two delivery modes.
type EventBus interface {
	Publish(Event)
	// Subscribe returns a best-effort subscription. Events published while
	// its buffer is full are dropped for that subscriber.
	Subscribe() <-chan Event
	// SubscribeDurable returns a subscription that never drops. Events queue
	// without bound until read and Close delivers the backlog before the
	// channel closes.
	SubscribeDurable() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

const lossyBuffer = 8

type subscriber struct {
	out     chan Event
	durable bool

	mu      sync.Mutex
	queue   []Event
	closing bool
	wake    chan struct{}
	stop    chan struct{}
}

func (s *subscriber) deliver(e Event) {
	if !s.durable {
		select {
		case s.out <- e:
		default:
		}
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump forwards the queue to out in publish order.
func (s *subscriber) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return
			}
			select {
			case <-s.wake:
			case <-s.stop:
				return
			}
			continue
		}
		e := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- e:
		case <-s.stop:
			return
		}
	}
}

// finish ends the subscription. A durable subscriber keeps its backlog when
// drain is set.
func (s *subscriber) finish(drain bool) {
	if !s.durable {
		close(s.out)
		return
	}
	s.mu.Lock()
	s.closing = true
	if !drain {
		s.queue = nil
	}
	s.mu.Unlock()
	if !drain {
		close(s.stop)
	}
	s.signal()
}

// Bus is the default EventBus implementation.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscriber
	closed bool
}

// New creates a new Bus.
func New() *Bus { return &Bus{} }

// Publish hands the event to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		s.deliver(e)
	}
}

// Subscribe registers a best-effort subscriber.
func (b *Bus) Subscribe() <-chan Event { return b.subscribe(false) }

// SubscribeDurable registers a subscriber that receives every event.
func (b *Bus) SubscribeDurable() <-chan Event { return b.subscribe(true) }

func (b *Bus) subscribe(durable bool) <-chan Event {
	s := &subscriber{durable: durable}
	if durable {
		s.out = make(chan Event)
		s.wake = make(chan struct{}, 1)
		s.stop = make(chan struct{})
	} else {
		s.out = make(chan Event, lossyBuffer)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.out)
		return s.out
	}
	b.subs = append(b.subs, s)
	if durable {
		go s.pump()
	}
	return s.out
}

// Unsubscribe removes the subscriber and closes its channel. Pending events
// of a durable subscriber are discarded.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.out == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			s.finish(false)
			return
		}
	}
}

// Close stops publishing and closes every subscription once its backlog is
// delivered.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		s.finish(true)
	}
	b.subs = nil
}
