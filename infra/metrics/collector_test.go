package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/events"
	coremetrics "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/metrics"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/eventbus"
)

type spySink struct {
	coremetrics.NopSink
	mu      sync.Mutex
	allocs  []coremetrics.AllocationOutcome
	crew    []coremetrics.CrewOutcome
	notify  []coremetrics.NotifyResult
	removal []coremetrics.RemovalOutcome
}

func (s *spySink) RecordAllocation(o coremetrics.AllocationOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allocs = append(s.allocs, o)
	return nil
}

func (s *spySink) RecordCrew(o coremetrics.CrewOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crew = append(s.crew, o)
	return nil
}

func (s *spySink) RecordNotify(r coremetrics.NotifyResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = append(s.notify, r)
	return nil
}

func (s *spySink) RecordRemoval(o coremetrics.RemovalOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removal = append(s.removal, o)
	return nil
}

func (s *spySink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.allocs) + len(s.crew) + len(s.notify) + len(s.removal)
}

func TestStartEventCollector(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := eventbus.New()
	sink := &spySink{}
	StartEventCollector(ctx, bus, sink)

	bus.Publish(events.AllocationEvent{JourneyID: "j1", Reason: "written", Written: 3})
	bus.Publish(events.CrewEvent{Action: events.CrewAssigned, JourneyID: "j1"})
	bus.Publish(events.NotifyEvent{Kind: "manifest", Err: errors.New("down")})
	bus.Publish(events.RemovalEvent{JourneyID: "j1", VehicleID: "A", Moved: 2})

	assert.Eventually(t, func() bool { return sink.total() == 4 }, time.Second, 5*time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, "written", sink.allocs[0].Reason)
	assert.Equal(t, events.CrewAssigned, sink.crew[0].Action)
	assert.False(t, sink.notify[0].OK)
	assert.Equal(t, 2, sink.removal[0].Moved)
}
