package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/allocation"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/events"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/store/memory"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/eventbus"
)

func TestFromEvent(t *testing.T) {
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	r, ok := FromEvent(events.AllocationEvent{JourneyID: "j1", Reason: "capacity_exhausted", Err: errors.New("boom"), Time: at})
	require.True(t, ok)
	assert.Equal(t, KindAllocation, r.Kind)
	assert.Equal(t, "boom", r.Error)
	assert.Equal(t, at, r.Timestamp)

	r, ok = FromEvent(events.RemovalEvent{JourneyID: "j1", VehicleID: "A", Conflict: true})
	require.True(t, ok)
	assert.Equal(t, "capacity_conflict", r.Outcome)

	r, ok = FromEvent(events.RemovalEvent{JourneyID: "j1", VehicleID: "NOPE", Err: errors.New("vehicle NOPE not found")})
	require.True(t, ok)
	assert.Equal(t, "error", r.Outcome)
	assert.Equal(t, "vehicle NOPE not found", r.Error)

	_, ok = FromEvent("unrelated")
	assert.False(t, ok)
}

func TestStartRecorderAppendsEvents(t *testing.T) {
	store, err := NewRotatingJSONLStore(t.TempDir()+"/audit.jsonl", 1, 1, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartRecorder(ctx, bus, store, nil)

	bus.Publish(events.CrewEvent{Action: events.CrewAssigned, JourneyID: "j1", StaffID: "s1"})
	assert.Eventually(t, func() bool {
		out, err := store.Query(context.Background(), Query{Kind: KindCrew})
		return err == nil && len(out) == 1
	}, time.Second, 10*time.Millisecond)
}

// slowStore keeps records in memory and takes a millisecond per append.
type slowStore struct {
	mu   sync.Mutex
	recs []Record
}

func (s *slowStore) Append(_ context.Context, rec Record) error {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *slowStore) Query(context.Context, Query) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.recs...), nil
}

func (s *slowStore) Close() error { return nil }

func TestRecorderKeepsEveryRecordOfBulkFinalize(t *testing.T) {
	const journeys = 100
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := memory.Fixture{
		Operators: []model.Operator{{ID: "op1"}},
		Vehicles:  []model.Vehicle{{ID: "A", OperatorID: "op1", Active: true, MaxSeats: 6}},
	}
	for i := 0; i < journeys; i++ {
		route := fmt.Sprintf("r%d", i)
		dep := now.Add(100*time.Hour + time.Duration(i)*time.Minute)
		f.Journeys = append(f.Journeys, model.Journey{ID: fmt.Sprintf("j%d", i), RouteID: route, Departure: dep, Active: true})
		f.RouteVehicles = append(f.RouteVehicles, model.RouteVehicle{RouteID: route, VehicleID: "A", Active: true})
		f.Parties = append(f.Parties, model.Party{OrderID: fmt.Sprintf("o%d", i), RouteID: route, Date: dep.Format(model.DateLayout), Seats: 2, Paid: true})
	}

	bus := eventbus.New()
	store := &slowStore{}
	done := StartRecorder(context.Background(), bus, store, nil)

	a := allocation.NewAllocator(memory.NewFromFixture(f), allocation.Config{Workers: 8}, bus, nil)
	res, err := a.FinalizeAllocations(context.Background(), allocation.FinalizeRequest{All: true}, now)
	require.NoError(t, err)
	require.Equal(t, journeys, res.Changed)

	bus.Close()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("recorder did not drain")
	}

	recs, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	perJourney := map[string]int{}
	for _, r := range recs {
		if r.Kind == KindAllocation && r.Outcome == allocation.ReasonWritten {
			perJourney[r.JourneyID]++
		}
	}
	assert.Len(t, perJourney, journeys)
	for id, n := range perJourney {
		assert.Equal(t, 1, n, id)
	}
}
