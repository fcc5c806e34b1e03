package allocation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/events"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/store/memory"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/internal/eventbus"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixture(departIn time.Duration, seats ...int) memory.Fixture {
	dep := now.Add(departIn)
	date := dep.UTC().Format(model.DateLayout)
	f := memory.Fixture{
		Operators: []model.Operator{{ID: "op1", Contact: "op1@example.com"}, {ID: "op2", Contact: "op2@example.com"}},
		Journeys:  []model.Journey{{ID: "j1", RouteID: "r1", Departure: dep, Active: true}},
		Vehicles: []model.Vehicle{
			{ID: "A", OperatorID: "op1", Active: true, MaxSeats: 6},
			{ID: "B", OperatorID: "op1", Active: true, MaxSeats: 4},
			{ID: "C", OperatorID: "op2", Active: true, MaxSeats: 3},
		},
		RouteVehicles: []model.RouteVehicle{
			{RouteID: "r1", VehicleID: "A", Active: true},
			{RouteID: "r1", VehicleID: "B", Active: true},
			{RouteID: "r1", VehicleID: "C", Active: true},
		},
	}
	for i, s := range seats {
		f.Parties = append(f.Parties, model.Party{
			OrderID: string(rune('a' + i)), RouteID: "r1", Date: date, Seats: s, Paid: true,
		})
	}
	return f
}

func newAllocator(st *memory.Store) *Allocator {
	return NewAllocator(st, Config{}, nil, nil)
}

func TestFinalizeWritesPlanAndLegacyPointer(t *testing.T) {
	st := memory.NewFromFixture(fixture(100*time.Hour, 5, 3, 2))
	a := newAllocator(st)
	out, err := a.Finalize(context.Background(), "j1", "", now)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Written)
	assert.Equal(t, ReasonWritten, out.Reason)

	snap := st.Snapshot()
	load := model.SeatsByVehicle(snap.Allocations)
	assert.Equal(t, map[string]int{"A": 5, "B": 2, "C": 3}, load)
	assert.Equal(t, "A", snap.Journeys[0].VehicleID)

	again, err := a.Finalize(context.Background(), "j1", "", now)
	require.NoError(t, err)
	assert.Zero(t, again.Written)
	assert.Equal(t, ReasonUnchanged, again.Reason)
}

func TestFinalizeLockedWritesNothing(t *testing.T) {
	f := fixture(10*time.Hour, 2)
	f.Allocations = []model.Allocation{{JourneyID: "j1", VehicleID: "B", OrderID: "old", Seats: 4}}
	st := memory.NewFromFixture(f)
	out, err := newAllocator(st).Finalize(context.Background(), "j1", "", now)
	require.NoError(t, err)
	assert.True(t, out.Locked)
	assert.Zero(t, out.Written)
	assert.Equal(t, f.Allocations, st.Snapshot().Allocations)
}

func TestFinalizeFreezeKeepsExisting(t *testing.T) {
	f := fixture(48*time.Hour, 2, 2)
	f.Allocations = []model.Allocation{{JourneyID: "j1", VehicleID: "A", OrderID: "a", Seats: 2}}
	st := memory.NewFromFixture(f)
	out, err := newAllocator(st).Finalize(context.Background(), "j1", "", now)
	require.NoError(t, err)
	assert.Zero(t, out.Written)
	assert.Equal(t, ReasonFrozenShortfall, out.Reason)
	assert.Equal(t, 2, out.Shortfall)
	assert.Len(t, st.Snapshot().Allocations, 1)
}

func TestFinalizeFreezeFillsAbsentAllocation(t *testing.T) {
	st := memory.NewFromFixture(fixture(48*time.Hour, 2, 2))
	out, err := newAllocator(st).Finalize(context.Background(), "j1", "", now)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Written)
	assert.Len(t, st.Snapshot().Allocations, 2)
}

func TestFinalizeCapacityExhaustedLeavesState(t *testing.T) {
	f := fixture(100*time.Hour, 6, 6)
	f.Allocations = []model.Allocation{{JourneyID: "j1", VehicleID: "A", OrderID: "a", Seats: 6}}
	st := memory.NewFromFixture(f)
	bus := eventbus.New()
	sub := bus.Subscribe()
	a := NewAllocator(st, Config{}, bus, nil)
	_, err := a.Finalize(context.Background(), "j1", "", now)
	if !errors.Is(err, model.ErrCapacityExhausted) {
		t.Fatalf("expected capacity exhausted got %v", err)
	}
	assert.Equal(t, f.Allocations, st.Snapshot().Allocations)
	ev := (<-sub).(events.AllocationEvent)
	assert.Equal(t, ReasonCapacity, ev.Reason)
}

func TestFinalizeZeroDemandClears(t *testing.T) {
	f := fixture(100 * time.Hour)
	f.Allocations = []model.Allocation{{JourneyID: "j1", VehicleID: "A", OrderID: "gone", Seats: 2}}
	f.Journeys[0].VehicleID = "A"
	st := memory.NewFromFixture(f)
	out, err := newAllocator(st).Finalize(context.Background(), "j1", "", now)
	require.NoError(t, err)
	assert.Equal(t, ReasonCleared, out.Reason)
	assert.Equal(t, 1, out.Written)
	snap := st.Snapshot()
	assert.Empty(t, snap.Allocations)
	assert.Empty(t, snap.Journeys[0].VehicleID)
}

func TestFinalizeOperatorScopeLeavesOthersUntouched(t *testing.T) {
	f := fixture(100*time.Hour, 3, 4, 2)
	f.Allocations = []model.Allocation{{JourneyID: "j1", VehicleID: "C", OrderID: "a", Seats: 3}}
	st := memory.NewFromFixture(f)
	out, err := newAllocator(st).Finalize(context.Background(), "j1", "op1", now)
	require.NoError(t, err)
	require.Positive(t, out.Written)

	byOrder := map[string]string{}
	for _, r := range st.Snapshot().Allocations {
		byOrder[r.OrderID] = r.VehicleID
	}
	assert.Equal(t, "C", byOrder["a"])
	assert.Equal(t, "B", byOrder["b"])
	assert.Equal(t, "A", byOrder["c"])
}

func TestFinalizeUnknownJourney(t *testing.T) {
	st := memory.New()
	_, err := newAllocator(st).Finalize(context.Background(), "nope", "", now)
	assert.True(t, model.IsNotFound(err))
}

func TestFinalizeAllocationsBatch(t *testing.T) {
	f := fixture(100*time.Hour, 2)
	f.Journeys = append(f.Journeys,
		model.Journey{ID: "j2", RouteID: "r1", Departure: now.Add(10 * time.Hour), Active: true},
		model.Journey{ID: "past", RouteID: "r1", Departure: now.Add(-time.Hour), Active: true},
	)
	st := memory.NewFromFixture(f)
	res, err := newAllocator(st).FinalizeAllocations(context.Background(), FinalizeRequest{All: true}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changed)
	require.Len(t, res.Details, 2)
	assert.Equal(t, "j2", res.Details[0].JourneyID)
	assert.True(t, res.Details[0].Locked)
	assert.Equal(t, "j1", res.Details[1].JourneyID)

	_, err = newAllocator(st).FinalizeAllocations(context.Background(), FinalizeRequest{}, now)
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
}

func TestFinalizeConcurrentCallsSerializePerJourney(t *testing.T) {
	st := memory.NewFromFixture(fixture(100*time.Hour, 5, 3, 2))
	a := newAllocator(st)
	var wg sync.WaitGroup
	written := make(chan int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := a.Finalize(context.Background(), "j1", "", now)
			if err == nil {
				written <- out.Written
			}
		}()
	}
	wg.Wait()
	close(written)
	n := 0
	for w := range written {
		if w > 0 {
			n++
		}
	}
	assert.Equal(t, 1, n)
	assert.Len(t, st.Snapshot().Allocations, 3)
}
