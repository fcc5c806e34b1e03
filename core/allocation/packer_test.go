package allocation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
)

func parties(seats ...int) []model.Party {
	out := make([]model.Party, len(seats))
	for i, s := range seats {
		out[i] = model.Party{OrderID: string(rune('a' + i)), Seats: s}
	}
	return out
}

func vehicleOf(plan Plan) map[string]string {
	m := make(map[string]string)
	for _, p := range plan.Placements {
		m[p.OrderID] = p.VehicleID
	}
	return m
}

func TestPackFailsWhenLargestCannotFitAfterTightFit(t *testing.T) {
	cands := []Candidate{{VehicleID: "A", Capacity: 6}, {VehicleID: "B", Capacity: 4}}
	_, err := Pack(parties(5, 3, 2), cands)
	if !errors.Is(err, model.ErrCapacityExhausted) {
		t.Fatalf("expected capacity exhausted got %v", err)
	}
	var capErr *model.CapacityError
	require.ErrorAs(t, err, &capErr)
	require.Len(t, capErr.Unplaced, 1)
	assert.Equal(t, 2, capErr.Unplaced[0].Seats)
}

func TestPackPrefersPreferredVehicle(t *testing.T) {
	cands := []Candidate{
		{VehicleID: "A", Capacity: 6},
		{VehicleID: "B", Capacity: 4},
		{VehicleID: "C", Capacity: 3, Preferred: true},
	}
	plan, err := Pack(parties(5, 3, 2), cands)
	require.NoError(t, err)
	got := vehicleOf(plan)
	assert.Equal(t, map[string]string{"a": "A", "b": "C", "c": "B"}, got)
}

func TestSelectMinimalSet(t *testing.T) {
	cands := []Candidate{
		{VehicleID: "big", Capacity: 12},
		{VehicleID: "small", Capacity: 4},
		{VehicleID: "mid", Capacity: 8},
	}
	set := SelectMinimalSet(cands, 10)
	ids := []string{}
	for _, c := range set {
		ids = append(ids, c.VehicleID)
	}
	assert.Equal(t, []string{"small", "mid"}, ids)

	all := SelectMinimalSet(cands, 100)
	assert.Len(t, all, 3)
}

func TestPackNeverOverbooksAndKeepsPartiesWhole(t *testing.T) {
	cands := []Candidate{
		{VehicleID: "A", Capacity: 8},
		{VehicleID: "B", Capacity: 8},
		{VehicleID: "C", Capacity: 5, Preferred: true},
	}
	ps := parties(4, 4, 3, 3, 2, 2, 1)
	plan, err := Pack(ps, cands)
	require.NoError(t, err)
	load := make(map[string]int)
	placed := make(map[string]int)
	for _, p := range plan.Placements {
		load[p.VehicleID] += p.Seats
		placed[p.OrderID]++
	}
	caps := map[string]int{"A": 8, "B": 8, "C": 5}
	for v, n := range load {
		if n > caps[v] {
			t.Fatalf("vehicle %s overbooked: %d > %d", v, n, caps[v])
		}
	}
	for _, p := range ps {
		if placed[p.OrderID] != 1 {
			t.Fatalf("party %s placed %d times", p.OrderID, placed[p.OrderID])
		}
	}
}

func TestPackIsDeterministic(t *testing.T) {
	cands := []Candidate{{VehicleID: "B", Capacity: 6}, {VehicleID: "A", Capacity: 6}}
	ps := parties(3, 3, 2, 2)
	first, err := Pack(ps, cands)
	require.NoError(t, err)
	reversed := []Candidate{cands[1], cands[0]}
	shuffled := []model.Party{ps[3], ps[1], ps[0], ps[2]}
	for i := 0; i < 10; i++ {
		again, err := Pack(shuffled, reversed)
		require.NoError(t, err)
		assert.Equal(t, first.Rows("j"), again.Rows("j"))
	}
}

func TestPackRejectsEmptyParty(t *testing.T) {
	_, err := Pack([]model.Party{{OrderID: "x", Seats: 0}}, []Candidate{{VehicleID: "A", Capacity: 4}})
	if !errors.Is(err, model.ErrInvalidParty) {
		t.Fatalf("expected invalid party got %v", err)
	}
}
