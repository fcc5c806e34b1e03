package allocation

import (
	"fmt"
	"sort"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
)

// Candidate is a vehicle offered to the packer with its free seats.
type Candidate struct {
	VehicleID string
	Capacity  int
	Preferred bool
}

// Placement assigns one party to one vehicle.
type Placement struct {
	OrderID   string
	VehicleID string
	Seats     int
}

// Plan is the result of a successful packing run, in placement order.
type Plan struct {
	Placements []Placement
}

// Rows converts the plan to allocation rows of the journey, ordered by
// vehicle then order.
func (p Plan) Rows(journeyID string) []model.Allocation {
	rows := make([]model.Allocation, 0, len(p.Placements))
	for _, pl := range p.Placements {
		rows = append(rows, model.Allocation{
			JourneyID: journeyID,
			VehicleID: pl.VehicleID,
			OrderID:   pl.OrderID,
			Seats:     pl.Seats,
		})
	}
	SortRows(rows)
	return rows
}

// SortRows orders allocation rows by vehicle then order.
func SortRows(rows []model.Allocation) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].VehicleID != rows[j].VehicleID {
			return rows[i].VehicleID < rows[j].VehicleID
		}
		return rows[i].OrderID < rows[j].OrderID
	})
}

// Demand returns the total seats of the parties.
func Demand(parties []model.Party) int {
	n := 0
	for _, p := range parties {
		n += p.Seats
	}
	return n
}

// SelectMinimalSet returns the shortest prefix of the candidates, ordered by
// preferred first then smaller capacity then id, whose capacity covers the
// demand. When all candidates together fall short the whole ordered list is
// returned.
func SelectMinimalSet(cands []Candidate, demand int) []Candidate {
	ordered := append([]Candidate(nil), cands...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Preferred != b.Preferred {
			return a.Preferred
		}
		if a.Capacity != b.Capacity {
			return a.Capacity < b.Capacity
		}
		return a.VehicleID < b.VehicleID
	})
	total := 0
	for i, c := range ordered {
		total += c.Capacity
		if total >= demand {
			return ordered[:i+1]
		}
	}
	return ordered
}

// Pack selects the minimal vehicle set for the parties and places every party
// on it. Either all parties are placed or a *model.CapacityError lists the
// parties left over.
func Pack(parties []model.Party, cands []Candidate) (Plan, error) {
	if err := validate(parties); err != nil {
		return Plan{}, err
	}
	return PackOnto(parties, SelectMinimalSet(cands, Demand(parties)))
}

// PackOnto places the parties largest first on the given vehicles, choosing
// for each party the preferred vehicle with the tightest sufficient free
// capacity, then the smallest id.
func PackOnto(parties []model.Party, cands []Candidate) (Plan, error) {
	if err := validate(parties); err != nil {
		return Plan{}, err
	}
	ordered := append([]model.Party(nil), parties...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Seats != ordered[j].Seats {
			return ordered[i].Seats > ordered[j].Seats
		}
		return ordered[i].OrderID < ordered[j].OrderID
	})
	free := append([]Candidate(nil), cands...)

	var plan Plan
	var unplaced []model.Party
	for _, p := range ordered {
		best := -1
		for i, c := range free {
			if c.Capacity < p.Seats {
				continue
			}
			if best < 0 || tighter(c, free[best]) {
				best = i
			}
		}
		if best < 0 {
			unplaced = append(unplaced, p)
			continue
		}
		free[best].Capacity -= p.Seats
		plan.Placements = append(plan.Placements, Placement{OrderID: p.OrderID, VehicleID: free[best].VehicleID, Seats: p.Seats})
	}
	if len(unplaced) > 0 {
		return Plan{}, &model.CapacityError{Unplaced: unplaced}
	}
	return plan, nil
}

func tighter(a, b Candidate) bool {
	if a.Preferred != b.Preferred {
		return a.Preferred
	}
	if a.Capacity != b.Capacity {
		return a.Capacity < b.Capacity
	}
	return a.VehicleID < b.VehicleID
}

func validate(parties []model.Party) error {
	for _, p := range parties {
		if p.Seats < 1 {
			return fmt.Errorf("%w: order %s has %d seats", model.ErrInvalidParty, p.OrderID, p.Seats)
		}
	}
	return nil
}
