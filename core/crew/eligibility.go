package crew

import (
	"context"
	"time"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/model"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/store"
)

// eligible collects the lead candidates for a journey vehicle. Preference
// rows decide the pool; without any row for the vehicle the operator's active
// captains form it with equal priority.
func (d *Dispatcher) eligible(ctx context.Context, tx store.Tx, j model.Journey, vehicleID, operatorID string) ([]Candidate, error) {
	prefs, err := tx.CrewPreferences(ctx, operatorID, vehicleID)
	if err != nil {
		return nil, err
	}

	pool := make(map[string]int)
	if len(prefs) > 0 {
		for _, p := range prefs {
			if !p.LeadEligible {
				continue
			}
			st, err := tx.Staff(ctx, p.StaffID)
			if model.IsNotFound(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if !st.Active {
				continue
			}
			if cur, ok := pool[st.ID]; !ok || p.Priority < cur {
				pool[st.ID] = p.Priority
			}
		}
	} else {
		staff, err := tx.OperatorStaff(ctx, operatorID)
		if err != nil {
			return nil, err
		}
		for _, st := range staff {
			if st.Active && st.IsCaptain() {
				pool[st.ID] = 0
			}
		}
	}
	if len(pool) == 0 {
		return nil, nil
	}

	busy, err := d.busyStaff(ctx, tx, j)
	if err != nil {
		return nil, err
	}
	declined, err := declinedStaff(ctx, tx, j.ID, vehicleID)
	if err != nil {
		return nil, err
	}
	stats, err := tx.LedgerStats(ctx, operatorID, vehicleID)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for id, prio := range pool {
		if busy[id] || declined[id] {
			continue
		}
		s := stats[id]
		out = append(out, Candidate{StaffID: id, Priority: prio, Wins: s.Wins, LastWin: s.LastWin})
	}
	return out, nil
}

// busyStaff returns staff already leading on the journey, or in strict mode on
// any journey departing within the overlap window.
func (d *Dispatcher) busyStaff(ctx context.Context, tx store.Tx, j model.Journey) (map[string]bool, error) {
	busy := make(map[string]bool)
	leads, err := tx.LiveLeads(ctx, j.ID)
	if err != nil {
		return nil, err
	}
	for _, a := range leads {
		busy[a.StaffID] = true
	}
	if !d.cfg.StrictOverlap {
		return busy, nil
	}
	window := d.cfg.overlap()
	others, err := tx.LeadsDepartingBetween(ctx, j.Departure.Add(-window), j.Departure.Add(window+time.Nanosecond))
	if err != nil {
		return nil, err
	}
	for _, a := range others {
		busy[a.StaffID] = true
	}
	return busy, nil
}

func declinedStaff(ctx context.Context, tx store.Tx, journeyID, vehicleID string) (map[string]bool, error) {
	evs, err := tx.CrewEvents(ctx, journeyID, vehicleID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, e := range evs {
		if e.Kind == model.CrewDeclined {
			out[e.StaffID] = true
		}
	}
	return out, nil
}
