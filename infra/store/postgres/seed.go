package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/store/memory"
)

// Seed upserts the fixture records in one transaction. Development and the
// integration tests use it.
func (s *Store) Seed(ctx context.Context, f memory.Fixture) error {
	return s.inTx(ctx, pgx.TxOptions{}, func(q pgx.Tx) error {
		b := &pgx.Batch{}
		for _, o := range f.Operators {
			b.Queue(`INSERT INTO operators (id, name, contact) VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, contact = EXCLUDED.contact`,
				o.ID, o.Name, o.Contact)
		}
		for _, v := range f.Vehicles {
			b.Queue(`INSERT INTO vehicles (id, operator_id, name, active, min_seats, max_seats, preferred)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE SET operator_id = EXCLUDED.operator_id, name = EXCLUDED.name,
					active = EXCLUDED.active, min_seats = EXCLUDED.min_seats, max_seats = EXCLUDED.max_seats,
					preferred = EXCLUDED.preferred`,
				v.ID, v.OperatorID, v.Name, v.Active, v.MinSeats, v.MaxSeats, v.Preferred)
		}
		for _, rv := range f.RouteVehicles {
			b.Queue(`INSERT INTO route_vehicles (route_id, vehicle_id, active, preferred) VALUES ($1, $2, $3, $4)
				ON CONFLICT (route_id, vehicle_id) DO UPDATE SET active = EXCLUDED.active, preferred = EXCLUDED.preferred`,
				rv.RouteID, rv.VehicleID, rv.Active, rv.Preferred)
		}
		for _, j := range f.Journeys {
			b.Queue(`INSERT INTO journeys (id, route_id, departure, active, vehicle_id) VALUES ($1, $2, $3, $4, NULLIF($5, ''))
				ON CONFLICT (id) DO UPDATE SET route_id = EXCLUDED.route_id, departure = EXCLUDED.departure,
					active = EXCLUDED.active, vehicle_id = EXCLUDED.vehicle_id`,
				j.ID, j.RouteID, j.Departure, j.Active, j.VehicleID)
		}
		for _, p := range f.Parties {
			b.Queue(`INSERT INTO parties (order_id, route_id, travel_date, seats, contact, paid) VALUES ($1, $2, $3::date, $4, $5, $6)
				ON CONFLICT (order_id) DO UPDATE SET route_id = EXCLUDED.route_id, travel_date = EXCLUDED.travel_date,
					seats = EXCLUDED.seats, contact = EXCLUDED.contact, paid = EXCLUDED.paid`,
				p.OrderID, p.RouteID, p.Date, p.Seats, p.Contact, p.Paid)
		}
		for _, st := range f.Staff {
			b.Queue(`INSERT INTO staff (id, operator_id, name, active, role, contact) VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE SET operator_id = EXCLUDED.operator_id, name = EXCLUDED.name,
					active = EXCLUDED.active, role = EXCLUDED.role, contact = EXCLUDED.contact`,
				st.ID, st.OperatorID, st.Name, st.Active, st.Role, st.Contact)
		}
		for _, p := range f.Preferences {
			b.Queue(`INSERT INTO crew_preferences (operator_id, vehicle_id, staff_id, priority, lead_eligible) VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (operator_id, vehicle_id, staff_id) DO UPDATE SET priority = EXCLUDED.priority, lead_eligible = EXCLUDED.lead_eligible`,
				p.OperatorID, p.VehicleID, p.StaffID, p.Priority, p.LeadEligible)
		}
		if err := (&tx{q: q}).sendBatch(ctx, b, "seed"); err != nil {
			return err
		}
		t := &tx{q: q}
		if err := t.insertAllocations(ctx, f.Allocations); err != nil {
			return err
		}
		for _, a := range f.Assignments {
			if err := t.InsertCrewAssignment(ctx, a); err != nil {
				return err
			}
		}
		for _, e := range f.Ledger {
			if err := t.AppendLedger(ctx, e); err != nil {
				return fmt.Errorf("seed ledger: %w", err)
			}
		}
		return nil
	})
}
