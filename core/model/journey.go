package model

import "time"

// DateLayout is the calendar-day key shared by journeys and parties.
const DateLayout = "2006-01-02"

// Journey is one scheduled departure on a route.
type Journey struct {
	ID        string    `json:"id" yaml:"id"`
	RouteID   string    `json:"route_id" yaml:"route_id"`
	Departure time.Time `json:"departure" yaml:"departure"`
	Active    bool      `json:"active" yaml:"active"`
	// VehicleID is the legacy single-vehicle pointer. It is kept in sync with
	// the allocation rows for consumers that still read it.
	VehicleID string `json:"vehicle_id,omitempty" yaml:"vehicle_id"`
}

// Date returns the UTC calendar day of the departure.
func (j Journey) Date() string { return j.Departure.UTC().Format(DateLayout) }

// Party is the paid demand of one order for a route and date. A party is never
// split across vehicles.
type Party struct {
	OrderID string `json:"order_id" yaml:"order_id"`
	RouteID string `json:"route_id,omitempty" yaml:"route_id"`
	Date    string `json:"date,omitempty" yaml:"date"`
	Seats   int    `json:"seats" yaml:"seats"`
	Contact string `json:"contact,omitempty" yaml:"contact"`
	Paid    bool   `json:"paid" yaml:"paid"`
}

// Allocation places one party on one vehicle of a journey.
type Allocation struct {
	JourneyID string `json:"journey_id" yaml:"journey_id"`
	VehicleID string `json:"vehicle_id" yaml:"vehicle_id"`
	OrderID   string `json:"order_id" yaml:"order_id"`
	Seats     int    `json:"seats" yaml:"seats"`
}

// SeatsByVehicle sums allocated seats per vehicle.
func SeatsByVehicle(rows []Allocation) map[string]int {
	out := make(map[string]int)
	for _, r := range rows {
		out[r.VehicleID] += r.Seats
	}
	return out
}

// PrimaryVehicle returns the vehicle carrying the most seats, ties broken by
// the smallest id. It returns "" for an empty allocation.
func PrimaryVehicle(rows []Allocation) string {
	best, bestSeats := "", -1
	for id, seats := range SeatsByVehicle(rows) {
		if seats > bestSeats || (seats == bestSeats && id < best) {
			best, bestSeats = id, seats
		}
	}
	return best
}
