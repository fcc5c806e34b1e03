package model

// Operator owns vehicles and staff and receives operational alerts.
type Operator struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Contact string `json:"contact" yaml:"contact"`
}

// Vehicle is a capacity-limited transport unit owned by an operator.
type Vehicle struct {
	ID         string `json:"id" yaml:"id"`
	OperatorID string `json:"operator_id" yaml:"operator_id"`
	Name       string `json:"name,omitempty" yaml:"name"`
	Active     bool   `json:"active" yaml:"active"`
	MinSeats   int    `json:"min_seats" yaml:"min_seats"`
	MaxSeats   int    `json:"max_seats" yaml:"max_seats"`
	Preferred  bool   `json:"preferred" yaml:"preferred"`
}

// Fits reports whether the booked seat count lies inside the vehicle's range.
func (v Vehicle) Fits(seats int) bool {
	return seats >= v.MinSeats && seats <= v.MaxSeats
}

// RouteVehicle marks a vehicle as a candidate for journeys on a route.
type RouteVehicle struct {
	RouteID   string `json:"route_id" yaml:"route_id"`
	VehicleID string `json:"vehicle_id" yaml:"vehicle_id"`
	Active    bool   `json:"active" yaml:"active"`
	Preferred bool   `json:"preferred" yaml:"preferred"`
}
