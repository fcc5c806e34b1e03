package events

import "time"

// AllocationEvent is published for every journey finalization, including
// runs that wrote nothing or failed on capacity.
type AllocationEvent struct {
	JourneyID  string
	OperatorID string
	Reason     string
	Written    int
	Seats      int
	Vehicles   int
	Err        error
	Time       time.Time
}

// RemovalEvent is published for every vehicle removal attempt. Err carries
// the failure and Conflict is set when it was a capacity conflict.
type RemovalEvent struct {
	JourneyID string
	VehicleID string
	Moved     int
	Conflict  bool
	Err       error
	Time      time.Time
}
