package events

import "time"

// CrewEvent actions.
const (
	CrewAssigned    = "assigned"
	CrewDeclined    = "declined"
	CrewConfirmed   = "confirmed"
	CrewNoCandidate = "no_candidate"
)

// CrewEvent is published for lead crew changes.
type CrewEvent struct {
	Action       string
	JourneyID    string
	VehicleID    string
	StaffID      string
	AssignmentID string
	Time         time.Time
}

// SweepEvent summarises one T-24 sweep run.
type SweepEvent struct {
	From       time.Time
	To         time.Time
	Journeys   int
	Confirmed  int
	Alerts     int
	Downgrades int
	Exceptions int
	Failures   int
	Duration   time.Duration
}

// NotifyEvent reports the delivery of one notification.
type NotifyEvent struct {
	Kind      string
	JourneyID string
	Err       error
}
