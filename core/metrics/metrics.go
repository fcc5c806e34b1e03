package metrics

import "time"

// AllocationOutcome is the result of one journey finalization.
type AllocationOutcome struct {
	JourneyID  string
	OperatorID string
	Reason     string
	Written    int
	Seats      int
	Vehicles   int
	Time       time.Time
}

// MetricsSink records allocation outcomes.
type MetricsSink interface {
	RecordAllocation(o AllocationOutcome) error
}

// RemovalOutcome describes a vehicle removal.
type RemovalOutcome struct {
	JourneyID string
	VehicleID string
	Moved     int
	Conflict  bool
	// Failed is set for removals that failed for another reason than
	// capacity.
	Failed bool
	Time   time.Time
}

// RemovalRecorder records vehicle removals.
type RemovalRecorder interface {
	RecordRemoval(o RemovalOutcome) error
}

// CrewOutcome describes a lead crew change.
type CrewOutcome struct {
	Action    string
	JourneyID string
	VehicleID string
	Time      time.Time
}

// CrewRecorder records crew changes.
type CrewRecorder interface {
	RecordCrew(o CrewOutcome) error
}

// SweepRun summarises one T-24 sweep.
type SweepRun struct {
	Journeys   int
	Confirmed  int
	Alerts     int
	Downgrades int
	Exceptions int
	Failures   int
	Duration   time.Duration
	Time       time.Time
}

// SweepRecorder records sweep runs.
type SweepRecorder interface {
	RecordSweep(r SweepRun) error
}

// NotifyResult is the delivery result of one notification.
type NotifyResult struct {
	Kind string
	OK   bool
}

// NotifyRecorder records notification deliveries.
type NotifyRecorder interface {
	RecordNotify(r NotifyResult) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAllocation(AllocationOutcome) error { return nil }
func (NopSink) RecordRemoval(RemovalOutcome) error       { return nil }
func (NopSink) RecordCrew(CrewOutcome) error             { return nil }
func (NopSink) RecordSweep(SweepRun) error               { return nil }
func (NopSink) RecordNotify(NotifyResult) error          { return nil }
