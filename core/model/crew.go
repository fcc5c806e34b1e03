package model

import (
	"strings"
	"time"
)

// RoleLead is the only crew role assigned by the dispatcher.
const RoleLead = "lead"

// Staff is a crew member employed by an operator.
type Staff struct {
	ID         string `json:"id" yaml:"id"`
	OperatorID string `json:"operator_id" yaml:"operator_id"`
	Name       string `json:"name,omitempty" yaml:"name"`
	Active     bool   `json:"active" yaml:"active"`
	Role       string `json:"role" yaml:"role"`
	Contact    string `json:"contact,omitempty" yaml:"contact"`
}

// IsCaptain reports whether the free-text role denotes a captain.
func (s Staff) IsCaptain() bool {
	return strings.Contains(strings.ToLower(s.Role), "captain")
}

// CrewPreference ranks a staff member for an operator's vehicle.
type CrewPreference struct {
	OperatorID   string `json:"operator_id" yaml:"operator_id"`
	VehicleID    string `json:"vehicle_id" yaml:"vehicle_id"`
	StaffID      string `json:"staff_id" yaml:"staff_id"`
	Priority     int    `json:"priority" yaml:"priority"`
	LeadEligible bool   `json:"lead_eligible" yaml:"lead_eligible"`
}

// AssignmentStatus is the lifecycle state of a live crew assignment.
type AssignmentStatus string

const (
	StatusAssigned  AssignmentStatus = "assigned"
	StatusConfirmed AssignmentStatus = "confirmed"
)

// CrewAssignment is a live lead assignment on a journey vehicle. Declined
// assignments are deleted and survive only as crew events.
type CrewAssignment struct {
	ID          string           `json:"id" yaml:"id"`
	JourneyID   string           `json:"journey_id" yaml:"journey_id"`
	VehicleID   string           `json:"vehicle_id" yaml:"vehicle_id"`
	StaffID     string           `json:"staff_id" yaml:"staff_id"`
	Role        string           `json:"role" yaml:"role"`
	Status      AssignmentStatus `json:"status" yaml:"status"`
	AssignedAt  time.Time        `json:"assigned_at" yaml:"assigned_at"`
	ConfirmedAt *time.Time       `json:"confirmed_at,omitempty" yaml:"confirmed_at"`
}

// CrewEventKind classifies crew history entries.
type CrewEventKind string

const (
	CrewAssigned  CrewEventKind = "assigned"
	CrewDeclined  CrewEventKind = "declined"
	CrewConfirmed CrewEventKind = "confirmed"
	CrewMoved     CrewEventKind = "moved"
)

// CrewEvent is an append-only entry of the crew history.
type CrewEvent struct {
	AssignmentID string        `json:"assignment_id" yaml:"assignment_id"`
	JourneyID    string        `json:"journey_id" yaml:"journey_id"`
	VehicleID    string        `json:"vehicle_id" yaml:"vehicle_id"`
	StaffID      string        `json:"staff_id" yaml:"staff_id"`
	Kind         CrewEventKind `json:"kind" yaml:"kind"`
	Reason       string        `json:"reason,omitempty" yaml:"reason"`
	At           time.Time     `json:"at" yaml:"at"`
}

// LedgerEntry is one fair-use ledger row. Rows are written unconfirmed at
// assignment and flipped to confirmed at T-24.
type LedgerEntry struct {
	ID          string     `json:"id" yaml:"id"`
	OperatorID  string     `json:"operator_id" yaml:"operator_id"`
	VehicleID   string     `json:"vehicle_id" yaml:"vehicle_id"`
	JourneyID   string     `json:"journey_id" yaml:"journey_id"`
	StaffID     string     `json:"staff_id" yaml:"staff_id"`
	Confirmed   bool       `json:"confirmed" yaml:"confirmed"`
	AssignedAt  time.Time  `json:"assigned_at" yaml:"assigned_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" yaml:"confirmed_at"`
}

// LedgerStats aggregates confirmed wins of one staff member.
type LedgerStats struct {
	StaffID string
	Wins    int
	LastWin time.Time
}

// ExceptionKind classifies operator-visible exceptions.
type ExceptionKind string

const (
	ExceptionNoCandidate   ExceptionKind = "no_eligible_candidate"
	ExceptionBelowMinSeats ExceptionKind = "below_min_seats"
	// ExceptionCaptainUnassigned is raised at T-24 for a vehicle in play
	// without a live lead.
	ExceptionCaptainUnassigned ExceptionKind = "captain_unassigned"
)

// Exception is an actionable alert row for operators.
type Exception struct {
	ID        string        `json:"id"`
	JourneyID string        `json:"journey_id"`
	VehicleID string        `json:"vehicle_id"`
	Kind      ExceptionKind `json:"kind"`
	Detail    string        `json:"detail"`
	CreatedAt time.Time     `json:"created_at"`
	Resolved  bool          `json:"resolved"`
}
