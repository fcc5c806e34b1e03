package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidParty        = errors.New("invalid party")
	ErrCapacityExhausted   = errors.New("capacity exhausted")
	ErrCapacityConflict    = errors.New("insufficient capacity to reassign")
	ErrNoEligibleCandidate = errors.New("no eligible candidate")
	ErrVehicleNotInPlay    = errors.New("vehicle not in play for journey")
)

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

// CapacityError lists the parties a packing run could not place.
type CapacityError struct {
	Unplaced []Party
	// Err is ErrCapacityExhausted unless set otherwise.
	Err error
}

func (e *CapacityError) Error() string {
	ids := make([]string, len(e.Unplaced))
	seats := 0
	for i, p := range e.Unplaced {
		ids[i] = p.OrderID
		seats += p.Seats
	}
	return fmt.Sprintf("%v: %d seats unplaced (%s)", e.Unwrap(), seats, strings.Join(ids, ", "))
}

func (e *CapacityError) Unwrap() error {
	if e.Err == nil {
		return ErrCapacityExhausted
	}
	return e.Err
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCapacity reports whether err stems from insufficient capacity.
func IsCapacity(err error) bool {
	return errors.Is(err, ErrCapacityExhausted) || errors.Is(err, ErrCapacityConflict)
}
