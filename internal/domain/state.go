package domain

import (
	"fmt"
	"strings"
	"time"
)

// RentalTransitions lists every status a rental may move to from a given status.
var RentalTransitions = map[RentalStatus][]RentalStatus{
	RentalStatusReserved:  {RentalStatusActive, RentalStatusCancelled},
	RentalStatusActive:    {RentalStatusCompleted, RentalStatusCancelled},
	RentalStatusCompleted: {},
	RentalStatusCancelled: {},
}

// IsTerminal reports whether no further transition is possible from s.
func (s RentalStatus) IsTerminal() bool {
	next, known := RentalTransitions[s]
	return known && len(next) == 0
}

// CanTransition reports whether from -> to is a valid edge of the rental state machine.
func CanTransition(from, to RentalStatus) bool {
	for _, next := range RentalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a descriptive error when from -> to is not allowed.
func ValidateTransition(from, to RentalStatus) error {
	if _, known := RentalTransitions[from]; !known {
		return fmt.Errorf("unknown rental status %q", from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("rental cannot move from %s to %s", from, to)
	}
	return nil
}

// GuardResult is the outcome of a precondition check.
type GuardResult struct {
	Allowed bool
	Reason  string
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(format string, args ...interface{}) GuardResult {
	return GuardResult{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// CanCheckIn evaluates whether a rental may become ACTIVE.
// Rules:
// - the transition RESERVED -> ACTIVE must be valid (new rentals skip this)
// - a concrete vehicle must be resolved
func CanCheckIn(r *Rental) GuardResult {
	if r.ID != 0 {
		if err := ValidateTransition(r.Status, RentalStatusActive); err != nil {
			return deny("rental %d cannot be checked in: %v", r.ID, err)
		}
	}
	if r.VehicleID == 0 {
		return deny("rental %d has no vehicle assigned", r.ID)
	}
	return allow()
}

// CanCheckOut evaluates whether a rental may be completed.
func CanCheckOut(r *Rental) GuardResult {
	if r.Status != RentalStatusActive {
		return deny("rental %d is not active (status: %s)", r.ID, r.Status)
	}
	if r.VehicleID == 0 {
		return deny("rental %d has no vehicle assigned", r.ID)
	}
	return allow()
}

// CanCancel evaluates whether a rental may be cancelled.
func CanCancel(r *Rental) GuardResult {
	if r.Status.IsTerminal() {
		if r.Status == RentalStatusCancelled {
			return deny("rental %d is already cancelled", r.ID)
		}
		return deny("rental %d is already %s and cannot be cancelled", r.ID, strings.ToLower(string(r.Status)))
	}
	if err := ValidateTransition(r.Status, RentalStatusCancelled); err != nil {
		return deny("rental %d cannot be cancelled: %v", r.ID, err)
	}
	return allow()
}

// CanExtend evaluates whether the expected end of a rental may be pushed out.
// Rules:
// - rental must be ACTIVE
// - only DAILY rentals can be extended
// - the new end must be strictly after the current expected end
func CanExtend(r *Rental, newEnd time.Time) GuardResult {
	if r.Status != RentalStatusActive {
		return deny("rental %d is not active (status: %s)", r.ID, r.Status)
	}
	if r.DurationType != DurationTypeDaily {
		return deny("only daily rentals can be extended")
	}
	if !newEnd.After(r.ExpectedEndDate) {
		return deny("new end date must be after the current expected end date")
	}
	return allow()
}

// CanAssignVehicle evaluates whether a reservation may receive a concrete vehicle.
func CanAssignVehicle(r *Rental) GuardResult {
	if r.Status != RentalStatusReserved {
		return deny("rental %d is not a reservation (status: %s)", r.ID, r.Status)
	}
	if r.VehicleID != 0 {
		return deny("reservation %d already has vehicle %d", r.ID, r.VehicleID)
	}
	return allow()
}

// CanDelete evaluates whether an administrator may remove a rental record.
func CanDelete(r *Rental) GuardResult {
	if r.Status != RentalStatusReserved && r.Status != RentalStatusCancelled {
		return deny("rental %d cannot be deleted while %s", r.ID, r.Status)
	}
	return allow()
}
