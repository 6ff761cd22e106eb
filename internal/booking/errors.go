// Package booking implements the parking reservation workflow: charge
// calculation, availability, access codes, the reservation lifecycle and
// payment recording.  Every failure is returned to the caller as one of
// the typed errors below (or a storage error); nothing in this package
// panics.
package booking

import (
    "fmt"

    "github.com/iliyamo/parking-reservation/internal/model"
)

// ValidationError reports malformed or inconsistent input such as an
// end time before the start time.
type ValidationError struct {
    Field  string
    Reason string
}

func (e *ValidationError) Error() string {
    if e.Field == "" {
        return e.Reason
    }
    return e.Field + ": " + e.Reason
}

func invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

// NotFoundError reports a lot or reservation that does not exist or is
// not visible to the requesting user.
type NotFoundError struct {
    Entity string
    ID     uint64
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %d not found", e.Entity, e.ID) }

// StateConflictError reports an operation the reservation's current
// status (or the lot's occupancy) forbids.  The operation had no effect.
type StateConflictError struct {
    Status model.ReservationStatus
    Reason string
}

func (e *StateConflictError) Error() string {
    if e.Status == "" {
        return e.Reason
    }
    return fmt.Sprintf("%s (status %s)", e.Reason, e.Status)
}
