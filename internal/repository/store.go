package repository

import (
    "context"
    "time"

    "github.com/iliyamo/parking-reservation/internal/model"
)

// Store is the persistence contract of the reservation workflow.  The
// workflow never touches the database directly; it goes through a
// Store so that MySQL can be swapped for the in-memory implementation
// in tests.  Lookups of missing rows return ErrNotFound.
type Store interface {
    // CreateLot inserts a lot and populates its ID and timestamps.
    CreateLot(ctx context.Context, lot *model.ParkingLot) error
    GetLot(ctx context.Context, id uint64) (model.ParkingLot, error)
    // ListLots returns lots ordered by name.  When activeOnly is set
    // inactive lots are skipped.
    ListLots(ctx context.Context, activeOnly bool) ([]model.ParkingLot, error)
    // UpdateLot persists name, address, hourly rate and active flag.
    // Capacity is fixed at creation and is not written.
    UpdateLot(ctx context.Context, lot model.ParkingLot) error
    // LockLot loads a lot and, inside Atomic, holds a row lock on it
    // until the surrounding transaction ends.
    LockLot(ctx context.Context, id uint64) (model.ParkingLot, error)

    // CountOccupyingAt counts confirmed or active reservations at the
    // lot whose window contains at (boundaries included).
    CountOccupyingAt(ctx context.Context, lotID uint64, at time.Time) (int, error)
    // CountOccupyingBetween counts confirmed or active reservations at
    // the lot whose window intersects [start, end), ignoring excludeID.
    CountOccupyingBetween(ctx context.Context, lotID uint64, start, end time.Time, excludeID uint64) (int, error)

    // CreateReservation inserts a reservation and populates its ID and
    // timestamps.  A duplicated access code yields ErrConflict.
    CreateReservation(ctx context.Context, r *model.Reservation) error
    GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
    // ListReservationsByUser returns a user's reservations newest first.
    ListReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
    // ListReservationsByLot returns a lot's reservations ordered by start time.
    ListReservationsByLot(ctx context.Context, lotID uint64) ([]model.Reservation, error)
    // UpdateReservation persists status and payment method.  Total
    // amount and QR payload are only written when the stored value is
    // absent; the access code is never rewritten.
    UpdateReservation(ctx context.Context, r model.Reservation) error

    // CreatePayment inserts a payment.  A second payment for the same
    // reservation or a duplicated transaction id yields ErrConflict.
    CreatePayment(ctx context.Context, p *model.Payment) error
    GetPaymentByReservation(ctx context.Context, reservationID uint64) (model.Payment, error)

    // Atomic runs fn against a Store bound to a single transaction.  The
    // transaction commits when fn returns nil and rolls back otherwise.
    // Every read inside fn sees the changes committed before it runs,
    // so a read that follows LockLot observes whatever the previous
    // lock holder committed.  Calling Atomic on a Store that is already
    // transactional runs fn in the current transaction.
    Atomic(ctx context.Context, fn func(Store) error) error
}
