package booking

import (
    "context"
    "errors"
    "log/slog"
    "strings"
    "time"

    "github.com/iliyamo/parking-reservation/internal/model"
    "github.com/iliyamo/parking-reservation/internal/queue"
    "github.com/iliyamo/parking-reservation/internal/repository"
)

// maxPlateLen matches reservations.license_plate VARCHAR(10).
const maxPlateLen = 10

// accessCodeAttempts bounds regeneration when a new access code
// collides with an existing one.
const accessCodeAttempts = 3

// RequestInput is a customer's booking request for one lot.
type RequestInput struct {
    UserID       uint64
    LotID        uint64
    LicensePlate string
    Start        time.Time
    End          time.Time
}

// Manager drives the reservation lifecycle: pending on request,
// cancelled on owner request.  Confirmation is done by the Recorder.
// The active and completed statuses are never entered here.
type Manager struct {
    store     repository.Store
    checker   *Checker
    mode      ConsistencyMode
    qrBase    string
    now       func() time.Time
    publisher Publisher
    log       *slog.Logger
}

// NewManager builds a Manager over store.
func NewManager(store repository.Store, checker *Checker, opts Options) *Manager {
    opts = opts.withDefaults()
    return &Manager{
        store:     store,
        checker:   checker,
        mode:      opts.Consistency,
        qrBase:    opts.QRBaseURL,
        now:       opts.Now,
        publisher: opts.Publisher,
        log:       opts.Logger,
    }
}

// NormalizePlate trims and upper-cases a license plate.
func NormalizePlate(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// ValidateWindow rejects windows that are empty, reversed or start in
// the past relative to now.
func ValidateWindow(start, end, now time.Time) error {
    if start.IsZero() || end.IsZero() {
        return invalid("start_time", "start_time and end_time are required")
    }
    if !end.After(start) {
        return invalid("end_time", "must be after start_time")
    }
    if start.Before(now) {
        return invalid("start_time", "cannot book in the past")
    }
    return nil
}

// Request validates the window and creates a pending reservation with
// its total, access code and QR payload already filled.  The lot must
// exist, be active and currently have a free space.
func (m *Manager) Request(ctx context.Context, in RequestInput) (model.Reservation, error) {
    plate := NormalizePlate(in.LicensePlate)
    if plate == "" {
        return model.Reservation{}, invalid("license_plate", "is required")
    }
    if len(plate) > maxPlateLen {
        return model.Reservation{}, invalid("license_plate", "must be at most 10 characters")
    }
    if err := ValidateWindow(in.Start, in.End, m.now()); err != nil {
        return model.Reservation{}, err
    }
    draft := model.Reservation{
        UserID:       in.UserID,
        ParkingLotID: in.LotID,
        LicensePlate: plate,
        StartTime:    in.Start.UTC(),
        EndTime:      in.End.UTC(),
        Status:       model.StatusPending,
    }

    var out model.Reservation
    var err error
    if m.mode == ConsistencyCompat {
        // Admission is advisory here: nothing stops a concurrent request
        // from passing the same check before either insert lands.
        var lot model.ParkingLot
        lot, err = m.admit(ctx, m.store, in.LotID)
        if err == nil {
            err = m.store.Atomic(ctx, func(st repository.Store) error {
                out, err = m.insert(ctx, st, lot, draft)
                return err
            })
        }
    } else {
        err = m.store.Atomic(ctx, func(st repository.Store) error {
            lot, err := m.admit(ctx, st, in.LotID)
            if err != nil {
                return err
            }
            out, err = m.insert(ctx, st, lot, draft)
            return err
        })
    }
    if err != nil {
        return model.Reservation{}, err
    }
    m.log.Info("reservation requested", "reservation_id", out.ID, "user_id", out.UserID, "lot_id", out.ParkingLotID)
    return out, nil
}

// admit loads the lot (locking it inside a transaction) and checks that
// it is active and has a free space right now.
func (m *Manager) admit(ctx context.Context, st repository.Store, lotID uint64) (model.ParkingLot, error) {
    lot, err := st.LockLot(ctx, lotID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return lot, &NotFoundError{Entity: "parking lot", ID: lotID}
        }
        return lot, err
    }
    if !lot.IsActive {
        return lot, &NotFoundError{Entity: "parking lot", ID: lotID}
    }
    free, err := m.checker.availableIn(ctx, st, lot)
    if err != nil {
        return lot, err
    }
    if free <= 0 {
        return lot, &StateConflictError{Reason: "no spaces available"}
    }
    return lot, nil
}

// insert fills the derived fields, stores the reservation and then
// stores the QR payload that depends on the new ID.
func (m *Manager) insert(ctx context.Context, st repository.Store, lot model.ParkingLot, draft model.Reservation) (model.Reservation, error) {
    for attempt := 1; ; attempt++ {
        r := draft
        if err := FillDerived(&r, lot.HourlyRate); err != nil {
            return r, err
        }
        err := st.CreateReservation(ctx, &r)
        if errors.Is(err, repository.ErrConflict) && attempt < accessCodeAttempts {
            continue
        }
        if err != nil {
            return r, err
        }
        if err := FillDerived(&r, lot.HourlyRate); err != nil {
            return r, err
        }
        if err := st.UpdateReservation(ctx, r); err != nil {
            return r, err
        }
        return r, nil
    }
}

// Get returns a reservation owned by userID.  Reservations of other
// users are reported as not found.
func (m *Manager) Get(ctx context.Context, userID, reservationID uint64) (model.Reservation, error) {
    return ownedReservation(ctx, m.store, userID, reservationID)
}

// ListForUser returns the user's reservations, newest first.
func (m *Manager) ListForUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    return m.store.ListReservationsByUser(ctx, userID)
}

// Cancel moves a pending or confirmed reservation owned by userID to
// cancelled.  Any other status is a StateConflictError and leaves the
// reservation untouched.
func (m *Manager) Cancel(ctx context.Context, userID, reservationID uint64) (model.Reservation, error) {
    var out model.Reservation
    err := m.store.Atomic(ctx, func(st repository.Store) error {
        r, err := ownedReservation(ctx, st, userID, reservationID)
        if err != nil {
            return err
        }
        if !r.Status.Cancellable() {
            return &StateConflictError{Status: r.Status, Reason: "reservation cannot be cancelled"}
        }
        r.Status = model.StatusCancelled
        if err := st.UpdateReservation(ctx, r); err != nil {
            return err
        }
        out = r
        return nil
    })
    if err != nil {
        return model.Reservation{}, err
    }
    m.log.Info("reservation cancelled", "reservation_id", out.ID, "user_id", userID)
    publish(ctx, m.publisher, m.log, reservationEvent(queue.ReservationCancelledQueue, out, m.now()))
    return out, nil
}

// QRCode returns the reservation with the renderer URL of its access
// QR code.  A reservation stored without a QR payload gets one filled
// and persisted first.
func (m *Manager) QRCode(ctx context.Context, userID, reservationID uint64) (model.Reservation, string, error) {
    r, err := ownedReservation(ctx, m.store, userID, reservationID)
    if err != nil {
        return r, "", err
    }
    if r.QRCodeData == "" {
        lot, err := m.store.GetLot(ctx, r.ParkingLotID)
        if err != nil {
            return r, "", err
        }
        if err := FillDerived(&r, lot.HourlyRate); err != nil {
            return r, "", err
        }
        if err := m.store.UpdateReservation(ctx, r); err != nil {
            return r, "", err
        }
    }
    return r, QRCodeURL(m.qrBase, r), nil
}

func ownedReservation(ctx context.Context, st repository.Store, userID, reservationID uint64) (model.Reservation, error) {
    r, err := st.GetReservation(ctx, reservationID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return r, &NotFoundError{Entity: "reservation", ID: reservationID}
        }
        return r, err
    }
    if r.UserID != userID {
        return model.Reservation{}, &NotFoundError{Entity: "reservation", ID: reservationID}
    }
    return r, nil
}
