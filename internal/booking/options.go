package booking

import (
    "context"
    "fmt"
    "log/slog"
    "time"

    "github.com/iliyamo/parking-reservation/internal/model"
    "github.com/iliyamo/parking-reservation/internal/queue"
)

// ConsistencyMode selects how admission and confirmation interact with
// concurrent bookings of the same lot.
type ConsistencyMode string

const (
    // ConsistencySerialized runs the availability check and the insert
    // in one transaction holding the lot row lock, and re-checks
    // overlapping confirmed reservations under the same lock before a
    // payment confirms a booking.
    ConsistencySerialized ConsistencyMode = "serialized"
    // ConsistencyCompat checks availability outside the insert
    // transaction and never re-checks at payment.  Two concurrent
    // requests can both pass the check and both be confirmed.
    ConsistencyCompat ConsistencyMode = "compat"
)

// ParseConsistencyMode maps a configuration value to a mode.  The empty
// string selects ConsistencySerialized.
func ParseConsistencyMode(s string) (ConsistencyMode, error) {
    switch ConsistencyMode(s) {
    case "", ConsistencySerialized:
        return ConsistencySerialized, nil
    case ConsistencyCompat:
        return ConsistencyCompat, nil
    }
    return "", fmt.Errorf("unknown consistency mode %q", s)
}

// Publisher delivers reservation events.  Publishing is best-effort:
// failures are logged by the workflow and never undo a committed change.
type Publisher interface {
    Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.ReservationEvent) error { return nil }

// Options configures the workflow components.  Zero values select the
// defaults documented on each field.
type Options struct {
    Now                func() time.Time   // default time.Now().UTC()
    Logger             *slog.Logger       // default slog.Default()
    AvailabilityPolicy AvailabilityPolicy // default PolicyOptimistic
    Consistency        ConsistencyMode    // default ConsistencySerialized
    QRBaseURL          string             // default DefaultQRBaseURL
    Publisher          Publisher          // default NopPublisher
}

func (o Options) withDefaults() Options {
    if o.Now == nil {
        o.Now = func() time.Time { return time.Now().UTC() }
    }
    if o.Logger == nil {
        o.Logger = slog.Default()
    }
    if o.AvailabilityPolicy == "" {
        o.AvailabilityPolicy = PolicyOptimistic
    }
    if o.Consistency == "" {
        o.Consistency = ConsistencySerialized
    }
    if o.QRBaseURL == "" {
        o.QRBaseURL = DefaultQRBaseURL
    }
    if o.Publisher == nil {
        o.Publisher = NopPublisher{}
    }
    return o
}

func reservationEvent(kind string, r model.Reservation, at time.Time) queue.ReservationEvent {
    ev := queue.ReservationEvent{
        Type:          kind,
        ReservationID: r.ID,
        UserID:        r.UserID,
        ParkingLotID:  r.ParkingLotID,
        LicensePlate:  r.LicensePlate,
        StartTime:     r.StartTime.UTC().Format(time.RFC3339),
        EndTime:       r.EndTime.UTC().Format(time.RFC3339),
        Status:        string(r.Status),
        OccurredAt:    at.UTC().Format(time.RFC3339),
    }
    if r.TotalAmount != nil {
        ev.TotalAmount = r.TotalAmount.StringFixed(amountScale)
    }
    if r.PaymentMethod != nil {
        ev.PaymentMethod = string(*r.PaymentMethod)
    }
    return ev
}

func publish(ctx context.Context, p Publisher, log *slog.Logger, ev queue.ReservationEvent) {
    if err := p.Publish(ctx, ev); err != nil {
        log.Warn("publish reservation event failed", "type", ev.Type, "reservation_id", ev.ReservationID, "err", err)
    }
}
