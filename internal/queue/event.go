// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names, also used as routing keys on the default exchange.
const (
    ReservationConfirmedQueue = "reservation.confirmed"
    ReservationCancelledQueue = "reservation.cancelled"
)

// ReservationEvent is published when a reservation is confirmed by a
// payment or cancelled by its owner.  It carries enough information for
// downstream consumers to log or notify without querying the primary
// database.  Type is the name of the queue the event is routed to.
type ReservationEvent struct {
    Type          string `json:"type"`
    ReservationID uint64 `json:"reservation_id"`
    UserID        uint64 `json:"user_id"`
    ParkingLotID  uint64 `json:"parking_lot_id"`
    LicensePlate  string `json:"license_plate"`
    StartTime     string `json:"start_time"`
    EndTime       string `json:"end_time"`
    Status        string `json:"status"`
    TotalAmount   string `json:"total_amount"`
    PaymentMethod string `json:"payment_method,omitempty"`
    TransactionID string `json:"transaction_id,omitempty"`
    OccurredAt    string `json:"occurred_at"`
}
