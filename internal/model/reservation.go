package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
    StatusPending   ReservationStatus = "pending"
    StatusConfirmed ReservationStatus = "confirmed"
    // StatusActive and StatusCompleted exist in the schema but no
    // operation moves a reservation into them.
    StatusActive    ReservationStatus = "active"
    StatusCompleted ReservationStatus = "completed"
    StatusCancelled ReservationStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s ReservationStatus) Valid() bool {
    switch s {
    case StatusPending, StatusConfirmed, StatusActive, StatusCompleted, StatusCancelled:
        return true
    }
    return false
}

// Occupying reports whether a reservation in this status counts
// against a lot's capacity.
func (s ReservationStatus) Occupying() bool {
    return s == StatusConfirmed || s == StatusActive
}

// Cancellable reports whether a customer may cancel a reservation in
// this status.
func (s ReservationStatus) Cancellable() bool {
    return s == StatusPending || s == StatusConfirmed
}

// Reservation records a user's claim on lot capacity for a time window.
// TotalAmount, AccessCode and QRCodeData are derived fields filled once
// when the reservation is created; they are never overwritten.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – user who made the reservation.
//  ParkingLotID  – lot being reserved.
//  LicensePlate  – vehicle plate, upper-cased.
//  StartTime     – beginning of the window (UTC).
//  EndTime       – end of the window (UTC, after StartTime).
//  Status        – lifecycle state.
//  TotalAmount   – charge at the rate in force at creation (nil until computed).
//  PaymentMethod – method chosen at payment (nil until paid).
//  QRCodeData    – JSON payload for the access QR code.
//  AccessCode    – unique bearer token for lot access.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Reservation struct {
    ID            uint64            `json:"id"`                       // reservations.id
    UserID        uint64            `json:"user_id"`                  // reservations.user_id
    ParkingLotID  uint64            `json:"parking_lot_id"`           // reservations.parking_lot_id
    LicensePlate  string            `json:"license_plate"`            // reservations.license_plate
    StartTime     time.Time         `json:"start_time"`               // reservations.start_time
    EndTime       time.Time         `json:"end_time"`                 // reservations.end_time
    Status        ReservationStatus `json:"status"`                   // reservations.status
    TotalAmount   *decimal.Decimal  `json:"total_amount"`             // reservations.total_amount (nullable)
    PaymentMethod *PaymentMethod    `json:"payment_method,omitempty"` // reservations.payment_method (nullable)
    QRCodeData    string            `json:"-"`                        // reservations.qr_code_data
    AccessCode    string            `json:"access_code"`              // reservations.access_code
    CreatedAt     time.Time         `json:"created_at"`               // reservations.created_at
    UpdatedAt     time.Time         `json:"updated_at"`               // reservations.updated_at
}

// Overlaps reports whether the reservation window intersects
// [start, end).
func (r Reservation) Overlaps(start, end time.Time) bool {
    return r.StartTime.Before(end) && start.Before(r.EndTime)
}

// Covers reports whether t falls inside the reservation window,
// boundaries included.
func (r Reservation) Covers(t time.Time) bool {
    return !t.Before(r.StartTime) && !t.After(r.EndTime)
}
