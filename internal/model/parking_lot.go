package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// ParkingLot represents a physical parking facility.  TotalSpaces is
// fixed when the lot is created and the number of free spaces is always
// derived from reservations, never stored.  This struct corresponds to a
// row in the `parking_lots` table.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name of the lot.
//  Address     – street address.
//  TotalSpaces – capacity of the lot (>= 0).
//  HourlyRate  – price per hour, DECIMAL(6,2).
//  IsActive    – inactive lots are hidden from customers.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type ParkingLot struct {
    ID          uint64          `json:"id"`           // parking_lots.id
    Name        string          `json:"name"`         // parking_lots.name
    Address     string          `json:"address"`      // parking_lots.address
    TotalSpaces int             `json:"total_spaces"` // parking_lots.total_spaces
    HourlyRate  decimal.Decimal `json:"hourly_rate"`  // parking_lots.hourly_rate
    IsActive    bool            `json:"is_active"`    // parking_lots.is_active
    CreatedAt   time.Time       `json:"created_at"`   // parking_lots.created_at
    UpdatedAt   time.Time       `json:"updated_at"`   // parking_lots.updated_at
}
