package booking

import (
    "context"
    "errors"
    "strings"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/parking-reservation/internal/model"
    "github.com/iliyamo/parking-reservation/internal/repository"
)

// maxRate is the largest value DECIMAL(6,2) can hold.
var maxRate = decimal.RequireFromString("9999.99")

// LotView is a lot together with its free spaces at the time of the call.
type LotView struct {
    model.ParkingLot
    AvailableSpaces int `json:"available_spaces"`
}

// NewLot is an operator's request to open a lot.
type NewLot struct {
    Name        string
    Address     string
    TotalSpaces int
    HourlyRate  decimal.Decimal
}

// LotPatch lists the mutable attributes of a lot.  Nil fields are left
// unchanged.  Capacity is fixed at creation and cannot be patched.
type LotPatch struct {
    Name       *string
    Address    *string
    HourlyRate *decimal.Decimal
    IsActive   *bool
}

// Lots manages the lot catalogue.
type Lots struct {
    store   repository.Store
    checker *Checker
}

// NewLots builds a Lots service over store.
func NewLots(store repository.Store, checker *Checker) *Lots {
    return &Lots{store: store, checker: checker}
}

func validateRate(rate decimal.Decimal) error {
    if rate.IsNegative() {
        return invalid("hourly_rate", "must not be negative")
    }
    if rate.GreaterThan(maxRate) || !rate.Equal(rate.Round(amountScale)) {
        return invalid("hourly_rate", "must have at most 4 integer digits and 2 decimals")
    }
    return nil
}

// Create opens a new active lot.
func (l *Lots) Create(ctx context.Context, in NewLot) (model.ParkingLot, error) {
    lot := model.ParkingLot{
        Name:        strings.TrimSpace(in.Name),
        Address:     strings.TrimSpace(in.Address),
        TotalSpaces: in.TotalSpaces,
        HourlyRate:  in.HourlyRate,
        IsActive:    true,
    }
    if lot.Name == "" {
        return model.ParkingLot{}, invalid("name", "is required")
    }
    if lot.TotalSpaces < 0 {
        return model.ParkingLot{}, invalid("total_spaces", "must not be negative")
    }
    if err := validateRate(lot.HourlyRate); err != nil {
        return model.ParkingLot{}, err
    }
    if err := l.store.CreateLot(ctx, &lot); err != nil {
        return model.ParkingLot{}, err
    }
    return lot, nil
}

// Update applies a patch.  Reservations already created keep the total
// computed at the old rate.
func (l *Lots) Update(ctx context.Context, id uint64, p LotPatch) (model.ParkingLot, error) {
    lot, err := l.lot(ctx, id, false)
    if err != nil {
        return lot, err
    }
    if p.Name != nil {
        name := strings.TrimSpace(*p.Name)
        if name == "" {
            return model.ParkingLot{}, invalid("name", "must not be empty")
        }
        lot.Name = name
    }
    if p.Address != nil {
        lot.Address = strings.TrimSpace(*p.Address)
    }
    if p.HourlyRate != nil {
        if err := validateRate(*p.HourlyRate); err != nil {
            return model.ParkingLot{}, err
        }
        lot.HourlyRate = *p.HourlyRate
    }
    if p.IsActive != nil {
        lot.IsActive = *p.IsActive
    }
    if err := l.store.UpdateLot(ctx, lot); err != nil {
        return model.ParkingLot{}, err
    }
    return l.lot(ctx, id, false)
}

// List returns lots with their current availability.
func (l *Lots) List(ctx context.Context, activeOnly bool) ([]LotView, error) {
    lots, err := l.store.ListLots(ctx, activeOnly)
    if err != nil {
        return nil, err
    }
    out := make([]LotView, 0, len(lots))
    for _, lot := range lots {
        free, err := l.checker.Available(ctx, lot)
        if err != nil {
            return nil, err
        }
        out = append(out, LotView{ParkingLot: lot, AvailableSpaces: free})
    }
    return out, nil
}

// Get returns one lot with its current availability.  With activeOnly
// set, inactive lots are reported as not found.
func (l *Lots) Get(ctx context.Context, id uint64, activeOnly bool) (LotView, error) {
    lot, err := l.lot(ctx, id, activeOnly)
    if err != nil {
        return LotView{}, err
    }
    free, err := l.checker.Available(ctx, lot)
    if err != nil {
        return LotView{}, err
    }
    return LotView{ParkingLot: lot, AvailableSpaces: free}, nil
}

// Reservations lists every reservation of a lot ordered by start time.
func (l *Lots) Reservations(ctx context.Context, id uint64) ([]model.Reservation, error) {
    if _, err := l.lot(ctx, id, false); err != nil {
        return nil, err
    }
    return l.store.ListReservationsByLot(ctx, id)
}

func (l *Lots) lot(ctx context.Context, id uint64, activeOnly bool) (model.ParkingLot, error) {
    lot, err := l.store.GetLot(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return lot, &NotFoundError{Entity: "parking lot", ID: id}
        }
        return lot, err
    }
    if activeOnly && !lot.IsActive {
        return model.ParkingLot{}, &NotFoundError{Entity: "parking lot", ID: id}
    }
    return lot, nil
}
