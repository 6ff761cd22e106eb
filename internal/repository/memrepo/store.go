// Package memrepo provides an in-memory implementation of
// repository.Store.  It mirrors the MySQL constraints the workflow relies
// on (unique access codes, one payment per reservation, fill-once
// columns) and is used by the tests of the booking and handler packages.
package memrepo

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/parking-reservation/internal/model"
    "github.com/iliyamo/parking-reservation/internal/repository"
)

type state struct {
    lots         map[uint64]model.ParkingLot
    reservations map[uint64]model.Reservation
    payments     map[uint64]model.Payment // keyed by reservation id
    nextLot      uint64
    nextRes      uint64
    nextPay      uint64
}

func (s *state) clone() *state {
    c := &state{
        lots:         make(map[uint64]model.ParkingLot, len(s.lots)),
        reservations: make(map[uint64]model.Reservation, len(s.reservations)),
        payments:     make(map[uint64]model.Payment, len(s.payments)),
        nextLot:      s.nextLot,
        nextRes:      s.nextRes,
        nextPay:      s.nextPay,
    }
    for k, v := range s.lots {
        c.lots[k] = v
    }
    for k, v := range s.reservations {
        c.reservations[k] = v
    }
    for k, v := range s.payments {
        c.payments[k] = v
    }
    return c
}

// Store is a goroutine-safe in-memory repository.Store.  Atomic holds a
// store-wide lock for the duration of fn, which gives the same
// serialization a lot row lock gives in MySQL.
type Store struct {
    mu   *sync.Mutex
    st   **state
    inTx bool
    now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
    st := &state{
        lots:         map[uint64]model.ParkingLot{},
        reservations: map[uint64]model.Reservation{},
        payments:     map[uint64]model.Payment{},
    }
    return &Store{mu: &sync.Mutex{}, st: &st, now: func() time.Time { return time.Now().UTC() }}
}

// SetClock overrides the clock used for created_at/updated_at.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) lock() func() {
    if s.inTx {
        return func() {}
    }
    s.mu.Lock()
    return s.mu.Unlock
}

func (s *Store) data() *state { return *s.st }

func (s *Store) Atomic(ctx context.Context, fn func(repository.Store) error) error {
    if s.inTx {
        return fn(s)
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    snapshot := s.data().clone()
    if err := fn(&Store{mu: s.mu, st: s.st, inTx: true, now: s.now}); err != nil {
        *s.st = snapshot
        return err
    }
    return nil
}

// ---- Lots ----

func (s *Store) CreateLot(ctx context.Context, lot *model.ParkingLot) error {
    defer s.lock()()
    d := s.data()
    d.nextLot++
    lot.ID = d.nextLot
    lot.CreatedAt = s.now()
    lot.UpdatedAt = lot.CreatedAt
    d.lots[lot.ID] = *lot
    return nil
}

func (s *Store) GetLot(ctx context.Context, id uint64) (model.ParkingLot, error) {
    defer s.lock()()
    l, ok := s.data().lots[id]
    if !ok {
        return model.ParkingLot{}, repository.ErrNotFound
    }
    return l, nil
}

func (s *Store) LockLot(ctx context.Context, id uint64) (model.ParkingLot, error) {
    return s.GetLot(ctx, id)
}

func (s *Store) ListLots(ctx context.Context, activeOnly bool) ([]model.ParkingLot, error) {
    defer s.lock()()
    out := []model.ParkingLot{}
    for _, l := range s.data().lots {
        if activeOnly && !l.IsActive {
            continue
        }
        out = append(out, l)
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Name != out[j].Name {
            return out[i].Name < out[j].Name
        }
        return out[i].ID < out[j].ID
    })
    return out, nil
}

func (s *Store) UpdateLot(ctx context.Context, lot model.ParkingLot) error {
    defer s.lock()()
    d := s.data()
    cur, ok := d.lots[lot.ID]
    if !ok {
        return repository.ErrNotFound
    }
    cur.Name = lot.Name
    cur.Address = lot.Address
    cur.HourlyRate = lot.HourlyRate
    cur.IsActive = lot.IsActive
    cur.UpdatedAt = s.now()
    d.lots[lot.ID] = cur
    return nil
}

// ---- Availability ----

func (s *Store) CountOccupyingAt(ctx context.Context, lotID uint64, at time.Time) (int, error) {
    defer s.lock()()
    n := 0
    for _, r := range s.data().reservations {
        if r.ParkingLotID == lotID && r.Status.Occupying() && r.Covers(at) {
            n++
        }
    }
    return n, nil
}

func (s *Store) CountOccupyingBetween(ctx context.Context, lotID uint64, start, end time.Time, excludeID uint64) (int, error) {
    defer s.lock()()
    n := 0
    for _, r := range s.data().reservations {
        if r.ID != excludeID && r.ParkingLotID == lotID && r.Status.Occupying() && r.Overlaps(start, end) {
            n++
        }
    }
    return n, nil
}

// ---- Reservations ----

func (s *Store) CreateReservation(ctx context.Context, r *model.Reservation) error {
    defer s.lock()()
    d := s.data()
    if r.AccessCode != "" {
        for _, other := range d.reservations {
            if other.AccessCode == r.AccessCode {
                return repository.ErrConflict
            }
        }
    }
    d.nextRes++
    r.ID = d.nextRes
    r.CreatedAt = s.now()
    r.UpdatedAt = r.CreatedAt
    d.reservations[r.ID] = *r
    return nil
}

func (s *Store) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
    defer s.lock()()
    r, ok := s.data().reservations[id]
    if !ok {
        return model.Reservation{}, repository.ErrNotFound
    }
    return r, nil
}

func (s *Store) ListReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    defer s.lock()()
    out := []model.Reservation{}
    for _, r := range s.data().reservations {
        if r.UserID == userID {
            out = append(out, r)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].CreatedAt.After(out[j].CreatedAt)
        }
        return out[i].ID > out[j].ID
    })
    return out, nil
}

func (s *Store) ListReservationsByLot(ctx context.Context, lotID uint64) ([]model.Reservation, error) {
    defer s.lock()()
    out := []model.Reservation{}
    for _, r := range s.data().reservations {
        if r.ParkingLotID == lotID {
            out = append(out, r)
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].StartTime.Equal(out[j].StartTime) {
            return out[i].StartTime.Before(out[j].StartTime)
        }
        return out[i].ID < out[j].ID
    })
    return out, nil
}

func (s *Store) UpdateReservation(ctx context.Context, r model.Reservation) error {
    defer s.lock()()
    d := s.data()
    cur, ok := d.reservations[r.ID]
    if !ok {
        return repository.ErrNotFound
    }
    cur.Status = r.Status
    cur.PaymentMethod = r.PaymentMethod
    if cur.TotalAmount == nil {
        cur.TotalAmount = r.TotalAmount
    }
    if cur.QRCodeData == "" {
        cur.QRCodeData = r.QRCodeData
    }
    cur.UpdatedAt = s.now()
    d.reservations[r.ID] = cur
    return nil
}

// ---- Payments ----

func (s *Store) CreatePayment(ctx context.Context, p *model.Payment) error {
    defer s.lock()()
    d := s.data()
    if _, ok := d.payments[p.ReservationID]; ok {
        return repository.ErrConflict
    }
    for _, other := range d.payments {
        if other.TransactionID == p.TransactionID {
            return repository.ErrConflict
        }
    }
    d.nextPay++
    p.ID = d.nextPay
    p.CreatedAt = s.now()
    d.payments[p.ReservationID] = *p
    return nil
}

func (s *Store) GetPaymentByReservation(ctx context.Context, reservationID uint64) (model.Payment, error) {
    defer s.lock()()
    p, ok := s.data().payments[reservationID]
    if !ok {
        return model.Payment{}, repository.ErrNotFound
    }
    return p, nil
}

// PaymentCount returns the number of stored payments.
func (s *Store) PaymentCount() int {
    defer s.lock()()
    return len(s.data().payments)
}
