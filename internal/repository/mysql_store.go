package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/parking-reservation/internal/model"
)

// querier is the subset of *sql.DB and *sql.Tx used by MySQLStore so
// the same query code runs inside and outside a transaction.
type querier interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// MySQLStore implements Store on top of MySQL.  All timestamps are
// written and read in UTC (the DSN sets loc=UTC).
type MySQLStore struct {
    db *sql.DB // nil when bound to a transaction
    q  querier
    tx bool
}

// NewMySQLStore returns a MySQLStore bound to the given connection pool.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db, q: db} }

// DB exposes the underlying pool for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// txOptions runs every transaction at READ COMMITTED.  Under InnoDB's
// default REPEATABLE READ the first plain SELECT fixes the snapshot, so
// counts taken after LockLot would miss confirmations committed by the
// previous holder of the lot lock.
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// Atomic begins a transaction, runs fn and commits when fn succeeds.
func (s *MySQLStore) Atomic(ctx context.Context, fn func(Store) error) error {
    if s.tx {
        return fn(s)
    }
    tx, err := s.db.BeginTx(ctx, txOptions)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(&MySQLStore{q: tx, tx: true}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// isDuplicate reports whether err is a MySQL duplicate-key violation.
func isDuplicate(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == 1062
}

func notFound(err error) error {
    if errors.Is(err, sql.ErrNoRows) {
        return ErrNotFound
    }
    return err
}

// ---- Lots ----

const lotColumns = "id, name, address, total_spaces, hourly_rate, is_active, created_at, updated_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanLot(row rowScanner) (model.ParkingLot, error) {
    var l model.ParkingLot
    err := row.Scan(&l.ID, &l.Name, &l.Address, &l.TotalSpaces, &l.HourlyRate, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
    return l, err
}

func (s *MySQLStore) CreateLot(ctx context.Context, lot *model.ParkingLot) error {
    const q = `INSERT INTO parking_lots (name, address, total_spaces, hourly_rate, is_active) VALUES (?, ?, ?, ?, ?)`
    res, err := s.q.ExecContext(ctx, q, lot.Name, lot.Address, lot.TotalSpaces, lot.HourlyRate, lot.IsActive)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    // Query back the full row to populate timestamps and defaults
    stored, err := s.GetLot(ctx, uint64(id))
    if err != nil {
        return err
    }
    *lot = stored
    return nil
}

func (s *MySQLStore) GetLot(ctx context.Context, id uint64) (model.ParkingLot, error) {
    l, err := scanLot(s.q.QueryRowContext(ctx, "SELECT "+lotColumns+" FROM parking_lots WHERE id = ?", id))
    return l, notFound(err)
}

func (s *MySQLStore) LockLot(ctx context.Context, id uint64) (model.ParkingLot, error) {
    q := "SELECT " + lotColumns + " FROM parking_lots WHERE id = ?"
    if s.tx {
        q += " FOR UPDATE"
    }
    l, err := scanLot(s.q.QueryRowContext(ctx, q, id))
    return l, notFound(err)
}

func (s *MySQLStore) ListLots(ctx context.Context, activeOnly bool) ([]model.ParkingLot, error) {
    q := "SELECT " + lotColumns + " FROM parking_lots"
    if activeOnly {
        q += " WHERE is_active = 1"
    }
    q += " ORDER BY name, id"
    rows, err := s.q.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    lots := []model.ParkingLot{}
    for rows.Next() {
        l, err := scanLot(rows)
        if err != nil {
            return nil, err
        }
        lots = append(lots, l)
    }
    return lots, rows.Err()
}

func (s *MySQLStore) UpdateLot(ctx context.Context, lot model.ParkingLot) error {
    const q = `UPDATE parking_lots SET name = ?, address = ?, hourly_rate = ?, is_active = ? WHERE id = ?`
    res, err := s.q.ExecContext(ctx, q, lot.Name, lot.Address, lot.HourlyRate, lot.IsActive, lot.ID)
    if err != nil {
        return err
    }
    // RowsAffected is 0 when nothing changed, so confirm existence separately.
    if n, _ := res.RowsAffected(); n == 0 {
        if _, err := s.GetLot(ctx, lot.ID); err != nil {
            return err
        }
    }
    return nil
}

// ---- Availability ----

func (s *MySQLStore) CountOccupyingAt(ctx context.Context, lotID uint64, at time.Time) (int, error) {
    const q = `SELECT COUNT(*) FROM reservations
               WHERE parking_lot_id = ? AND start_time <= ? AND end_time >= ?
                 AND status IN ('confirmed', 'active')`
    var n int
    err := s.q.QueryRowContext(ctx, q, lotID, at.UTC(), at.UTC()).Scan(&n)
    return n, err
}

func (s *MySQLStore) CountOccupyingBetween(ctx context.Context, lotID uint64, start, end time.Time, excludeID uint64) (int, error) {
    const q = `SELECT COUNT(*) FROM reservations
               WHERE parking_lot_id = ? AND start_time < ? AND end_time > ? AND id <> ?
                 AND status IN ('confirmed', 'active')`
    var n int
    err := s.q.QueryRowContext(ctx, q, lotID, end.UTC(), start.UTC(), excludeID).Scan(&n)
    return n, err
}

// ---- Reservations ----

const reservationColumns = `id, user_id, parking_lot_id, license_plate, start_time, end_time, status,
    total_amount, payment_method, qr_code_data, access_code, created_at, updated_at`

func scanReservation(row rowScanner) (model.Reservation, error) {
    var (
        r      model.Reservation
        total  decimal.NullDecimal
        method sql.NullString
    )
    err := row.Scan(&r.ID, &r.UserID, &r.ParkingLotID, &r.LicensePlate, &r.StartTime, &r.EndTime, &r.Status,
        &total, &method, &r.QRCodeData, &r.AccessCode, &r.CreatedAt, &r.UpdatedAt)
    if err != nil {
        return r, err
    }
    if total.Valid {
        t := total.Decimal
        r.TotalAmount = &t
    }
    if method.Valid && method.String != "" {
        m := model.PaymentMethod(method.String)
        r.PaymentMethod = &m
    }
    return r, nil
}

func nullableTotal(t *decimal.Decimal) decimal.NullDecimal {
    if t == nil {
        return decimal.NullDecimal{}
    }
    return decimal.NullDecimal{Decimal: *t, Valid: true}
}

func nullableMethod(m *model.PaymentMethod) sql.NullString {
    if m == nil {
        return sql.NullString{}
    }
    return sql.NullString{String: string(*m), Valid: true}
}

func (s *MySQLStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
    const q = `INSERT INTO reservations
        (user_id, parking_lot_id, license_plate, start_time, end_time, status, total_amount, payment_method, qr_code_data, access_code)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := s.q.ExecContext(ctx, q, r.UserID, r.ParkingLotID, r.LicensePlate, r.StartTime.UTC(), r.EndTime.UTC(),
        r.Status, nullableTotal(r.TotalAmount), nullableMethod(r.PaymentMethod), r.QRCodeData, r.AccessCode)
    if err != nil {
        if isDuplicate(err) {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    stored, err := s.GetReservation(ctx, uint64(id))
    if err != nil {
        return err
    }
    *r = stored
    return nil
}

func (s *MySQLStore) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
    r, err := scanReservation(s.q.QueryRowContext(ctx, "SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id))
    return r, notFound(err)
}

func (s *MySQLStore) listReservations(ctx context.Context, q string, arg any) ([]model.Reservation, error) {
    rows, err := s.q.QueryContext(ctx, q, arg)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Reservation{}
    for rows.Next() {
        r, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, r)
    }
    return out, rows.Err()
}

func (s *MySQLStore) ListReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    return s.listReservations(ctx,
        "SELECT "+reservationColumns+" FROM reservations WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
}

func (s *MySQLStore) ListReservationsByLot(ctx context.Context, lotID uint64) ([]model.Reservation, error) {
    return s.listReservations(ctx,
        "SELECT "+reservationColumns+" FROM reservations WHERE parking_lot_id = ? ORDER BY start_time, id", lotID)
}

func (s *MySQLStore) UpdateReservation(ctx context.Context, r model.Reservation) error {
    const q = `UPDATE reservations SET
        status = ?,
        payment_method = ?,
        total_amount = COALESCE(total_amount, ?),
        qr_code_data = IF(qr_code_data = '', ?, qr_code_data)
        WHERE id = ?`
    res, err := s.q.ExecContext(ctx, q, r.Status, nullableMethod(r.PaymentMethod), nullableTotal(r.TotalAmount), r.QRCodeData, r.ID)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        if _, err := s.GetReservation(ctx, r.ID); err != nil {
            return err
        }
    }
    return nil
}

// ---- Payments ----

func (s *MySQLStore) CreatePayment(ctx context.Context, p *model.Payment) error {
    const q = `INSERT INTO payments (reservation_id, amount, payment_method, transaction_id, status) VALUES (?, ?, ?, ?, ?)`
    res, err := s.q.ExecContext(ctx, q, p.ReservationID, p.Amount, p.Method, p.TransactionID, p.Status)
    if err != nil {
        if isDuplicate(err) {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    p.ID = uint64(id)
    return s.q.QueryRowContext(ctx, "SELECT created_at FROM payments WHERE id = ?", p.ID).Scan(&p.CreatedAt)
}

func (s *MySQLStore) GetPaymentByReservation(ctx context.Context, reservationID uint64) (model.Payment, error) {
    const q = `SELECT id, reservation_id, amount, payment_method, transaction_id, status, created_at
               FROM payments WHERE reservation_id = ?`
    var p model.Payment
    err := s.q.QueryRowContext(ctx, q, reservationID).Scan(
        &p.ID, &p.ReservationID, &p.Amount, &p.Method, &p.TransactionID, &p.Status, &p.CreatedAt)
    return p, notFound(err)
}
