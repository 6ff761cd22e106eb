package booking

import (
    "context"
    "errors"
    "log/slog"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/parking-reservation/internal/model"
    "github.com/iliyamo/parking-reservation/internal/queue"
    "github.com/iliyamo/parking-reservation/internal/repository"
)

// Receipt is the result of a successful payment.
type Receipt struct {
    Payment     model.Payment
    Reservation model.Reservation
}

// Recorder records the one payment of a pending reservation and
// confirms it.
type Recorder struct {
    store     repository.Store
    mode      ConsistencyMode
    now       func() time.Time
    txnID     func(time.Time) string
    publisher Publisher
    log       *slog.Logger
}

// NewRecorder builds a Recorder over store.
func NewRecorder(store repository.Store, opts Options) *Recorder {
    opts = opts.withDefaults()
    return &Recorder{
        store:     store,
        mode:      opts.Consistency,
        now:       opts.Now,
        txnID:     TransactionID,
        publisher: opts.Publisher,
        log:       opts.Logger,
    }
}

// TransactionID derives a payment reference from the payment time.  The
// random suffix keeps two payments in the same second distinct.
func TransactionID(at time.Time) string {
    suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
    return "TXN" + at.UTC().Format("20060102150405") + "-" + suffix
}

// methodOf returns the payment method of a details variant.  Unknown
// or nil variants are rejected.
func methodOf(d model.PaymentDetails) (model.PaymentMethod, error) {
    switch v := d.(type) {
    case model.CardPayment:
        if v.Kind != model.MethodCreditCard && v.Kind != model.MethodDebitCard {
            return "", invalid("payment_method", "card payments must be credit_card or debit_card")
        }
        return v.Kind, nil
    case model.WalletPayment:
        return model.MethodDigitalWallet, nil
    case nil:
        return "", invalid("payment_method", "is required")
    }
    return "", invalid("payment_method", "unsupported payment method")
}

// RecordPayment creates a completed payment for a pending reservation
// owned by userID and moves the reservation to confirmed, both in one
// transaction.  A reservation that is no longer pending is a
// StateConflictError and no payment is created.
func (p *Recorder) RecordPayment(ctx context.Context, userID, reservationID uint64, details model.PaymentDetails) (Receipt, error) {
    method, err := methodOf(details)
    if err != nil {
        return Receipt{}, err
    }
    var out Receipt
    err = p.store.Atomic(ctx, func(st repository.Store) error {
        r, err := ownedReservation(ctx, st, userID, reservationID)
        if err != nil {
            return err
        }
        lot, err := st.LockLot(ctx, r.ParkingLotID)
        if err != nil {
            return err
        }
        if p.mode == ConsistencySerialized {
            // Re-read under the lot lock: a payment of the same
            // reservation, or a confirmation of another reservation of
            // this lot, committed by the previous lock holder is visible
            // from here on.
            if r, err = ownedReservation(ctx, st, userID, reservationID); err != nil {
                return err
            }
        }
        if r.Status != model.StatusPending {
            return &StateConflictError{Status: r.Status, Reason: "reservation already processed"}
        }
        if p.mode == ConsistencySerialized {
            taken, err := st.CountOccupyingBetween(ctx, lot.ID, r.StartTime, r.EndTime, r.ID)
            if err != nil {
                return err
            }
            if taken >= lot.TotalSpaces {
                return &StateConflictError{Status: r.Status, Reason: "lot is full for the requested window"}
            }
        }
        if err := FillDerived(&r, lot.HourlyRate); err != nil {
            return err
        }
        now := p.now()
        pay := model.Payment{
            ReservationID: r.ID,
            Amount:        *r.TotalAmount,
            Method:        method,
            TransactionID: p.txnID(now),
            Status:        model.PaymentCompleted,
        }
        if err := st.CreatePayment(ctx, &pay); err != nil {
            if errors.Is(err, repository.ErrConflict) {
                return &StateConflictError{Status: r.Status, Reason: "reservation already processed"}
            }
            return err
        }
        r.Status = model.StatusConfirmed
        r.PaymentMethod = &method
        if err := st.UpdateReservation(ctx, r); err != nil {
            return err
        }
        out = Receipt{Payment: pay, Reservation: r}
        return nil
    })
    if err != nil {
        return Receipt{}, err
    }
    p.log.Info("payment recorded", "reservation_id", out.Reservation.ID, "transaction_id", out.Payment.TransactionID,
        "amount", out.Payment.Amount.StringFixed(amountScale), "method", method)
    ev := reservationEvent(queue.ReservationConfirmedQueue, out.Reservation, p.now())
    ev.TransactionID = out.Payment.TransactionID
    publish(ctx, p.publisher, p.log, ev)
    return out, nil
}
