package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// PaymentMethod enumerates the accepted ways to pay for a reservation.
type PaymentMethod string

const (
    MethodCreditCard    PaymentMethod = "credit_card"
    MethodDebitCard     PaymentMethod = "debit_card"
    MethodDigitalWallet PaymentMethod = "digital_wallet"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
    switch m {
    case MethodCreditCard, MethodDebitCard, MethodDigitalWallet:
        return true
    }
    return false
}

// PaymentStatus is the outcome recorded for a payment.
type PaymentStatus string

const (
    PaymentPending   PaymentStatus = "pending"
    PaymentCompleted PaymentStatus = "completed"
    PaymentFailed    PaymentStatus = "failed"
)

// Payment is the single payment attached to a reservation.  It is
// created once and never updated.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – owning reservation (unique).
//  Amount        – copy of the reservation total at payment time.
//  Method        – how the customer paid.
//  TransactionID – unique reference derived from the payment timestamp.
//  Status        – outcome of the payment.
//  CreatedAt     – creation timestamp.
type Payment struct {
    ID            uint64          `json:"id"`             // payments.id
    ReservationID uint64          `json:"reservation_id"` // payments.reservation_id
    Amount        decimal.Decimal `json:"amount"`         // payments.amount
    Method        PaymentMethod   `json:"payment_method"` // payments.payment_method
    TransactionID string          `json:"transaction_id"` // payments.transaction_id
    Status        PaymentStatus   `json:"status"`         // payments.status
    CreatedAt     time.Time       `json:"created_at"`     // payments.created_at
}

// PaymentDetails is the closed set of method-specific payment inputs.
// Each variant carries only the fields its method requires.
type PaymentDetails interface {
    Method() PaymentMethod
    paymentDetails()
}

// CardPayment holds the fields required for credit and debit cards.
// Number is stored without spaces.
type CardPayment struct {
    Kind   PaymentMethod // MethodCreditCard or MethodDebitCard
    Number string
    Holder string
    Expiry string // MM/YY
    CVV    string
}

func (c CardPayment) Method() PaymentMethod { return c.Kind }
func (CardPayment) paymentDetails()          {}

// Last4 returns the trailing four digits of the card number.
func (c CardPayment) Last4() string {
    if len(c.Number) <= 4 {
        return c.Number
    }
    return c.Number[len(c.Number)-4:]
}

// WalletPayment holds the token issued by a digital wallet.
type WalletPayment struct {
    Token string
}

func (WalletPayment) Method() PaymentMethod { return MethodDigitalWallet }
func (WalletPayment) paymentDetails()        {}
