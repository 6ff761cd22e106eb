package handler

import (
    "strings"

    "github.com/go-playground/validator/v10"

    "github.com/iliyamo/parking-reservation/internal/booking"
    "github.com/iliyamo/parking-reservation/internal/model"
)

// paymentForm is the body of POST /v1/reservations/:id/payment.  Card
// fields are required for card methods and the token for wallets.
type paymentForm struct {
    PaymentMethod string `json:"payment_method" validate:"required,oneof=credit_card debit_card digital_wallet"`
    CardNumber    string `json:"card_number" validate:"max=19"`
    CardHolder    string `json:"card_holder" validate:"max=100"`
    ExpiryDate    string `json:"expiry_date" validate:"omitempty,mmyy"`
    CVV           string `json:"cvv" validate:"max=4"`
    WalletToken   string `json:"wallet_token" validate:"max=100"`
}

func init() {
    // mmyy accepts a card expiry written MM/YY with a month of 01-12.
    _ = validate.RegisterValidation("mmyy", func(fl validator.FieldLevel) bool {
        s := fl.Field().String()
        if len(s) != 5 || s[2] != '/' || !allDigits(s[:2]) || !allDigits(s[3:]) {
            return false
        }
        month := (s[0]-'0')*10 + (s[1] - '0')
        return month >= 1 && month <= 12
    })
}

func allDigits(s string) bool {
    for _, r := range s {
        if r < '0' || r > '9' {
            return false
        }
    }
    return s != ""
}

// details validates the form and converts it to the payment variant of
// the chosen method.
func (f paymentForm) details() (model.PaymentDetails, error) {
    f.PaymentMethod = strings.TrimSpace(f.PaymentMethod)
    f.ExpiryDate = strings.TrimSpace(f.ExpiryDate)
    f.CVV = strings.TrimSpace(f.CVV)
    if err := validate.Struct(f); err != nil {
        return nil, &booking.ValidationError{Reason: validationMessage(err)}
    }
    method := model.PaymentMethod(f.PaymentMethod)
    if method == model.MethodDigitalWallet {
        token := strings.TrimSpace(f.WalletToken)
        if token == "" {
            return nil, &booking.ValidationError{Field: "wallet_token", Reason: "is required for digital wallet payments"}
        }
        return model.WalletPayment{Token: token}, nil
    }

    number := strings.ReplaceAll(f.CardNumber, " ", "")
    holder := strings.TrimSpace(f.CardHolder)
    switch {
    case number == "":
        return nil, &booking.ValidationError{Field: "card_number", Reason: "is required for card payments"}
    case holder == "":
        return nil, &booking.ValidationError{Field: "card_holder", Reason: "is required for card payments"}
    case f.ExpiryDate == "":
        return nil, &booking.ValidationError{Field: "expiry_date", Reason: "is required for card payments"}
    case f.CVV == "":
        return nil, &booking.ValidationError{Field: "cvv", Reason: "is required for card payments"}
    case !allDigits(number) || (len(number) != 15 && len(number) != 16):
        return nil, &booking.ValidationError{Field: "card_number", Reason: "must have 15 or 16 digits"}
    case !allDigits(f.CVV) || len(f.CVV) < 3:
        return nil, &booking.ValidationError{Field: "cvv", Reason: "must have 3 or 4 digits"}
    }
    return model.CardPayment{
        Kind:   method,
        Number: number,
        Holder: holder,
        Expiry: f.ExpiryDate,
        CVV:    f.CVV,
    }, nil
}
