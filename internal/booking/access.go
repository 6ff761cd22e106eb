package booking

import (
    "crypto/rand"
    "encoding/base64"
    "encoding/json"
    "fmt"
    "net/url"
    "strings"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/parking-reservation/internal/model"
)

// accessCodeBytes is the entropy of an access code.  Encoded with
// unpadded URL-safe base64 it yields 43 characters.
const accessCodeBytes = 32

// DefaultQRBaseURL is the external renderer that turns a payload into a
// QR image.  Only the request URL is built; the response is never read.
const DefaultQRBaseURL = "https://api.qrserver.com/v1/create-qr-code/"

// NewAccessCode returns a random URL-safe bearer token read from
// crypto/rand.
func NewAccessCode() (string, error) {
    buf := make([]byte, accessCodeBytes)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return base64.RawURLEncoding.EncodeToString(buf), nil
}

// qrPayload is the structured payload stored in qr_code_data.
type qrPayload struct {
    System        string `json:"system"`
    ReservationID uint64 `json:"reservation_id"`
    AccessCode    string `json:"access_code"`
    LicensePlate  string `json:"license_plate"`
}

// QRPayload serializes the reservation identity, access code and plate
// as the JSON document stored alongside the reservation.
func QRPayload(r model.Reservation) (string, error) {
    b, err := json.Marshal(qrPayload{
        System:        "ParkingSystem",
        ReservationID: r.ID,
        AccessCode:    r.AccessCode,
        LicensePlate:  r.LicensePlate,
    })
    if err != nil {
        return "", err
    }
    return string(b), nil
}

// ScanData returns the compact pipe-delimited form encoded into the
// scannable image: PARKING|<id>|<access code>|<plate>.
func ScanData(r model.Reservation) string {
    return strings.Join([]string{"PARKING", fmt.Sprint(r.ID), r.AccessCode, r.LicensePlate}, "|")
}

// QRCodeURL builds the renderer request URL for the reservation.  An
// empty base falls back to DefaultQRBaseURL.
func QRCodeURL(base string, r model.Reservation) string {
    if base == "" {
        base = DefaultQRBaseURL
    }
    // Spaces become %20 rather than '+'.
    data := strings.ReplaceAll(url.QueryEscape(ScanData(r)), "+", "%20")
    return base + "?size=200x200&data=" + data
}

// FillDerived fills the reservation's access code, total amount and QR
// payload when they are absent.  Present values are never replaced, so
// the stored total keeps the rate in force when it was first computed.
// The QR payload needs the reservation ID and is left empty until the
// reservation has one.
func FillDerived(r *model.Reservation, rate decimal.Decimal) error {
    if r.AccessCode == "" {
        code, err := NewAccessCode()
        if err != nil {
            return err
        }
        r.AccessCode = code
    }
    if r.TotalAmount == nil {
        total, err := CalculateTotal(r.StartTime, r.EndTime, rate)
        if err != nil {
            return err
        }
        r.TotalAmount = &total
    }
    if r.QRCodeData == "" && r.ID != 0 {
        payload, err := QRPayload(*r)
        if err != nil {
            return err
        }
        r.QRCodeData = payload
    }
    return nil
}
