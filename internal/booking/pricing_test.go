package booking_test

import (
    "strings"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/parking-reservation/internal/booking"
    "github.com/iliyamo/parking-reservation/internal/model"
)

func TestCalculateTotal(t *testing.T) {
    base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
    cases := []struct {
        name string
        dur  time.Duration
        rate string
        want string
    }{
        {"ninety minutes", 90 * time.Minute, "4.00", "6.00"},
        {"half hour", 30 * time.Minute, "3.00", "1.50"},
        {"twenty minutes rounds", 20 * time.Minute, "2.50", "0.83"},
        {"two hours", 2 * time.Hour, "2.50", "5.00"},
        {"free lot", time.Hour, "0", "0.00"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            got, err := booking.CalculateTotal(base, base.Add(tc.dur), decimal.RequireFromString(tc.rate))
            require.NoError(t, err)
            require.Equal(t, tc.want, got.StringFixed(2))
        })
    }
}

func TestCalculateTotal_Rejects(t *testing.T) {
    base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

    _, err := booking.CalculateTotal(base, base, decimal.NewFromInt(1))
    wantValidation(t, err)

    _, err = booking.CalculateTotal(base, base.Add(-time.Minute), decimal.NewFromInt(1))
    wantValidation(t, err)

    _, err = booking.CalculateTotal(base, base.Add(time.Hour), decimal.NewFromInt(-1))
    wantValidation(t, err)

    rate := decimal.RequireFromString("9999.99")
    _, err = booking.CalculateTotal(base, base.Add(5*24*time.Hour), rate)
    wantValidation(t, err)

    total, err := booking.CalculateTotal(base, base.Add(100*time.Hour), rate)
    require.NoError(t, err)
    require.Equal(t, "999999.00", total.StringFixed(2))
}

func TestNewAccessCode(t *testing.T) {
    seen := map[string]bool{}
    for i := 0; i < 50; i++ {
        code, err := booking.NewAccessCode()
        require.NoError(t, err)
        require.Len(t, code, 43)
        require.False(t, strings.ContainsAny(code, "+/="))
        require.False(t, seen[code])
        seen[code] = true
    }
}

func TestFillDerived_Idempotent(t *testing.T) {
    start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
    r := model.Reservation{ID: 5, LicensePlate: "ABC", StartTime: start, EndTime: start.Add(time.Hour)}

    require.NoError(t, booking.FillDerived(&r, decimal.NewFromInt(2)))
    first := r
    require.NotEmpty(t, first.AccessCode)
    require.NotEmpty(t, first.QRCodeData)

    require.NoError(t, booking.FillDerived(&r, decimal.NewFromInt(9)))
    require.Equal(t, first.AccessCode, r.AccessCode)
    require.Equal(t, first.QRCodeData, r.QRCodeData)
    require.True(t, r.TotalAmount.Equal(decimal.NewFromInt(2)))
}

func TestFillDerived_WaitsForID(t *testing.T) {
    start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
    r := model.Reservation{LicensePlate: "ABC", StartTime: start, EndTime: start.Add(time.Hour)}

    require.NoError(t, booking.FillDerived(&r, decimal.NewFromInt(2)))
    require.NotEmpty(t, r.AccessCode)
    require.Empty(t, r.QRCodeData)
}

func TestQRCodeURL(t *testing.T) {
    r := model.Reservation{ID: 12, AccessCode: "abc_-9", LicensePlate: "AB 12"}

    require.Equal(t, "PARKING|12|abc_-9|AB 12", booking.ScanData(r))
    require.Equal(t,
        "https://qr.example/render?size=200x200&data=PARKING%7C12%7Cabc_-9%7CAB%2012",
        booking.QRCodeURL("https://qr.example/render", r))
    require.True(t, strings.HasPrefix(booking.QRCodeURL("", r), booking.DefaultQRBaseURL+"?"))
}

func TestParseModes(t *testing.T) {
    mode, err := booking.ParseConsistencyMode("")
    require.NoError(t, err)
    require.Equal(t, booking.ConsistencySerialized, mode)
    mode, err = booking.ParseConsistencyMode("compat")
    require.NoError(t, err)
    require.Equal(t, booking.ConsistencyCompat, mode)
    _, err = booking.ParseConsistencyMode("eventual")
    require.Error(t, err)

    policy, err := booking.ParseAvailabilityPolicy("strict")
    require.NoError(t, err)
    require.Equal(t, booking.PolicyStrict, policy)
    _, err = booking.ParseAvailabilityPolicy("lenient")
    require.Error(t, err)
}
