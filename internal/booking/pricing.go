package booking

import (
    "time"

    "github.com/shopspring/decimal"
)

// amountScale matches the DECIMAL(8,2) total_amount column.
const amountScale = 2

var secondsPerHour = decimal.NewFromInt(3600)

// maxTotal is the largest value DECIMAL(8,2) can hold.
var maxTotal = decimal.RequireFromString("999999.99")

// CalculateTotal returns the charge for the window [start, end) at the
// given hourly rate: seconds × rate / 3600, rounded to cents.  Fractions
// of an hour are billed proportionally with no minimum charge.
func CalculateTotal(start, end time.Time, rate decimal.Decimal) (decimal.Decimal, error) {
    if !end.After(start) {
        return decimal.Zero, invalid("end_time", "must be after start_time")
    }
    if rate.IsNegative() {
        return decimal.Zero, invalid("hourly_rate", "must not be negative")
    }
    // Whole seconds keep the multiplication exact; sub-second precision
    // is below what the form accepts.
    seconds := decimal.NewFromInt(int64(end.Sub(start) / time.Second))
    total := seconds.Mul(rate).Div(secondsPerHour).Round(amountScale)
    if total.GreaterThan(maxTotal) {
        return decimal.Zero, invalid("end_time", "booking total must not exceed "+maxTotal.StringFixed(amountScale))
    }
    return total, nil
}
