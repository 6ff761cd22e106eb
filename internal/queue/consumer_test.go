package queue

import (
    "encoding/json"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
    line, err := FormatLine(ReservationEvent{
        Type:          ReservationConfirmedQueue,
        ReservationID: 4,
        UserID:        2,
        ParkingLotID:  1,
        LicensePlate:  "ABC123",
        StartTime:     "2026-03-02T10:00:00Z",
        EndTime:       "2026-03-02T12:00:00Z",
        TotalAmount:   "5.00",
        PaymentMethod: "credit_card",
        TransactionID: "TXN20260302090000-abcd1234",
        OccurredAt:    "2026-03-02T09:00:00Z",
    })
    require.NoError(t, err)
    require.Equal(t, `[2026-03-02T09:00:00Z] Reservation confirmed | reservation_id=4 | user_id=2 | lot_id=1 | plate="ABC123" | window=2026-03-02T10:00:00Z..2026-03-02T12:00:00Z | total=5.00 | method=credit_card | txn=TXN20260302090000-abcd1234`+"\n", line)

    _, err = FormatLine(ReservationEvent{Type: "reservation.unknown"})
    require.Error(t, err)
}

func TestHandleAppends(t *testing.T) {
    path := filepath.Join(t.TempDir(), "logs", "reservations.log")
    c := &Consumer{LogPath: path}

    for _, kind := range Queues {
        body, err := json.Marshal(ReservationEvent{Type: kind, ReservationID: 7})
        require.NoError(t, err)
        require.NoError(t, c.Handle(body))
    }
    require.Error(t, c.Handle([]byte("{")))

    data, err := os.ReadFile(path)
    require.NoError(t, err)
    lines := strings.Split(strings.TrimSpace(string(data)), "\n")
    require.Len(t, lines, 2)
    require.Contains(t, lines[0], "Reservation confirmed")
    require.Contains(t, lines[1], "Reservation cancelled")
}
