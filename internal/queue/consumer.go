package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Queues lists every queue the consumer reads.
var Queues = []string{ReservationConfirmedQueue, ReservationCancelledQueue}

// DeclareQueue declares name as a durable queue.  Publisher and consumer
// both call it so either may start first.
func DeclareQueue(ch *amqp.Channel, name string) error {
    _, err := ch.QueueDeclare(name, true, false, false, false, nil)
    return err
}

// Consumer appends one line per reservation event to a log file.
type Consumer struct {
    URL     string       // AMQP URL
    LogPath string       // e.g. logs/reservations.log
    Log     *slog.Logger // default slog.Default()

    mu sync.Mutex // serializes file appends across queues
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with exponential backoff (capped at 30s) when the
// connection drops.  It returns ctx.Err() on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
    log := c.Log
    if log == nil {
        log = slog.Default()
    }
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            log.Warn("event consumer: dial failed", "err", err, "retry_in", backoff.String())
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consume(ctx, conn, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("event consumer: consume loop ended, reconnecting", "err", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection, log *slog.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("event consumer: set QoS failed", "err", err)
    }

    done := make(chan error, len(Queues))
    for _, name := range Queues {
        if err := DeclareQueue(ch, name); err != nil {
            return fmt.Errorf("queue declare %s: %w", name, err)
        }
        msgs, err := ch.Consume(name, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", name, err)
        }
        go func(name string, msgs <-chan amqp.Delivery) {
            for d := range msgs {
                if err := c.Handle(d.Body); err != nil {
                    log.Warn("event consumer: handle message failed", "queue", name, "err", err)
                    _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                    continue
                }
                _ = d.Ack(false)
            }
            done <- errors.New("deliveries channel closed: " + name)
        }(name, msgs)
    }

    select {
    case <-ctx.Done():
        return ctx.Err()
    case err := <-done:
        return err
    }
}

// Handle decodes one event and appends its line to the log file.
func (c *Consumer) Handle(body []byte) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    line, err := FormatLine(ev)
    if err != nil {
        return err
    }

    c.mu.Lock()
    defer c.mu.Unlock()
    if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders an event as a single human-readable log line.
func FormatLine(ev ReservationEvent) (string, error) {
    var verb string
    switch ev.Type {
    case ReservationConfirmedQueue:
        verb = "Reservation confirmed"
    case ReservationCancelledQueue:
        verb = "Reservation cancelled"
    default:
        return "", fmt.Errorf("unknown event type %q", ev.Type)
    }
    line := fmt.Sprintf("[%s] %s | reservation_id=%d | user_id=%d | lot_id=%d | plate=%q | window=%s..%s | total=%s",
        ev.OccurredAt, verb, ev.ReservationID, ev.UserID, ev.ParkingLotID, ev.LicensePlate, ev.StartTime, ev.EndTime, ev.TotalAmount)
    if ev.PaymentMethod != "" {
        line += " | method=" + ev.PaymentMethod
    }
    if ev.TransactionID != "" {
        line += " | txn=" + ev.TransactionID
    }
    return line + "\n", nil
}
