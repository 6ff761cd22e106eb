// Package service holds adapters between the booking workflow and
// external infrastructure.
package service

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "net"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/parking-reservation/internal/queue"
)

// ErrBrokerUnavailable is returned without dialing while a recent
// connection attempt is still backing off.
var ErrBrokerUnavailable = errors.New("rabbitmq unavailable")

const (
    defaultDialTimeout   = 2 * time.Second
    defaultRedialBackoff = 5 * time.Second
)

// AMQPPublisher publishes reservation events to RabbitMQ, one durable
// queue per event type on the default exchange.  The connection is opened
// lazily and reopened after a failure, at most once per backoff period.
// Callers never wait longer than their context allows.  Safe for
// concurrent use.
type AMQPPublisher struct {
    url           string
    log           *slog.Logger
    dialTimeout   time.Duration
    redialBackoff time.Duration

    sem      chan struct{} // held while the connection is used or replaced
    conn     *amqp.Connection
    ch       *amqp.Channel
    declared map[string]bool
    retryAt  time.Time
    lastErr  error
}

// NewAMQPPublisher returns a publisher for url.  It does not connect.
func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
    if log == nil {
        log = slog.Default()
    }
    return &AMQPPublisher{
        url:           url,
        log:           log,
        dialTimeout:   defaultDialTimeout,
        redialBackoff: defaultRedialBackoff,
        sem:           make(chan struct{}, 1),
    }
}

func (p *AMQPPublisher) lock(ctx context.Context) error {
    select {
    case p.sem <- struct{}{}:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}

func (p *AMQPPublisher) unlock() { <-p.sem }

// dialer opens the TCP connection under ctx and bounds the AMQP
// handshake by the earlier of ctx's deadline and dialTimeout.  amqp091
// clears the deadline once the handshake completes.
func (p *AMQPPublisher) dialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
    return func(network, addr string) (net.Conn, error) {
        d := net.Dialer{Timeout: p.dialTimeout}
        conn, err := d.DialContext(ctx, network, addr)
        if err != nil {
            return nil, err
        }
        deadline := time.Now().Add(p.dialTimeout)
        if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
            deadline = dl
        }
        if err := conn.SetDeadline(deadline); err != nil {
            _ = conn.Close()
            return nil, err
        }
        return conn, nil
    }
}

func (p *AMQPPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    if time.Now().Before(p.retryAt) {
        return nil, fmt.Errorf("%w: %v", ErrBrokerUnavailable, p.lastErr)
    }
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      p.dialer(ctx),
    })
    if err != nil {
        p.retryAt, p.lastErr = time.Now().Add(p.redialBackoff), err
        return nil, fmt.Errorf("rabbitmq dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        p.retryAt, p.lastErr = time.Now().Add(p.redialBackoff), err
        return nil, fmt.Errorf("rabbitmq channel: %w", err)
    }
    p.conn, p.ch, p.declared = conn, ch, map[string]bool{}
    p.retryAt, p.lastErr = time.Time{}, nil
    return ch, nil
}

func (p *AMQPPublisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.conn, p.ch = nil, nil
}

// Publish sends ev to the queue named by ev.Type as a persistent JSON
// message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev q.ReservationEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
    defer cancel()
    if err := p.lock(ctx); err != nil {
        return fmt.Errorf("publish %s: %w", ev.Type, err)
    }
    defer p.unlock()
    ch, err := p.channel(ctx)
    if err != nil {
        return err
    }
    if !p.declared[ev.Type] {
        if err := q.DeclareQueue(ch, ev.Type); err != nil {
            p.reset()
            return fmt.Errorf("queue declare %s: %w", ev.Type, err)
        }
        p.declared[ev.Type] = true
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", ev.Type, false, false, pub); err != nil {
        p.reset()
        return fmt.Errorf("publish %s: %w", ev.Type, err)
    }
    p.log.Debug("event published", "type", ev.Type, "reservation_id", ev.ReservationID)
    return nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
    p.sem <- struct{}{}
    defer p.unlock()
    p.reset()
    return nil
}
