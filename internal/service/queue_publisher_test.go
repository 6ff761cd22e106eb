package service

import (
    "context"
    "net"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    q "github.com/iliyamo/parking-reservation/internal/queue"
)

// silentBroker accepts TCP connections and never speaks AMQP.
func silentBroker(t *testing.T) string {
    t.Helper()
    ln, err := net.Listen("tcp", "127.0.0.1:0")
    require.NoError(t, err)
    var (
        mu    sync.Mutex
        conns []net.Conn
    )
    go func() {
        for {
            c, err := ln.Accept()
            if err != nil {
                return
            }
            mu.Lock()
            conns = append(conns, c)
            mu.Unlock()
        }
    }()
    t.Cleanup(func() {
        _ = ln.Close()
        mu.Lock()
        defer mu.Unlock()
        for _, c := range conns {
            _ = c.Close()
        }
    })
    return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublishHonoursContextWhenBrokerHangs(t *testing.T) {
    p := NewAMQPPublisher(silentBroker(t), nil)
    defer p.Close()
    ev := q.ReservationEvent{Type: q.ReservationConfirmedQueue, ReservationID: 1}

    var wg sync.WaitGroup
    elapsed := make([]time.Duration, 2)
    errs := make([]error, 2)
    for i := range elapsed {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
            defer cancel()
            begin := time.Now()
            errs[i] = p.Publish(ctx, ev)
            elapsed[i] = time.Since(begin)
        }(i)
    }
    wg.Wait()
    for i := range errs {
        require.Error(t, errs[i])
        require.Less(t, elapsed[i], 2*time.Second)
    }

    // A failed dial backs off: the next call fails without dialing.
    begin := time.Now()
    err := p.Publish(context.Background(), ev)
    require.ErrorIs(t, err, ErrBrokerUnavailable)
    require.Less(t, time.Since(begin), 200*time.Millisecond)
}

func TestPublishDialTimeoutWithoutDeadline(t *testing.T) {
    p := NewAMQPPublisher(silentBroker(t), nil)
    p.dialTimeout = 200 * time.Millisecond
    defer p.Close()

    begin := time.Now()
    err := p.Publish(context.Background(), q.ReservationEvent{Type: q.ReservationCancelledQueue, ReservationID: 2})
    require.Error(t, err)
    require.Less(t, time.Since(begin), 2*time.Second)
}
