package booking

import (
    "context"
    "fmt"
    "log/slog"
    "time"

    "github.com/iliyamo/parking-reservation/internal/model"
    "github.com/iliyamo/parking-reservation/internal/repository"
)

// AvailabilityPolicy decides what the Checker reports when occupancy
// cannot be computed.
type AvailabilityPolicy string

const (
    // PolicyOptimistic reports the lot's full capacity on failure and
    // logs the error.
    PolicyOptimistic AvailabilityPolicy = "optimistic"
    // PolicyStrict returns the failure to the caller.
    PolicyStrict AvailabilityPolicy = "strict"
)

// ParseAvailabilityPolicy maps a configuration value to a policy.  The
// empty string selects PolicyOptimistic.
func ParseAvailabilityPolicy(s string) (AvailabilityPolicy, error) {
    switch AvailabilityPolicy(s) {
    case "", PolicyOptimistic:
        return PolicyOptimistic, nil
    case PolicyStrict:
        return PolicyStrict, nil
    }
    return "", fmt.Errorf("unknown availability policy %q", s)
}

// Checker computes the number of free spaces of a lot at the current
// instant.  It never writes.
type Checker struct {
    store  repository.Store
    policy AvailabilityPolicy
    now    func() time.Time
    log    *slog.Logger
}

// NewChecker builds a Checker over store.
func NewChecker(store repository.Store, opts Options) *Checker {
    opts = opts.withDefaults()
    return &Checker{store: store, policy: opts.AvailabilityPolicy, now: opts.Now, log: opts.Logger}
}

// Available returns max(0, capacity − reservations occupying the lot now).
func (c *Checker) Available(ctx context.Context, lot model.ParkingLot) (int, error) {
    return c.availableIn(ctx, c.store, lot)
}

func (c *Checker) availableIn(ctx context.Context, st repository.Store, lot model.ParkingLot) (int, error) {
    occupied, err := st.CountOccupyingAt(ctx, lot.ID, c.now())
    if err != nil {
        if c.policy == PolicyStrict {
            return 0, fmt.Errorf("count occupying reservations: %w", err)
        }
        c.log.Warn("availability fallback to full capacity", "lot_id", lot.ID, "err", err)
        return lot.TotalSpaces, nil
    }
    free := lot.TotalSpaces - occupied
    if free < 0 {
        return 0, nil
    }
    return free, nil
}
