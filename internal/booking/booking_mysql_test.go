//go:build integration

package booking_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-reservation/internal/booking"
	"github.com/iliyamo/parking-reservation/internal/database"
	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/repository"
)

// Run with: PARKING_TEST_MYSQL_DSN='user:pass@tcp(127.0.0.1:3306)/parking_test?parseTime=true&loc=UTC' go test -tags integration ./internal/booking/
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PARKING_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("PARKING_TEST_MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, database.Migrate(ctx, db))
	return db
}

func TestMySQLSerializedPaymentsDoNotOversell(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := repository.NewMySQLStore(db)
	opts := booking.Options{Consistency: booking.ConsistencySerialized}
	checker := booking.NewChecker(store, opts)
	lots := booking.NewLots(store, checker)
	manager := booking.NewManager(store, checker, opts)
	recorder := booking.NewRecorder(store, opts)

	users := repository.NewUserRepo(db)
	lot, err := lots.Create(ctx, booking.NewLot{Name: "Race", TotalSpaces: 1, HourlyRate: decimal.NewFromInt(2)})
	require.NoError(t, err)

	start := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	var pending []model.Reservation
	for i := 0; i < 2; i++ {
		email := fmt.Sprintf("race-%d-%d@example.com", time.Now().UnixNano(), i)
		uid, err := users.Create(ctx, email, "race-password", model.RoleCustomer, 4)
		require.NoError(t, err)
		r, err := manager.Request(ctx, booking.RequestInput{
			UserID: uid, LotID: lot.ID, LicensePlate: fmt.Sprintf("RACE%d", i),
			Start: start, End: start.Add(2 * time.Hour),
		})
		require.NoError(t, err)
		pending = append(pending, r)
	}

	errs := make([]error, len(pending))
	var wg sync.WaitGroup
	for i, r := range pending {
		wg.Add(1)
		go func(i int, r model.Reservation) {
			defer wg.Done()
			_, errs[i] = recorder.RecordPayment(ctx, r.UserID, r.ID, model.WalletPayment{Token: "tok"})
		}(i, r)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			wantConflict(t, err)
			failed++
		}
	}
	require.Equal(t, 1, failed)

	taken, err := store.CountOccupyingBetween(ctx, lot.ID, start, start.Add(2*time.Hour), 0)
	require.NoError(t, err)
	require.Equal(t, 1, taken)
}
