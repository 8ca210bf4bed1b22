package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/pricing"
	"motorent-backend/internal/repository"
	"motorent-backend/internal/repository/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedCodes struct{}

func (fixedCodes) NewConfirmationCode() string { return "RSV-TEST0001" }

var march1 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func i32(v int32) *int32 { return &v }

func newEngine(store *memory.Store) RentalEngine {
	return newEngineWith(store, store)
}

func newEngineWith(store *memory.Store, uow repository.UnitOfWork) RentalEngine {
	return NewRentalEngine(Dependencies{
		UnitOfWork:  uow,
		Pools:       store,
		Pricing:     pricing.NewCalculator(time.UTC, 2),
		Bookings:    store,
		Commissions: store,
		Clock:       fixedClock{t: march1},
		Codes:       fixedCodes{},
	}, Config{Location: time.UTC, TermsVersion: "2026-01"})
}

func scooter(home int32, rate int64) domain.Vehicle {
	return domain.Vehicle{
		HomeShopID:    home,
		Status:        domain.VehicleStatusAvailable,
		Brand:         "Honda",
		Model:         "Click",
		Year:          2024,
		VehicleType:   "scooter",
		EngineCC:      125,
		Color:         "Red",
		DailyRate:     dec(rate),
		TracksMileage: true,
	}
}

func dailyCheckIn(shopID, vehicleID int32, days int, rate int64) CheckInRequest {
	return CheckInRequest{
		ShopID:          shopID,
		RenterID:        7,
		StaffID:         3,
		VehicleID:       vehicleID,
		DurationType:    domain.DurationTypeDaily,
		StartDate:       march1,
		ExpectedEndDate: march1.AddDate(0, 0, days),
		RentalRate:      dec(rate),
		TotalAmount:     dec(rate * int64(days)),
		PaymentMethod:   "CASH",
	}
}

func at(t time.Time) *time.Time { return &t }

func mustCheckIn(t *testing.T, e RentalEngine, req CheckInRequest) int32 {
	t.Helper()
	res := e.CheckIn(context.Background(), req)
	require.True(t, res.Success, res.Message)
	return res.RentalID
}

// interleavingUoW runs before once, after fn has staged its writes but before commit.
type interleavingUoW struct {
	inner  *memory.Store
	before func()
	once   sync.Once
	calls  int
}

func (u *interleavingUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	u.calls++
	return u.inner.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		u.once.Do(u.before)
		return nil
	})
}
