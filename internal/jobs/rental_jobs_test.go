package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"motorent-backend/internal/config"
	"motorent-backend/internal/domain"
	"motorent-backend/internal/pricing"
	"motorent-backend/internal/repository"
	"motorent-backend/internal/repository/memory"
	"motorent-backend/internal/service"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.RentalEvent) error {
	return m.Called(ctx, event).Error(0)
}

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newRunner(t *testing.T, events service.EventPublisher) (*JobRunner, *memory.Store, service.RentalEngine) {
	t.Helper()
	store := memory.NewStore()
	engine := service.NewRentalEngine(service.Dependencies{
		UnitOfWork:  store,
		Pools:       store,
		Pricing:     pricing.NewCalculator(time.UTC, 2),
		Bookings:    store,
		Commissions: store,
	}, service.Config{Location: time.UTC})

	cfg := &config.Config{Rental: config.RentalConfig{ReservationGraceHours: 24, ExpiredReservationStaff: 99}}
	jr := NewJobRunner(store, engine, events, cfg)
	jr.now = func() time.Time { return now }
	return jr, store, engine
}

func reserve(t *testing.T, e service.RentalEngine, vehicleID int32, start time.Time) int32 {
	t.Helper()
	res := e.CreateReservation(context.Background(), service.ReservationRequest{
		ShopID:          1,
		RenterID:        7,
		StaffID:         3,
		VehicleID:       vehicleID,
		DurationType:    domain.DurationTypeDaily,
		StartDate:       start,
		ExpectedEndDate: start.AddDate(0, 0, 2),
	})
	require.True(t, res.Success, res.Message)
	return res.RentalID
}

func TestExpireStaleReservations(t *testing.T) {
	jr, store, engine := newRunner(t, nil)
	stale := store.AddVehicle(domain.Vehicle{HomeShopID: 1, Status: domain.VehicleStatusAvailable, DailyRate: decimal.NewFromInt(300)})
	fresh := store.AddVehicle(domain.Vehicle{HomeShopID: 1, Status: domain.VehicleStatusAvailable, DailyRate: decimal.NewFromInt(300)})

	staleID := reserve(t, engine, stale.ID, now.Add(-72*time.Hour))
	freshID := reserve(t, engine, fresh.ID, now.Add(-2*time.Hour))

	expired, err := jr.expireStaleReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, _ := store.Rental(staleID)
	assert.Equal(t, domain.RentalStatusCancelled, got.Status)
	assert.Contains(t, got.Notes, expiredReason)
	v, _ := store.Vehicle(stale.ID)
	assert.Equal(t, domain.VehicleStatusAvailable, v.Status)

	kept, _ := store.Rental(freshID)
	assert.Equal(t, domain.RentalStatusReserved, kept.Status)
	v, _ = store.Vehicle(fresh.ID)
	assert.Equal(t, domain.VehicleStatusRented, v.Status)

	// A second run finds nothing left to expire.
	expired, err = jr.expireStaleReservations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
}

func TestReportOverdueRentals(t *testing.T) {
	events := new(MockEventPublisher)
	jr, store, _ := newRunner(t, events)

	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		for _, end := range []time.Time{now.Add(-26 * time.Hour), now.Add(4 * time.Hour)} {
			rt := &domain.Rental{
				VehicleID:        1,
				AssetKind:        domain.AssetKindVehicle,
				RentedFromShopID: 1,
				Status:           domain.RentalStatusActive,
				StartDate:        end.AddDate(0, 0, -2),
				ExpectedEndDate:  end,
				TotalAmount:      decimal.NewFromInt(600),
			}
			if err := tx.Rentals().Create(ctx, rt); err != nil {
				return err
			}
		}
		return nil
	}))

	events.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.RentalEvent) bool {
		return e.Type == domain.RentalEventOverdue && e.ShopID == 1
	})).Return(nil).Once()

	overdue, err := jr.reportOverdueRentals(context.Background())
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, now.Add(-26*time.Hour), overdue[0].ExpectedEndDate)
	events.AssertExpectations(t)

	got, _ := store.Rental(overdue[0].ID)
	assert.Equal(t, domain.RentalStatusActive, got.Status)
}

func TestRunWithRecovery(t *testing.T) {
	jr, _, _ := newRunner(t, nil)
	assert.NotPanics(t, func() {
		jr.runWithRecovery("boom", func() { panic("boom") })
	})
}
