package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/pricing"
	"motorent-backend/internal/repository"
	"motorent-backend/internal/repository/memory"
)

type MockBookingReader struct{ mock.Mock }

func (m *MockBookingReader) GetBookingByID(ctx context.Context, id int32) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type MockCommissionService struct{ mock.Mock }

func (m *MockCommissionService) GetCommissionByBooking(ctx context.Context, bookingID int32) (*domain.Commission, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Commission), args.Error(1)
}

func (m *MockCommissionService) MakeEligible(ctx context.Context, commissionID, rentalID int32) (bool, error) {
	args := m.Called(ctx, commissionID, rentalID)
	return args.Bool(0), args.Error(1)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.RentalEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestCommissionHook_Idempotent(t *testing.T) {
	store := memory.NewStore()
	e := newEngine(store)
	booking := store.AddBooking(domain.Booking{IsAgentBooking: true, AgentID: i32(12)})
	commission := store.AddCommission(domain.Commission{BookingID: booking.ID, Status: domain.CommissionStatusPending})
	v := store.AddVehicle(scooter(1, 300))

	checkOutWithBooking := func() int32 {
		req := dailyCheckIn(1, v.ID, 1, 300)
		req.BookingID = &booking.ID
		id := mustCheckIn(t, e, req)
		require.True(t, e.CheckOut(context.Background(), CheckOutRequest{RentalID: id}).Success)
		return id
	}

	first := checkOutWithBooking()
	c, _ := store.Commission(commission.ID)
	assert.Equal(t, domain.CommissionStatusEligible, c.Status)
	require.NotNil(t, c.RentalID)
	assert.Equal(t, first, *c.RentalID)

	checkOutWithBooking()
	c, _ = store.Commission(commission.ID)
	assert.Equal(t, first, *c.RentalID)
}

func TestCommissionHook_FailureDoesNotUndoCheckOut(t *testing.T) {
	store := memory.NewStore()
	bookings := new(MockBookingReader)
	commissions := new(MockCommissionService)
	events := new(MockEventPublisher)
	e := NewRentalEngine(Dependencies{
		UnitOfWork:  store,
		Pools:       store,
		Pricing:     pricing.NewCalculator(time.UTC, 1),
		Bookings:    bookings,
		Commissions: commissions,
		Events:      events,
		Clock:       fixedClock{t: march1},
	}, Config{})
	v := store.AddVehicle(scooter(1, 300))

	bookingID := int32(77)
	bookings.On("GetBookingByID", mock.Anything, bookingID).Return(&domain.Booking{ID: bookingID, IsAgentBooking: true}, nil)
	commissions.On("GetCommissionByBooking", mock.Anything, bookingID).
		Return(&domain.Commission{ID: 5, BookingID: bookingID, Status: domain.CommissionStatusPending}, nil)
	commissions.On("MakeEligible", mock.Anything, int32(5), mock.AnythingOfType("int32")).Return(false, errors.New("commission service down"))
	events.On("Publish", mock.Anything, mock.MatchedBy(func(ev domain.RentalEvent) bool {
		return ev.Type == domain.RentalEventCheckedIn
	})).Return(nil).Once()
	events.On("Publish", mock.Anything, mock.MatchedBy(func(ev domain.RentalEvent) bool {
		return ev.Type == domain.RentalEventCompleted && ev.Status == domain.RentalStatusCompleted && ev.ID != ""
	})).Return(errors.New("broker unavailable")).Once()

	req := dailyCheckIn(1, v.ID, 1, 300)
	req.BookingID = &bookingID
	id := mustCheckIn(t, e, req)

	res := e.CheckOut(context.Background(), CheckOutRequest{RentalID: id})
	require.True(t, res.Success, res.Message)
	rt, _ := store.Rental(id)
	assert.Equal(t, domain.RentalStatusCompleted, rt.Status)

	bookings.AssertExpectations(t)
	commissions.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestCommissionHook_SkipsNonAgentAndLinkedCommissions(t *testing.T) {
	store := memory.NewStore()
	bookings := new(MockBookingReader)
	commissions := new(MockCommissionService)
	e := NewRentalEngine(Dependencies{
		UnitOfWork: store, Pools: store, Bookings: bookings, Commissions: commissions,
		Clock: fixedClock{t: march1},
	}, Config{})
	v := store.AddVehicle(scooter(1, 300))

	bookings.On("GetBookingByID", mock.Anything, int32(1)).Return(&domain.Booking{ID: 1}, nil)
	bookings.On("GetBookingByID", mock.Anything, int32(2)).Return(&domain.Booking{ID: 2, IsAgentBooking: true}, nil)
	bookings.On("GetBookingByID", mock.Anything, int32(3)).Return(&domain.Booking{ID: 3, IsAgentBooking: true}, nil)
	commissions.On("GetCommissionByBooking", mock.Anything, int32(2)).
		Return(&domain.Commission{ID: 9, Status: domain.CommissionStatusPending, RentalID: i32(400)}, nil)
	commissions.On("GetCommissionByBooking", mock.Anything, int32(3)).Return(nil, repository.ErrNotFound)

	for _, bookingID := range []int32{1, 2, 3} {
		bookingID := bookingID
		req := dailyCheckIn(1, v.ID, 1, 300)
		req.BookingID = &bookingID
		id := mustCheckIn(t, e, req)
		require.True(t, e.CheckOut(context.Background(), CheckOutRequest{RentalID: id}).Success)
	}

	commissions.AssertNotCalled(t, "GetCommissionByBooking", mock.Anything, int32(1))
	commissions.AssertNotCalled(t, "MakeEligible", mock.Anything, mock.Anything, mock.Anything)
}
