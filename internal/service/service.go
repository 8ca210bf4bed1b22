package service

import (
	"context"
	"time"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/pricing"
)

// RentalEngine runs the rental lifecycle. Business and infrastructure failures both come
// back as result values carrying a FailureKind.
type RentalEngine interface {
	CheckIn(ctx context.Context, req CheckInRequest) CheckInResult
	CheckOut(ctx context.Context, req CheckOutRequest) CheckOutResult
	Cancel(ctx context.Context, rentalID, staffID int32, reason string) CancelResult
	Extend(ctx context.Context, rentalID int32, newEnd time.Time) ExtendResult
	CreateReservation(ctx context.Context, req ReservationRequest) ReservationResult
	AssignVehicleToReservation(ctx context.Context, rentalID int32, vehicleID *int32) AssignVehicleResult
	GetRental(ctx context.Context, rentalID int32) RentalDetails
	DeleteRental(ctx context.Context, rentalID int32) DeleteResult
}

type PoolReader interface {
	GetPoolByID(ctx context.Context, id int32) (*domain.VehiclePool, error)
}

type BookingReader interface {
	GetBookingByID(ctx context.Context, id int32) (*domain.Booking, error)
}

type CommissionService interface {
	GetCommissionByBooking(ctx context.Context, bookingID int32) (*domain.Commission, error)
	MakeEligible(ctx context.Context, commissionID, rentalID int32) (bool, error)
}

type PricingService interface {
	Quote(req pricing.QuoteRequest) (pricing.Quote, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.RentalEvent) error
}

type Clock interface {
	Now() time.Time
}
