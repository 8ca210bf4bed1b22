package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

// makeCommissionEligible runs after a check-out has committed. A rental linked to an agent
// booking makes its PENDING, unlinked commission eligible. Failures are logged only.
func (e *rentalEngine) makeCommissionEligible(ctx context.Context, rt *domain.Rental) {
	if rt.BookingID == nil || e.bookings == nil || e.commissions == nil {
		return
	}
	bookingID := *rt.BookingID

	logger.ExternalServiceCall("booking", "GetBookingByID", "bookingID", bookingID)
	booking, err := e.bookings.GetBookingByID(ctx, bookingID)
	logger.ExternalServiceResult("booking", "GetBookingByID", err, "bookingID", bookingID)
	if err != nil {
		logger.WarnContext(ctx, "commission hook: booking lookup failed", "rentalID", rt.ID, "bookingID", bookingID, "error", err)
		return
	}
	if !booking.IsAgentBooking {
		return
	}

	commission, err := e.commissions.GetCommissionByBooking(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		logger.DebugContext(ctx, "commission hook: no commission for booking", "bookingID", bookingID)
		return
	}
	if err != nil {
		logger.WarnContext(ctx, "commission hook: commission lookup failed", "rentalID", rt.ID, "bookingID", bookingID, "error", err)
		return
	}
	if !commission.CanBecomeEligible() {
		return
	}

	logger.ExternalServiceCall("commission", "MakeEligible", "commissionID", commission.ID, "rentalID", rt.ID)
	changed, err := e.commissions.MakeEligible(ctx, commission.ID, rt.ID)
	logger.ExternalServiceResult("commission", "MakeEligible", err, "commissionID", commission.ID, "rentalID", rt.ID)
	if err != nil {
		logger.WarnContext(ctx, "commission hook: make eligible failed", "rentalID", rt.ID, "commissionID", commission.ID, "error", err)
		return
	}
	if changed {
		logger.InfoContext(ctx, "commission made eligible", "rentalID", rt.ID, "commissionID", commission.ID)
	}
}

// publish emits a lifecycle event after commit. Delivery failures are logged only.
func (e *rentalEngine) publish(ctx context.Context, typ domain.RentalEventType, rt *domain.Rental, amount decimal.Decimal) {
	if e.events == nil || rt == nil {
		return
	}
	event := domain.RentalEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		RentalID:   rt.ID,
		VehicleID:  rt.VehicleID,
		ShopID:     rt.RentedFromShopID,
		Status:     rt.Status,
		Amount:     amount,
		OccurredAt: e.now().UTC(),
	}
	if err := e.events.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "rental event not published", "type", typ, "rentalID", rt.ID, "error", err)
	}
}
