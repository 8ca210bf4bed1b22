package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

const expiredReason = "reservation expired"

// ExpireStaleReservations cancels reservations whose start date passed more than the
// configured grace period ago without a check-in.
func (jr *JobRunner) ExpireStaleReservations() {
	jr.runWithRecovery("ExpireStaleReservations", func() {
		if _, err := jr.expireStaleReservations(context.Background()); err != nil {
			logger.Error("Failed to expire stale reservations", "error", err)
		}
	})
}

func (jr *JobRunner) expireStaleReservations(ctx context.Context) (int, error) {
	grace := time.Duration(jr.config.Rental.ReservationGraceHours) * time.Hour
	cutoff := jr.now().UTC().Add(-grace)

	var stale []domain.Rental
	err := jr.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		stale, err = tx.Rentals().ListReservedStartingBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("list stale reservations: %w", err)
	}

	expired := 0
	for _, rt := range stale {
		res := jr.engine.Cancel(ctx, rt.ID, jr.config.Rental.ExpiredReservationStaff, expiredReason)
		if !res.Success {
			// Another staff member may have checked it in or cancelled it since the listing.
			logger.WithRental(rt.ID).Warn("Could not expire reservation", "kind", res.Kind, "reason", res.Message)
			continue
		}
		expired++
		logger.WithRental(rt.ID).Debug("Expired reservation", "start_date", rt.StartDate)
	}

	logger.Info("Expired stale reservations", "count", expired, "candidates", len(stale))
	return expired, nil
}

// ReportOverdueRentals logs and publishes every ACTIVE rental past its expected end.
// Status is left ACTIVE; overage is charged at check-out.
func (jr *JobRunner) ReportOverdueRentals() {
	jr.runWithRecovery("ReportOverdueRentals", func() {
		if _, err := jr.reportOverdueRentals(context.Background()); err != nil {
			logger.Error("Failed to report overdue rentals", "error", err)
		}
	})
}

func (jr *JobRunner) reportOverdueRentals(ctx context.Context) ([]domain.Rental, error) {
	now := jr.now().UTC()

	var overdue []domain.Rental
	err := jr.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		overdue, err = tx.Rentals().ListActiveDueBefore(ctx, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list overdue rentals: %w", err)
	}

	for _, rt := range overdue {
		log := logger.WithRental(rt.ID)
		log.Warn("Rental overdue",
			"vehicle_id", rt.VehicleID,
			"shop_id", rt.RentedFromShopID,
			"expected_end", rt.ExpectedEndDate,
			"hours_overdue", int(now.Sub(rt.ExpectedEndDate).Hours()))

		if jr.events == nil {
			continue
		}
		event := domain.RentalEvent{
			ID:         uuid.NewString(),
			Type:       domain.RentalEventOverdue,
			RentalID:   rt.ID,
			VehicleID:  rt.VehicleID,
			ShopID:     rt.RentedFromShopID,
			Status:     rt.Status,
			Amount:     rt.TotalAmount,
			OccurredAt: now,
		}
		if err := jr.events.Publish(ctx, event); err != nil {
			log.Warn("Failed to publish overdue event", "error", err)
		}
	}

	logger.Info("Reported overdue rentals", "count", len(overdue))
	return overdue, nil
}
