package postgres

import (
	"context"
	"time"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

type bookingRepository struct {
	db DBTX
}

// NewBookingRepository reads the intake service's bookings table. The engine never writes it.
func NewBookingRepository(db DBTX) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetBookingByID(ctx context.Context, id int32) (*domain.Booking, error) {
	b := &domain.Booking{}
	query := `SELECT id, agent_id IS NOT NULL, agent_id FROM bookings WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.IsAgentBooking, &b.AgentID); err != nil {
		return nil, mapError(err)
	}
	return b, nil
}

type commissionRepository struct {
	db DBTX
}

func NewCommissionRepository(db DBTX) repository.CommissionRepository {
	return &commissionRepository{db: db}
}

func (r *commissionRepository) GetCommissionByBooking(ctx context.Context, bookingID int32) (*domain.Commission, error) {
	c := &domain.Commission{}
	query := `SELECT id, booking_id, rental_id, status FROM agent_commissions WHERE booking_id = $1`
	if err := r.db.QueryRowContext(ctx, query, bookingID).Scan(&c.ID, &c.BookingID, &c.RentalID, &c.Status); err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func (r *commissionRepository) MakeEligible(ctx context.Context, commissionID, rentalID int32) (bool, error) {
	logger.EnterMethod("commissionRepository.MakeEligible", "commissionID", commissionID, "rentalID", rentalID)

	// The status/rental_id guard makes a repeated call a no-op.
	query := `UPDATE agent_commissions SET status = $1, rental_id = $2, updated_on = $3
	          WHERE id = $4 AND status = $5 AND rental_id IS NULL`
	logger.DatabaseCall("UPDATE", query, "commissionID", commissionID)
	res, err := r.db.ExecContext(ctx, query,
		domain.CommissionStatusEligible, rentalID, time.Now().UTC(), commissionID, domain.CommissionStatusPending)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return false, mapError(err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err)
	if err != nil {
		return false, err
	}

	logger.ExitMethod("commissionRepository.MakeEligible", "commissionID", commissionID, "updated", n > 0)
	return n > 0, nil
}
