package postgres

import (
	"context"
	"time"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

type damageRepository struct {
	db DBTX
}

func NewDamageRepository(db DBTX) repository.DamageRepository {
	return &damageRepository{db: db}
}

func (r *damageRepository) Create(ctx context.Context, d *domain.DamageReport) error {
	query := `INSERT INTO damage_reports (rental_id, vehicle_id, description, severity, estimated_cost, status, reported_by, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	d.CreatedOn = time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		d.RentalID, d.VehicleID, d.Description, d.Severity, d.EstimatedCost, d.Status, d.ReportedBy, d.CreatedOn,
	).Scan(&d.ID)
	return mapError(err)
}

func (r *damageRepository) ListByRental(ctx context.Context, rentalID int32) ([]domain.DamageReport, error) {
	query := `SELECT id, rental_id, vehicle_id, description, severity, estimated_cost, status, reported_by, created_on
	          FROM damage_reports WHERE rental_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var reports []domain.DamageReport
	for rows.Next() {
		var d domain.DamageReport
		if err := rows.Scan(&d.ID, &d.RentalID, &d.VehicleID, &d.Description, &d.Severity, &d.EstimatedCost,
			&d.Status, &d.ReportedBy, &d.CreatedOn); err != nil {
			return nil, err
		}
		reports = append(reports, d)
	}
	return reports, rows.Err()
}

type ownerPaymentRepository struct {
	db DBTX
}

func NewOwnerPaymentRepository(db DBTX) repository.OwnerPaymentRepository {
	return &ownerPaymentRepository{db: db}
}

func (r *ownerPaymentRepository) Create(ctx context.Context, p *domain.OwnerPayment) error {
	logger.EnterMethod("ownerPaymentRepository.Create", "rentalID", p.RentalID, "ownerID", p.OwnerID, "amount", p.Amount.String())

	query := `INSERT INTO owner_payments (
			rental_id, vehicle_id, owner_id, payment_model, rental_days, basis_amount, daily_rate,
			revenue_share_percent, amount, status, created_on
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	p.CreatedOn = time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		p.RentalID, p.VehicleID, p.OwnerID, p.PaymentModel, p.RentalDays, p.BasisAmount, p.DailyRate,
		p.RevenueSharePercent, p.Amount, p.Status, p.CreatedOn,
	).Scan(&p.ID)
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("ownerPaymentRepository.Create", err, "rentalID", p.RentalID)
		return err
	}

	logger.ExitMethod("ownerPaymentRepository.Create", "ownerPaymentID", p.ID)
	return nil
}

func (r *ownerPaymentRepository) GetByRental(ctx context.Context, rentalID int32) (*domain.OwnerPayment, error) {
	p := &domain.OwnerPayment{}
	query := `SELECT id, rental_id, vehicle_id, owner_id, payment_model, rental_days, basis_amount, daily_rate,
	                 revenue_share_percent, amount, status, created_on
	          FROM owner_payments WHERE rental_id = $1`
	err := r.db.QueryRowContext(ctx, query, rentalID).Scan(
		&p.ID, &p.RentalID, &p.VehicleID, &p.OwnerID, &p.PaymentModel, &p.RentalDays, &p.BasisAmount, &p.DailyRate,
		&p.RevenueSharePercent, &p.Amount, &p.Status, &p.CreatedOn,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}
