package postgres

import (
	"context"
	"time"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	logger.EnterMethod("paymentRepository.Create", "rentalID", p.RentalID, "type", p.Type, "amount", p.Amount.String())

	query := `INSERT INTO payments (rental_id, shop_id, payment_type, method, reference, amount, description, recorded_by, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	p.CreatedOn = time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		p.RentalID, p.ShopID, p.Type, p.Method, p.Reference, p.Amount, p.Description, p.RecordedBy, p.CreatedOn,
	).Scan(&p.ID)
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("paymentRepository.Create", err, "rentalID", p.RentalID)
		return err
	}

	logger.ExitMethod("paymentRepository.Create", "paymentID", p.ID)
	return nil
}

func (r *paymentRepository) ListByRental(ctx context.Context, rentalID int32) ([]domain.Payment, error) {
	query := `SELECT id, rental_id, shop_id, payment_type, COALESCE(method, ''), COALESCE(reference, ''), amount,
	                 COALESCE(description, ''), recorded_by, created_on
	          FROM payments WHERE rental_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.RentalID, &p.ShopID, &p.Type, &p.Method, &p.Reference, &p.Amount,
			&p.Description, &p.RecordedBy, &p.CreatedOn); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

type depositRepository struct {
	db DBTX
}

func NewDepositRepository(db DBTX) repository.DepositRepository {
	return &depositRepository{db: db}
}

func (r *depositRepository) Create(ctx context.Context, d *domain.Deposit) error {
	logger.EnterMethod("depositRepository.Create", "rentalID", d.RentalID, "amount", d.Amount.String())

	query := `INSERT INTO deposits (rental_id, deposit_type, amount, status, collected_by, reference, collected_on,
	                                deducted_amount, refunded_amount)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		d.RentalID, d.Type, d.Amount, d.Status, d.CollectedBy, d.Reference, d.CollectedOn, d.DeductedAmount, d.RefundedAmount,
	).Scan(&d.ID)
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("depositRepository.Create", err, "rentalID", d.RentalID)
		return err
	}

	logger.ExitMethod("depositRepository.Create", "depositID", d.ID)
	return nil
}

func (r *depositRepository) GetByRental(ctx context.Context, rentalID int32) (*domain.Deposit, error) {
	d := &domain.Deposit{}
	query := `SELECT id, rental_id, deposit_type, amount, status, collected_by, COALESCE(reference, ''), collected_on,
	                 deducted_amount, refunded_amount, resolved_on, COALESCE(deduction_reason, '')
	          FROM deposits WHERE rental_id = $1`
	err := r.db.QueryRowContext(ctx, query, rentalID).Scan(
		&d.ID, &d.RentalID, &d.Type, &d.Amount, &d.Status, &d.CollectedBy, &d.Reference, &d.CollectedOn,
		&d.DeductedAmount, &d.RefundedAmount, &d.ResolvedOn, &d.DeductionReason,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return d, nil
}

func (r *depositRepository) Update(ctx context.Context, d *domain.Deposit) error {
	logger.EnterMethod("depositRepository.Update", "depositID", d.ID, "status", d.Status)

	query := `UPDATE deposits SET status = $1, deducted_amount = $2, refunded_amount = $3, resolved_on = $4, deduction_reason = $5
	          WHERE id = $6`
	logger.DatabaseCall("UPDATE", query, "depositID", d.ID)
	res, err := r.db.ExecContext(ctx, query, d.Status, d.DeductedAmount, d.RefundedAmount, d.ResolvedOn, d.DeductionReason, d.ID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return mapError(err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}

	logger.ExitMethod("depositRepository.Update", "depositID", d.ID)
	return nil
}
