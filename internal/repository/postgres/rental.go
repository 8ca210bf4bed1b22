package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

const rentalColumns = `id, rented_from_shop_id, returned_to_shop_id, vehicle_pool_id, renter_id, vehicle_id, asset_kind,
	COALESCE(vehicle_group_key, ''), COALESCE(preferred_color, ''), duration_type, start_date, expected_end_date,
	actual_end_date, COALESCE(interval_minutes, 0), rental_rate, total_amount, includes_driver, driver_fee,
	includes_guide, guide_fee, insurance_id, insurance_amount,
	COALESCE(pickup_location, ''), pickup_time, pickup_fee, pickup_out_of_hours, pickup_out_of_hours_fee,
	COALESCE(dropoff_location, ''), dropoff_time, dropoff_fee, dropoff_out_of_hours, dropoff_out_of_hours_fee,
	start_mileage, end_mileage, pre_inspection, post_inspection, status, COALESCE(notes, ''), booking_id,
	COALESCE(confirmation_code, ''), created_by, version, created_on, updated_on`

type rentalRepository struct {
	db DBTX
}

func NewRentalRepository(db DBTX) repository.RentalRepository {
	return &rentalRepository{db: db}
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	rt := &domain.Rental{}
	var vehicleID sql.NullInt32
	err := row.Scan(
		&rt.ID, &rt.RentedFromShopID, &rt.ReturnedToShopID, &rt.VehiclePoolID, &rt.RenterID, &vehicleID, &rt.AssetKind,
		&rt.VehicleGroupKey, &rt.PreferredColor, &rt.DurationType, &rt.StartDate, &rt.ExpectedEndDate,
		&rt.ActualEndDate, &rt.IntervalMinutes, &rt.RentalRate, &rt.TotalAmount, &rt.IncludesDriver, &rt.DriverFee,
		&rt.IncludesGuide, &rt.GuideFee, &rt.InsuranceID, &rt.InsuranceAmount,
		&rt.Pickup.Location, &rt.Pickup.Time, &rt.Pickup.Fee, &rt.Pickup.OutOfHours, &rt.Pickup.OutOfHoursFee,
		&rt.Dropoff.Location, &rt.Dropoff.Time, &rt.Dropoff.Fee, &rt.Dropoff.OutOfHours, &rt.Dropoff.OutOfHoursFee,
		&rt.StartMileage, &rt.EndMileage, &rt.PreInspection, &rt.PostInspection, &rt.Status, &rt.Notes, &rt.BookingID,
		&rt.ConfirmationCode, &rt.CreatedBy, &rt.Version, &rt.CreatedOn, &rt.UpdatedOn,
	)
	if err != nil {
		return nil, err
	}
	rt.VehicleID = vehicleID.Int32
	return rt, nil
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	logger.EnterMethod("rentalRepository.Create", "vehicleID", rt.VehicleID, "shopID", rt.RentedFromShopID, "status", rt.Status)

	query := `INSERT INTO rentals (
			rented_from_shop_id, vehicle_pool_id, renter_id, vehicle_id, asset_kind, vehicle_group_key, preferred_color,
			duration_type, start_date, expected_end_date, interval_minutes, rental_rate, total_amount,
			includes_driver, driver_fee, includes_guide, guide_fee, insurance_id, insurance_amount,
			pickup_location, pickup_time, pickup_fee, pickup_out_of_hours, pickup_out_of_hours_fee,
			dropoff_location, dropoff_time, dropoff_fee, dropoff_out_of_hours, dropoff_out_of_hours_fee,
			start_mileage, pre_inspection, status, notes, booking_id, confirmation_code, created_by,
			version, created_on, updated_on
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, 1, $37, $37)
		RETURNING id, version, created_on, updated_on`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		rt.RentedFromShopID, rt.VehiclePoolID, rt.RenterID, nullableID(rt.VehicleID), rt.AssetKind, rt.VehicleGroupKey, rt.PreferredColor,
		rt.DurationType, rt.StartDate, rt.ExpectedEndDate, rt.IntervalMinutes, rt.RentalRate, rt.TotalAmount,
		rt.IncludesDriver, rt.DriverFee, rt.IncludesGuide, rt.GuideFee, rt.InsuranceID, rt.InsuranceAmount,
		rt.Pickup.Location, rt.Pickup.Time, rt.Pickup.Fee, rt.Pickup.OutOfHours, rt.Pickup.OutOfHoursFee,
		rt.Dropoff.Location, rt.Dropoff.Time, rt.Dropoff.Fee, rt.Dropoff.OutOfHours, rt.Dropoff.OutOfHoursFee,
		rt.StartMileage, rt.PreInspection, rt.Status, rt.Notes, rt.BookingID, rt.ConfirmationCode, rt.CreatedBy,
		now,
	).Scan(&rt.ID, &rt.Version, &rt.CreatedOn, &rt.UpdatedOn)
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("rentalRepository.Create", err)
		return err
	}

	logger.ExitMethod("rentalRepository.Create", "rentalID", rt.ID)
	return nil
}

func (r *rentalRepository) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	logger.EnterMethod("rentalRepository.GetByID", "rentalID", id)

	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		err = mapError(err)
		if errors.Is(err, repository.ErrNotFound) {
			logger.ExitMethod("rentalRepository.GetByID", "rentalID", id, "found", false)
			return nil, err
		}
		logger.ExitMethodWithError("rentalRepository.GetByID", err, "rentalID", id)
		return nil, fmt.Errorf("get rental %d: %w", id, err)
	}

	logger.ExitMethod("rentalRepository.GetByID", "rentalID", id, "status", rt.Status)
	return rt, nil
}

func (r *rentalRepository) Update(ctx context.Context, rt *domain.Rental) error {
	logger.EnterMethod("rentalRepository.Update", "rentalID", rt.ID, "version", rt.Version, "status", rt.Status)

	query := `UPDATE rentals SET
			vehicle_id = $1, asset_kind = $2, vehicle_pool_id = $3, returned_to_shop_id = $4,
			expected_end_date = $5, actual_end_date = $6, rental_rate = $7, total_amount = $8,
			start_mileage = $9, end_mileage = $10, pre_inspection = $11, post_inspection = $12,
			status = $13, notes = $14, version = version + 1, updated_on = $15
		WHERE id = $16 AND version = $17
		RETURNING version, updated_on`

	err := r.db.QueryRowContext(ctx, query,
		nullableID(rt.VehicleID), rt.AssetKind, rt.VehiclePoolID, rt.ReturnedToShopID,
		rt.ExpectedEndDate, rt.ActualEndDate, rt.RentalRate, rt.TotalAmount,
		rt.StartMileage, rt.EndMileage, rt.PreInspection, rt.PostInspection,
		rt.Status, rt.Notes, time.Now().UTC(),
		rt.ID, rt.Version,
	).Scan(&rt.Version, &rt.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		logger.ExitMethod("rentalRepository.Update", "rentalID", rt.ID, "conflict", true)
		return fmt.Errorf("rental %d at version %d: %w", rt.ID, rt.Version, repository.ErrConflict)
	}
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("rentalRepository.Update", err, "rentalID", rt.ID)
		return err
	}

	logger.ExitMethod("rentalRepository.Update", "rentalID", rt.ID, "version", rt.Version)
	return nil
}

func (r *rentalRepository) Delete(ctx context.Context, id, version int32) error {
	logger.EnterMethod("rentalRepository.Delete", "rentalID", id)

	query := `DELETE FROM rentals WHERE id = $1 AND version = $2`
	logger.DatabaseCall("DELETE", query, "rentalID", id)
	res, err := r.db.ExecContext(ctx, query, id, version)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err)
		return mapError(err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("DELETE", n, err)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("rental %d at version %d: %w", id, version, repository.ErrConflict)
	}

	logger.ExitMethod("rentalRepository.Delete", "rentalID", id)
	return nil
}

func (r *rentalRepository) ActiveForAsset(ctx context.Context, kind domain.AssetKind, assetID int32) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
		WHERE asset_kind = $1 AND vehicle_id = $2 AND status = $3
		ORDER BY id LIMIT 1`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, kind, assetID, domain.RentalStatusActive))
	if err != nil {
		return nil, mapError(err)
	}
	return rt, nil
}

func (r *rentalRepository) ListReservedStartingBefore(ctx context.Context, cutoff time.Time) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE status = $1 AND start_date < $2 ORDER BY id`
	return r.list(ctx, query, domain.RentalStatusReserved, cutoff)
}

func (r *rentalRepository) ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE status = $1 AND expected_end_date < $2 ORDER BY expected_end_date, id`
	return r.list(ctx, query, domain.RentalStatusActive, cutoff)
}

func (r *rentalRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.Rental, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}
