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

const vehicleColumns = `id, home_shop_id, current_shop_id, pool_id, status, brand, model, year, vehicle_type,
	engine_cc, COALESCE(color, ''), COALESCE(license_plate, ''), daily_rate, hourly_rate, mileage, tracks_mileage,
	is_third_party_owned, owner_id, COALESCE(owner_payment_model, ''), owner_daily_rate, owner_revenue_share_percent,
	version, created_on, updated_on`

type vehicleRepository struct {
	db DBTX
}

func NewVehicleRepository(db DBTX) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	err := row.Scan(
		&v.ID, &v.HomeShopID, &v.CurrentShopID, &v.PoolID, &v.Status, &v.Brand, &v.Model, &v.Year, &v.VehicleType,
		&v.EngineCC, &v.Color, &v.LicensePlate, &v.DailyRate, &v.HourlyRate, &v.Mileage, &v.TracksMileage,
		&v.IsThirdPartyOwned, &v.OwnerID, &v.OwnerPaymentModel, &v.OwnerDailyRate, &v.OwnerRevenueSharePc,
		&v.Version, &v.CreatedOn, &v.UpdatedOn,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	logger.EnterMethod("vehicleRepository.GetByID", "vehicleID", id)

	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	v, err := scanVehicle(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		err = mapError(err)
		logger.ExitMethod("vehicleRepository.GetByID", "vehicleID", id, "error", err)
		return nil, err
	}

	logger.ExitMethod("vehicleRepository.GetByID", "vehicleID", id, "status", v.Status)
	return v, nil
}

func (r *vehicleRepository) ListAvailable(ctx context.Context) ([]domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE status = $1 ORDER BY id ASC`
	logger.DatabaseCall("SELECT", query)

	rows, err := r.db.QueryContext(ctx, query, domain.VehicleStatusAvailable)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err)
		return nil, mapError(err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	logger.DatabaseResult("SELECT", int64(len(vehicles)), rows.Err())
	return vehicles, rows.Err()
}

func (r *vehicleRepository) UpdateStatus(ctx context.Context, v *domain.Vehicle, from domain.VehicleStatus) error {
	logger.EnterMethod("vehicleRepository.UpdateStatus", "vehicleID", v.ID, "from", from, "to", v.Status)

	query := `UPDATE vehicles SET status = $1, current_shop_id = $2, mileage = $3, version = version + 1, updated_on = $4
		WHERE id = $5 AND status = $6 AND version = $7
		RETURNING version, updated_on`

	err := r.db.QueryRowContext(ctx, query,
		v.Status, v.CurrentShopID, v.Mileage, time.Now().UTC(), v.ID, from, v.Version,
	).Scan(&v.Version, &v.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		logger.ExitMethod("vehicleRepository.UpdateStatus", "vehicleID", v.ID, "conflict", true)
		return fmt.Errorf("vehicle %d no longer %s at version %d: %w", v.ID, from, v.Version, repository.ErrConflict)
	}
	if err != nil {
		err = mapError(err)
		logger.ExitMethodWithError("vehicleRepository.UpdateStatus", err, "vehicleID", v.ID)
		return err
	}

	logger.ExitMethod("vehicleRepository.UpdateStatus", "vehicleID", v.ID, "version", v.Version)
	return nil
}

type motorbikeRepository struct {
	db DBTX
}

func NewMotorbikeRepository(db DBTX) repository.MotorbikeRepository {
	return &motorbikeRepository{db: db}
}

func (r *motorbikeRepository) GetByID(ctx context.Context, id int32) (*domain.LegacyMotorbike, error) {
	m := &domain.LegacyMotorbike{}
	query := `SELECT id, shop_id, status, COALESCE(license_plate, ''), mileage, daily_rate, version, created_on, updated_on
		FROM motorbikes WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.ShopID, &m.Status, &m.LicensePlate, &m.Mileage, &m.DailyRate, &m.Version, &m.CreatedOn, &m.UpdatedOn,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

func (r *motorbikeRepository) UpdateStatus(ctx context.Context, m *domain.LegacyMotorbike, from domain.VehicleStatus) error {
	query := `UPDATE motorbikes SET status = $1, mileage = $2, version = version + 1, updated_on = $3
		WHERE id = $4 AND status = $5 AND version = $6
		RETURNING version, updated_on`

	err := r.db.QueryRowContext(ctx, query, m.Status, m.Mileage, time.Now().UTC(), m.ID, from, m.Version).
		Scan(&m.Version, &m.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("motorbike %d no longer %s at version %d: %w", m.ID, from, m.Version, repository.ErrConflict)
	}
	return mapError(err)
}
