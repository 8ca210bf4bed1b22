package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/repository"
)

var vehicleColumnNames = []string{
	"id", "home_shop_id", "current_shop_id", "pool_id", "status", "brand", "model", "year", "vehicle_type",
	"engine_cc", "color", "license_plate", "daily_rate", "hourly_rate", "mileage", "tracks_mileage",
	"is_third_party_owned", "owner_id", "owner_payment_model", "owner_daily_rate", "owner_revenue_share_percent",
	"version", "created_on", "updated_on",
}

func TestVehicleRepository_ListAvailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVehicleRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM vehicles WHERE status = \\$1 ORDER BY id ASC").
		WithArgs(domain.VehicleStatusAvailable).
		WillReturnRows(sqlmock.NewRows(vehicleColumnNames).
			AddRow(3, 1, 1, nil, "AVAILABLE", "Honda", "PCX", 2023, "scooter", 160, "Red", "AB-1", "300", "60", 1200, true,
				false, nil, "", "0", "0", 2, now, now).
			AddRow(5, 1, 2, 9, "AVAILABLE", "Honda", "PCX", 2023, "scooter", 160, "Blue", "AB-2", "300", "60", 800, true,
				true, 77, "REVENUE_SHARE", "0", "20", 1, now, now))

	vehicles, err := repo.ListAvailable(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	assert.False(t, vehicles[0].IsPooled())
	assert.True(t, vehicles[1].IsPooled())
	assert.Equal(t, domain.OwnerPaymentModelRevenueShare, vehicles[1].OwnerPaymentModel)
	assert.True(t, decimal.NewFromInt(20).Equal(vehicles[1].OwnerRevenueSharePc))
	assert.Equal(t, "honda|pcx|2023|scooter|160", vehicles[0].GroupKey())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewVehicleRepository(db)
	ctx := context.Background()

	t.Run("Compare and set succeeds", func(t *testing.T) {
		v := &domain.Vehicle{ID: 3, Status: domain.VehicleStatusRented, CurrentShopID: 1, Mileage: 1200, Version: 2}
		mock.ExpectQuery("UPDATE vehicles SET status").
			WithArgs(domain.VehicleStatusRented, int32(1), int32(1200), sqlmock.AnyArg(), int32(3), domain.VehicleStatusAvailable, int32(2)).
			WillReturnRows(sqlmock.NewRows([]string{"version", "updated_on"}).AddRow(3, time.Now()))

		require.NoError(t, repo.UpdateStatus(ctx, v, domain.VehicleStatusAvailable))
		assert.Equal(t, int32(3), v.Version)
	})

	t.Run("Lost race", func(t *testing.T) {
		v := &domain.Vehicle{ID: 3, Status: domain.VehicleStatusRented, CurrentShopID: 1, Version: 2}
		mock.ExpectQuery("UPDATE vehicles SET status").
			WillReturnRows(sqlmock.NewRows([]string{"version", "updated_on"}))

		err := repo.UpdateStatus(ctx, v, domain.VehicleStatusAvailable)
		assert.True(t, errors.Is(err, repository.ErrConflict))
	})

	t.Run("Serialization failure", func(t *testing.T) {
		v := &domain.Vehicle{ID: 3, Status: domain.VehicleStatusRented, CurrentShopID: 1, Version: 2}
		mock.ExpectQuery("UPDATE vehicles SET status").
			WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})

		err := repo.UpdateStatus(ctx, v, domain.VehicleStatusAvailable)
		assert.True(t, errors.Is(err, repository.ErrConflict))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolRepository_GetPoolByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPoolRepository(db)

	mock.ExpectQuery("SELECT id, name, shop_ids FROM vehicle_pools").
		WithArgs(int32(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "shop_ids"}).AddRow(9, "north", "{1,2}"))

	pool, err := repo.GetPoolByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, pool.ShopIDs)

	mock.ExpectQuery("SELECT id, name, shop_ids FROM vehicle_pools").
		WithArgs(int32(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "shop_ids"}))

	_, err = repo.GetPoolByID(context.Background(), 10)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
