package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/repository"
)

const fleet = `
pools:
  - id: 1
    name: Old Town
    shop_ids: [1, 2]
vehicles:
  - id: 40
    home_shop_id: 1
    pool_id: 1
    brand: Honda
    model: Click
    daily_rate: "300"
  - home_shop_id: 2
    status: MAINTENANCE
    daily_rate: 450.5
motorbikes:
  - id: 7
    shop_id: 1
    daily_rate: "200"
commissions:
  - booking_id: 3
`

func TestParseFixtureAndSeed(t *testing.T) {
	f, err := ParseFixture([]byte(fleet))
	require.NoError(t, err)
	require.Len(t, f.Vehicles, 2)
	assert.Equal(t, "450.5", f.Vehicles[1].DailyRate.String())

	s := NewStore()
	s.Seed(f)

	v, ok := s.Vehicle(40)
	require.True(t, ok)
	assert.Equal(t, domain.VehicleStatusAvailable, v.Status)
	assert.Equal(t, int32(1), v.CurrentShopID)
	assert.Equal(t, int32(1), *v.PoolID)
	assert.Equal(t, "300", v.DailyRate.String())

	pool, err := s.GetPoolByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, pool.ShopIDs)

	m, ok := s.Motorbike(7)
	require.True(t, ok)
	assert.Equal(t, domain.VehicleStatusAvailable, m.Status)

	c, err := s.GetCommissionByBooking(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, domain.CommissionStatusPending, c.Status)

	var maintenance int
	for _, v := range s.Vehicles() {
		assert.Greater(t, v.ID, int32(0))
		if v.Status == domain.VehicleStatusMaintenance {
			maintenance++
			assert.Greater(t, v.ID, int32(40), "allocated ids skip past explicit ones")
		}
	}
	assert.Equal(t, 1, maintenance)

	require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		rt := &domain.Rental{Status: domain.RentalStatusActive, VehicleID: 40, StartDate: time.Now()}
		if err := tx.Rentals().Create(ctx, rt); err != nil {
			return err
		}
		assert.Greater(t, rt.ID, int32(40))
		return nil
	}))
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fleet), 0o600))

	f, err := LoadFixture(path)
	require.NoError(t, err)
	assert.Len(t, f.Pools, 1)

	_, err = LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseFixture([]byte("vehicles: [unterminated"))
	assert.Error(t, err)
}
