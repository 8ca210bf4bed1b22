package postgres

import (
	"context"

	"github.com/lib/pq"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

type poolRepository struct {
	db DBTX
}

func NewPoolRepository(db DBTX) repository.PoolRepository {
	return &poolRepository{db: db}
}

func (r *poolRepository) GetPoolByID(ctx context.Context, id int32) (*domain.VehiclePool, error) {
	logger.EnterMethod("poolRepository.GetPoolByID", "poolID", id)

	p := &domain.VehiclePool{}
	query := `SELECT id, name, shop_ids FROM vehicle_pools WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, pq.Array(&p.ShopIDs))
	if err != nil {
		err = mapError(err)
		logger.ExitMethod("poolRepository.GetPoolByID", "poolID", id, "error", err)
		return nil, err
	}

	logger.ExitMethod("poolRepository.GetPoolByID", "poolID", id, "shops", len(p.ShopIDs))
	return p, nil
}
