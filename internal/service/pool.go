package service

import (
	"context"
	"errors"
	"fmt"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

// PoolAuthorizer decides whether a shop may rent out, or accept the return of, a vehicle.
// A vehicle whose pool cannot be found is treated as unauthorized everywhere.
type PoolAuthorizer struct {
	pools PoolReader
}

func NewPoolAuthorizer(pools PoolReader) *PoolAuthorizer {
	return &PoolAuthorizer{pools: pools}
}

// CanRentAt: unpooled vehicles only from their home shop, pooled ones from any pool member.
func (a *PoolAuthorizer) CanRentAt(ctx context.Context, v *domain.Vehicle, shopID int32) (bool, error) {
	if !v.IsPooled() {
		return shopID == v.HomeShopID, nil
	}
	return a.poolContains(ctx, *v.PoolID, v.ID, shopID)
}

// CanReturnTo: unpooled vehicles only to the shop they were rented from, pooled ones to any pool member.
func (a *PoolAuthorizer) CanReturnTo(ctx context.Context, v *domain.Vehicle, rt *domain.Rental, shopID int32) (bool, error) {
	if !v.IsPooled() {
		return shopID == rt.RentedFromShopID, nil
	}
	return a.poolContains(ctx, *v.PoolID, v.ID, shopID)
}

func (a *PoolAuthorizer) poolContains(ctx context.Context, poolID, vehicleID, shopID int32) (bool, error) {
	pool, err := a.pools.GetPoolByID(ctx, poolID)
	if errors.Is(err, repository.ErrNotFound) {
		logger.WarnContext(ctx, "vehicle pool not found, denying access", "poolID", poolID, "vehicleID", vehicleID, "shopID", shopID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load pool %d: %w", poolID, err)
	}
	return pool.Contains(shopID), nil
}
