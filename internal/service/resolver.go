package service

import (
	"context"
	"errors"
	"strings"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

var errNoVehicleAvailable = errors.New("no vehicle available")

// groupResolver turns a vehicle-class reservation into a concrete vehicle.
type groupResolver struct {
	auth *PoolAuthorizer
}

// candidates lists AVAILABLE vehicles of the rental's group that its shop may rent,
// preferred colour first, otherwise ascending id.
func (g *groupResolver) candidates(ctx context.Context, tx repository.Tx, rt *domain.Rental) ([]domain.Vehicle, error) {
	if rt.VehicleGroupKey == "" {
		return nil, nil
	}
	available, err := tx.Vehicles().ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	var preferred, rest []domain.Vehicle
	for _, v := range available {
		v := v
		if !rt.InGroup(&v) {
			continue
		}
		allowed, err := g.auth.CanRentAt(ctx, &v, rt.RentedFromShopID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			continue
		}
		if rt.PreferredColor != "" && strings.EqualFold(strings.TrimSpace(v.Color), strings.TrimSpace(rt.PreferredColor)) {
			preferred = append(preferred, v)
		} else {
			rest = append(rest, v)
		}
	}
	return append(preferred, rest...), nil
}

// Resolve assigns the first candidate it can flip AVAILABLE -> RENTED. A candidate taken
// concurrently is skipped; errNoVehicleAvailable is returned when none is left.
func (g *groupResolver) Resolve(ctx context.Context, tx repository.Tx, rt *domain.Rental) (*domain.Vehicle, error) {
	candidates, err := g.candidates(ctx, tx, rt)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		v := &candidates[i]
		v.Status = domain.VehicleStatusRented
		err := tx.Vehicles().UpdateStatus(ctx, v, domain.VehicleStatusAvailable)
		if errors.Is(err, repository.ErrConflict) {
			logger.DebugContext(ctx, "group candidate taken, trying next", "rentalID", rt.ID, "vehicleID", v.ID)
			continue
		}
		if err != nil {
			return nil, err
		}
		assignVehicle(rt, v)
		return v, nil
	}
	return nil, errNoVehicleAvailable
}

func assignVehicle(rt *domain.Rental, v *domain.Vehicle) {
	rt.VehicleID = v.ID
	rt.AssetKind = domain.AssetKindVehicle
	rt.VehiclePoolID = v.PoolID
}
