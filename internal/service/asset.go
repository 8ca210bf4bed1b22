package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/repository"
)

// rentableAsset hides whether a rental points at a pooled vehicle or a legacy motorbike.
type rentableAsset interface {
	ID() int32
	Kind() domain.AssetKind
	Status() domain.VehicleStatus
	PoolID() *int32
	DailyRate() decimal.Decimal
	HourlyRate() decimal.Decimal
	// Vehicle is nil for legacy motorbikes, which have no pool, accessories, agreement or owner.
	Vehicle() *domain.Vehicle
	CanRentAt(ctx context.Context, shopID int32) (bool, error)
	CanReturnTo(ctx context.Context, rt *domain.Rental, shopID int32) (bool, error)
	// Hold flips the asset to RENTED, compare-and-set on its current status and version.
	Hold(ctx context.Context, tx repository.Tx, mileage *int32) error
	// Release flips the asset back to AVAILABLE at shopID.
	Release(ctx context.Context, tx repository.Tx, shopID int32, mileage *int32) error
}

type vehicleAsset struct {
	v    *domain.Vehicle
	auth *PoolAuthorizer
}

func (a *vehicleAsset) ID() int32                    { return a.v.ID }
func (a *vehicleAsset) Kind() domain.AssetKind       { return domain.AssetKindVehicle }
func (a *vehicleAsset) Status() domain.VehicleStatus { return a.v.Status }
func (a *vehicleAsset) PoolID() *int32               { return a.v.PoolID }
func (a *vehicleAsset) DailyRate() decimal.Decimal   { return a.v.DailyRate }
func (a *vehicleAsset) HourlyRate() decimal.Decimal  { return a.v.HourlyRate }
func (a *vehicleAsset) Vehicle() *domain.Vehicle     { return a.v }

func (a *vehicleAsset) CanRentAt(ctx context.Context, shopID int32) (bool, error) {
	return a.auth.CanRentAt(ctx, a.v, shopID)
}

func (a *vehicleAsset) CanReturnTo(ctx context.Context, rt *domain.Rental, shopID int32) (bool, error) {
	return a.auth.CanReturnTo(ctx, a.v, rt, shopID)
}

func (a *vehicleAsset) Hold(ctx context.Context, tx repository.Tx, mileage *int32) error {
	from := a.v.Status
	a.v.Status = domain.VehicleStatusRented
	if mileage != nil && a.v.TracksMileage {
		a.v.Mileage = *mileage
	}
	return tx.Vehicles().UpdateStatus(ctx, a.v, from)
}

func (a *vehicleAsset) Release(ctx context.Context, tx repository.Tx, shopID int32, mileage *int32) error {
	from := a.v.Status
	a.v.Status = domain.VehicleStatusAvailable
	if a.v.IsPooled() {
		a.v.CurrentShopID = shopID
	} else {
		a.v.CurrentShopID = a.v.HomeShopID
	}
	if mileage != nil && a.v.TracksMileage {
		a.v.Mileage = *mileage
	}
	return tx.Vehicles().UpdateStatus(ctx, a.v, from)
}

type legacyMotorbikeAsset struct {
	m *domain.LegacyMotorbike
}

func (a *legacyMotorbikeAsset) ID() int32                    { return a.m.ID }
func (a *legacyMotorbikeAsset) Kind() domain.AssetKind       { return domain.AssetKindLegacyMotorbike }
func (a *legacyMotorbikeAsset) Status() domain.VehicleStatus { return a.m.Status }
func (a *legacyMotorbikeAsset) PoolID() *int32               { return nil }
func (a *legacyMotorbikeAsset) DailyRate() decimal.Decimal   { return a.m.DailyRate }
func (a *legacyMotorbikeAsset) HourlyRate() decimal.Decimal  { return decimal.Zero }
func (a *legacyMotorbikeAsset) Vehicle() *domain.Vehicle     { return nil }

func (a *legacyMotorbikeAsset) CanRentAt(ctx context.Context, shopID int32) (bool, error) {
	return shopID == a.m.ShopID, nil
}

func (a *legacyMotorbikeAsset) CanReturnTo(ctx context.Context, rt *domain.Rental, shopID int32) (bool, error) {
	return shopID == rt.RentedFromShopID, nil
}

func (a *legacyMotorbikeAsset) Hold(ctx context.Context, tx repository.Tx, mileage *int32) error {
	from := a.m.Status
	a.m.Status = domain.VehicleStatusRented
	if mileage != nil {
		a.m.Mileage = *mileage
	}
	return tx.Motorbikes().UpdateStatus(ctx, a.m, from)
}

func (a *legacyMotorbikeAsset) Release(ctx context.Context, tx repository.Tx, shopID int32, mileage *int32) error {
	from := a.m.Status
	a.m.Status = domain.VehicleStatusAvailable
	if mileage != nil {
		a.m.Mileage = *mileage
	}
	return tx.Motorbikes().UpdateStatus(ctx, a.m, from)
}

// resolveAsset loads the asset a rental points at. An empty kind means "vehicle first,
// then legacy motorbike", which is how new check-ins identify what they were handed.
func (e *rentalEngine) resolveAsset(ctx context.Context, tx repository.Tx, kind domain.AssetKind, id int32) (rentableAsset, error) {
	if kind == "" || kind == domain.AssetKindVehicle {
		v, err := tx.Vehicles().GetByID(ctx, id)
		if err == nil {
			return &vehicleAsset{v: v, auth: e.pools}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if kind == domain.AssetKindVehicle {
			return nil, notFoundf("vehicle %d not found", id)
		}
	}

	m, err := tx.Motorbikes().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundf("vehicle %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &legacyMotorbikeAsset{m: m}, nil
}

// assetOf loads the asset rt is bound to. Rentals written before the asset kind was
// recorded fall back to the vehicle-first lookup.
func (e *rentalEngine) assetOf(ctx context.Context, tx repository.Tx, rt *domain.Rental) (rentableAsset, error) {
	if rt.IsLegacy() {
		return e.resolveAsset(ctx, tx, domain.AssetKindLegacyMotorbike, rt.VehicleID)
	}
	return e.resolveAsset(ctx, tx, rt.AssetKind, rt.VehicleID)
}

// heldBy reports whether the asset is currently held for rt: it is RENTED and no other
// rental is ACTIVE on it.
func (e *rentalEngine) heldBy(ctx context.Context, tx repository.Tx, asset rentableAsset, rt *domain.Rental) (bool, error) {
	if asset.Status() != domain.VehicleStatusRented || rt.VehicleID != asset.ID() || rt.AssetKind != asset.Kind() {
		return false, nil
	}
	active, err := tx.Rentals().ActiveForAsset(ctx, asset.Kind(), asset.ID())
	if errors.Is(err, repository.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return active.ID == rt.ID, nil
}

// requireGroup rejects an asset that is outside the vehicle class rt was reserved for.
func requireGroup(rt *domain.Rental, asset rentableAsset) error {
	if rt.InGroup(asset.Vehicle()) {
		return nil
	}
	return preconditionf("vehicle %d is not in group %s reserved by rental %d", asset.ID(), rt.VehicleGroupKey, rt.ID)
}
