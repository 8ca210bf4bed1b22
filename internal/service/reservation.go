package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

// CreateReservation holds a concrete vehicle (RENTED until check-in or cancellation) or
// records a group reservation that is resolved later without holding anything.
func (e *rentalEngine) CreateReservation(ctx context.Context, req ReservationRequest) ReservationResult {
	const method = "rentalEngine.CreateReservation"
	logger.EnterMethod(method, "shopID", req.ShopID, "vehicleID", req.VehicleID, "group", req.VehicleGroupKey)
	ctx, span := e.startSpan(ctx, "rental.create_reservation", attribute.Int("shop.id", int(req.ShopID)))

	if f := validateReservation(req); f != nil {
		finish(span, method, f, "shopID", req.ShopID)
		return ReservationResult{Outcome: failed(f)}
	}

	var rt *domain.Rental
	err := e.transact(ctx, false, func(ctx context.Context, tx repository.Tx) error {
		var err error
		rt, err = e.createReservation(ctx, tx, req)
		return err
	})
	if err != nil {
		f := asFailure(err)
		finish(span, method, f, "shopID", req.ShopID)
		return ReservationResult{Outcome: failed(f)}
	}

	e.publish(ctx, domain.RentalEventReserved, rt, rt.TotalAmount)
	finish(span, method, nil, "rentalID", rt.ID, "code", rt.ConfirmationCode)
	return ReservationResult{Outcome: ok("reservation created"), RentalID: rt.ID, ConfirmationCode: rt.ConfirmationCode}
}

func (e *rentalEngine) createReservation(ctx context.Context, tx repository.Tx, req ReservationRequest) (*domain.Rental, error) {
	rt := &domain.Rental{
		RentedFromShopID: req.ShopID,
		RenterID:         req.RenterID,
		VehicleGroupKey:  domain.NormaliseGroupKey(req.VehicleGroupKey),
		PreferredColor:   strings.TrimSpace(req.PreferredColor),
		DurationType:     req.DurationType,
		StartDate:        req.StartDate,
		ExpectedEndDate:  req.ExpectedEndDate,
		IntervalMinutes:  req.IntervalMinutes,
		RentalRate:       req.RentalRate,
		TotalAmount:      req.TotalAmount,
		Status:           domain.RentalStatusReserved,
		Notes:            req.Notes,
		BookingID:        req.BookingID,
		ConfirmationCode: e.codes.NewConfirmationCode(),
		CreatedBy:        req.StaffID,
	}
	if f := validateTerms(rt, e.loc); f != nil {
		return nil, f
	}

	if req.VehicleID == 0 {
		candidates, err := e.resolver.candidates(ctx, tx, rt)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, preconditionf("no vehicle available for group %s", rt.VehicleGroupKey)
		}
		if _, err := e.priceIfUnset(rt, &vehicleAsset{v: &candidates[0], auth: e.pools}); err != nil {
			return nil, err
		}
		if err := tx.Rentals().Create(ctx, rt); err != nil {
			return nil, err
		}
		return rt, nil
	}

	asset, err := e.rentableNow(ctx, tx, "", req.VehicleID, req.ShopID)
	if err != nil {
		return nil, err
	}
	rt.VehicleID = asset.ID()
	rt.AssetKind = asset.Kind()
	rt.VehiclePoolID = asset.PoolID()
	if _, err := e.priceIfUnset(rt, asset); err != nil {
		return nil, err
	}
	if err := tx.Rentals().Create(ctx, rt); err != nil {
		return nil, err
	}
	if err := asset.Hold(ctx, tx, nil); err != nil {
		return nil, err
	}
	return rt, nil
}

// AssignVehicleToReservation binds a group reservation to vehicleID, or to the best
// candidate of its group when vehicleID is nil. The vehicle is held from then on.
func (e *rentalEngine) AssignVehicleToReservation(ctx context.Context, rentalID int32, vehicleID *int32) AssignVehicleResult {
	const method = "rentalEngine.AssignVehicleToReservation"
	logger.EnterMethod(method, "rentalID", rentalID, "vehicleID", vehicleID)
	ctx, span := e.startSpan(ctx, "rental.assign_vehicle", attribute.Int("rental.id", int(rentalID)))

	var assigned *domain.Vehicle
	err := e.transact(ctx, vehicleID == nil, func(ctx context.Context, tx repository.Tx) error {
		rt, err := e.loadRental(ctx, tx, rentalID)
		if err != nil {
			return err
		}
		if g := domain.CanAssignVehicle(rt); !g.Allowed {
			return denied(g)
		}

		if vehicleID == nil {
			v, err := e.resolver.Resolve(ctx, tx, rt)
			if errors.Is(err, errNoVehicleAvailable) {
				return preconditionf("no vehicle available for group %s", rt.VehicleGroupKey)
			}
			if err != nil {
				return err
			}
			assigned = v
		} else {
			asset, err := e.rentableNow(ctx, tx, domain.AssetKindVehicle, *vehicleID, rt.RentedFromShopID)
			if err != nil {
				return err
			}
			if err := requireGroup(rt, asset); err != nil {
				return err
			}
			if err := asset.Hold(ctx, tx, nil); err != nil {
				return err
			}
			assigned = asset.Vehicle()
			assignVehicle(rt, assigned)
		}
		return tx.Rentals().Update(ctx, rt)
	})
	if err != nil {
		f := asFailure(err)
		finish(span, method, f, "rentalID", rentalID)
		return AssignVehicleResult{Outcome: failed(f)}
	}

	finish(span, method, nil, "rentalID", rentalID, "vehicleID", assigned.ID)
	return AssignVehicleResult{Outcome: ok("vehicle assigned"), Vehicle: assigned}
}

// rentableNow loads an asset that shopID may hand out right now: AVAILABLE, no ACTIVE
// rental and allowed at the shop.
func (e *rentalEngine) rentableNow(ctx context.Context, tx repository.Tx, kind domain.AssetKind, id, shopID int32) (rentableAsset, error) {
	asset, err := e.resolveAsset(ctx, tx, kind, id)
	if err != nil {
		return nil, err
	}
	if asset.Status() != domain.VehicleStatusAvailable {
		return nil, preconditionf("vehicle %d is not available (status: %s)", id, asset.Status())
	}
	active, err := tx.Rentals().ActiveForAsset(ctx, asset.Kind(), id)
	switch {
	case err == nil:
		return nil, preconditionf("vehicle %d already has active rental %d", id, active.ID)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	allowed, err := asset.CanRentAt(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, preconditionf("vehicle %d cannot be rented from shop %d", id, shopID)
	}
	return asset, nil
}
