package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/pricing"
	"motorent-backend/internal/repository"
)

func (e *rentalEngine) CheckIn(ctx context.Context, req CheckInRequest) CheckInResult {
	const method = "rentalEngine.CheckIn"
	logger.EnterMethod(method, "shopID", req.ShopID, "vehicleID", req.VehicleID, "reservationID", req.ReservationID)
	ctx, span := e.startSpan(ctx, "rental.check_in",
		attribute.Int("shop.id", int(req.ShopID)),
		attribute.Int("vehicle.id", int(req.VehicleID)),
		attribute.Int("reservation.id", int(req.ReservationID)))

	if f := validateCheckIn(req); f != nil {
		finish(span, method, f, "shopID", req.ShopID)
		return CheckInResult{Outcome: failed(f)}
	}

	var rt *domain.Rental
	err := e.transact(ctx, req.ReservationID != 0, func(ctx context.Context, tx repository.Tx) error {
		var err error
		rt, err = e.checkIn(ctx, tx, req)
		return err
	})
	if err != nil {
		f := asFailure(err)
		finish(span, method, f, "shopID", req.ShopID, "vehicleID", req.VehicleID)
		return CheckInResult{Outcome: failed(f)}
	}

	e.publish(ctx, domain.RentalEventCheckedIn, rt, rt.TotalAmount)
	span.SetAttributes(attribute.Int("rental.id", int(rt.ID)))
	finish(span, method, nil, "rentalID", rt.ID, "vehicleID", rt.VehicleID)
	return CheckInResult{Outcome: ok("rental checked in"), RentalID: rt.ID, VehicleID: rt.VehicleID}
}

func (e *rentalEngine) checkIn(ctx context.Context, tx repository.Tx, req CheckInRequest) (*domain.Rental, error) {
	rt, err := e.rentalForCheckIn(ctx, tx, req)
	if err != nil {
		return nil, err
	}
	if f := validateTerms(rt, e.loc); f != nil {
		return nil, f
	}

	asset, flipped, err := e.assetForCheckIn(ctx, tx, rt, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if g := domain.CanCheckIn(rt); !g.Allowed {
		return nil, denied(g)
	}

	active, err := tx.Rentals().ActiveForAsset(ctx, asset.Kind(), asset.ID())
	switch {
	case err == nil && active.ID != rt.ID:
		return nil, preconditionf("vehicle %d already has active rental %d", asset.ID(), active.ID)
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	allowed, err := asset.CanRentAt(ctx, rt.RentedFromShopID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		if asset.PoolID() != nil {
			return nil, preconditionf("vehicle %d is not in a pool shared with shop %d", asset.ID(), rt.RentedFromShopID)
		}
		return nil, preconditionf("vehicle %d can only be rented from its home shop", asset.ID())
	}

	quotedDeposit, err := e.priceIfUnset(rt, asset)
	if err != nil {
		return nil, err
	}
	depositTerms := req.Deposit
	if depositTerms == nil && quotedDeposit.IsPositive() {
		depositTerms = &DepositTerms{Type: domain.DepositTypeCash, Amount: quotedDeposit}
	}

	rt.Status = domain.RentalStatusActive
	rt.StartMileage = req.StartMileage
	rt.PreInspection = req.PreInspection
	if rt.ID == 0 {
		err = tx.Rentals().Create(ctx, rt)
	} else {
		err = tx.Rentals().Update(ctx, rt)
	}
	if err != nil {
		return nil, err
	}

	if d := depositTerms; d != nil && d.Amount.IsPositive() {
		deposit := &domain.Deposit{
			RentalID:    rt.ID,
			Type:        d.Type,
			Amount:      d.Amount,
			Status:      domain.DepositStatusHeld,
			CollectedBy: req.StaffID,
			Reference:   d.Reference,
			CollectedOn: e.now(),
		}
		if err := tx.Deposits().Create(ctx, deposit); err != nil {
			return nil, err
		}
	}

	if asset.Vehicle() != nil {
		if err := e.attachExtras(ctx, tx, rt, req); err != nil {
			return nil, err
		}
	} else if len(req.Accessories) > 0 || req.SignatureRef != "" {
		logger.DebugContext(ctx, "legacy motorbike rental, skipping accessories and agreement", "rentalID", rt.ID)
	}

	if !flipped || req.StartMileage != nil {
		if err := asset.Hold(ctx, tx, req.StartMileage); err != nil {
			return nil, err
		}
	}

	if err := e.recordPayment(ctx, tx, rt, domain.PaymentTypeRental, domain.Payment{
		Method:      req.PaymentMethod,
		Reference:   req.PaymentReference,
		Amount:      rt.TotalAmount,
		Description: "rental payment",
		RecordedBy:  req.StaffID,
	}); err != nil {
		return nil, err
	}
	if d := depositTerms; d != nil {
		if err := e.recordPayment(ctx, tx, rt, domain.PaymentTypeDeposit, domain.Payment{
			Method:      string(d.Type),
			Reference:   d.Reference,
			Amount:      d.Amount,
			Description: "deposit collected",
			RecordedBy:  req.StaffID,
		}); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// rentalForCheckIn loads the reservation being checked in, or builds a new walk-in rental.
func (e *rentalEngine) rentalForCheckIn(ctx context.Context, tx repository.Tx, req CheckInRequest) (*domain.Rental, error) {
	if req.ReservationID == 0 {
		return &domain.Rental{
			RentedFromShopID: req.ShopID,
			RenterID:         req.RenterID,
			DurationType:     req.DurationType,
			StartDate:        req.StartDate,
			ExpectedEndDate:  req.ExpectedEndDate,
			IntervalMinutes:  req.IntervalMinutes,
			RentalRate:       req.RentalRate,
			TotalAmount:      req.TotalAmount,
			IncludesDriver:   req.IncludesDriver,
			DriverFee:        req.DriverFee,
			IncludesGuide:    req.IncludesGuide,
			GuideFee:         req.GuideFee,
			InsuranceID:      req.InsuranceID,
			InsuranceAmount:  req.InsuranceAmount,
			Pickup:           req.Pickup,
			Dropoff:          req.Dropoff,
			Notes:            req.Notes,
			BookingID:        req.BookingID,
			CreatedBy:        req.StaffID,
		}, nil
	}

	rt, err := e.loadRental(ctx, tx, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if rt.Status != domain.RentalStatusReserved {
		return nil, preconditionf("rental %d is not a reservation (status: %s)", rt.ID, rt.Status)
	}
	if req.VehicleID != 0 && rt.VehicleID != 0 && req.VehicleID != rt.VehicleID {
		return nil, preconditionf("reservation %d holds vehicle %d, not %d", rt.ID, rt.VehicleID, req.VehicleID)
	}
	if !req.RentalRate.IsZero() {
		rt.RentalRate = req.RentalRate
	}
	if !req.TotalAmount.IsZero() {
		rt.TotalAmount = req.TotalAmount
	}
	rt.IncludesDriver = req.IncludesDriver
	rt.DriverFee = req.DriverFee
	rt.IncludesGuide = req.IncludesGuide
	rt.GuideFee = req.GuideFee
	rt.InsuranceID = req.InsuranceID
	rt.InsuranceAmount = req.InsuranceAmount
	rt.Pickup = req.Pickup
	rt.Dropoff = req.Dropoff
	if req.Notes != "" {
		rt.Notes = req.Notes
	}
	if req.BookingID != nil {
		rt.BookingID = req.BookingID
	}
	return rt, nil
}

// assetForCheckIn resolves the asset to hand over. flipped is true when the asset is
// already RENTED for this rental, either by the reservation hold or by group resolution.
func (e *rentalEngine) assetForCheckIn(ctx context.Context, tx repository.Tx, rt *domain.Rental, requested int32) (rentableAsset, bool, error) {
	if rt.VehicleID == 0 && requested == 0 {
		if !rt.IsGroupReservation() {
			return nil, false, preconditionf("rental %d has no vehicle assigned", rt.ID)
		}
		v, err := e.resolver.Resolve(ctx, tx, rt)
		if errors.Is(err, errNoVehicleAvailable) {
			return nil, false, preconditionf("no vehicle available for group %s", rt.VehicleGroupKey)
		}
		if err != nil {
			return nil, false, err
		}
		logger.InfoContext(ctx, "group reservation resolved", "rentalID", rt.ID, "vehicleID", v.ID)
		return &vehicleAsset{v: v, auth: e.pools}, true, nil
	}

	if rt.VehicleID != 0 {
		asset, err := e.assetOf(ctx, tx, rt)
		if err != nil {
			return nil, false, err
		}
		held, err := e.heldBy(ctx, tx, asset, rt)
		if err != nil {
			return nil, false, err
		}
		if !held && asset.Status() != domain.VehicleStatusAvailable {
			return nil, false, preconditionf("vehicle %d is not available (status: %s)", asset.ID(), asset.Status())
		}
		return asset, held, nil
	}

	asset, err := e.resolveAsset(ctx, tx, "", requested)
	if err != nil {
		return nil, false, err
	}
	if err := requireGroup(rt, asset); err != nil {
		return nil, false, err
	}
	if asset.Status() != domain.VehicleStatusAvailable {
		return nil, false, preconditionf("vehicle %d is not available (status: %s)", asset.ID(), asset.Status())
	}
	rt.VehicleID = asset.ID()
	rt.AssetKind = asset.Kind()
	rt.VehiclePoolID = asset.PoolID()
	return asset, false, nil
}

func (e *rentalEngine) attachExtras(ctx context.Context, tx repository.Tx, rt *domain.Rental, req CheckInRequest) error {
	for _, sel := range req.Accessories {
		acc, err := tx.Accessories().GetByID(ctx, sel.AccessoryID)
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundf("accessory %d not found", sel.AccessoryID)
		}
		if err != nil {
			return err
		}
		item := &domain.RentalAccessory{
			RentalID:    rt.ID,
			AccessoryID: acc.ID,
			Quantity:    sel.Quantity,
			UnitPrice:   acc.UnitPrice,
		}
		if err := tx.Accessories().AddToRental(ctx, item); err != nil {
			return err
		}
	}

	if req.SignatureRef == "" {
		return nil
	}
	terms := req.TermsVersion
	if terms == "" {
		terms = e.terms
	}
	return tx.Agreements().Create(ctx, &domain.RentalAgreement{
		RentalID:     rt.ID,
		SignatureRef: req.SignatureRef,
		TermsVersion: terms,
		SignedOn:     e.now(),
	})
}

// priceIfUnset asks the pricing collaborator for a rate and total when the caller gave
// neither. It returns the quoted deposit, zero when nothing was priced.
func (e *rentalEngine) priceIfUnset(rt *domain.Rental, asset rentableAsset) (decimal.Decimal, error) {
	if e.pricing == nil || !rt.RentalRate.IsZero() || !rt.TotalAmount.IsZero() {
		return decimal.Zero, nil
	}
	q, err := e.pricing.Quote(pricing.QuoteRequest{
		DurationType:    rt.DurationType,
		Start:           rt.StartDate,
		End:             rt.ExpectedEndDate,
		IntervalMinutes: rt.IntervalMinutes,
		DailyRate:       asset.DailyRate(),
		HourlyRate:      asset.HourlyRate(),
		DriverFee:       rt.DriverFee,
		GuideFee:        rt.GuideFee,
		InsuranceAmount: rt.InsuranceAmount,
		PickupFee:       rt.Pickup.Fee.Add(rt.Pickup.OutOfHoursFee),
		DropoffFee:      rt.Dropoff.Fee.Add(rt.Dropoff.OutOfHoursFee),
	})
	if err != nil {
		return decimal.Zero, validationf("price rental: %v", err)
	}
	rt.RentalRate = q.Rate
	rt.TotalAmount = q.Total
	return q.Deposit, nil
}
