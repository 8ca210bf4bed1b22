package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

func (e *rentalEngine) CheckOut(ctx context.Context, req CheckOutRequest) CheckOutResult {
	const method = "rentalEngine.CheckOut"
	logger.EnterMethod(method, "rentalID", req.RentalID, "returnShopID", req.ReturnShopID)
	ctx, span := e.startSpan(ctx, "rental.check_out", attribute.Int("rental.id", int(req.RentalID)))

	if f := validateCheckOut(req); f != nil {
		finish(span, method, f, "rentalID", req.RentalID)
		return CheckOutResult{Outcome: failed(f)}
	}

	var (
		rt  *domain.Rental
		res CheckOutResult
	)
	err := e.transact(ctx, false, func(ctx context.Context, tx repository.Tx) error {
		var err error
		res = CheckOutResult{}
		rt, err = e.checkOut(ctx, tx, req, &res)
		return err
	})
	if err != nil {
		f := asFailure(err)
		finish(span, method, f, "rentalID", req.RentalID)
		return CheckOutResult{Outcome: failed(f)}
	}

	e.makeCommissionEligible(ctx, rt)
	e.publish(ctx, domain.RentalEventCompleted, rt, res.AdditionalCharges)

	res.Outcome = ok("rental checked out")
	if res.IsCrossShopReturn {
		res.Message = fmt.Sprintf("rental checked out, returned to shop %d", *rt.ReturnedToShopID)
	}
	finish(span, method, nil, "rentalID", rt.ID, "additional", res.AdditionalCharges.String(), "refund", res.RefundAmount.String())
	return res
}

func (e *rentalEngine) checkOut(ctx context.Context, tx repository.Tx, req CheckOutRequest, res *CheckOutResult) (*domain.Rental, error) {
	rt, err := e.loadRental(ctx, tx, req.RentalID)
	if err != nil {
		return nil, err
	}
	if g := domain.CanCheckOut(rt); !g.Allowed {
		return nil, denied(g)
	}
	asset, err := e.assetOf(ctx, tx, rt)
	if err != nil {
		return nil, err
	}

	returnShop := req.ReturnShopID
	if returnShop == 0 {
		returnShop = rt.RentedFromShopID
	}
	allowed, err := asset.CanReturnTo(ctx, rt, returnShop)
	if err != nil {
		return nil, err
	}
	if !allowed {
		if asset.PoolID() != nil {
			return nil, preconditionf("vehicle %d cannot be returned to shop %d: shop is not in its pool", asset.ID(), returnShop)
		}
		return nil, preconditionf("vehicle %d must be returned to shop %d", asset.ID(), rt.RentedFromShopID)
	}

	actualEnd := e.now()
	if req.ActualEndDate != nil {
		actualEnd = *req.ActualEndDate
	}
	if actualEnd.Before(rt.StartDate) {
		return nil, validationf("actual end date is before the rental start")
	}
	if req.EndMileage != nil && rt.StartMileage != nil && *req.EndMileage < *rt.StartMileage {
		return nil, validationf("end mileage %d is below start mileage %d", *req.EndMileage, *rt.StartMileage)
	}

	overage := CalculateOverage(rt, actualEnd, e.loc)
	damage := decimal.Zero
	for _, d := range req.Damages {
		damage = damage.Add(d.EstimatedCost)
	}
	additional := overage.Charge.Add(damage)

	res.OverageCharge = overage.Charge
	res.ExtraDays = overage.ExtraDays
	res.OverMinutes = overage.OverMinutes
	res.DamageCharges = damage
	res.AdditionalCharges = additional
	res.RefundAmount = decimal.Zero
	res.IsCrossShopReturn = returnShop != rt.RentedFromShopID

	rt.ActualEndDate = &actualEnd
	rt.ReturnedToShopID = &returnShop
	rt.EndMileage = req.EndMileage
	rt.PostInspection = req.PostInspection
	rt.Status = domain.RentalStatusCompleted
	if err := tx.Rentals().Update(ctx, rt); err != nil {
		return nil, err
	}

	refund, err := e.settleDeposit(ctx, tx, rt, overage.Charge, damage, req, res)
	if err != nil {
		return nil, err
	}

	for _, d := range req.Damages {
		report := &domain.DamageReport{
			RentalID:      rt.ID,
			VehicleID:     rt.VehicleID,
			Description:   d.Description,
			Severity:      d.Severity,
			EstimatedCost: d.EstimatedCost,
			Status:        domain.DamageStatusPending,
			ReportedBy:    req.StaffID,
		}
		if err := tx.Damages().Create(ctx, report); err != nil {
			return nil, err
		}
	}

	if asset.Status() == domain.VehicleStatusRented {
		if err := asset.Release(ctx, tx, returnShop, req.EndMileage); err != nil {
			return nil, err
		}
	} else {
		logger.WarnContext(ctx, "returned vehicle was not marked rented, leaving status", "rentalID", rt.ID, "vehicleID", asset.ID(), "status", asset.Status())
	}

	if err := e.recordPayment(ctx, tx, rt, domain.PaymentTypeAdditional, domain.Payment{
		ShopID:      returnShop,
		Method:      req.PaymentMethod,
		Reference:   req.PaymentReference,
		Amount:      additional,
		Description: additionalDescription(overage, damage),
		RecordedBy:  req.StaffID,
	}); err != nil {
		return nil, err
	}
	if err := e.recordPayment(ctx, tx, rt, domain.PaymentTypeRefund, domain.Payment{
		ShopID:      returnShop,
		Method:      req.PaymentMethod,
		Amount:      refund,
		Description: "deposit refund",
		RecordedBy:  req.StaffID,
	}); err != nil {
		return nil, err
	}

	if payout := CalculateOwnerPayout(asset.Vehicle(), rt, actualEnd, additional, e.loc); payout != nil {
		if err := tx.OwnerPayments().Create(ctx, payout); err != nil {
			return nil, err
		}
		amount := payout.Amount
		res.OwnerPayout = &amount
	}
	return rt, nil
}

// settleDeposit resolves a HELD deposit and returns the amount handed back.
func (e *rentalEngine) settleDeposit(ctx context.Context, tx repository.Tx, rt *domain.Rental, overage, damage decimal.Decimal, req CheckOutRequest, res *CheckOutResult) (decimal.Decimal, error) {
	deposit, err := tx.Deposits().GetByRental(ctx, rt.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if deposit.Status != domain.DepositStatusHeld {
		res.DepositStatus = deposit.Status
		return decimal.Zero, nil
	}

	s := SettleDeposit(deposit.Amount, overage, damage, req.DeductionOverride, req.RefundDeposit)
	deposit.Status = s.Status
	deposit.DeductedAmount = decimal.Min(s.Deductions, deposit.Amount)
	deposit.RefundedAmount = s.Refund
	if s.Status != domain.DepositStatusHeld {
		resolved := e.now()
		deposit.ResolvedOn = &resolved
	}
	if s.Deductions.IsPositive() {
		deposit.DeductionReason = deductionReason(overage, damage, req.DeductionOverride)
	}
	if err := tx.Deposits().Update(ctx, deposit); err != nil {
		return decimal.Zero, err
	}

	res.DepositStatus = s.Status
	res.RefundAmount = s.Refund
	return s.Refund, nil
}

func additionalDescription(o Overage, damage decimal.Decimal) string {
	switch {
	case o.Charge.IsPositive() && damage.IsPositive():
		return "late return and damages"
	case damage.IsPositive():
		return "damages"
	case o.OverMinutes > 0:
		return fmt.Sprintf("late return, %d minutes", o.OverMinutes)
	default:
		return fmt.Sprintf("late return, %d days", o.ExtraDays)
	}
}

func deductionReason(overage, damage decimal.Decimal, override *decimal.Decimal) string {
	if override != nil {
		return "manual deduction"
	}
	return fmt.Sprintf("overage %s, damages %s", overage.StringFixed(2), damage.StringFixed(2))
}

