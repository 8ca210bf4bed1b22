package service

import (
	"time"

	"github.com/shopspring/decimal"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/pricing"
)

// validateTerms checks the duration model of a rental and fills in the end of a
// fixed-interval rental when it was left empty.
func validateTerms(rt *domain.Rental, loc *time.Location) *Failure {
	if rt.StartDate.IsZero() {
		return validationf("start date is required")
	}
	switch rt.DurationType {
	case domain.DurationTypeDaily:
		if !rt.ExpectedEndDate.After(rt.StartDate) {
			return validationf("expected end date must be after start date")
		}
	case domain.DurationTypeFixedInterval:
		if !domain.IsAllowedInterval(rt.IntervalMinutes) {
			return validationf("interval must be one of %v minutes", domain.AllowedIntervals)
		}
		due := rt.StartDate.Add(time.Duration(rt.IntervalMinutes) * time.Minute)
		if rt.ExpectedEndDate.IsZero() {
			rt.ExpectedEndDate = due
		}
		if !rt.ExpectedEndDate.Equal(due) {
			return validationf("a %d-minute rental must end at %s", rt.IntervalMinutes, due.Format(time.RFC3339))
		}
		if !pricing.SameDay(rt.StartDate, rt.ExpectedEndDate, loc) {
			return validationf("fixed-interval rentals must start and end on the same day")
		}
	default:
		return validationf("unknown duration type %q", rt.DurationType)
	}
	return nil
}

func nonNegative(name string, amounts ...decimal.Decimal) *Failure {
	for _, a := range amounts {
		if a.IsNegative() {
			return validationf("%s must not be negative", name)
		}
	}
	return nil
}

func validateCheckIn(req CheckInRequest) *Failure {
	if req.ShopID == 0 {
		return validationf("shop is required")
	}
	if req.VehicleID == 0 && req.ReservationID == 0 {
		return validationf("either a vehicle or a reservation is required")
	}
	if req.ReservationID == 0 && req.RenterID == 0 {
		return validationf("renter is required")
	}
	if f := nonNegative("amounts", req.RentalRate, req.TotalAmount, req.DriverFee, req.GuideFee,
		req.InsuranceAmount, req.Pickup.Fee, req.Pickup.OutOfHoursFee, req.Dropoff.Fee, req.Dropoff.OutOfHoursFee); f != nil {
		return f
	}
	if d := req.Deposit; d != nil {
		if d.Amount.IsNegative() {
			return validationf("deposit amount must not be negative")
		}
		if d.Type != domain.DepositTypeCash && d.Type != domain.DepositTypeCard {
			return validationf("unknown deposit type %q", d.Type)
		}
	}
	for _, a := range req.Accessories {
		if a.AccessoryID == 0 || a.Quantity <= 0 {
			return validationf("accessory selections need an accessory and a positive quantity")
		}
	}
	if req.StartMileage != nil && *req.StartMileage < 0 {
		return validationf("start mileage must not be negative")
	}
	return nil
}

func validateCheckOut(req CheckOutRequest) *Failure {
	if req.RentalID == 0 {
		return validationf("rental is required")
	}
	for _, d := range req.Damages {
		if !d.Severity.Valid() {
			return validationf("unknown damage severity %q", d.Severity)
		}
		if d.EstimatedCost.IsNegative() {
			return validationf("damage cost must not be negative")
		}
	}
	if req.DeductionOverride != nil && req.DeductionOverride.IsNegative() {
		return validationf("deduction override must not be negative")
	}
	if req.EndMileage != nil && *req.EndMileage < 0 {
		return validationf("end mileage must not be negative")
	}
	return nil
}

func validateReservation(req ReservationRequest) *Failure {
	if req.ShopID == 0 || req.RenterID == 0 {
		return validationf("shop and renter are required")
	}
	if (req.VehicleID == 0) == (req.VehicleGroupKey == "") {
		return validationf("exactly one of vehicle or vehicle group is required")
	}
	return nonNegative("amounts", req.RentalRate, req.TotalAmount)
}
