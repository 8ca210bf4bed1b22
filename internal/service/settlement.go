package service

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/pricing"
)

var hundred = decimal.NewFromInt(100)

// Overage is what a late return costs. Exactly one of ExtraDays/OverMinutes is set.
type Overage struct {
	ExtraDays   int32
	OverMinutes int32
	Charge      decimal.Decimal
}

// CalculateOverage prices a late return. DAILY rentals count whole calendar days past the
// expected end in loc; FIXED_INTERVAL rentals count started minutes past the expected end.
func CalculateOverage(rt *domain.Rental, actualEnd time.Time, loc *time.Location) Overage {
	switch rt.DurationType {
	case domain.DurationTypeFixedInterval:
		expected := rt.ExpectedEndDate
		if expected.IsZero() {
			expected = rt.StartDate.Add(time.Duration(rt.IntervalMinutes) * time.Minute)
		}
		if !actualEnd.After(expected) {
			return Overage{Charge: decimal.Zero}
		}
		minutes := int32(math.Ceil(actualEnd.Sub(expected).Minutes()))
		charge := rt.RentalRate.Mul(decimal.NewFromInt32(minutes)).Div(decimal.NewFromInt(60)).Round(2)
		return Overage{OverMinutes: minutes, Charge: charge}
	default:
		days := pricing.DateDiff(rt.ExpectedEndDate, actualEnd, loc)
		if days <= 0 {
			return Overage{Charge: decimal.Zero}
		}
		return Overage{ExtraDays: int32(days), Charge: rt.RentalRate.Mul(decimal.NewFromInt(int64(days)))}
	}
}

// DepositSettlement is the disposition of a HELD deposit at check-out.
type DepositSettlement struct {
	Deductions decimal.Decimal
	Refund     decimal.Decimal
	Status     domain.DepositStatus
}

// SettleDeposit applies deductions (override when given, else overage plus damage) to the
// deposit. Refund is what actually goes back to the renter, zero unless refundRequested.
func SettleDeposit(deposit, overage, damage decimal.Decimal, override *decimal.Decimal, refundRequested bool) DepositSettlement {
	deductions := overage.Add(damage)
	if override != nil {
		deductions = *override
	}
	refundable := deposit.Sub(deductions)
	if refundable.IsNegative() {
		refundable = decimal.Zero
	}

	s := DepositSettlement{Deductions: deductions, Refund: decimal.Zero, Status: domain.DepositStatusHeld}
	switch {
	case refundable.IsPositive() && refundRequested:
		s.Refund = refundable
		s.Status = domain.DepositStatusRefunded
	case deductions.GreaterThanOrEqual(deposit):
		s.Status = domain.DepositStatusForfeited
	}
	return s
}

// CalculateOwnerPayout returns the owner payment for a third-party vehicle, or nil when the
// vehicle is shop-owned. additional is the check-out's extra charges.
func CalculateOwnerPayout(v *domain.Vehicle, rt *domain.Rental, actualEnd time.Time, additional decimal.Decimal, loc *time.Location) *domain.OwnerPayment {
	if v == nil || !v.IsThirdPartyOwned || v.OwnerID == nil {
		return nil
	}

	days := pricing.DateDiff(rt.StartDate, actualEnd, loc)
	if days < 1 {
		days = 1
	}
	nDays := decimal.NewFromInt(int64(days))

	p := &domain.OwnerPayment{
		RentalID:     rt.ID,
		VehicleID:    v.ID,
		OwnerID:      *v.OwnerID,
		PaymentModel: v.OwnerPaymentModel,
		RentalDays:   int32(days),
		Status:       domain.OwnerPaymentStatusPending,
	}
	switch v.OwnerPaymentModel {
	case domain.OwnerPaymentModelRevenueShare:
		gross := rt.RentalRate.Mul(nDays)
		p.BasisAmount = gross
		p.RevenueSharePercent = v.OwnerRevenueSharePc
		p.Amount = gross.Mul(v.OwnerRevenueSharePc).Div(hundred).Round(2)
	default:
		p.PaymentModel = domain.OwnerPaymentModelDailyRate
		p.BasisAmount = rt.TotalAmount.Add(additional)
		p.DailyRate = v.OwnerDailyRate
		p.Amount = v.OwnerDailyRate.Mul(nDays)
	}
	return p
}
