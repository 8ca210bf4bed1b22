package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/logger"
	"motorent-backend/internal/repository"
)

// Cancel moves a rental to CANCELLED, refunds a held deposit and releases the vehicle
// when this rental is the one holding it. No settlement is computed.
func (e *rentalEngine) Cancel(ctx context.Context, rentalID, staffID int32, reason string) CancelResult {
	const method = "rentalEngine.Cancel"
	logger.EnterMethod(method, "rentalID", rentalID, "staffID", staffID)
	ctx, span := e.startSpan(ctx, "rental.cancel", attribute.Int("rental.id", int(rentalID)))

	var (
		rt       *domain.Rental
		refunded decimal.Decimal
	)
	err := e.transact(ctx, false, func(ctx context.Context, tx repository.Tx) error {
		var err error
		rt, err = e.loadRental(ctx, tx, rentalID)
		if err != nil {
			return err
		}
		if g := domain.CanCancel(rt); !g.Allowed {
			return denied(g)
		}

		var asset rentableAsset
		held := false
		if rt.VehicleID != 0 {
			asset, err = e.assetOf(ctx, tx, rt)
			if err != nil {
				return err
			}
			if held, err = e.heldBy(ctx, tx, asset, rt); err != nil {
				return err
			}
		}

		rt.Status = domain.RentalStatusCancelled
		if reason = strings.TrimSpace(reason); reason != "" {
			rt.Notes = strings.TrimSpace(rt.Notes + "\nCancelled: " + reason)
		}
		if err := tx.Rentals().Update(ctx, rt); err != nil {
			return err
		}

		if refunded, err = e.refundHeldDeposit(ctx, tx, rt, staffID); err != nil {
			return err
		}

		if held {
			return asset.Release(ctx, tx, currentShop(asset, rt), nil)
		}
		return nil
	})
	if err != nil {
		f := asFailure(err)
		finish(span, method, f, "rentalID", rentalID)
		return CancelResult{Outcome: failed(f)}
	}

	e.publish(ctx, domain.RentalEventCancelled, rt, refunded)
	finish(span, method, nil, "rentalID", rentalID, "refunded", refunded.String())
	return CancelResult{Outcome: ok("rental cancelled")}
}

func (e *rentalEngine) refundHeldDeposit(ctx context.Context, tx repository.Tx, rt *domain.Rental, staffID int32) (decimal.Decimal, error) {
	deposit, err := tx.Deposits().GetByRental(ctx, rt.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if deposit.Status != domain.DepositStatusHeld {
		return decimal.Zero, nil
	}

	resolved := e.now()
	deposit.Status = domain.DepositStatusRefunded
	deposit.RefundedAmount = deposit.Amount
	deposit.ResolvedOn = &resolved
	if err := tx.Deposits().Update(ctx, deposit); err != nil {
		return decimal.Zero, err
	}
	err = e.recordPayment(ctx, tx, rt, domain.PaymentTypeRefund, domain.Payment{
		Method:      string(deposit.Type),
		Reference:   deposit.Reference,
		Amount:      deposit.Amount,
		Description: "deposit refund on cancellation",
		RecordedBy:  staffID,
	})
	return deposit.Amount, err
}

// currentShop is where a released asset stays when nothing moved it.
func currentShop(asset rentableAsset, rt *domain.Rental) int32 {
	if v := asset.Vehicle(); v != nil {
		return v.CurrentShopID
	}
	return rt.RentedFromShopID
}

// Extend pushes the expected end of an ACTIVE daily rental forward. Every started 24 hours
// is charged as a full day at the rental's rate.
func (e *rentalEngine) Extend(ctx context.Context, rentalID int32, newEnd time.Time) ExtendResult {
	const method = "rentalEngine.Extend"
	logger.EnterMethod(method, "rentalID", rentalID, "newEnd", newEnd)
	ctx, span := e.startSpan(ctx, "rental.extend", attribute.Int("rental.id", int(rentalID)))

	if newEnd.IsZero() {
		f := validationf("new end date is required")
		finish(span, method, f, "rentalID", rentalID)
		return ExtendResult{Outcome: failed(f)}
	}

	var (
		rt  *domain.Rental
		res ExtendResult
	)
	err := e.transact(ctx, false, func(ctx context.Context, tx repository.Tx) error {
		var err error
		rt, err = e.loadRental(ctx, tx, rentalID)
		if err != nil {
			return err
		}
		if g := domain.CanExtend(rt, newEnd); !g.Allowed {
			return denied(g)
		}

		days := int32(math.Ceil(newEnd.Sub(rt.ExpectedEndDate).Hours() / 24))
		amount := rt.RentalRate.Mul(decimal.NewFromInt32(days))
		rt.ExpectedEndDate = newEnd
		rt.TotalAmount = rt.TotalAmount.Add(amount)
		if err := tx.Rentals().Update(ctx, rt); err != nil {
			return err
		}

		res = ExtendResult{AdditionalDays: days, AdditionalAmount: amount, NewTotal: rt.TotalAmount, NewEndDate: newEnd}
		return nil
	})
	if err != nil {
		f := asFailure(err)
		finish(span, method, f, "rentalID", rentalID)
		return ExtendResult{Outcome: failed(f)}
	}

	e.publish(ctx, domain.RentalEventExtended, rt, res.AdditionalAmount)
	res.Outcome = ok(fmt.Sprintf("rental extended by %d days", res.AdditionalDays))
	finish(span, method, nil, "rentalID", rentalID, "days", res.AdditionalDays)
	return res
}

// DeleteRental removes a RESERVED or CANCELLED rental and its dependent rows, releasing
// a reservation hold first.
func (e *rentalEngine) DeleteRental(ctx context.Context, rentalID int32) DeleteResult {
	const method = "rentalEngine.DeleteRental"
	logger.EnterMethod(method, "rentalID", rentalID)
	ctx, span := e.startSpan(ctx, "rental.delete", attribute.Int("rental.id", int(rentalID)))

	err := e.transact(ctx, false, func(ctx context.Context, tx repository.Tx) error {
		rt, err := e.loadRental(ctx, tx, rentalID)
		if err != nil {
			return err
		}
		if g := domain.CanDelete(rt); !g.Allowed {
			return denied(g)
		}

		if rt.Status == domain.RentalStatusReserved && rt.VehicleID != 0 {
			asset, err := e.assetOf(ctx, tx, rt)
			if err != nil {
				return err
			}
			held, err := e.heldBy(ctx, tx, asset, rt)
			if err != nil {
				return err
			}
			if held {
				if err := asset.Release(ctx, tx, currentShop(asset, rt), nil); err != nil {
					return err
				}
			}
		}
		return tx.Rentals().Delete(ctx, rt.ID, rt.Version)
	})
	if err != nil {
		f := asFailure(err)
		finish(span, method, f, "rentalID", rentalID)
		return DeleteResult{Outcome: failed(f)}
	}

	finish(span, method, nil, "rentalID", rentalID)
	return DeleteResult{Outcome: ok("rental deleted")}
}

// GetRental returns a rental with everything recorded against it.
func (e *rentalEngine) GetRental(ctx context.Context, rentalID int32) RentalDetails {
	const method = "rentalEngine.GetRental"
	logger.EnterMethod(method, "rentalID", rentalID)
	ctx, span := e.startSpan(ctx, "rental.get", attribute.Int("rental.id", int(rentalID)))

	var d RentalDetails
	err := e.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		rt, err := e.loadRental(ctx, tx, rentalID)
		if err != nil {
			return err
		}
		d = RentalDetails{Rental: rt}

		if d.Deposit, err = optional(tx.Deposits().GetByRental(ctx, rentalID)); err != nil {
			return err
		}
		if d.Agreement, err = optional(tx.Agreements().GetByRental(ctx, rentalID)); err != nil {
			return err
		}
		if d.OwnerPayment, err = optional(tx.OwnerPayments().GetByRental(ctx, rentalID)); err != nil {
			return err
		}
		if d.Payments, err = tx.Payments().ListByRental(ctx, rentalID); err != nil {
			return err
		}
		if d.Damages, err = tx.Damages().ListByRental(ctx, rentalID); err != nil {
			return err
		}
		d.Accessories, err = tx.Accessories().ListByRental(ctx, rentalID)
		return err
	})
	if err != nil {
		f := asFailure(err)
		finish(span, method, f, "rentalID", rentalID)
		return RentalDetails{Outcome: failed(f)}
	}

	d.Outcome = ok("")
	finish(span, method, nil, "rentalID", rentalID)
	return d
}

// optional turns ErrNotFound into a nil result.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
