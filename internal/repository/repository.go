package repository

import (
	"context"
	"errors"
	"time"

	"motorent-backend/internal/domain"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a version-checked write lost a race with another writer.
	ErrConflict = errors.New("concurrent modification")
)

type RentalRepository interface {
	// Create inserts the rental, setting ID and Version.
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id int32) (*domain.Rental, error)
	// Update writes the rental only if its stored version still equals rental.Version,
	// then bumps rental.Version. A stale version yields ErrConflict.
	Update(ctx context.Context, rental *domain.Rental) error
	Delete(ctx context.Context, id, version int32) error
	// ActiveForAsset returns the ACTIVE rental holding the asset, or ErrNotFound.
	ActiveForAsset(ctx context.Context, kind domain.AssetKind, assetID int32) (*domain.Rental, error)
	ListReservedStartingBefore(ctx context.Context, cutoff time.Time) ([]domain.Rental, error)
	ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]domain.Rental, error)
}

type VehicleRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Vehicle, error)
	// ListAvailable returns AVAILABLE vehicles in ascending id order.
	ListAvailable(ctx context.Context) ([]domain.Vehicle, error)
	// UpdateStatus persists status, current shop and mileage only when the stored row is
	// still in status `from` at vehicle.Version. Otherwise ErrConflict.
	UpdateStatus(ctx context.Context, vehicle *domain.Vehicle, from domain.VehicleStatus) error
}

type MotorbikeRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.LegacyMotorbike, error)
	UpdateStatus(ctx context.Context, bike *domain.LegacyMotorbike, from domain.VehicleStatus) error
}

type DepositRepository interface {
	Create(ctx context.Context, deposit *domain.Deposit) error
	// GetByRental returns the rental's deposit, or ErrNotFound when none was taken.
	GetByRental(ctx context.Context, rentalID int32) (*domain.Deposit, error)
	Update(ctx context.Context, deposit *domain.Deposit) error
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	ListByRental(ctx context.Context, rentalID int32) ([]domain.Payment, error)
}

type AccessoryRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Accessory, error)
	AddToRental(ctx context.Context, item *domain.RentalAccessory) error
	ListByRental(ctx context.Context, rentalID int32) ([]domain.RentalAccessory, error)
}

type AgreementRepository interface {
	Create(ctx context.Context, agreement *domain.RentalAgreement) error
	GetByRental(ctx context.Context, rentalID int32) (*domain.RentalAgreement, error)
}

type DamageRepository interface {
	Create(ctx context.Context, report *domain.DamageReport) error
	ListByRental(ctx context.Context, rentalID int32) ([]domain.DamageReport, error)
}

type OwnerPaymentRepository interface {
	Create(ctx context.Context, payment *domain.OwnerPayment) error
	GetByRental(ctx context.Context, rentalID int32) (*domain.OwnerPayment, error)
}

// PoolRepository is read-only: pools are administered outside the rental engine.
type PoolRepository interface {
	GetPoolByID(ctx context.Context, id int32) (*domain.VehiclePool, error)
}

type BookingRepository interface {
	GetBookingByID(ctx context.Context, id int32) (*domain.Booking, error)
}

type CommissionRepository interface {
	GetCommissionByBooking(ctx context.Context, bookingID int32) (*domain.Commission, error)
	// MakeEligible links the commission to the rental and flips it to ELIGIBLE.
	// It reports false when the commission was already linked or no longer PENDING.
	MakeEligible(ctx context.Context, commissionID, rentalID int32) (bool, error)
}

// Tx exposes the repositories bound to one write session.
type Tx interface {
	Rentals() RentalRepository
	Vehicles() VehicleRepository
	Motorbikes() MotorbikeRepository
	Deposits() DepositRepository
	Payments() PaymentRepository
	Accessories() AccessoryRepository
	Agreements() AgreementRepository
	Damages() DamageRepository
	OwnerPayments() OwnerPaymentRepository
}

// UnitOfWork runs fn inside one transaction: commit when fn returns nil, rollback otherwise.
// Conflicts detected at commit surface as ErrConflict.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
