package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"motorent-backend/internal/domain"
	"motorent-backend/internal/repository"
)

type FailureKind string

const (
	FailureValidation   FailureKind = "validation"
	FailurePrecondition FailureKind = "precondition"
	// FailureNotFound is a precondition failure where the referenced record does not exist.
	FailureNotFound FailureKind = "not_found"
	FailureConflict FailureKind = "conflict"
	FailureInternal FailureKind = "internal"
)

// Failure is an expected business failure carried as an error inside the engine and
// turned into a result value at its boundary.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

func validationf(format string, args ...interface{}) *Failure {
	return &Failure{Kind: FailureValidation, Message: fmt.Sprintf(format, args...)}
}

func preconditionf(format string, args ...interface{}) *Failure {
	return &Failure{Kind: FailurePrecondition, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...interface{}) *Failure {
	return &Failure{Kind: FailureNotFound, Message: fmt.Sprintf(format, args...)}
}

func denied(g domain.GuardResult) *Failure {
	return &Failure{Kind: FailurePrecondition, Message: g.Reason}
}

const conflictMessage = "the rental or vehicle was changed by another operation; retry with refreshed state"

// asFailure classifies any error leaving a write session.
func asFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, repository.ErrConflict) {
		return &Failure{Kind: FailureConflict, Message: conflictMessage, Err: err}
	}
	return &Failure{Kind: FailureInternal, Message: "internal error", Err: err}
}

// Outcome is embedded in every engine result.
type Outcome struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Kind    FailureKind `json:"kind,omitempty"`
}

func ok(message string) Outcome {
	return Outcome{Success: true, Message: message}
}

func failed(f *Failure) Outcome {
	return Outcome{Success: false, Message: f.Message, Kind: f.Kind}
}

type DepositTerms struct {
	Type      domain.DepositType `json:"type"`
	Amount    decimal.Decimal    `json:"amount"`
	Reference string             `json:"reference"`
}

type AccessorySelection struct {
	AccessoryID int32 `json:"accessory_id"`
	Quantity    int32 `json:"quantity"`
}

type CheckInRequest struct {
	ShopID        int32 `json:"shop_id"`
	RenterID      int32 `json:"renter_id"`
	StaffID       int32 `json:"staff_id"`
	VehicleID     int32 `json:"vehicle_id,omitempty"`
	ReservationID int32 `json:"reservation_id,omitempty"`

	DurationType    domain.DurationType `json:"duration_type"`
	StartDate       time.Time           `json:"start_date"`
	ExpectedEndDate time.Time           `json:"expected_end_date"`
	IntervalMinutes int32               `json:"interval_minutes,omitempty"`

	RentalRate      decimal.Decimal `json:"rental_rate"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	IncludesDriver  bool            `json:"includes_driver"`
	DriverFee       decimal.Decimal `json:"driver_fee"`
	IncludesGuide   bool            `json:"includes_guide"`
	GuideFee        decimal.Decimal `json:"guide_fee"`
	InsuranceID     *int32          `json:"insurance_id,omitempty"`
	InsuranceAmount decimal.Decimal `json:"insurance_amount"`
	Pickup          domain.Handover `json:"pickup"`
	Dropoff         domain.Handover `json:"dropoff"`

	Deposit          *DepositTerms        `json:"deposit,omitempty"`
	Accessories      []AccessorySelection `json:"accessories,omitempty"`
	SignatureRef     string               `json:"signature_ref,omitempty"`
	TermsVersion     string               `json:"terms_version,omitempty"`
	PaymentMethod    string               `json:"payment_method"`
	PaymentReference string               `json:"payment_reference,omitempty"`

	PreInspection domain.Inspection `json:"pre_inspection"`
	StartMileage  *int32            `json:"start_mileage,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	BookingID     *int32            `json:"booking_id,omitempty"`
}

type CheckInResult struct {
	Outcome
	RentalID  int32 `json:"rental_id,omitempty"`
	VehicleID int32 `json:"vehicle_id,omitempty"`
}

type DamageDeclaration struct {
	Description   string                `json:"description"`
	Severity      domain.DamageSeverity `json:"severity"`
	EstimatedCost decimal.Decimal       `json:"estimated_cost"`
}

type CheckOutRequest struct {
	RentalID          int32               `json:"rental_id"`
	StaffID           int32               `json:"staff_id"`
	ActualEndDate     *time.Time          `json:"actual_end_date,omitempty"`
	EndMileage        *int32              `json:"end_mileage,omitempty"`
	ReturnShopID      int32               `json:"return_shop_id,omitempty"`
	Damages           []DamageDeclaration `json:"damages,omitempty"`
	RefundDeposit     bool                `json:"refund_deposit"`
	DeductionOverride *decimal.Decimal    `json:"deduction_override,omitempty"`
	PostInspection    *domain.Inspection  `json:"post_inspection,omitempty"`
	PaymentMethod     string              `json:"payment_method"`
	PaymentReference  string              `json:"payment_reference,omitempty"`
}

type CheckOutResult struct {
	Outcome
	AdditionalCharges decimal.Decimal      `json:"additional_charges"`
	OverageCharge     decimal.Decimal      `json:"overage_charge"`
	DamageCharges     decimal.Decimal      `json:"damage_charges"`
	RefundAmount      decimal.Decimal      `json:"refund_amount"`
	ExtraDays         int32                `json:"extra_days"`
	OverMinutes       int32                `json:"over_minutes"`
	IsCrossShopReturn bool                 `json:"is_cross_shop_return"`
	DepositStatus     domain.DepositStatus `json:"deposit_status,omitempty"`
	OwnerPayout       *decimal.Decimal     `json:"owner_payout,omitempty"`
}

type CancelResult struct {
	Outcome
}

type ExtendResult struct {
	Outcome
	AdditionalDays   int32           `json:"additional_days"`
	AdditionalAmount decimal.Decimal `json:"additional_amount"`
	NewTotal         decimal.Decimal `json:"new_total"`
	NewEndDate       time.Time       `json:"new_end_date"`
}

type ReservationRequest struct {
	ShopID          int32               `json:"shop_id"`
	RenterID        int32               `json:"renter_id"`
	StaffID         int32               `json:"staff_id"`
	VehicleID       int32               `json:"vehicle_id,omitempty"`
	VehicleGroupKey string              `json:"vehicle_group_key,omitempty"`
	PreferredColor  string              `json:"preferred_color,omitempty"`
	DurationType    domain.DurationType `json:"duration_type"`
	StartDate       time.Time           `json:"start_date"`
	ExpectedEndDate time.Time           `json:"expected_end_date"`
	IntervalMinutes int32               `json:"interval_minutes,omitempty"`
	RentalRate      decimal.Decimal     `json:"rental_rate"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	Notes           string              `json:"notes,omitempty"`
	BookingID       *int32              `json:"booking_id,omitempty"`
}

type ReservationResult struct {
	Outcome
	RentalID         int32  `json:"rental_id,omitempty"`
	ConfirmationCode string `json:"confirmation_code,omitempty"`
}

type AssignVehicleResult struct {
	Outcome
	Vehicle *domain.Vehicle `json:"vehicle,omitempty"`
}

type DeleteResult struct {
	Outcome
}

type RentalDetails struct {
	Outcome
	Rental       *domain.Rental           `json:"rental,omitempty"`
	Deposit      *domain.Deposit          `json:"deposit,omitempty"`
	Payments     []domain.Payment         `json:"payments,omitempty"`
	Damages      []domain.DamageReport    `json:"damages,omitempty"`
	Accessories  []domain.RentalAccessory `json:"accessories,omitempty"`
	Agreement    *domain.RentalAgreement  `json:"agreement,omitempty"`
	OwnerPayment *domain.OwnerPayment     `json:"owner_payment,omitempty"`
}
