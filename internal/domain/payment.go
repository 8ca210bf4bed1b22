package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentTypeRental     PaymentType = "RENTAL"
	PaymentTypeDeposit    PaymentType = "DEPOSIT"
	PaymentTypeAdditional PaymentType = "ADDITIONAL"
	PaymentTypeRefund     PaymentType = "REFUND"
)

// Payment is an append-only money movement tied to a rental. Rows are never updated.
type Payment struct {
	ID          int32           `json:"id"`
	RentalID    int32           `json:"rental_id"`
	ShopID      int32           `json:"shop_id"`
	Type        PaymentType     `json:"type"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	RecordedBy  int32           `json:"recorded_by"`
	CreatedOn   time.Time       `json:"created_on"`
}

type DepositType string

const (
	DepositTypeCash DepositType = "CASH"
	DepositTypeCard DepositType = "CARD"
)

type DepositStatus string

const (
	DepositStatusHeld      DepositStatus = "HELD"
	DepositStatusRefunded  DepositStatus = "REFUNDED"
	DepositStatusForfeited DepositStatus = "FORFEITED"
)

type Deposit struct {
	ID              int32           `json:"id"`
	RentalID        int32           `json:"rental_id"`
	Type            DepositType     `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Status          DepositStatus   `json:"status"`
	CollectedBy     int32           `json:"collected_by"`
	Reference       string          `json:"reference"`
	CollectedOn     time.Time       `json:"collected_on"`
	DeductedAmount  decimal.Decimal `json:"deducted_amount"`
	RefundedAmount  decimal.Decimal `json:"refunded_amount"`
	ResolvedOn      *time.Time      `json:"resolved_on,omitempty"`
	DeductionReason string          `json:"deduction_reason,omitempty"`
}

type DamageSeverity string

const (
	DamageSeverityMinor    DamageSeverity = "MINOR"
	DamageSeverityModerate DamageSeverity = "MODERATE"
	DamageSeverityMajor    DamageSeverity = "MAJOR"
)

func (s DamageSeverity) Valid() bool {
	switch s {
	case DamageSeverityMinor, DamageSeverityModerate, DamageSeverityMajor:
		return true
	}
	return false
}

type DamageReport struct {
	ID            int32           `json:"id"`
	RentalID      int32           `json:"rental_id"`
	VehicleID     int32           `json:"vehicle_id"`
	Description   string          `json:"description"`
	Severity      DamageSeverity  `json:"severity"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	Status        string          `json:"status"` // PENDING until repaired or written off
	ReportedBy    int32           `json:"reported_by"`
	CreatedOn     time.Time       `json:"created_on"`
}

const DamageStatusPending = "PENDING"

type OwnerPaymentStatus string

const (
	OwnerPaymentStatusPending OwnerPaymentStatus = "PENDING"
	OwnerPaymentStatusPaid    OwnerPaymentStatus = "PAID"
)

// OwnerPayment is what the shop owes a third-party vehicle owner for one completed rental.
type OwnerPayment struct {
	ID                  int32              `json:"id"`
	RentalID            int32              `json:"rental_id"`
	VehicleID           int32              `json:"vehicle_id"`
	OwnerID             int32              `json:"owner_id"`
	PaymentModel        OwnerPaymentModel  `json:"payment_model"`
	RentalDays          int32              `json:"rental_days"`
	BasisAmount         decimal.Decimal    `json:"basis_amount"`
	DailyRate           decimal.Decimal    `json:"daily_rate"`
	RevenueSharePercent decimal.Decimal    `json:"revenue_share_percent"`
	Amount              decimal.Decimal    `json:"amount"`
	Status              OwnerPaymentStatus `json:"status"`
	CreatedOn           time.Time          `json:"created_on"`
}
