package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type RentalStatus string

const (
	RentalStatusReserved  RentalStatus = "RESERVED"
	RentalStatusActive    RentalStatus = "ACTIVE"
	RentalStatusCompleted RentalStatus = "COMPLETED"
	RentalStatusCancelled RentalStatus = "CANCELLED"
)

type DurationType string

const (
	DurationTypeDaily         DurationType = "DAILY"
	DurationTypeFixedInterval DurationType = "FIXED_INTERVAL"
)

// AssetKind tells which table a rental's VehicleID points at.
type AssetKind string

const (
	AssetKindVehicle         AssetKind = "VEHICLE"
	AssetKindLegacyMotorbike AssetKind = "LEGACY_MOTORBIKE"
)

// AllowedIntervals are the only interval lengths, in minutes, a fixed-interval rental may use.
var AllowedIntervals = []int32{15, 30, 60}

func IsAllowedInterval(minutes int32) bool {
	for _, m := range AllowedIntervals {
		if m == minutes {
			return true
		}
	}
	return false
}

// Inspection is the vehicle condition snapshot taken at pickup and at return.
type Inspection struct {
	Mileage   *int32   `json:"mileage,omitempty"`
	FuelLevel string   `json:"fuel_level,omitempty"`
	Condition string   `json:"condition,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	PhotoRefs []string `json:"photo_refs,omitempty"`
}

// Value stores the snapshot as JSONB.
func (i Inspection) Value() (driver.Value, error) {
	return json.Marshal(i)
}

func (i *Inspection) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*i = Inspection{}
		return nil
	case []byte:
		return json.Unmarshal(v, i)
	case string:
		return json.Unmarshal([]byte(v), i)
	default:
		return errors.New("inspection: unsupported scan type")
	}
}

// Handover describes a pickup or dropoff arranged for the renter.
type Handover struct {
	Location      string          `json:"location"`
	Time          *time.Time      `json:"time,omitempty"`
	Fee           decimal.Decimal `json:"fee"`
	OutOfHours    bool            `json:"out_of_hours"`
	OutOfHoursFee decimal.Decimal `json:"out_of_hours_fee"`
}

type Rental struct {
	ID               int32  `json:"id"`
	RentedFromShopID int32  `json:"rented_from_shop_id"`
	ReturnedToShopID *int32 `json:"returned_to_shop_id,omitempty"`
	VehiclePoolID    *int32 `json:"vehicle_pool_id,omitempty"`
	RenterID         int32  `json:"renter_id"`
	// VehicleID is zero for a group reservation until a vehicle is assigned.
	VehicleID       int32     `json:"vehicle_id"`
	AssetKind       AssetKind `json:"asset_kind"`
	VehicleGroupKey string    `json:"vehicle_group_key,omitempty"`
	PreferredColor  string    `json:"preferred_color,omitempty"`

	DurationType    DurationType `json:"duration_type"`
	StartDate       time.Time    `json:"start_date"`
	ExpectedEndDate time.Time    `json:"expected_end_date"`
	ActualEndDate   *time.Time   `json:"actual_end_date,omitempty"`
	IntervalMinutes int32        `json:"interval_minutes,omitempty"`

	// Pricing snapshot, captured at check-in. Settlement never reads live vehicle prices.
	RentalRate      decimal.Decimal `json:"rental_rate"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	IncludesDriver  bool            `json:"includes_driver"`
	DriverFee       decimal.Decimal `json:"driver_fee"`
	IncludesGuide   bool            `json:"includes_guide"`
	GuideFee        decimal.Decimal `json:"guide_fee"`
	InsuranceID     *int32          `json:"insurance_id,omitempty"`
	InsuranceAmount decimal.Decimal `json:"insurance_amount"`
	Pickup          Handover        `json:"pickup"`
	Dropoff         Handover        `json:"dropoff"`

	StartMileage   *int32      `json:"start_mileage,omitempty"`
	EndMileage     *int32      `json:"end_mileage,omitempty"`
	PreInspection  Inspection  `json:"pre_inspection"`
	PostInspection *Inspection `json:"post_inspection,omitempty"`

	Status           RentalStatus `json:"status"`
	Notes            string       `json:"notes"`
	BookingID        *int32       `json:"booking_id,omitempty"`
	ConfirmationCode string       `json:"confirmation_code,omitempty"`
	CreatedBy        int32        `json:"created_by"`
	Version          int32        `json:"version"`
	CreatedOn        time.Time    `json:"created_on"`
	UpdatedOn        time.Time    `json:"updated_on"`
}

// IsGroupReservation reports whether the rental is still waiting for a concrete vehicle.
func (r *Rental) IsGroupReservation() bool {
	return r.VehicleID == 0 && r.VehicleGroupKey != ""
}

// InGroup reports whether v belongs to the vehicle class a group reservation asked for.
// Rentals that are not group reservations accept any vehicle.
func (r *Rental) InGroup(v *Vehicle) bool {
	if r.VehicleGroupKey == "" {
		return true
	}
	return v != nil && v.GroupKey() == NormaliseGroupKey(r.VehicleGroupKey)
}

// IsLegacy reports whether the rental points at a legacy motorbike record.
func (r *Rental) IsLegacy() bool {
	return r.AssetKind == AssetKindLegacyMotorbike
}

// RentalAccessory is one accessory (helmet, phone holder, ...) handed out with a rental.
type RentalAccessory struct {
	ID          int32           `json:"id"`
	RentalID    int32           `json:"rental_id"`
	AccessoryID int32           `json:"accessory_id"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	CreatedOn   time.Time       `json:"created_on"`
}

// RentalAgreement records the renter's signature on the rental terms.
type RentalAgreement struct {
	ID           int32     `json:"id"`
	RentalID     int32     `json:"rental_id"`
	SignatureRef string    `json:"signature_ref"`
	TermsVersion string    `json:"terms_version"`
	SignedOn     time.Time `json:"signed_on"`
}
