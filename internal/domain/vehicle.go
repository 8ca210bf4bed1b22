package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "AVAILABLE"
	VehicleStatusRented      VehicleStatus = "RENTED"
	VehicleStatusMaintenance VehicleStatus = "MAINTENANCE"
	VehicleStatusRetired     VehicleStatus = "RETIRED"
)

type OwnerPaymentModel string

const (
	OwnerPaymentModelDailyRate    OwnerPaymentModel = "DAILY_RATE"
	OwnerPaymentModelRevenueShare OwnerPaymentModel = "REVENUE_SHARE"
)

type Vehicle struct {
	ID            int32         `json:"id"`
	HomeShopID    int32         `json:"home_shop_id"`
	CurrentShopID int32         `json:"current_shop_id"`
	PoolID        *int32        `json:"pool_id,omitempty"`
	Status        VehicleStatus `json:"status"`

	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Year         int32  `json:"year"`
	VehicleType  string `json:"vehicle_type"`
	EngineCC     int32  `json:"engine_cc"`
	Color        string `json:"color"`
	LicensePlate string `json:"license_plate"`

	DailyRate     decimal.Decimal `json:"daily_rate"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	Mileage       int32           `json:"mileage"`
	TracksMileage bool            `json:"tracks_mileage"`

	IsThirdPartyOwned   bool              `json:"is_third_party_owned"`
	OwnerID             *int32            `json:"owner_id,omitempty"`
	OwnerPaymentModel   OwnerPaymentModel `json:"owner_payment_model,omitempty"`
	OwnerDailyRate      decimal.Decimal   `json:"owner_daily_rate"`
	OwnerRevenueSharePc decimal.Decimal   `json:"owner_revenue_share_percent"`

	Version   int32     `json:"version"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

// IsPooled reports whether the vehicle is shared across the shops of a pool.
func (v *Vehicle) IsPooled() bool {
	return v.PoolID != nil
}

// GroupKey identifies the vehicle class a group reservation asks for.
func (v *Vehicle) GroupKey() string {
	return BuildGroupKey(v.Brand, v.Model, v.Year, v.VehicleType, v.EngineCC)
}

// BuildGroupKey normalises the class attributes into brand|model|year|type|cc.
func BuildGroupKey(brand, model string, year int32, vehicleType string, engineCC int32) string {
	return fmt.Sprintf("%s|%s|%d|%s|%d",
		normaliseKeyPart(brand), normaliseKeyPart(model), year, normaliseKeyPart(vehicleType), engineCC)
}

// NormaliseGroupKey lower-cases and trims each part of a caller-supplied key.
func NormaliseGroupKey(key string) string {
	parts := strings.Split(key, "|")
	for i, p := range parts {
		parts[i] = normaliseKeyPart(p)
	}
	return strings.Join(parts, "|")
}

func normaliseKeyPart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LegacyMotorbike is the older rentable record kept for motorbikes registered before vehicles were pooled.
type LegacyMotorbike struct {
	ID           int32           `json:"id"`
	ShopID       int32           `json:"shop_id"`
	Status       VehicleStatus   `json:"status"`
	LicensePlate string          `json:"license_plate"`
	Mileage      int32           `json:"mileage"`
	DailyRate    decimal.Decimal `json:"daily_rate"`
	Version      int32           `json:"version"`
	CreatedOn    time.Time       `json:"created_on"`
	UpdatedOn    time.Time       `json:"updated_on"`
}

type VehiclePool struct {
	ID      int32   `json:"id"`
	Name    string  `json:"name"`
	ShopIDs []int32 `json:"shop_ids"`
}

// Contains reports whether shopID is a member of the pool.
func (p *VehiclePool) Contains(shopID int32) bool {
	for _, id := range p.ShopIDs {
		if id == shopID {
			return true
		}
	}
	return false
}

type Accessory struct {
	ID        int32           `json:"id"`
	ShopID    int32           `json:"shop_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
