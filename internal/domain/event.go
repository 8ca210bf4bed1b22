package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RentalEventType string

const (
	RentalEventCheckedIn RentalEventType = "rental.checked_in"
	RentalEventCompleted RentalEventType = "rental.completed"
	RentalEventCancelled RentalEventType = "rental.cancelled"
	RentalEventExtended  RentalEventType = "rental.extended"
	RentalEventReserved  RentalEventType = "rental.reserved"
	RentalEventOverdue   RentalEventType = "rental.overdue"
)

// RentalEvent is published after a lifecycle change has committed.
type RentalEvent struct {
	ID         string          `json:"id"`
	Type       RentalEventType `json:"type"`
	RentalID   int32           `json:"rental_id"`
	VehicleID  int32           `json:"vehicle_id,omitempty"`
	ShopID     int32           `json:"shop_id"`
	Status     RentalStatus    `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}
