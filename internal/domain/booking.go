package domain

// Booking is the slice of an intake booking the engine reads.
type Booking struct {
	ID             int32  `json:"id"`
	IsAgentBooking bool   `json:"is_agent_booking"`
	AgentID        *int32 `json:"agent_id,omitempty"`
}

type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "PENDING"
	CommissionStatusEligible CommissionStatus = "ELIGIBLE"
	CommissionStatusPaid     CommissionStatus = "PAID"
)

type Commission struct {
	ID        int32            `json:"id"`
	BookingID int32            `json:"booking_id"`
	RentalID  *int32           `json:"rental_id,omitempty"`
	Status    CommissionStatus `json:"status"`
}

// CanBecomeEligible reports whether the commission is still waiting for its rental.
func (c *Commission) CanBecomeEligible() bool {
	return c.Status == CommissionStatusPending && c.RentalID == nil
}
