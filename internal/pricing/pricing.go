package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"motorent-backend/internal/domain"
)

// Date represents a calendar date in a shop's local time zone
type Date struct {
	Year  int
	Month int
	Day   int
}

// DateOf returns the calendar date of t as seen in loc
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: int(m), Day: d}
}

// DaysBetween counts calendar days from a to b. It is negative when b is before a.
// Daylight-saving shifts do not affect the result.
func DaysBetween(a, b Date) int {
	ua := time.Date(a.Year, time.Month(a.Month), a.Day, 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year, time.Month(b.Month), b.Day, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// DateDiff is DaysBetween for two instants in the given zone
func DateDiff(from, to time.Time, loc *time.Location) int {
	return DaysBetween(DateOf(from, loc), DateOf(to, loc))
}

// SameDay reports whether a and b fall on the same calendar day in loc
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DateOf(a, loc) == DateOf(b, loc)
}

// QuoteRequest carries what the calculator needs to price one rental
type QuoteRequest struct {
	DurationType    domain.DurationType
	Start           time.Time
	End             time.Time
	IntervalMinutes int32
	DailyRate       decimal.Decimal
	HourlyRate      decimal.Decimal
	DriverFee       decimal.Decimal
	GuideFee        decimal.Decimal
	InsuranceAmount decimal.Decimal
	PickupFee       decimal.Decimal
	DropoffFee      decimal.Decimal
}

// Quote is a priced rental. Rate is per day for DAILY and per hour for FIXED_INTERVAL.
type Quote struct {
	Rate    decimal.Decimal
	Days    int32
	Base    decimal.Decimal
	Extras  decimal.Decimal
	Total   decimal.Decimal
	Deposit decimal.Decimal
}

// Calculator is the default pricing collaborator
type Calculator struct {
	loc         *time.Location
	depositDays decimal.Decimal
}

// NewCalculator creates a calculator whose deposit is depositDays times the daily rate
func NewCalculator(loc *time.Location, depositDays int) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{loc: loc, depositDays: decimal.NewFromInt(int64(depositDays))}
}

// Quote prices a daily or fixed-interval rental including extras
func (c *Calculator) Quote(req QuoteRequest) (Quote, error) {
	if req.DailyRate.IsNegative() || req.HourlyRate.IsNegative() {
		return Quote{}, fmt.Errorf("rates must not be negative")
	}

	var q Quote
	switch req.DurationType {
	case domain.DurationTypeDaily:
		if !req.End.After(req.Start) {
			return Quote{}, fmt.Errorf("end date must be after start date")
		}
		days := DateDiff(req.Start, req.End, c.loc)
		if days < 1 {
			days = 1
		}
		q.Days = int32(days)
		q.Rate = req.DailyRate
		q.Base = req.DailyRate.Mul(decimal.NewFromInt(int64(days)))

	case domain.DurationTypeFixedInterval:
		if !domain.IsAllowedInterval(req.IntervalMinutes) {
			return Quote{}, fmt.Errorf("interval must be one of %v minutes", domain.AllowedIntervals)
		}
		hourly := req.HourlyRate
		if hourly.IsZero() {
			hourly = req.DailyRate.Div(decimal.NewFromInt(24)).Round(2)
		}
		q.Rate = hourly
		q.Base = hourly.Mul(decimal.NewFromInt(int64(req.IntervalMinutes))).Div(decimal.NewFromInt(60)).Round(2)

	default:
		return Quote{}, fmt.Errorf("unknown duration type %q", req.DurationType)
	}

	q.Extras = req.DriverFee.Add(req.GuideFee).Add(req.InsuranceAmount).Add(req.PickupFee).Add(req.DropoffFee)
	q.Total = q.Base.Add(q.Extras)
	q.Deposit = req.DailyRate.Mul(c.depositDays)
	return q, nil
}
