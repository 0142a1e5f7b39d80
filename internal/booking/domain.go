// Package booking turns raw reservation payloads into canonical bookings.
package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// Raw is an untrusted booking payload as decoded from the reservations API.
// Numbers are expected as json.Number (decoder UseNumber) but float64 and
// strings are tolerated.
type Raw map[string]any

// Status classifies the payment state of a booking.
type Status string

const (
	// StatusCancelled marks a cancelled booking regardless of payments.
	StatusCancelled Status = "Cancelled"
	// StatusFullyPaid marks a booking whose collected amount covers the gross.
	StatusFullyPaid Status = "FullyPaid"
	// StatusPartiallyPaid marks a booking with some money collected.
	StatusPartiallyPaid Status = "PartiallyPaid"
	// StatusUnpaid marks a booking with nothing collected.
	StatusUnpaid Status = "Unpaid"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusCancelled, StatusFullyPaid, StatusPartiallyPaid, StatusUnpaid}

// Anomaly flags recorded during normalization.
const (
	AnomalyMissingID          = "missing_id"
	AnomalyInvalidEventTime   = "invalid_event_time"
	AnomalyInvalidCreatedTime = "invalid_created_time"
	AnomalyNegativeLeadTime   = "negative_lead_time"
	AnomalyInvalidAmount      = "invalid_amount"
)

// DefaultLabel is used for missing customer and room names.
const DefaultLabel = "Unknown"

// Epoch is the sentinel assigned to unparseable timestamps.
var Epoch = time.Unix(0, 0).UTC()

// Booking is the normalized booking record.
type Booking struct {
	ID               string          `json:"id"`
	EventDate        time.Time       `json:"eventDate"`
	CreatedDate      time.Time       `json:"createdDate"`
	LeadDays         int             `json:"leadDays"`
	RoomOrProduct    string          `json:"roomOrProduct"`
	CustomerName     string          `json:"customerName"`
	TotalGross       decimal.Decimal `json:"totalGross"`
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	Outstanding      decimal.Decimal `json:"outstanding"`
	ParticipantCount int             `json:"participantCount"`
	Canceled         bool            `json:"canceled"`
	Status           Status          `json:"status"`
	Anomalies        []string        `json:"anomalies,omitempty"`
}

// EventDay returns the event date truncated to midnight in its own location.
func (b Booking) EventDay() time.Time {
	y, m, d := b.EventDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, b.EventDate.Location())
}

// HasAnomaly reports whether the booking carries the given flag.
func (b Booking) HasAnomaly(flag string) bool {
	for _, a := range b.Anomalies {
		if a == flag {
			return true
		}
	}
	return false
}

// Classify resolves the payment status. The gross guard keeps zero-value
// bookings out of FullyPaid.
func Classify(canceled bool, gross, paid decimal.Decimal) Status {
	switch {
	case canceled:
		return StatusCancelled
	case paid.GreaterThanOrEqual(gross) && gross.IsPositive():
		return StatusFullyPaid
	case paid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusUnpaid
	}
}
