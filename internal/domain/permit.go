package domain

import "time"

type PermitStatus string

const (
	PermitStatusPending   PermitStatus = "pending"
	PermitStatusActive    PermitStatus = "active"
	PermitStatusCancelled PermitStatus = "cancelled"
	PermitStatusExpired   PermitStatus = "expired"
)

// Permit is a purchased (or purchase-in-progress) right to park in a zone
// for a date range.
type Permit struct {
	ID         string
	UserID     string
	ZoneID     string
	Range      DateRange
	Type       PermitType
	AddOns     []string // add-on codes, resolved against the pricing catalog
	PriceCents int64
	PaymentRef string
	HoldToken  string
	Status     PermitStatus
	// PaymentDeadline bounds the checkout window while Pending.
	PaymentDeadline time.Time
	CreatedAt       time.Time
}

// StatusAt evaluates the passive Expired transition: an Active permit whose
// range has fully elapsed reads as Expired. Stored status is not rewritten.
func (p Permit) StatusAt(now time.Time) PermitStatus {
	if p.Status == PermitStatusActive && DayOf(now) > p.Range.End {
		return PermitStatusExpired
	}
	return p.Status
}

// Terminal reports whether the permit can no longer change state.
func (p Permit) Terminal(now time.Time) bool {
	s := p.StatusAt(now)
	return s == PermitStatusCancelled || s == PermitStatusExpired
}
