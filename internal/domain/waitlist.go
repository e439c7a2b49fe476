package domain

import "time"

type WaitlistStatus string

const (
	WaitlistStatusQueued    WaitlistStatus = "queued"
	WaitlistStatusOffered   WaitlistStatus = "offered"
	WaitlistStatusClaimed   WaitlistStatus = "claimed"
	WaitlistStatusExpired   WaitlistStatus = "expired"
	WaitlistStatusWithdrawn WaitlistStatus = "withdrawn"
)

// WaitlistEntry is an unmet reservation request queued FIFO per zone.
type WaitlistEntry struct {
	ID         string
	UserID     string
	UserRole   Role
	ZoneID     string
	Range      DateRange
	Type       PermitType
	AddOns     []string
	Status     WaitlistStatus
	EnqueuedAt time.Time
	// OfferExpiresAt bounds the claim window while Offered.
	OfferExpiresAt time.Time
}

// TerminalWaitlist reports whether the entry has left the queue for good.
func (e WaitlistEntry) TerminalWaitlist() bool {
	return e.Status == WaitlistStatusClaimed ||
		e.Status == WaitlistStatusExpired ||
		e.Status == WaitlistStatusWithdrawn
}
