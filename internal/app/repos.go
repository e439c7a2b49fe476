package app

import (
	"context"
	"time"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

// ZoneRepository persists zone records. The ledger keeps the authoritative
// day counters; the store keeps the zone catalog.
type ZoneRepository interface {
	CreateZone(ctx context.Context, zone domain.Zone) error
	GetZone(ctx context.Context, id string) (domain.Zone, error)
	ListZones(ctx context.Context) ([]domain.Zone, error)
	UpdateZoneCapacity(ctx context.Context, id string, capacity int) error
}

// PermitRepository persists permit records.
type PermitRepository interface {
	CreatePermit(ctx context.Context, permit domain.Permit) error
	GetPermit(ctx context.Context, id string) (domain.Permit, error)
	// GetPermitByPaymentRef returns nil when no permit carries the reference.
	GetPermitByPaymentRef(ctx context.Context, ref string) (*domain.Permit, error)
	UpdatePermit(ctx context.Context, permit domain.Permit) error
	// DeletePermit discards a permit that never became user-visible
	// (payment failed or timed out while Pending).
	DeletePermit(ctx context.Context, id string) error
	ListPermitsByUser(ctx context.Context, userID string) ([]domain.Permit, error)
	ListPermitsByStatus(ctx context.Context, status domain.PermitStatus) ([]domain.Permit, error)
	// ListPendingDue returns Pending permits whose payment deadline has
	// elapsed at `now`.
	ListPendingDue(ctx context.Context, now time.Time) ([]domain.Permit, error)
}

// WaitlistRepository persists waitlist entry records. Queue order is owned
// by the WaitlistManager in memory and rebuilt from EnqueuedAt on boot.
type WaitlistRepository interface {
	CreateEntry(ctx context.Context, entry domain.WaitlistEntry) error
	GetEntry(ctx context.Context, id string) (domain.WaitlistEntry, error)
	UpdateEntry(ctx context.Context, entry domain.WaitlistEntry) error
	// ListOpenEntriesByZone returns non-terminal entries for a zone in
	// EnqueuedAt order.
	ListOpenEntriesByZone(ctx context.Context, zoneID string) ([]domain.WaitlistEntry, error)
}
