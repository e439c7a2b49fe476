package app

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/chandarr7/SmartParkIntelligence/internal/clock"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
	"github.com/chandarr7/SmartParkIntelligence/internal/ledger"
)

// AdminService manages the zone catalog. Zone mutations go to the store and
// the ledger together; the ledger can veto a resize that would violate the
// capacity invariant for already-held future days.
type AdminService struct {
	zones  ZoneRepository
	ledger *ledger.Ledger
	clock  clock.Clock
	logger *log.Logger
}

func NewAdminService(zones ZoneRepository, led *ledger.Ledger, clk clock.Clock, logger *log.Logger) *AdminService {
	if logger == nil {
		logger = log.Default()
	}
	return &AdminService{zones: zones, ledger: led, clock: clk, logger: logger}
}

type CreateZoneInput struct {
	Name     string
	Capacity int
}

func (s *AdminService) CreateZone(ctx context.Context, in CreateZoneInput) (domain.Zone, error) {
	if in.Name == "" {
		return domain.Zone{}, domain.ErrInvalidRequest
	}
	if in.Capacity < 0 {
		return domain.Zone{}, domain.ErrInvalidCapacity
	}
	zone := domain.Zone{
		ID:       uuid.NewString(),
		Name:     in.Name,
		Capacity: in.Capacity,
	}
	if err := s.zones.CreateZone(ctx, zone); err != nil {
		return domain.Zone{}, err
	}
	if err := s.ledger.Register(zone.ID, zone.Capacity); err != nil {
		return domain.Zone{}, err
	}
	return zone, nil
}

func (s *AdminService) ListZones(ctx context.Context) ([]domain.Zone, error) {
	return s.zones.ListZones(ctx)
}

// ResizeZone changes a zone's capacity. The ledger rejects the resize with
// ErrCapacityConflict when held future days exceed the new capacity; the
// conflict is surfaced for the administrator to resolve, never auto-fixed.
func (s *AdminService) ResizeZone(ctx context.Context, zoneID string, newCapacity int) (domain.Zone, error) {
	zone, err := s.zones.GetZone(ctx, zoneID)
	if err != nil {
		return domain.Zone{}, err
	}
	if err := s.ledger.Resize(zoneID, newCapacity, domain.DayOf(s.clock.Now())); err != nil {
		return domain.Zone{}, err
	}
	if err := s.zones.UpdateZoneCapacity(ctx, zoneID, newCapacity); err != nil {
		return domain.Zone{}, err
	}
	zone.Capacity = newCapacity
	return zone, nil
}
