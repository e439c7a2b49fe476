// Package memory is the in-process store backend: the default for tests
// and single-node deployments that can afford to lose records on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

// Store implements the app repository interfaces with map-backed state.
type Store struct {
	mu      sync.RWMutex
	zones   map[string]domain.Zone
	permits map[string]domain.Permit
	entries map[string]domain.WaitlistEntry
}

func New() *Store {
	return &Store{
		zones:   make(map[string]domain.Zone),
		permits: make(map[string]domain.Permit),
		entries: make(map[string]domain.WaitlistEntry),
	}
}

func (s *Store) CreateZone(_ context.Context, zone domain.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[zone.ID]; ok {
		return domain.ErrZoneAlreadyExists
	}
	for _, z := range s.zones {
		if z.Name == zone.Name {
			return domain.ErrZoneAlreadyExists
		}
	}
	s.zones[zone.ID] = zone
	return nil
}

func (s *Store) GetZone(_ context.Context, id string) (domain.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zones[id]
	if !ok {
		return domain.Zone{}, domain.ErrZoneNotFound
	}
	return z, nil
}

func (s *Store) ListZones(_ context.Context) ([]domain.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Zone, 0, len(s.zones))
	for _, z := range s.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateZoneCapacity(_ context.Context, id string, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok {
		return domain.ErrZoneNotFound
	}
	z.Capacity = capacity
	s.zones[id] = z
	return nil
}

func (s *Store) CreatePermit(_ context.Context, permit domain.Permit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permits[permit.ID] = permit
	return nil
}

func (s *Store) GetPermit(_ context.Context, id string) (domain.Permit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permits[id]
	if !ok {
		return domain.Permit{}, domain.ErrPermitNotFound
	}
	return p, nil
}

func (s *Store) GetPermitByPaymentRef(_ context.Context, ref string) (*domain.Permit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.permits {
		if p.PaymentRef == ref {
			out := p
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdatePermit(_ context.Context, permit domain.Permit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.permits[permit.ID]; !ok {
		return domain.ErrPermitNotFound
	}
	s.permits[permit.ID] = permit
	return nil
}

func (s *Store) DeletePermit(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.permits, id)
	return nil
}

func (s *Store) ListPermitsByUser(_ context.Context, userID string) ([]domain.Permit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Permit
	for _, p := range s.permits {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sortPermits(out)
	return out, nil
}

func (s *Store) ListPermitsByStatus(_ context.Context, status domain.PermitStatus) ([]domain.Permit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Permit
	for _, p := range s.permits {
		if p.Status == status {
			out = append(out, p)
		}
	}
	sortPermits(out)
	return out, nil
}

func (s *Store) ListPendingDue(_ context.Context, now time.Time) ([]domain.Permit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Permit
	for _, p := range s.permits {
		if p.Status == domain.PermitStatusPending && now.After(p.PaymentDeadline) {
			out = append(out, p)
		}
	}
	sortPermits(out)
	return out, nil
}

func (s *Store) CreateEntry(_ context.Context, entry domain.WaitlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
	return nil
}

func (s *Store) GetEntry(_ context.Context, id string) (domain.WaitlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return domain.WaitlistEntry{}, domain.ErrEntryNotFound
	}
	return e, nil
}

func (s *Store) UpdateEntry(_ context.Context, entry domain.WaitlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.ID]; !ok {
		return domain.ErrEntryNotFound
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *Store) ListOpenEntriesByZone(_ context.Context, zoneID string) ([]domain.WaitlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.WaitlistEntry
	for _, e := range s.entries {
		if e.ZoneID == zoneID && !e.TerminalWaitlist() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.Before(out[j].EnqueuedAt) })
	return out, nil
}

func sortPermits(permits []domain.Permit) {
	sort.Slice(permits, func(i, j int) bool {
		if permits[i].CreatedAt.Equal(permits[j].CreatedAt) {
			return permits[i].ID < permits[j].ID
		}
		return permits[i].CreatedAt.Before(permits[j].CreatedAt)
	})
}
