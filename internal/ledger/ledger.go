// Package ledger implements per-zone, per-day unit-capacity accounting.
// It is the source of truth for availability: no other component mutates
// day counts except through the operations here.
package ledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

// Ledger tracks held units per (zone, day). Each zone has its own lock, so
// unrelated zones are fully concurrent; a failed operation leaves the
// counters untouched.
type Ledger struct {
	mu     sync.RWMutex // guards the zone and token registries, never day counts
	zones  map[string]*zoneLedger
	tokens map[string]*zoneLedger // hold token -> owning zone
}

type zoneLedger struct {
	mu       sync.Mutex
	id       string
	capacity int
	held     map[domain.Day]int // sparse; absent day = zero held
	holds    map[string]*hold
}

type hold struct {
	token     string
	rng       domain.DateRange
	units     int
	committed bool
	released  bool
	// releasedFrom is the first released day after a partial release; days
	// before it stayed consumed.
	releasedFrom domain.Day
}

func New() *Ledger {
	return &Ledger{
		zones:  make(map[string]*zoneLedger),
		tokens: make(map[string]*zoneLedger),
	}
}

// Register adds a zone to the ledger. Registering an existing zone fails.
func (l *Ledger) Register(zoneID string, capacity int) error {
	if capacity < 0 {
		return domain.ErrInvalidCapacity
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.zones[zoneID]; ok {
		return domain.ErrZoneAlreadyExists
	}
	l.zones[zoneID] = &zoneLedger{
		id:       zoneID,
		capacity: capacity,
		held:     make(map[domain.Day]int),
		holds:    make(map[string]*hold),
	}
	return nil
}

// Resize changes a zone's capacity between transactions. It fails with
// ErrCapacityConflict when any day from `from` onward already holds more
// units than the new capacity; days in the past are not checked, since that
// capacity has already been consumed.
func (l *Ledger) Resize(zoneID string, newCapacity int, from domain.Day) error {
	if newCapacity < 0 {
		return domain.ErrInvalidCapacity
	}
	z, err := l.zone(zoneID)
	if err != nil {
		return err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	for day, units := range z.held {
		if day >= from && units > newCapacity {
			return fmt.Errorf("%w: day %s holds %d units, new capacity %d",
				domain.ErrCapacityConflict, day, units, newCapacity)
		}
	}
	z.capacity = newCapacity
	return nil
}

// Capacity returns the zone's total capacity.
func (l *Ledger) Capacity(zoneID string) (int, error) {
	z, err := l.zone(zoneID)
	if err != nil {
		return 0, err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.capacity, nil
}

// CheckAvailable reports whether `units` are free on every day of the range,
// with the remaining free units per day. Read-only and non-blocking beyond
// the zone's lock.
func (l *Ledger) CheckAvailable(zoneID string, rng domain.DateRange, units int) (bool, map[domain.Day]int, error) {
	if units <= 0 {
		return false, nil, fmt.Errorf("%w: units must be positive", domain.ErrInvalidRequest)
	}
	z, err := l.zone(zoneID)
	if err != nil {
		return false, nil, err
	}
	z.mu.Lock()
	defer z.mu.Unlock()

	free := make(map[domain.Day]int, rng.TotalDays())
	ok := true
	for d := rng.Start; d <= rng.End; d++ {
		remaining := z.capacity - z.held[d]
		free[d] = remaining
		if remaining < units {
			ok = false
		}
	}
	return ok, free, nil
}

// TryHold atomically verifies and increments held counts for every day in
// the range. All days hold together or none do: a permit available for only
// part of its duration is useless.
func (l *Ledger) TryHold(zoneID string, rng domain.DateRange, units int) (string, error) {
	if units <= 0 {
		return "", fmt.Errorf("%w: units must be positive", domain.ErrInvalidRequest)
	}
	z, err := l.zone(zoneID)
	if err != nil {
		return "", err
	}

	z.mu.Lock()
	for d := rng.Start; d <= rng.End; d++ {
		if z.held[d]+units > z.capacity {
			z.mu.Unlock()
			return "", domain.ErrInsufficientCapacity
		}
	}
	// Verified; apply in ascending day order.
	for d := rng.Start; d <= rng.End; d++ {
		z.held[d] += units
	}
	h := &hold{token: uuid.NewString(), rng: rng, units: units}
	z.holds[h.token] = h
	z.mu.Unlock()

	l.mu.Lock()
	l.tokens[h.token] = z
	l.mu.Unlock()
	return h.token, nil
}

// Commit converts a provisional hold into a durable one backing an Active
// permit. Committed holds are immune to payment-timeout release.
func (l *Ledger) Commit(token string) error {
	z := l.zoneForToken(token)
	if z == nil {
		return domain.ErrHoldReleased
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	h, ok := z.holds[token]
	if !ok || h.released {
		return domain.ErrHoldReleased
	}
	h.committed = true
	return nil
}

// Release decrements held counts for all remaining days of the token's
// range. Idempotent: an already-released or unknown token is reported as
// alreadyReleased, not an error, so larger caller transactions never abort.
// A committed hold backs a paid permit and fails with ErrHoldCommitted;
// only ReleaseFrom can free committed days.
func (l *Ledger) Release(token string) (alreadyReleased bool, err error) {
	return l.release(token, 0, true)
}

// ReleaseFrom releases only the days at or after `from`; earlier days stay
// consumed. Used on cancellation, where elapsed capacity cannot be resold.
func (l *Ledger) ReleaseFrom(token string, from domain.Day) (alreadyReleased bool, err error) {
	return l.release(token, from, false)
}

func (l *Ledger) release(token string, from domain.Day, whole bool) (bool, error) {
	z := l.zoneForToken(token)
	if z == nil {
		return true, nil
	}
	z.mu.Lock()
	h, ok := z.holds[token]
	if !ok || h.released {
		z.mu.Unlock()
		return true, nil
	}
	if whole && h.committed {
		z.mu.Unlock()
		return false, domain.ErrHoldCommitted
	}
	start := h.rng.Start
	if !whole && from > start {
		start = from
	}
	for d := start; d <= h.rng.End; d++ {
		z.held[d] -= h.units
		if z.held[d] <= 0 {
			delete(z.held, d)
		}
	}
	h.released = true
	h.releasedFrom = start
	z.mu.Unlock()

	l.mu.Lock()
	delete(l.tokens, token)
	l.mu.Unlock()
	return false, nil
}

// HeldUnits returns the units currently held on a single (zone, day).
func (l *Ledger) HeldUnits(zoneID string, day domain.Day) (int, error) {
	z, err := l.zone(zoneID)
	if err != nil {
		return 0, err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.held[day], nil
}

// Utilization returns held units and capacity for a day, for color-tier
// classification.
func (l *Ledger) Utilization(zoneID string, day domain.Day) (held, capacity int, err error) {
	z, err := l.zone(zoneID)
	if err != nil {
		return 0, 0, err
	}
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.held[day], z.capacity, nil
}

// CollectBefore drops per-day counters and resolved holds that end before
// the given day. Past days can no longer be sold or released.
func (l *Ledger) CollectBefore(day domain.Day) {
	l.mu.RLock()
	zones := make([]*zoneLedger, 0, len(l.zones))
	for _, z := range l.zones {
		zones = append(zones, z)
	}
	l.mu.RUnlock()

	for _, z := range zones {
		z.mu.Lock()
		for d := range z.held {
			if d < day {
				delete(z.held, d)
			}
		}
		for token, h := range z.holds {
			if h.released && h.rng.End < day {
				delete(z.holds, token)
			}
		}
		z.mu.Unlock()
	}
}

func (l *Ledger) zone(zoneID string) (*zoneLedger, error) {
	l.mu.RLock()
	z, ok := l.zones[zoneID]
	l.mu.RUnlock()
	if !ok {
		return nil, domain.ErrZoneNotFound
	}
	return z, nil
}

func (l *Ledger) zoneForToken(token string) *zoneLedger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tokens[token]
}
