package app

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chandarr7/SmartParkIntelligence/internal/clock"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
	"github.com/chandarr7/SmartParkIntelligence/internal/ledger"
	"github.com/chandarr7/SmartParkIntelligence/internal/metrics"
	"github.com/chandarr7/SmartParkIntelligence/internal/notify"
)

// Placer resubmits a claimed waitlist entry. A lost race against another
// taker must come back as ErrInsufficientCapacity so the entry can return
// to its queue position instead of being enqueued twice. WithdrawPending
// unwinds a placement whose offer expired while the placement ran.
type Placer interface {
	Place(ctx context.Context, in SubmitInput) (SubmitOutcome, error)
	WithdrawPending(ctx context.Context, permitID string) error
}

const defaultClaimWindow = 24 * time.Hour

// WaitlistManager owns one FIFO queue per zone. Ordering is strict enqueue
// order within a zone; entries whose range cannot yet be satisfied are
// skipped in place, never moved to the back. Offers do not hold ledger
// capacity during the claim window: availability stays visible to everyone
// and the first taker wins.
type WaitlistManager struct {
	repo     WaitlistRepository
	ledger   *ledger.Ledger
	notifier notify.Emitter
	clock    clock.Clock
	logger   *log.Logger
	placer   Placer

	claimWindow time.Duration

	mu     sync.Mutex
	queues map[string]*zoneQueue
}

type zoneQueue struct {
	mu      sync.Mutex
	entries []*domain.WaitlistEntry
}

type WaitlistOption func(*WaitlistManager)

// WithClaimWindow overrides the default offer claim window.
func WithClaimWindow(d time.Duration) WaitlistOption {
	return func(m *WaitlistManager) {
		if d > 0 {
			m.claimWindow = d
		}
	}
}

func NewWaitlistManager(
	repo WaitlistRepository,
	led *ledger.Ledger,
	notifier notify.Emitter,
	clk clock.Clock,
	logger *log.Logger,
	opts ...WaitlistOption,
) *WaitlistManager {
	if logger == nil {
		logger = log.Default()
	}
	m := &WaitlistManager{
		repo:        repo,
		ledger:      led,
		notifier:    notifier,
		clock:       clk,
		logger:      logger,
		claimWindow: defaultClaimWindow,
		queues:      make(map[string]*zoneQueue),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetPlacer wires the reservation service after construction.
func (m *WaitlistManager) SetPlacer(p Placer) { m.placer = p }

type EnqueueInput struct {
	UserID string
	Role   domain.Role
	ZoneID string
	Range  domain.DateRange
	Type   domain.PermitType
	AddOns []string
}

// Enqueue appends a new Queued entry to the zone's queue and returns it
// with its 1-based position.
func (m *WaitlistManager) Enqueue(ctx context.Context, in EnqueueInput) (domain.WaitlistEntry, int, error) {
	entry := domain.WaitlistEntry{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		UserRole:   in.Role,
		ZoneID:     in.ZoneID,
		Range:      in.Range,
		Type:       in.Type,
		AddOns:     append([]string(nil), in.AddOns...),
		Status:     domain.WaitlistStatusQueued,
		EnqueuedAt: m.clock.Now(),
	}
	if err := m.repo.CreateEntry(ctx, entry); err != nil {
		return domain.WaitlistEntry{}, 0, err
	}

	q := m.queue(in.ZoneID)
	q.mu.Lock()
	q.entries = append(q.entries, &entry)
	position := len(q.entries)
	m.setDepth(in.ZoneID, q)
	q.mu.Unlock()
	return entry, position, nil
}

// OnCapacityReleased scans the zone's queue in FIFO order and offers the
// first Queued entry whose range is now satisfiable. Unsatisfiable entries
// stay Queued in place.
func (m *WaitlistManager) OnCapacityReleased(ctx context.Context, zoneID string, rng domain.DateRange) {
	m.logger.Printf("capacity released zone=%s range=%s, scanning waitlist", zoneID, rng)
	m.promote(ctx, zoneID)
}

func (m *WaitlistManager) promote(ctx context.Context, zoneID string) {
	q := m.queue(zoneID)
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.Status != domain.WaitlistStatusQueued {
			continue
		}
		ok, _, err := m.ledger.CheckAvailable(zoneID, e.Range, 1)
		if err != nil {
			m.logger.Printf("WARN: availability check for entry %s: %v", e.ID, err)
			return
		}
		if !ok {
			continue
		}
		e.Status = domain.WaitlistStatusOffered
		e.OfferExpiresAt = m.clock.Now().Add(m.claimWindow)
		if err := m.repo.UpdateEntry(ctx, *e); err != nil {
			m.logger.Printf("WARN: persist offer for entry %s: %v", e.ID, err)
			e.Status = domain.WaitlistStatusQueued
			e.OfferExpiresAt = time.Time{}
			return
		}
		m.setDepth(zoneID, q)
		m.notifier.Emit(notify.Intent{
			UserID: e.UserID,
			Kind:   notify.KindWaitlistOffer,
			Payload: map[string]string{
				"entry_id":   e.ID,
				"zone_id":    zoneID,
				"range":      e.Range.String(),
				"expires_at": e.OfferExpiresAt.UTC().Format(time.RFC3339),
			},
		})
		return
	}
}

// Claim accepts an offer and converts the entry into a reservation attempt.
// If the placement loses the race for the freed capacity, the entry returns
// to Queued at its original position.
func (m *WaitlistManager) Claim(ctx context.Context, entryID string) (SubmitOutcome, error) {
	q, e, err := m.find(ctx, entryID)
	if err != nil {
		return SubmitOutcome{}, err
	}

	q.mu.Lock()
	if e.Status != domain.WaitlistStatusOffered {
		q.mu.Unlock()
		if e.TerminalWaitlist() {
			return SubmitOutcome{}, domain.ErrEntryTerminal
		}
		return SubmitOutcome{}, domain.ErrEntryNotOffered
	}
	if m.clock.Now().After(e.OfferExpiresAt) {
		m.expireLocked(ctx, q, e)
		q.mu.Unlock()
		m.promote(ctx, e.ZoneID)
		return SubmitOutcome{}, domain.ErrOfferExpired
	}
	q.mu.Unlock()

	out, err := m.placer.Place(ctx, SubmitInput{
		UserID: e.UserID,
		Role:   e.UserRole,
		ZoneID: e.ZoneID,
		Range:  e.Range,
		Type:   e.Type,
		AddOns: e.AddOns,
	})

	// The queue lock was dropped for the placement, so the sweep or a
	// withdrawal may have moved the entry off Offered in the meantime.
	q.mu.Lock()
	stillOffered := e.Status == domain.WaitlistStatusOffered
	if err != nil {
		if stillOffered && errors.Is(err, domain.ErrInsufficientCapacity) {
			// Lost the race: back to Queued, same slot in the slice.
			e.Status = domain.WaitlistStatusQueued
			e.OfferExpiresAt = time.Time{}
			if uerr := m.repo.UpdateEntry(ctx, *e); uerr != nil {
				m.logger.Printf("WARN: requeue entry %s: %v", e.ID, uerr)
			}
			m.setDepth(e.ZoneID, q)
		}
		q.mu.Unlock()
		return SubmitOutcome{}, err
	}
	if !stillOffered {
		expired := e.Status == domain.WaitlistStatusExpired
		q.mu.Unlock()
		if out.Kind == OutcomePendingPayment {
			if werr := m.placer.WithdrawPending(ctx, out.Permit.ID); werr != nil {
				m.logger.Printf("WARN: unwind claim for entry %s: %v", e.ID, werr)
			}
		}
		if expired {
			return SubmitOutcome{}, domain.ErrOfferExpired
		}
		return SubmitOutcome{}, domain.ErrEntryTerminal
	}

	e.Status = domain.WaitlistStatusClaimed
	if uerr := m.repo.UpdateEntry(ctx, *e); uerr != nil {
		m.logger.Printf("WARN: persist claim for entry %s: %v", e.ID, uerr)
	}
	m.removeLocked(q, e.ID)
	m.setDepth(e.ZoneID, q)
	metrics.WaitlistOffersTotal.WithLabelValues("claimed").Inc()
	q.mu.Unlock()
	return out, nil
}

// Withdraw removes an entry from any non-terminal state.
func (m *WaitlistManager) Withdraw(ctx context.Context, entryID string) error {
	q, e, err := m.find(ctx, entryID)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if e.TerminalWaitlist() {
		return domain.ErrEntryTerminal
	}
	wasOffered := e.Status == domain.WaitlistStatusOffered
	e.Status = domain.WaitlistStatusWithdrawn
	if err := m.repo.UpdateEntry(ctx, *e); err != nil {
		return err
	}
	m.removeLocked(q, e.ID)
	m.setDepth(e.ZoneID, q)
	if wasOffered {
		metrics.WaitlistOffersTotal.WithLabelValues("withdrawn").Inc()
	}
	return nil
}

// SweepExpiredOffers expires Offered entries whose claim window has closed
// and re-scans their zones for the next eligible entry.
func (m *WaitlistManager) SweepExpiredOffers(ctx context.Context) (expired int) {
	now := m.clock.Now()
	for _, zoneID := range m.zoneIDs() {
		q := m.queue(zoneID)
		q.mu.Lock()
		var toExpire []*domain.WaitlistEntry
		for _, e := range q.entries {
			if e.Status == domain.WaitlistStatusOffered && now.After(e.OfferExpiresAt) {
				toExpire = append(toExpire, e)
			}
		}
		for _, e := range toExpire {
			m.expireLocked(ctx, q, e)
			expired++
		}
		q.mu.Unlock()
		if len(toExpire) > 0 {
			m.promote(ctx, zoneID)
		}
	}
	return expired
}

// Status returns the persisted entry plus its current queue position
// (0 when no longer queued).
func (m *WaitlistManager) Status(ctx context.Context, entryID string) (domain.WaitlistEntry, int, error) {
	stored, err := m.repo.GetEntry(ctx, entryID)
	if err != nil {
		return domain.WaitlistEntry{}, 0, err
	}
	q := m.queue(stored.ZoneID)
	q.mu.Lock()
	defer q.mu.Unlock()
	position := 0
	for i, e := range q.entries {
		if e.ID == entryID {
			position = i + 1
			stored = *e
			break
		}
	}
	return stored, position, nil
}

// Rebuild reloads queues from the store on boot, in EnqueuedAt order.
// Offers that were open at shutdown survive with their deadlines.
func (m *WaitlistManager) Rebuild(ctx context.Context, zoneIDs []string) error {
	for _, zoneID := range zoneIDs {
		entries, err := m.repo.ListOpenEntriesByZone(ctx, zoneID)
		if err != nil {
			return err
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
		})
		q := m.queue(zoneID)
		q.mu.Lock()
		q.entries = q.entries[:0]
		for i := range entries {
			e := entries[i]
			q.entries = append(q.entries, &e)
		}
		m.setDepth(zoneID, q)
		q.mu.Unlock()
	}
	return nil
}

// expireLocked transitions an Offered entry to Expired. Caller holds q.mu.
func (m *WaitlistManager) expireLocked(ctx context.Context, q *zoneQueue, e *domain.WaitlistEntry) {
	e.Status = domain.WaitlistStatusExpired
	if err := m.repo.UpdateEntry(ctx, *e); err != nil {
		m.logger.Printf("WARN: persist offer expiry for entry %s: %v", e.ID, err)
	}
	m.removeLocked(q, e.ID)
	m.setDepth(e.ZoneID, q)
	metrics.WaitlistOffersTotal.WithLabelValues("expired").Inc()
	m.notifier.Emit(notify.Intent{
		UserID: e.UserID,
		Kind:   notify.KindOfferExpired,
		Payload: map[string]string{
			"entry_id": e.ID,
			"zone_id":  e.ZoneID,
		},
	})
}

func (m *WaitlistManager) removeLocked(q *zoneQueue, entryID string) {
	for i, e := range q.entries {
		if e.ID == entryID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

func (m *WaitlistManager) setDepth(zoneID string, q *zoneQueue) {
	queued := 0
	for _, e := range q.entries {
		if e.Status == domain.WaitlistStatusQueued {
			queued++
		}
	}
	metrics.WaitlistDepth.WithLabelValues(zoneID).Set(float64(queued))
}

func (m *WaitlistManager) queue(zoneID string) *zoneQueue {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[zoneID]
	if !ok {
		q = &zoneQueue{}
		m.queues[zoneID] = q
	}
	return q
}

func (m *WaitlistManager) zoneIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.queues))
	for id := range m.queues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// find locates a live entry in the in-memory queues. Entries already in a
// terminal state have been removed; for those the store still answers, so
// re-claims and re-withdrawals get ErrEntryTerminal rather than not-found.
func (m *WaitlistManager) find(ctx context.Context, entryID string) (*zoneQueue, *domain.WaitlistEntry, error) {
	m.mu.Lock()
	queues := make([]*zoneQueue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.Unlock()

	for _, q := range queues {
		q.mu.Lock()
		for _, e := range q.entries {
			if e.ID == entryID {
				q.mu.Unlock()
				return q, e, nil
			}
		}
		q.mu.Unlock()
	}
	if stored, err := m.repo.GetEntry(ctx, entryID); err == nil && stored.TerminalWaitlist() {
		return nil, nil, domain.ErrEntryTerminal
	}
	return nil, nil, domain.ErrEntryNotFound
}
