package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chandarr7/SmartParkIntelligence/internal/clock"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
	"github.com/chandarr7/SmartParkIntelligence/internal/ledger"
	"github.com/chandarr7/SmartParkIntelligence/internal/metrics"
	"github.com/chandarr7/SmartParkIntelligence/internal/notify"
	"github.com/chandarr7/SmartParkIntelligence/internal/payments"
	"github.com/chandarr7/SmartParkIntelligence/internal/pricing"
)

// Waitlister is what the reservation service needs from the waitlist: a
// place to park unmet demand and a signal when capacity comes back.
type Waitlister interface {
	Enqueue(ctx context.Context, in EnqueueInput) (domain.WaitlistEntry, int, error)
	OnCapacityReleased(ctx context.Context, zoneID string, rng domain.DateRange)
}

const defaultPaymentWindow = 15 * time.Minute

// ReservationService orchestrates reservation attempts against the ledger,
// pricing, and the payment collaborator. It owns the permit state machine.
type ReservationService struct {
	zones    ZoneRepository
	permits  PermitRepository
	ledger   *ledger.Ledger
	resolver *pricing.Resolver
	calendar domain.AcademicCalendar
	gateway  payments.Gateway
	notifier notify.Emitter
	clock    clock.Clock
	logger   *log.Logger

	waitlist Waitlister // set via SetWaitlist; nil means insufficiency is surfaced raw

	paymentWindow time.Duration

	warnedMu sync.Mutex
	warned   map[string]bool // permit IDs already sent an expiration warning
}

type ReservationOption func(*ReservationService)

// WithPaymentWindow overrides the default checkout window for new holds.
func WithPaymentWindow(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.paymentWindow = d
		}
	}
}

func NewReservationService(
	zones ZoneRepository,
	permits PermitRepository,
	led *ledger.Ledger,
	resolver *pricing.Resolver,
	calendar domain.AcademicCalendar,
	gateway payments.Gateway,
	notifier notify.Emitter,
	clk clock.Clock,
	logger *log.Logger,
	opts ...ReservationOption,
) *ReservationService {
	if logger == nil {
		logger = log.Default()
	}
	svc := &ReservationService{
		zones:         zones,
		permits:       permits,
		ledger:        led,
		resolver:      resolver,
		calendar:      calendar,
		gateway:       gateway,
		notifier:      notifier,
		clock:         clk,
		logger:        logger,
		paymentWindow: defaultPaymentWindow,
		warned:        make(map[string]bool),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SetWaitlist wires the waitlist after construction; the waitlist manager
// in turn holds this service as its Placer.
func (s *ReservationService) SetWaitlist(w Waitlister) { s.waitlist = w }

type SubmitInput struct {
	UserID string
	Role   domain.Role
	ZoneID string
	Range  domain.DateRange
	Type   domain.PermitType
	AddOns []string
}

type OutcomeKind string

const (
	OutcomePendingPayment OutcomeKind = "pending_payment"
	OutcomeWaitlisted     OutcomeKind = "waitlisted"
)

// SubmitOutcome is the synchronous result of a reservation attempt.
type SubmitOutcome struct {
	Kind             OutcomeKind
	Permit           domain.Permit
	QuoteCents       int64
	PaymentRef       string
	WaitlistEntryID  string
	WaitlistPosition int
}

// Submit runs one reservation attempt: eligibility, quote, atomic hold.
// Insufficient capacity is not an error to the caller; the request is
// queued and a Waitlisted outcome returned.
func (s *ReservationService) Submit(ctx context.Context, in SubmitInput) (SubmitOutcome, error) {
	out, err := s.Place(ctx, in)
	if err == nil {
		metrics.ReservationsTotal.WithLabelValues(string(OutcomePendingPayment)).Inc()
		return out, nil
	}
	if !errors.Is(err, domain.ErrInsufficientCapacity) || s.waitlist == nil {
		switch {
		case errors.Is(err, domain.ErrIneligible):
			metrics.ReservationsTotal.WithLabelValues("ineligible").Inc()
		case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrZoneNotFound):
			metrics.ReservationsTotal.WithLabelValues("invalid").Inc()
		}
		return SubmitOutcome{}, err
	}

	rng, rngErr := s.calendar.CanonicalRange(in.Type, in.Range)
	if rngErr != nil {
		return SubmitOutcome{}, rngErr
	}
	entry, position, err := s.waitlist.Enqueue(ctx, EnqueueInput{
		UserID: in.UserID,
		Role:   in.Role,
		ZoneID: in.ZoneID,
		Range:  rng,
		Type:   in.Type,
		AddOns: in.AddOns,
	})
	if err != nil {
		return SubmitOutcome{}, err
	}
	metrics.ReservationsTotal.WithLabelValues(string(OutcomeWaitlisted)).Inc()
	return SubmitOutcome{
		Kind:             OutcomeWaitlisted,
		WaitlistEntryID:  entry.ID,
		WaitlistPosition: position,
	}, nil
}

// Place attempts the reservation without falling back to the waitlist.
// The waitlist manager uses it to resubmit claimed entries: a lost race
// must surface as ErrInsufficientCapacity, not a second enqueue.
func (s *ReservationService) Place(ctx context.Context, in SubmitInput) (SubmitOutcome, error) {
	if _, err := s.zones.GetZone(ctx, in.ZoneID); err != nil {
		return SubmitOutcome{}, err
	}
	if !in.Type.Eligible(in.Role) {
		return SubmitOutcome{}, fmt.Errorf("%w: role %s, permit type %s", domain.ErrIneligible, in.Role, in.Type)
	}
	rng, err := s.calendar.CanonicalRange(in.Type, in.Range)
	if err != nil {
		return SubmitOutcome{}, err
	}
	quote, err := s.resolver.Quote(in.Role, in.Type, rng, in.AddOns)
	if err != nil {
		return SubmitOutcome{}, err
	}

	token, err := s.ledger.TryHold(in.ZoneID, rng, 1)
	if err != nil {
		return SubmitOutcome{}, err
	}

	now := s.clock.Now()
	permit := domain.Permit{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		ZoneID:          in.ZoneID,
		Range:           rng,
		Type:            in.Type,
		AddOns:          append([]string(nil), in.AddOns...),
		PriceCents:      quote,
		PaymentRef:      uuid.NewString(),
		HoldToken:       token,
		Status:          domain.PermitStatusPending,
		PaymentDeadline: now.Add(s.paymentWindow),
		CreatedAt:       now,
	}
	if err := s.permits.CreatePermit(ctx, permit); err != nil {
		// The hold must not outlive a permit record that was never written.
		if _, relErr := s.ledger.Release(token); relErr != nil {
			s.logger.Printf("WARN: release after failed permit create: %v", relErr)
		}
		return SubmitOutcome{}, fmt.Errorf("create permit: %w", err)
	}
	if err := s.gateway.RequestCapture(ctx, quote, permit.PaymentRef); err != nil {
		if _, relErr := s.ledger.Release(token); relErr != nil {
			s.logger.Printf("WARN: release after failed capture request: %v", relErr)
		}
		if delErr := s.permits.DeletePermit(ctx, permit.ID); delErr != nil {
			s.logger.Printf("WARN: delete permit after failed capture request: %v", delErr)
		}
		return SubmitOutcome{}, fmt.Errorf("request capture: %w", err)
	}

	return SubmitOutcome{
		Kind:       OutcomePendingPayment,
		Permit:     permit,
		QuoteCents: quote,
		PaymentRef: permit.PaymentRef,
	}, nil
}

// ConfirmPayment is the gateway's success callback: the hold becomes
// durable and the permit Active. Confirming an already Active permit is a
// no-op.
func (s *ReservationService) ConfirmPayment(ctx context.Context, paymentRef string) (domain.Permit, error) {
	p, err := s.permits.GetPermitByPaymentRef(ctx, paymentRef)
	if err != nil {
		return domain.Permit{}, err
	}
	if p == nil {
		return domain.Permit{}, domain.ErrPaymentRefUnknown
	}
	if p.Status == domain.PermitStatusActive {
		return *p, nil
	}
	if p.Status != domain.PermitStatusPending {
		return domain.Permit{}, domain.ErrAlreadyTerminal
	}

	now := s.clock.Now()
	if now.After(p.PaymentDeadline) {
		// Late confirmation: treat exactly like a timeout so capacity flows
		// back through the ordinary release path.
		if err := s.releasePending(ctx, *p, "payment_timeout"); err != nil {
			return domain.Permit{}, err
		}
		return domain.Permit{}, domain.ErrPaymentWindowElapsed
	}

	if err := s.ledger.Commit(p.HoldToken); err != nil {
		return domain.Permit{}, err
	}
	p.Status = domain.PermitStatusActive
	if err := s.permits.UpdatePermit(ctx, *p); err != nil {
		return domain.Permit{}, fmt.Errorf("activate permit: %w", err)
	}
	metrics.PermitsActivated.Inc()
	s.notifier.Emit(notify.Intent{
		UserID: p.UserID,
		Kind:   notify.KindPurchaseConfirmed,
		Payload: map[string]string{
			"permit_id": p.ID,
			"zone_id":   p.ZoneID,
			"range":     p.Range.String(),
		},
	})
	return *p, nil
}

// FailPayment is the gateway's failure callback: the hold is released, the
// permit discarded, and the freed range offered to the waitlist.
func (s *ReservationService) FailPayment(ctx context.Context, paymentRef, reason string) error {
	p, err := s.permits.GetPermitByPaymentRef(ctx, paymentRef)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.ErrPaymentRefUnknown
	}
	if p.Status != domain.PermitStatusPending {
		return domain.ErrPermitNotPending
	}
	if reason == "" {
		reason = "payment_failed"
	}
	return s.releasePending(ctx, *p, reason)
}

// WithdrawPending lets a caller abandon checkout before the payment
// outcome arrives. Same release path as a failed payment.
func (s *ReservationService) WithdrawPending(ctx context.Context, permitID string) error {
	p, err := s.permits.GetPermit(ctx, permitID)
	if err != nil {
		return err
	}
	if p.Status != domain.PermitStatusPending {
		return domain.ErrPermitNotPending
	}
	return s.releasePending(ctx, p, "withdrawn")
}

func (s *ReservationService) releasePending(ctx context.Context, p domain.Permit, reason string) error {
	already, err := s.ledger.Release(p.HoldToken)
	if errors.Is(err, domain.ErrHoldCommitted) {
		// A payment confirmation won the race after this permit was read
		// as Pending. The permit is paid; leave it and its hold alone.
		return nil
	}
	if err != nil {
		return err
	}
	if !already {
		metrics.HoldsReleasedTotal.WithLabelValues(reason).Inc()
	}
	if err := s.permits.DeletePermit(ctx, p.ID); err != nil {
		return fmt.Errorf("discard pending permit: %w", err)
	}
	if s.waitlist != nil {
		s.waitlist.OnCapacityReleased(ctx, p.ZoneID, p.Range)
	}
	return nil
}

// SweepExpiredHolds releases every Pending hold whose payment deadline has
// elapsed, exactly as if the payment had failed. Driven by a ticker in the
// daemon; tests call it directly.
func (s *ReservationService) SweepExpiredHolds(ctx context.Context) (released int, err error) {
	due, err := s.permits.ListPendingDue(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	for _, p := range due {
		if err := s.releasePending(ctx, p, "payment_timeout"); err != nil {
			s.logger.Printf("WARN: sweep release permit %s: %v", p.ID, err)
			continue
		}
		released++
	}
	return released, nil
}

// SweepExpirationWarnings emits one expiration-warning intent per Active
// permit whose range ends within the window.
func (s *ReservationService) SweepExpirationWarnings(ctx context.Context, window time.Duration) error {
	active, err := s.permits.ListPermitsByStatus(ctx, domain.PermitStatusActive)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	cutoff := domain.DayOf(now.Add(window))

	// Drop dedupe state for permits that are no longer Active so the map
	// does not accumulate cancelled and expired IDs across sweeps.
	activeIDs := make(map[string]bool, len(active))
	for _, p := range active {
		if p.StatusAt(now) == domain.PermitStatusActive {
			activeIDs[p.ID] = true
		}
	}
	s.warnedMu.Lock()
	for id := range s.warned {
		if !activeIDs[id] {
			delete(s.warned, id)
		}
	}
	s.warnedMu.Unlock()

	for _, p := range active {
		if p.StatusAt(now) != domain.PermitStatusActive || p.Range.End > cutoff {
			continue
		}
		s.warnedMu.Lock()
		done := s.warned[p.ID]
		if !done {
			s.warned[p.ID] = true
		}
		s.warnedMu.Unlock()
		if done {
			continue
		}
		s.notifier.Emit(notify.Intent{
			UserID: p.UserID,
			Kind:   notify.KindExpirationWarning,
			Payload: map[string]string{
				"permit_id": p.ID,
				"ends":      p.Range.End.String(),
			},
		})
	}
	return nil
}

// ZoneAvailability is the synchronous availability answer for one zone and
// range.
type ZoneAvailability struct {
	ZoneID    string
	Available bool
	Capacity  int
	// PerDayFree maps each day of the queried range to remaining units.
	PerDayFree map[domain.Day]int
	// Tier classifies the tightest day of the range.
	Tier domain.ColorTier
}

// Availability answers CheckAvailability without mutating anything.
func (s *ReservationService) Availability(ctx context.Context, zoneID string, rng domain.DateRange, units int) (ZoneAvailability, error) {
	zone, err := s.zones.GetZone(ctx, zoneID)
	if err != nil {
		return ZoneAvailability{}, err
	}
	ok, free, err := s.ledger.CheckAvailable(zoneID, rng, units)
	if err != nil {
		return ZoneAvailability{}, err
	}
	minFree := zone.Capacity
	for _, f := range free {
		if f < minFree {
			minFree = f
		}
	}
	return ZoneAvailability{
		ZoneID:     zoneID,
		Available:  ok,
		Capacity:   zone.Capacity,
		PerDayFree: free,
		Tier:       domain.TierFor(zone.Capacity-minFree, zone.Capacity),
	}, nil
}

// PermitStatus reads a permit with the passive Expired transition applied.
func (s *ReservationService) PermitStatus(ctx context.Context, permitID string) (domain.Permit, error) {
	p, err := s.permits.GetPermit(ctx, permitID)
	if err != nil {
		return domain.Permit{}, err
	}
	p.Status = p.StatusAt(s.clock.Now())
	return p, nil
}

// UserPermits lists a user's permits with passive expiry applied.
func (s *ReservationService) UserPermits(ctx context.Context, userID string) ([]domain.Permit, error) {
	permits, err := s.permits.ListPermitsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	for i := range permits {
		permits[i].Status = permits[i].StatusAt(now)
	}
	return permits, nil
}
