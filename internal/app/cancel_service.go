package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chandarr7/SmartParkIntelligence/internal/clock"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
	"github.com/chandarr7/SmartParkIntelligence/internal/ledger"
	"github.com/chandarr7/SmartParkIntelligence/internal/metrics"
	"github.com/chandarr7/SmartParkIntelligence/internal/notify"
	"github.com/chandarr7/SmartParkIntelligence/internal/payments"
	"github.com/chandarr7/SmartParkIntelligence/internal/pricing"
)

// CancellationService reverses Active permits: whole-day prorated refund,
// release of the unused ledger sub-range, and a waitlist promotion signal.
type CancellationService struct {
	permits  PermitRepository
	ledger   *ledger.Ledger
	gateway  payments.Gateway
	notifier notify.Emitter
	waitlist Waitlister
	clock    clock.Clock
	logger   *log.Logger
}

func NewCancellationService(
	permits PermitRepository,
	led *ledger.Ledger,
	gateway payments.Gateway,
	notifier notify.Emitter,
	clk clock.Clock,
	logger *log.Logger,
) *CancellationService {
	if logger == nil {
		logger = log.Default()
	}
	return &CancellationService{
		permits:  permits,
		ledger:   led,
		gateway:  gateway,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// SetWaitlist wires the waitlist after construction.
func (s *CancellationService) SetWaitlist(w Waitlister) { s.waitlist = w }

// CancelResult reports what the cancellation did.
type CancelResult struct {
	Permit      domain.Permit
	RefundCents int64
	// Released is the sub-range returned to the ledger; zero-valued when
	// every day had already elapsed.
	Released    domain.DateRange
	HasReleased bool
}

// Cancel reverses an Active permit as of requestedAt. Days strictly before
// requestedAt's date are consumed and stay held; requestedAt's date onward
// is released and refunded pro rata. Cancelling an already Cancelled or
// Expired permit fails with ErrAlreadyTerminal and changes nothing.
func (s *CancellationService) Cancel(ctx context.Context, permitID string, requestedAt time.Time) (CancelResult, error) {
	p, err := s.permits.GetPermit(ctx, permitID)
	if err != nil {
		return CancelResult{}, err
	}

	switch p.StatusAt(requestedAt) {
	case domain.PermitStatusCancelled, domain.PermitStatusExpired:
		return CancelResult{}, domain.ErrAlreadyTerminal
	case domain.PermitStatusPending:
		return CancelResult{}, fmt.Errorf("%w: pending permits are withdrawn, not cancelled", domain.ErrInvalidRequest)
	}

	cut := domain.DayOf(requestedAt)
	remaining, hasRemaining := p.Range.ClampFrom(cut)

	refund := int64(0)
	if hasRemaining {
		refund = pricing.ProratedRefund(p.PriceCents, remaining.TotalDays(), p.Range.TotalDays())
		if _, err := s.ledger.ReleaseFrom(p.HoldToken, cut); err != nil {
			return CancelResult{}, err
		}
		metrics.HoldsReleasedTotal.WithLabelValues("cancelled").Inc()
	}

	p.Status = domain.PermitStatusCancelled
	if err := s.permits.UpdatePermit(ctx, p); err != nil {
		return CancelResult{}, fmt.Errorf("mark permit cancelled: %w", err)
	}
	metrics.CancellationsTotal.Inc()

	if refund > 0 {
		if err := s.gateway.RequestRefund(ctx, refund, p.PaymentRef); err != nil {
			// Money movement is the collaborator's problem to retry; the
			// permit is already cancelled and capacity released.
			s.logger.Printf("WARN: refund request for permit %s: %v", p.ID, err)
		}
		metrics.RefundCents.Add(float64(refund))
		s.notifier.Emit(notify.Intent{
			UserID: p.UserID,
			Kind:   notify.KindRefundIssued,
			Payload: map[string]string{
				"permit_id":    p.ID,
				"refund_cents": fmt.Sprintf("%d", refund),
			},
		})
	}

	if hasRemaining && s.waitlist != nil {
		s.waitlist.OnCapacityReleased(ctx, p.ZoneID, remaining)
	}

	return CancelResult{
		Permit:      p,
		RefundCents: refund,
		Released:    remaining,
		HasReleased: hasRemaining,
	}, nil
}
