package app

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/chandarr7/SmartParkIntelligence/internal/clock"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
	"github.com/chandarr7/SmartParkIntelligence/internal/ledger"
	"github.com/chandarr7/SmartParkIntelligence/internal/notify"
	"github.com/chandarr7/SmartParkIntelligence/internal/payments"
	"github.com/chandarr7/SmartParkIntelligence/internal/pricing"
	"github.com/chandarr7/SmartParkIntelligence/internal/storage/memory"
)

// testStart is an arbitrary instant inside the configured fall term.
var testStart = time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)

// engine is the fully wired service stack over the memory store, shared by
// the app tests.
type engine struct {
	store    *memory.Store
	ledger   *ledger.Ledger
	clk      *clock.Stepper
	notifier *notify.Recorder
	gateway  *payments.Recorder

	reservations *ReservationService
	waitlist     *WaitlistManager
	cancels      *CancellationService
	admin        *AdminService
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	fallStart, _ := domain.ParseDay("2026-08-24")
	fallEnd, _ := domain.ParseDay("2026-12-18")
	calendar := domain.AcademicCalendar{
		Semesters: []domain.Term{{Name: "fall", Range: domain.DateRange{Start: fallStart, End: fallEnd}}},
		Years:     []domain.Term{{Name: "2026-2027", Range: domain.DateRange{Start: fallStart, End: fallEnd + 150}}},
	}

	e := &engine{
		store:    memory.New(),
		ledger:   ledger.New(),
		clk:      clock.NewStepper(testStart),
		notifier: &notify.Recorder{},
		gateway:  &payments.Recorder{},
	}
	logger := log.New(io.Discard, "", 0)
	resolver := pricing.NewResolver(pricing.DefaultRates(), pricing.DefaultAddOns())

	e.reservations = NewReservationService(
		e.store, e.store, e.ledger, resolver, calendar, e.gateway, e.notifier, e.clk, logger,
		WithPaymentWindow(15*time.Minute),
	)
	e.waitlist = NewWaitlistManager(
		e.store, e.ledger, e.notifier, e.clk, logger,
		WithClaimWindow(24*time.Hour),
	)
	e.cancels = NewCancellationService(e.store, e.ledger, e.gateway, e.notifier, e.clk, logger)
	e.admin = NewAdminService(e.store, e.ledger, e.clk, logger)

	e.reservations.SetWaitlist(e.waitlist)
	e.cancels.SetWaitlist(e.waitlist)
	e.waitlist.SetPlacer(e.reservations)
	return e
}

func (e *engine) addZone(t *testing.T, name string, capacity int) domain.Zone {
	t.Helper()
	zone, err := e.admin.CreateZone(context.Background(), CreateZoneInput{Name: name, Capacity: capacity})
	if err != nil {
		t.Fatalf("create zone %s: %v", name, err)
	}
	return zone
}

// reserve submits and expects a pending-payment outcome.
func (e *engine) reserve(t *testing.T, in SubmitInput) SubmitOutcome {
	t.Helper()
	out, err := e.reservations.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Kind != OutcomePendingPayment {
		t.Fatalf("expected pending payment outcome, got %s", out.Kind)
	}
	return out
}

// activate reserves and confirms payment, returning the Active permit.
func (e *engine) activate(t *testing.T, in SubmitInput) domain.Permit {
	t.Helper()
	out := e.reserve(t, in)
	p, err := e.reservations.ConfirmPayment(context.Background(), out.PaymentRef)
	if err != nil {
		t.Fatalf("confirm payment: %v", err)
	}
	return p
}

func dayRange(t *testing.T, start, end string) domain.DateRange {
	t.Helper()
	s, err := domain.ParseDay(start)
	if err != nil {
		t.Fatalf("parse %s: %v", start, err)
	}
	e, err := domain.ParseDay(end)
	if err != nil {
		t.Fatalf("parse %s: %v", end, err)
	}
	rng, err := domain.NewDateRange(s, e)
	if err != nil {
		t.Fatalf("range %s..%s: %v", start, end, err)
	}
	return rng
}
