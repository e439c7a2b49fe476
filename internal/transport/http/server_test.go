package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chandarr7/SmartParkIntelligence/internal/app"
	"github.com/chandarr7/SmartParkIntelligence/internal/clock"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
	"github.com/chandarr7/SmartParkIntelligence/internal/ledger"
	"github.com/chandarr7/SmartParkIntelligence/internal/notify"
	"github.com/chandarr7/SmartParkIntelligence/internal/payments"
	"github.com/chandarr7/SmartParkIntelligence/internal/pricing"
	"github.com/chandarr7/SmartParkIntelligence/internal/storage/memory"
)

// newTestServer wires the full stack over the memory store so the router
// is exercised end to end, payments included.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	fallStart, _ := domain.ParseDay("2026-08-24")
	fallEnd, _ := domain.ParseDay("2026-12-18")
	calendar := domain.AcademicCalendar{
		Semesters: []domain.Term{{Name: "fall", Range: domain.DateRange{Start: fallStart, End: fallEnd}}},
	}

	store := memory.New()
	led := ledger.New()
	clk := clock.NewFixed(time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC))
	logger := log.New(io.Discard, "", 0)
	resolver := pricing.NewResolver(pricing.DefaultRates(), pricing.DefaultAddOns())

	reservations := app.NewReservationService(
		store, store, led, resolver, calendar, &payments.Recorder{}, &notify.Recorder{}, clk, logger,
	)
	waitlist := app.NewWaitlistManager(store, led, &notify.Recorder{}, clk, logger)
	cancels := app.NewCancellationService(store, led, &payments.Recorder{}, &notify.Recorder{}, clk, logger)
	admin := app.NewAdminService(store, led, clk, logger)

	reservations.SetWaitlist(waitlist)
	cancels.SetWaitlist(waitlist)
	waitlist.SetPlacer(reservations)

	svcs := Services{
		Reservations:  reservations,
		Cancellations: cancels,
		Waitlist:      waitlist,
		Admin:         admin,
	}
	return NewRouter(svcs, clk, nil, logger)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return rec
}

// TestRouter_ReservationLifecycle walks one capacity-one zone through the
// whole flow: reserve, pay, fill the zone, waitlist, cancel, claim.
func TestRouter_ReservationLifecycle(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	var zone zoneJSON
	rec := doJSON(t, h, http.MethodPost, "/v1/admin/zones", `{"name":"Crescent Hill","capacity":1}`, &zone)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create zone: expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// User A reserves Oct 1..5 and pays.
	var subA submitReservationResponse
	rec = doJSON(t, h, http.MethodPost, "/v1/reservations",
		`{"user_id":"userA","role":"student","zone_id":"`+zone.ID+`","permit_type":"daily","start_date":"2026-10-01","end_date":"2026-10-05"}`, &subA)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit A: expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if subA.QuoteCents != 1500 {
		t.Fatalf("expected quote 1500, got %d", subA.QuoteCents)
	}

	var permitA permitJSON
	rec = doJSON(t, h, http.MethodPost, "/v1/payments/callback",
		`{"payment_ref":"`+subA.PaymentRef+`","status":"succeeded"}`, &permitA)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm A: expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if permitA.Status != string(domain.PermitStatusActive) {
		t.Fatalf("expected active permit, got %s", permitA.Status)
	}

	// The zone is now full for the range.
	var avail availabilityResponse
	rec = doJSON(t, h, http.MethodGet, "/v1/zones/"+zone.ID+"/availability?start=2026-10-01&end=2026-10-05", "", &avail)
	if rec.Code != http.StatusOK {
		t.Fatalf("availability: expected status 200, got %d", rec.Code)
	}
	if avail.Available {
		t.Fatal("expected zone to be full")
	}
	if avail.Tier != string(domain.TierRed) {
		t.Fatalf("expected red tier, got %s", avail.Tier)
	}
	if len(avail.Days) != 5 || avail.Days[0].Free != 0 {
		t.Fatalf("unexpected per-day breakdown %+v", avail.Days)
	}

	// User B lands on the waitlist.
	var subB submitReservationResponse
	rec = doJSON(t, h, http.MethodPost, "/v1/reservations",
		`{"user_id":"userB","role":"student","zone_id":"`+zone.ID+`","permit_type":"daily","start_date":"2026-10-01","end_date":"2026-10-05"}`, &subB)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit B: expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if subB.WaitlistPosition != 1 {
		t.Fatalf("expected position 1, got %d", subB.WaitlistPosition)
	}

	// A cancels before the range starts: full refund, B gets the offer.
	var cancel cancelPermitResponse
	rec = doJSON(t, h, http.MethodPost, "/v1/permits/"+permitA.ID+"/cancel", "", &cancel)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel A: expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cancel.RefundCents != 1500 {
		t.Fatalf("expected full refund, got %d", cancel.RefundCents)
	}

	var entry entryStatusResponse
	rec = doJSON(t, h, http.MethodGet, "/v1/waitlist/"+subB.WaitlistEntryID, "", &entry)
	if rec.Code != http.StatusOK {
		t.Fatalf("entry status: expected status 200, got %d", rec.Code)
	}
	if entry.Status != string(domain.WaitlistStatusOffered) {
		t.Fatalf("expected offered entry, got %s", entry.Status)
	}

	// B claims and pays.
	var claim claimOfferResponse
	rec = doJSON(t, h, http.MethodPost, "/v1/waitlist/"+subB.WaitlistEntryID+"/claim", "", &claim)
	if rec.Code != http.StatusCreated {
		t.Fatalf("claim B: expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var permitB permitJSON
	rec = doJSON(t, h, http.MethodPost, "/v1/payments/callback",
		`{"payment_ref":"`+claim.PaymentRef+`","status":"succeeded"}`, &permitB)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm B: expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if permitB.UserID != "userB" || permitB.Status != string(domain.PermitStatusActive) {
		t.Fatalf("unexpected permit %+v", permitB)
	}

	// The zone is at capacity again; user C queues behind it.
	rec = doJSON(t, h, http.MethodPost, "/v1/reservations",
		`{"user_id":"userC","role":"student","zone_id":"`+zone.ID+`","permit_type":"daily","start_date":"2026-10-01","end_date":"2026-10-05"}`, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit C: expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var listed listPermitsResponse
	rec = doJSON(t, h, http.MethodGet, "/v1/users/userB/permits", "", &listed)
	if rec.Code != http.StatusOK {
		t.Fatalf("list B: expected status 200, got %d", rec.Code)
	}
	if len(listed.Permits) != 1 || listed.Permits[0].ID != permitB.ID {
		t.Fatalf("unexpected permits for userB: %+v", listed.Permits)
	}
}

func TestRouter_Plumbing(t *testing.T) {
	t.Parallel()

	h := newTestServer(t)

	t.Run("health", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/metrics", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/v1/nope", "", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
		var resp errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Code != codeNotFound {
			t.Fatalf("expected code %s, got %s", codeNotFound, resp.Code)
		}
	})

	t.Run("wrong verb", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodDelete, "/v1/reservations", "", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected status 405, got %d", rec.Code)
		}
	})
}
