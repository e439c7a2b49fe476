package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chandarr7/SmartParkIntelligence/internal/app"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

func TestHandleSubmitReservation(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	start, _ := domain.ParseDay("2026-10-01")
	pendingPermit := domain.Permit{
		ID:              "permit-123",
		UserID:          "u1",
		ZoneID:          "z1",
		Range:           domain.DateRange{Start: start, End: start + 4},
		Type:            domain.PermitDaily,
		PriceCents:      1500,
		PaymentRef:      "pay-123",
		Status:          domain.PermitStatusPending,
		PaymentDeadline: now.Add(15 * time.Minute),
		CreatedAt:       now,
	}

	tests := []struct {
		name           string
		body           string
		outcome        app.SubmitOutcome
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name: "pending payment",
			body: `{"user_id":"u1","role":"student","zone_id":"z1","permit_type":"daily","start_date":"2026-10-01","end_date":"2026-10-05"}`,
			outcome: app.SubmitOutcome{
				Kind:       app.OutcomePendingPayment,
				Permit:     pendingPermit,
				QuoteCents: 1500,
				PaymentRef: "pay-123",
			},
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"payment_ref":"pay-123"`,
		},
		{
			name: "waitlisted",
			body: `{"user_id":"u1","role":"student","zone_id":"z1","permit_type":"daily","start_date":"2026-10-01"}`,
			outcome: app.SubmitOutcome{
				Kind:             app.OutcomeWaitlisted,
				WaitlistEntryID:  "entry-9",
				WaitlistPosition: 3,
			},
			expectedStatus: http.StatusAccepted,
			expectedSubstr: `"waitlist_position":3`,
		},
		{
			name:           "invalid json",
			body:           `{"user_id":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown field",
			body:           `{"user_id":"u1","plate":"AB-123"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing user",
			body:           `{"role":"student","zone_id":"z1","permit_type":"daily","start_date":"2026-10-01"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad role",
			body:           `{"user_id":"u1","role":"janitor","zone_id":"z1","permit_type":"daily","start_date":"2026-10-01"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad permit type",
			body:           `{"user_id":"u1","role":"student","zone_id":"z1","permit_type":"weekly","start_date":"2026-10-01"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "inverted range",
			body:           `{"user_id":"u1","role":"student","zone_id":"z1","permit_type":"daily","start_date":"2026-10-05","end_date":"2026-10-01"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "ineligible",
			body:           `{"user_id":"u1","role":"visitor","zone_id":"z1","permit_type":"semester","start_date":"2026-10-01"}`,
			serviceErr:     domain.ErrIneligible,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "zone not found",
			body:           `{"user_id":"u1","role":"student","zone_id":"nope","permit_type":"daily","start_date":"2026-10-01"}`,
			serviceErr:     domain.ErrZoneNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "internal error",
			body:           `{"user_id":"u1","role":"student","zone_id":"z1","permit_type":"daily","start_date":"2026-10-01"}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubSubmitter{outcome: tt.outcome, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, "/v1/reservations", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleSubmitReservation(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleSubmitReservation_DeadlineOnlyWhilePending(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	start, _ := domain.ParseDay("2026-10-01")
	svc := &stubSubmitter{outcome: app.SubmitOutcome{
		Kind: app.OutcomePendingPayment,
		Permit: domain.Permit{
			ID:              "permit-123",
			Range:           domain.DateRange{Start: start, End: start},
			Type:            domain.PermitDaily,
			Status:          domain.PermitStatusPending,
			PaymentDeadline: now.Add(15 * time.Minute),
			CreatedAt:       now,
		},
	}}

	body := `{"user_id":"u1","role":"student","zone_id":"z1","permit_type":"daily","start_date":"2026-10-01"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/reservations", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	HandleSubmitReservation(svc).ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), `"payment_deadline":"2026-09-14T09:15:00Z"`) {
		t.Fatalf("expected payment deadline in response, got %q", rec.Body.String())
	}
}

type stubSubmitter struct {
	outcome app.SubmitOutcome
	err     error
}

func (s *stubSubmitter) Submit(_ context.Context, _ app.SubmitInput) (app.SubmitOutcome, error) {
	if s.err != nil {
		return app.SubmitOutcome{}, s.err
	}
	return s.outcome, nil
}
