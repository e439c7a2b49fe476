package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chandarr7/SmartParkIntelligence/internal/app"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

// ReservationSubmitter is the minimal interface needed to submit a
// reservation request.
type ReservationSubmitter interface {
	Submit(rctx context.Context, in app.SubmitInput) (app.SubmitOutcome, error)
}

// HandleSubmitReservation returns an HTTP handler for reservation requests.
// Insufficient capacity is not an error at this layer: the request lands on
// the waitlist and the response says so.
func HandleSubmitReservation(svc ReservationSubmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitReservationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out, err := svc.Submit(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch out.Kind {
		case app.OutcomeWaitlisted:
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(submitReservationResponse{
				Outcome:          string(out.Kind),
				WaitlistEntryID:  out.WaitlistEntryID,
				WaitlistPosition: out.WaitlistPosition,
			})
		default:
			permit := toPermitJSON(out.Permit)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(submitReservationResponse{
				Outcome:    string(out.Kind),
				Permit:     &permit,
				QuoteCents: out.QuoteCents,
				PaymentRef: out.PaymentRef,
			})
		}
	}
}

type submitReservationRequest struct {
	UserID     string   `json:"user_id"`
	Role       string   `json:"role"`
	ZoneID     string   `json:"zone_id"`
	PermitType string   `json:"permit_type"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	AddOns     []string `json:"add_ons"`
}

func (r submitReservationRequest) toInput() (app.SubmitInput, error) {
	if r.UserID == "" || r.ZoneID == "" {
		return app.SubmitInput{}, domain.ErrInvalidRequest
	}
	role, err := domain.ParseRole(r.Role)
	if err != nil {
		return app.SubmitInput{}, err
	}
	typ, err := domain.ParsePermitType(r.PermitType)
	if err != nil {
		return app.SubmitInput{}, err
	}
	start, err := domain.ParseDay(r.StartDate)
	if err != nil {
		return app.SubmitInput{}, err
	}
	end := start
	if r.EndDate != "" {
		if end, err = domain.ParseDay(r.EndDate); err != nil {
			return app.SubmitInput{}, err
		}
	}
	rng, err := domain.NewDateRange(start, end)
	if err != nil {
		return app.SubmitInput{}, err
	}
	return app.SubmitInput{
		UserID: r.UserID,
		Role:   role,
		ZoneID: r.ZoneID,
		Range:  rng,
		Type:   typ,
		AddOns: r.AddOns,
	}, nil
}

type submitReservationResponse struct {
	Outcome          string      `json:"outcome"`
	Permit           *permitJSON `json:"permit,omitempty"`
	QuoteCents       int64       `json:"quote_cents,omitempty"`
	PaymentRef       string      `json:"payment_ref,omitempty"`
	WaitlistEntryID  string      `json:"waitlist_entry_id,omitempty"`
	WaitlistPosition int         `json:"waitlist_position,omitempty"`
}
