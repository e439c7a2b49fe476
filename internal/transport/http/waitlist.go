package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chandarr7/SmartParkIntelligence/internal/app"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

// WaitlistActor is the minimal surface a waitlist holder interacts with.
type WaitlistActor interface {
	Claim(rctx context.Context, entryID string) (app.SubmitOutcome, error)
	Withdraw(rctx context.Context, entryID string) error
	Status(rctx context.Context, entryID string) (domain.WaitlistEntry, int, error)
}

// HandleClaimOffer returns an HTTP handler for accepting a waitlist offer.
// A successful claim produces a Pending permit awaiting payment.
func HandleClaimOffer(svc WaitlistActor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.Claim(r.Context(), chi.URLParam(r, "entryID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		permit := toPermitJSON(out.Permit)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(claimOfferResponse{
			Permit:     permit,
			QuoteCents: out.QuoteCents,
			PaymentRef: out.PaymentRef,
		})
	}
}

type claimOfferResponse struct {
	Permit     permitJSON `json:"permit"`
	QuoteCents int64      `json:"quote_cents"`
	PaymentRef string     `json:"payment_ref"`
}

// HandleWithdrawEntry returns an HTTP handler for leaving the waitlist.
func HandleWithdrawEntry(svc WaitlistActor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Withdraw(r.Context(), chi.URLParam(r, "entryID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleEntryStatus returns an HTTP handler for reading a waitlist entry
// and its current queue position.
func HandleEntryStatus(svc WaitlistActor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, position, err := svc.Status(r.Context(), chi.URLParam(r, "entryID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := entryStatusResponse{
			ID:         entry.ID,
			UserID:     entry.UserID,
			ZoneID:     entry.ZoneID,
			StartDate:  entry.Range.Start.String(),
			EndDate:    entry.Range.End.String(),
			PermitType: string(entry.Type),
			Status:     string(entry.Status),
			Position:   position,
		}
		if entry.Status == domain.WaitlistStatusOffered {
			resp.OfferExpiresAt = entry.OfferExpiresAt.UTC().Format(time.RFC3339)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type entryStatusResponse struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	ZoneID         string `json:"zone_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	PermitType     string `json:"permit_type"`
	Status         string `json:"status"`
	Position       int    `json:"position,omitempty"`
	OfferExpiresAt string `json:"offer_expires_at,omitempty"`
}
