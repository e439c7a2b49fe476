package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chandarr7/SmartParkIntelligence/internal/app"
	"github.com/chandarr7/SmartParkIntelligence/internal/clock"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

// permitJSON is the wire shape of a permit shared by every handler that
// returns one.
type permitJSON struct {
	ID              string   `json:"id"`
	UserID          string   `json:"user_id"`
	ZoneID          string   `json:"zone_id"`
	StartDate       string   `json:"start_date"`
	EndDate         string   `json:"end_date"`
	PermitType      string   `json:"permit_type"`
	AddOns          []string `json:"add_ons,omitempty"`
	PriceCents      int64    `json:"price_cents"`
	Status          string   `json:"status"`
	PaymentDeadline string   `json:"payment_deadline,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

func toPermitJSON(p domain.Permit) permitJSON {
	out := permitJSON{
		ID:         p.ID,
		UserID:     p.UserID,
		ZoneID:     p.ZoneID,
		StartDate:  p.Range.Start.String(),
		EndDate:    p.Range.End.String(),
		PermitType: string(p.Type),
		AddOns:     p.AddOns,
		PriceCents: p.PriceCents,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.Status == domain.PermitStatusPending {
		out.PaymentDeadline = p.PaymentDeadline.UTC().Format(time.RFC3339)
	}
	return out
}

// PermitReader reads single permits and per-user listings.
type PermitReader interface {
	PermitStatus(rctx context.Context, permitID string) (domain.Permit, error)
	UserPermits(rctx context.Context, userID string) ([]domain.Permit, error)
}

// HandleGetPermit returns an HTTP handler for reading one permit.
func HandleGetPermit(svc PermitReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.PermitStatus(r.Context(), chi.URLParam(r, "permitID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toPermitJSON(p))
	}
}

// HandleListUserPermits returns an HTTP handler for a user's permits.
func HandleListUserPermits(svc PermitReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		permits, err := svc.UserPermits(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		out := make([]permitJSON, 0, len(permits))
		for _, p := range permits {
			out = append(out, toPermitJSON(p))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(listPermitsResponse{Permits: out})
	}
}

type listPermitsResponse struct {
	Permits []permitJSON `json:"permits"`
}

// PermitCanceller cancels an Active permit as of a request instant.
type PermitCanceller interface {
	Cancel(rctx context.Context, permitID string, requestedAt time.Time) (app.CancelResult, error)
}

// HandleCancelPermit returns an HTTP handler for cancellation. The request
// instant is the server clock, not client input.
func HandleCancelPermit(svc PermitCanceller, clk clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Cancel(r.Context(), chi.URLParam(r, "permitID"), clk.Now())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := cancelPermitResponse{
			Permit:      toPermitJSON(res.Permit),
			RefundCents: res.RefundCents,
		}
		if res.HasReleased {
			resp.ReleasedFrom = res.Released.Start.String()
			resp.ReleasedTo = res.Released.End.String()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type cancelPermitResponse struct {
	Permit       permitJSON `json:"permit"`
	RefundCents  int64      `json:"refund_cents"`
	ReleasedFrom string     `json:"released_from,omitempty"`
	ReleasedTo   string     `json:"released_to,omitempty"`
}

// PendingWithdrawer abandons a Pending permit before its payment resolves.
type PendingWithdrawer interface {
	WithdrawPending(rctx context.Context, permitID string) error
}

// HandleWithdrawPermit returns an HTTP handler for abandoning checkout.
func HandleWithdrawPermit(svc PendingWithdrawer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.WithdrawPending(r.Context(), chi.URLParam(r, "permitID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
