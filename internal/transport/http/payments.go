package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

// PaymentCallbacks is what the payment gateway's webhook needs from the
// reservation service.
type PaymentCallbacks interface {
	ConfirmPayment(rctx context.Context, paymentRef string) (domain.Permit, error)
	FailPayment(rctx context.Context, paymentRef, reason string) error
}

// HandlePaymentCallback returns an HTTP handler for the gateway webhook.
// One endpoint carries both outcomes; the status field decides which.
func HandlePaymentCallback(svc PaymentCallbacks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req paymentCallbackRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.PaymentRef == "" {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "payment_ref is required")
			return
		}

		switch req.Status {
		case "succeeded":
			p, err := svc.ConfirmPayment(r.Context(), req.PaymentRef)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(toPermitJSON(p))
		case "failed":
			if err := svc.FailPayment(r.Context(), req.PaymentRef, req.Reason); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "status must be succeeded or failed")
		}
	}
}

type paymentCallbackRequest struct {
	PaymentRef string `json:"payment_ref"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}
