package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

const (
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeInvalidRequest       = "invalid_request"
	codeIneligible           = "ineligible"
	codeInsufficientCapacity = "insufficient_capacity"
	codeZoneNotFound         = "zone_not_found"
	codeZoneAlreadyExists    = "zone_already_exists"
	codeInvalidCapacity      = "invalid_capacity"
	codeCapacityConflict     = "capacity_conflict"
	codePermitNotFound       = "permit_not_found"
	codeAlreadyTerminal      = "already_terminal"
	codePermitNotPending     = "permit_not_pending"
	codePaymentRefUnknown    = "payment_ref_unknown"
	codePaymentWindowElapsed = "payment_window_elapsed"
	codeEntryNotFound        = "waitlist_entry_not_found"
	codeEntryNotOffered      = "waitlist_entry_not_offered"
	codeEntryTerminal        = "waitlist_entry_terminal"
	codeOfferExpired         = "waitlist_offer_expired"
	codePermitTypeUnknown    = "permit_type_unknown"
	codeForbidden            = "forbidden"
	codeMethodNotAllowed     = "method_not_allowed"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the engine's sentinel errors onto HTTP statuses.
// Unknown errors become an opaque 500.
func writeDomainError(w http.ResponseWriter, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.sentinel) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

var errorTable = []struct {
	sentinel error
	status   int
	code     string
}{
	{domain.ErrInvalidRequest, http.StatusBadRequest, codeInvalidRequest},
	{domain.ErrPermitTypeUnknown, http.StatusBadRequest, codePermitTypeUnknown},
	{domain.ErrInvalidCapacity, http.StatusBadRequest, codeInvalidCapacity},
	{domain.ErrIneligible, http.StatusForbidden, codeIneligible},
	{domain.ErrZoneNotFound, http.StatusNotFound, codeZoneNotFound},
	{domain.ErrZoneAlreadyExists, http.StatusConflict, codeZoneAlreadyExists},
	{domain.ErrCapacityConflict, http.StatusConflict, codeCapacityConflict},
	{domain.ErrInsufficientCapacity, http.StatusConflict, codeInsufficientCapacity},
	{domain.ErrPermitNotFound, http.StatusNotFound, codePermitNotFound},
	{domain.ErrAlreadyTerminal, http.StatusConflict, codeAlreadyTerminal},
	{domain.ErrPermitNotPending, http.StatusConflict, codePermitNotPending},
	{domain.ErrPaymentRefUnknown, http.StatusNotFound, codePaymentRefUnknown},
	{domain.ErrPaymentWindowElapsed, http.StatusConflict, codePaymentWindowElapsed},
	{domain.ErrEntryNotFound, http.StatusNotFound, codeEntryNotFound},
	{domain.ErrEntryNotOffered, http.StatusConflict, codeEntryNotOffered},
	{domain.ErrEntryTerminal, http.StatusConflict, codeEntryTerminal},
	{domain.ErrOfferExpired, http.StatusConflict, codeOfferExpired},
	{domain.ErrHoldReleased, http.StatusConflict, codeAlreadyTerminal},
}
