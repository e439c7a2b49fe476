package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chandarr7/SmartParkIntelligence/internal/app"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

// ZoneAdmin manages the zone catalog.
type ZoneAdmin interface {
	CreateZone(rctx context.Context, in app.CreateZoneInput) (domain.Zone, error)
	ListZones(rctx context.Context) ([]domain.Zone, error)
	ResizeZone(rctx context.Context, zoneID string, newCapacity int) (domain.Zone, error)
}

// HandleCreateZone returns an HTTP handler for creating zones.
func HandleCreateZone(svc ZoneAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createZoneRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		zone, err := svc.CreateZone(r.Context(), app.CreateZoneInput{
			Name:     req.Name,
			Capacity: req.Capacity,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toZoneJSON(zone))
	}
}

type createZoneRequest struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// HandleListZones returns an HTTP handler for listing zones.
func HandleListZones(svc ZoneAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zones, err := svc.ListZones(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		out := make([]zoneJSON, 0, len(zones))
		for _, z := range zones {
			out = append(out, toZoneJSON(z))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(listZonesResponse{Zones: out})
	}
}

type listZonesResponse struct {
	Zones []zoneJSON `json:"zones"`
}

// HandleResizeZone returns an HTTP handler for capacity changes. A resize
// that would strand already-held future days is rejected with a conflict.
func HandleResizeZone(svc ZoneAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resizeZoneRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		zone, err := svc.ResizeZone(r.Context(), chi.URLParam(r, "zoneID"), req.Capacity)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toZoneJSON(zone))
	}
}

type resizeZoneRequest struct {
	Capacity int `json:"capacity"`
}

type zoneJSON struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

func toZoneJSON(z domain.Zone) zoneJSON {
	return zoneJSON{ID: z.ID, Name: z.Name, Capacity: z.Capacity}
}
