package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chandarr7/SmartParkIntelligence/internal/app"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

// AvailabilityChecker answers read-only capacity queries.
type AvailabilityChecker interface {
	Availability(rctx context.Context, zoneID string, rng domain.DateRange, units int) (app.ZoneAvailability, error)
}

// HandleAvailability returns an HTTP handler for zone availability queries.
// Query parameters: start, end (YYYY-MM-DD, end defaults to start) and an
// optional units count (default 1).
func HandleAvailability(svc AvailabilityChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start, err := domain.ParseDay(q.Get("start"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		end := start
		if s := q.Get("end"); s != "" {
			if end, err = domain.ParseDay(s); err != nil {
				writeDomainError(w, err)
				return
			}
		}
		rng, err := domain.NewDateRange(start, end)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		units := 1
		if s := q.Get("units"); s != "" {
			units, err = strconv.Atoi(s)
			if err != nil || units <= 0 {
				writeError(w, http.StatusBadRequest, codeInvalidRequest, "units must be a positive integer")
				return
			}
		}

		avail, err := svc.Availability(r.Context(), chi.URLParam(r, "zoneID"), rng, units)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		days := make([]dayAvailability, 0, len(avail.PerDayFree))
		for d, free := range avail.PerDayFree {
			days = append(days, dayAvailability{Date: d.String(), Free: free})
		}
		sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(availabilityResponse{
			ZoneID:    avail.ZoneID,
			Available: avail.Available,
			Capacity:  avail.Capacity,
			Tier:      string(avail.Tier),
			Days:      days,
		})
	}
}

type availabilityResponse struct {
	ZoneID    string            `json:"zone_id"`
	Available bool              `json:"available"`
	Capacity  int               `json:"capacity"`
	Tier      string            `json:"tier"`
	Days      []dayAvailability `json:"days"`
}

type dayAvailability struct {
	Date string `json:"date"`
	Free int    `json:"free"`
}
