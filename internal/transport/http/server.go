package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chandarr7/SmartParkIntelligence/internal/clock"
)

// Services bundles everything the router needs. Each handler still binds to
// its own minimal interface; this struct only exists for wiring.
type Services struct {
	Reservations interface {
		ReservationSubmitter
		AvailabilityChecker
		PermitReader
		PendingWithdrawer
		PaymentCallbacks
	}
	Cancellations PermitCanceller
	Waitlist      WaitlistActor
	Admin         ZoneAdmin
}

// NewRouter builds the engine's HTTP surface.
func NewRouter(svcs Services, clk clock.Clock, allowedOrigins []string, logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return RequestLogger(next, logger)
	})

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(MethodNotAllowedHandler().ServeHTTP)

	r.Get("/health", HealthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/reservations", HandleSubmitReservation(svcs.Reservations))
		r.Get("/zones/{zoneID}/availability", HandleAvailability(svcs.Reservations))

		r.Get("/permits/{permitID}", HandleGetPermit(svcs.Reservations))
		r.Post("/permits/{permitID}/cancel", HandleCancelPermit(svcs.Cancellations, clk))
		r.Post("/permits/{permitID}/withdraw", HandleWithdrawPermit(svcs.Reservations))
		r.Get("/users/{userID}/permits", HandleListUserPermits(svcs.Reservations))

		r.Get("/waitlist/{entryID}", HandleEntryStatus(svcs.Waitlist))
		r.Post("/waitlist/{entryID}/claim", HandleClaimOffer(svcs.Waitlist))
		r.Post("/waitlist/{entryID}/withdraw", HandleWithdrawEntry(svcs.Waitlist))

		r.Post("/payments/callback", HandlePaymentCallback(svcs.Reservations))

		r.Route("/admin", func(r chi.Router) {
			r.Post("/zones", HandleCreateZone(svcs.Admin))
			r.Get("/zones", HandleListZones(svcs.Admin))
			r.Put("/zones/{zoneID}/capacity", HandleResizeZone(svcs.Admin))
		})
	})

	return CORS(allowedOrigins, r)
}
