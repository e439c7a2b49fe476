// Package metrics defines the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ReservationsTotal counts Submit outcomes: pending_payment, waitlisted,
// ineligible, invalid.
var ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "smartpark",
	Subsystem: "reservations",
	Name:      "submitted_total",
	Help:      "Reservation submissions by outcome.",
}, []string{"outcome"})

// HoldsReleasedTotal counts ledger releases by reason: payment_failed,
// payment_timeout, withdrawn, cancelled.
var HoldsReleasedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "smartpark",
	Subsystem: "ledger",
	Name:      "holds_released_total",
	Help:      "Capacity holds released by reason.",
}, []string{"reason"})

// PermitsActivated counts permits that reached Active.
var PermitsActivated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "smartpark",
	Subsystem: "reservations",
	Name:      "permits_activated_total",
	Help:      "Permits activated after payment confirmation.",
})

// WaitlistDepth tracks queued entries per zone.
var WaitlistDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "smartpark",
	Subsystem: "waitlist",
	Name:      "depth",
	Help:      "Queued waitlist entries per zone.",
}, []string{"zone"})

// WaitlistOffersTotal counts offers by result: claimed, expired, withdrawn.
var WaitlistOffersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "smartpark",
	Subsystem: "waitlist",
	Name:      "offers_total",
	Help:      "Waitlist offers by final result.",
}, []string{"result"})

// CancellationsTotal counts processed cancellations.
var CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "smartpark",
	Subsystem: "reservations",
	Name:      "cancellations_total",
	Help:      "Active permits cancelled.",
})

// RefundCents sums refund amounts requested from the payment collaborator.
var RefundCents = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "smartpark",
	Subsystem: "reservations",
	Name:      "refund_cents_total",
	Help:      "Total prorated refund cents requested.",
})
