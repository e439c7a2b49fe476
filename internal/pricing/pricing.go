// Package pricing resolves deterministic price quotes. Quotes are pure
// functions of their inputs so the amount shown at submit time and the
// amount charged at commit time are reproducible and auditable.
package pricing

import (
	"fmt"
	"sort"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

// Rates holds base charges in cents. Per-day types multiply by range length;
// term and event types are flat.
type Rates struct {
	DailyPerDayCents   int64
	VisitorPerDayCents int64
	SemesterCents      int64
	AcademicYearCents  int64
	EventCents         int64

	// RoleMultiplierBps scales the base charge per role, in basis points
	// (10000 = 1.0). Missing roles default to 10000.
	RoleMultiplierBps map[domain.Role]int64
}

// DefaultRates returns the institutional rate card.
func DefaultRates() Rates {
	return Rates{
		DailyPerDayCents:   300,
		VisitorPerDayCents: 500,
		SemesterCents:      9000,
		AcademicYearCents:  16000,
		EventCents:         1500,
		RoleMultiplierBps: map[domain.Role]int64{
			domain.RoleStudent: 10000,
			domain.RoleFaculty: 12500,
			domain.RoleStaff:   11500,
			domain.RoleVisitor: 10000,
		},
	}
}

// DefaultAddOns returns the built-in add-on catalog.
func DefaultAddOns() []domain.AddOn {
	return []domain.AddOn{
		{Code: "ev_charging", FlatCents: 2500},
		{Code: "reserved_spot", Percent: 15},
		{Code: "motorcycle", FlatCents: 500},
	}
}

// Resolver computes quotes from the rate card and add-on catalog.
type Resolver struct {
	rates  Rates
	addOns map[string]domain.AddOn
}

func NewResolver(rates Rates, catalog []domain.AddOn) *Resolver {
	m := make(map[string]domain.AddOn, len(catalog))
	for _, a := range catalog {
		m[a.Code] = a
	}
	return &Resolver{rates: rates, addOns: m}
}

// Quote returns the amount in cents for the permit described. No side
// effects, no I/O; integer arithmetic only.
func (r *Resolver) Quote(role domain.Role, typ domain.PermitType, rng domain.DateRange, addOnCodes []string) (int64, error) {
	base, err := r.base(typ, rng)
	if err != nil {
		return 0, err
	}

	bps, ok := r.rates.RoleMultiplierBps[role]
	if !ok {
		bps = 10000
	}
	amount := base * bps / 10000

	// Sort codes so duplicate-free ordering never changes the result.
	codes := append([]string(nil), addOnCodes...)
	sort.Strings(codes)
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if seen[code] {
			return 0, fmt.Errorf("%w: duplicate add-on %q", domain.ErrInvalidRequest, code)
		}
		seen[code] = true
		addOn, ok := r.addOns[code]
		if !ok {
			return 0, fmt.Errorf("%w: unknown add-on %q", domain.ErrInvalidRequest, code)
		}
		if addOn.Percent != 0 {
			amount += base * bps / 10000 * int64(addOn.Percent) / 100
		} else {
			amount += addOn.FlatCents
		}
	}
	return amount, nil
}

func (r *Resolver) base(typ domain.PermitType, rng domain.DateRange) (int64, error) {
	days := int64(rng.TotalDays())
	switch typ {
	case domain.PermitDaily:
		return r.rates.DailyPerDayCents * days, nil
	case domain.PermitVisitor:
		return r.rates.VisitorPerDayCents * days, nil
	case domain.PermitSemester:
		return r.rates.SemesterCents, nil
	case domain.PermitAcademicYear:
		return r.rates.AcademicYearCents, nil
	case domain.PermitEvent:
		return r.rates.EventCents, nil
	}
	return 0, domain.ErrPermitTypeUnknown
}

// ProratedRefund computes the whole-day proration refund: price times
// remaining days over total days, exact integer arithmetic with the cent
// floored. The fraction is clamped to [0, 1].
func ProratedRefund(priceCents int64, remainingDays, totalDays int) int64 {
	if totalDays <= 0 || remainingDays <= 0 {
		return 0
	}
	if remainingDays > totalDays {
		remainingDays = totalDays
	}
	return priceCents * int64(remainingDays) / int64(totalDays)
}
