package pricing

import (
	"errors"
	"testing"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

func TestResolver_Quote(t *testing.T) {
	t.Parallel()

	r := NewResolver(DefaultRates(), DefaultAddOns())
	rng := func(days int) domain.DateRange {
		return domain.DateRange{Start: 100, End: domain.Day(100 + days - 1)}
	}

	t.Run("daily multiplies by range length", func(t *testing.T) {
		got, err := r.Quote(domain.RoleStudent, domain.PermitDaily, rng(5), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != 1500 {
			t.Fatalf("expected 1500, got %d", got)
		}
	})

	t.Run("semester is flat regardless of range", func(t *testing.T) {
		short, err := r.Quote(domain.RoleStudent, domain.PermitSemester, rng(30), nil)
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		long, err := r.Quote(domain.RoleStudent, domain.PermitSemester, rng(120), nil)
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		if short != 9000 || long != 9000 {
			t.Fatalf("expected flat 9000, got %d and %d", short, long)
		}
	})

	t.Run("role multiplier scales base", func(t *testing.T) {
		got, err := r.Quote(domain.RoleFaculty, domain.PermitDaily, rng(4), nil)
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		// 4 days * 300 = 1200, faculty 1.25x = 1500.
		if got != 1500 {
			t.Fatalf("expected 1500, got %d", got)
		}
	})

	t.Run("flat add-ons stack on the adjusted base", func(t *testing.T) {
		got, err := r.Quote(domain.RoleStudent, domain.PermitDaily, rng(2), []string{"ev_charging", "motorcycle"})
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		if got != 600+2500+500 {
			t.Fatalf("expected 3600, got %d", got)
		}
	})

	t.Run("percent add-on applies to role-adjusted base", func(t *testing.T) {
		got, err := r.Quote(domain.RoleStaff, domain.PermitSemester, rng(100), []string{"reserved_spot"})
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		// 9000 * 1.15 = 10350, plus 15% of 10350 = 1552 (floored).
		if got != 10350+1552 {
			t.Fatalf("expected 11902, got %d", got)
		}
	})

	t.Run("add-on order never changes the amount", func(t *testing.T) {
		a, err := r.Quote(domain.RoleStudent, domain.PermitDaily, rng(3), []string{"motorcycle", "reserved_spot", "ev_charging"})
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		b, err := r.Quote(domain.RoleStudent, domain.PermitDaily, rng(3), []string{"ev_charging", "motorcycle", "reserved_spot"})
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		if a != b {
			t.Fatalf("expected equal quotes, got %d and %d", a, b)
		}
	})

	t.Run("duplicate add-on rejected", func(t *testing.T) {
		_, err := r.Quote(domain.RoleStudent, domain.PermitDaily, rng(1), []string{"ev_charging", "ev_charging"})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest, got %v", err)
		}
	})

	t.Run("unknown add-on rejected", func(t *testing.T) {
		_, err := r.Quote(domain.RoleStudent, domain.PermitDaily, rng(1), []string{"valet"})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest, got %v", err)
		}
	})

	t.Run("unknown permit type rejected", func(t *testing.T) {
		_, err := r.Quote(domain.RoleStudent, domain.PermitType("hourly"), rng(1), nil)
		if !errors.Is(err, domain.ErrPermitTypeUnknown) {
			t.Fatalf("expected ErrPermitTypeUnknown, got %v", err)
		}
	})
}

func TestProratedRefund(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		price     int64
		remaining int
		total     int
		want      int64
	}{
		{"six of ten days", 3000, 6, 10, 1800},
		{"floors the fraction", 1000, 1, 3, 333},
		{"nothing remaining", 3000, 0, 10, 0},
		{"remaining clamped to total", 3000, 12, 10, 3000},
		{"zero total", 3000, 5, 0, 0},
		{"whole range", 9000, 120, 120, 9000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ProratedRefund(tc.price, tc.remaining, tc.total)
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}
