package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}

func TestStore_Zones(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateZone(ctx, domain.Zone{ID: "z1", Name: "Area B", Capacity: 10}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateZone(ctx, domain.Zone{ID: "z2", Name: "Area A", Capacity: 5}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.CreateZone(ctx, domain.Zone{ID: "z1", Name: "Other", Capacity: 1}); !errors.Is(err, domain.ErrZoneAlreadyExists) {
		t.Fatalf("expected ErrZoneAlreadyExists, got %v", err)
	}

	zones, err := s.ListZones(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(zones) != 2 || zones[0].Name != "Area A" || zones[1].Name != "Area B" {
		t.Fatalf("expected zones sorted by name, got %+v", zones)
	}

	if err := s.UpdateZoneCapacity(ctx, "z1", 42); err != nil {
		t.Fatalf("update: %v", err)
	}
	z, err := s.GetZone(ctx, "z1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if z.Capacity != 42 {
		t.Fatalf("expected capacity 42, got %d", z.Capacity)
	}

	if _, err := s.GetZone(ctx, "missing"); !errors.Is(err, domain.ErrZoneNotFound) {
		t.Fatalf("expected ErrZoneNotFound, got %v", err)
	}
	if err := s.UpdateZoneCapacity(ctx, "missing", 1); !errors.Is(err, domain.ErrZoneNotFound) {
		t.Fatalf("expected ErrZoneNotFound, got %v", err)
	}
}

func TestStore_Permits(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)

	if err := s.CreateZone(ctx, domain.Zone{ID: "z1", Name: "Area A", Capacity: 5}); err != nil {
		t.Fatalf("create zone: %v", err)
	}

	p := domain.Permit{
		ID:              "p1",
		UserID:          "alice",
		ZoneID:          "z1",
		Range:           domain.DateRange{Start: 20700, End: 20704},
		Type:            domain.PermitDaily,
		AddOns:          []string{"ev_charging", "motorcycle"},
		PriceCents:      1500,
		PaymentRef:      "ref-1",
		HoldToken:       "tok-1",
		Status:          domain.PermitStatusPending,
		PaymentDeadline: base.Add(15 * time.Minute),
		CreatedAt:       base,
	}
	if err := s.CreatePermit(ctx, p); err != nil {
		t.Fatalf("create permit: %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		got, err := s.GetPermit(ctx, "p1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Range != p.Range || got.Type != p.Type || got.PriceCents != p.PriceCents {
			t.Fatalf("unexpected permit %+v", got)
		}
		if len(got.AddOns) != 2 || got.AddOns[0] != "ev_charging" {
			t.Fatalf("unexpected add-ons %v", got.AddOns)
		}
		if !got.PaymentDeadline.Equal(p.PaymentDeadline) || !got.CreatedAt.Equal(p.CreatedAt) {
			t.Fatalf("timestamps mangled: %+v", got)
		}
	})

	t.Run("lookup by payment ref", func(t *testing.T) {
		got, err := s.GetPermitByPaymentRef(ctx, "ref-1")
		if err != nil {
			t.Fatalf("get by ref: %v", err)
		}
		if got == nil || got.ID != "p1" {
			t.Fatalf("expected p1, got %+v", got)
		}
		missing, err := s.GetPermitByPaymentRef(ctx, "ref-none")
		if err != nil {
			t.Fatalf("get by ref: %v", err)
		}
		if missing != nil {
			t.Fatalf("expected nil for unknown ref, got %+v", missing)
		}
	})

	t.Run("status update and pending due", func(t *testing.T) {
		due, err := s.ListPendingDue(ctx, base.Add(time.Hour))
		if err != nil {
			t.Fatalf("list due: %v", err)
		}
		if len(due) != 1 || due[0].ID != "p1" {
			t.Fatalf("expected p1 due, got %+v", due)
		}

		p.Status = domain.PermitStatusActive
		if err := s.UpdatePermit(ctx, p); err != nil {
			t.Fatalf("update: %v", err)
		}
		due, err = s.ListPendingDue(ctx, base.Add(time.Hour))
		if err != nil {
			t.Fatalf("list due: %v", err)
		}
		if len(due) != 0 {
			t.Fatalf("expected no due permits after activation, got %+v", due)
		}

		active, err := s.ListPermitsByStatus(ctx, domain.PermitStatusActive)
		if err != nil {
			t.Fatalf("list by status: %v", err)
		}
		if len(active) != 1 || active[0].ID != "p1" {
			t.Fatalf("expected p1 active, got %+v", active)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.DeletePermit(ctx, "p1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.GetPermit(ctx, "p1"); !errors.Is(err, domain.ErrPermitNotFound) {
			t.Fatalf("expected ErrPermitNotFound, got %v", err)
		}
	})
}

func TestStore_WaitlistEntries(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)

	mk := func(id string, status domain.WaitlistStatus, at time.Time) domain.WaitlistEntry {
		return domain.WaitlistEntry{
			ID:         id,
			UserID:     "user-" + id,
			UserRole:   domain.RoleStudent,
			ZoneID:     "z1",
			Range:      domain.DateRange{Start: 20700, End: 20704},
			Type:       domain.PermitDaily,
			Status:     status,
			EnqueuedAt: at,
		}
	}

	for _, e := range []domain.WaitlistEntry{
		mk("e2", domain.WaitlistStatusQueued, base.Add(time.Minute)),
		mk("e1", domain.WaitlistStatusQueued, base),
		mk("e3", domain.WaitlistStatusWithdrawn, base.Add(2*time.Minute)),
	} {
		if err := s.CreateEntry(ctx, e); err != nil {
			t.Fatalf("create %s: %v", e.ID, err)
		}
	}

	open, err := s.ListOpenEntriesByZone(ctx, "z1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 2 || open[0].ID != "e1" || open[1].ID != "e2" {
		t.Fatalf("unexpected open entries: %+v", open)
	}

	// Offer round trip: the expiry timestamp must survive.
	offered := open[0]
	offered.Status = domain.WaitlistStatusOffered
	offered.OfferExpiresAt = base.Add(24 * time.Hour)
	if err := s.UpdateEntry(ctx, offered); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetEntry(ctx, "e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.WaitlistStatusOffered || !got.OfferExpiresAt.Equal(offered.OfferExpiresAt) {
		t.Fatalf("offer did not round trip: %+v", got)
	}

	if _, err := s.GetEntry(ctx, "missing"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if err := s.UpdateEntry(ctx, mk("missing", domain.WaitlistStatusQueued, base)); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}
