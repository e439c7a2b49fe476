package app

import (
	"context"
	"fmt"
	"log"

	"github.com/chandarr7/SmartParkIntelligence/internal/clock"
	"github.com/chandarr7/SmartParkIntelligence/internal/domain"
	"github.com/chandarr7/SmartParkIntelligence/internal/ledger"
)

// Bootstrap rebuilds the in-memory engine state from the store: zone
// registrations, ledger holds for live permits, and waitlist queues. The
// store is the durable record; the ledger is authoritative at runtime.
func Bootstrap(
	ctx context.Context,
	zones ZoneRepository,
	permits PermitRepository,
	led *ledger.Ledger,
	waitlist *WaitlistManager,
	clk clock.Clock,
	logger *log.Logger,
) error {
	if logger == nil {
		logger = log.Default()
	}

	zoneList, err := zones.ListZones(ctx)
	if err != nil {
		return fmt.Errorf("load zones: %w", err)
	}
	zoneIDs := make([]string, 0, len(zoneList))
	for _, z := range zoneList {
		if err := led.Register(z.ID, z.Capacity); err != nil {
			return fmt.Errorf("register zone %s: %w", z.ID, err)
		}
		zoneIDs = append(zoneIDs, z.ID)
	}

	now := clk.Now()
	for _, status := range []domain.PermitStatus{domain.PermitStatusActive, domain.PermitStatusPending} {
		list, err := permits.ListPermitsByStatus(ctx, status)
		if err != nil {
			return fmt.Errorf("load %s permits: %w", status, err)
		}
		for _, p := range list {
			if p.StatusAt(now) != status {
				continue // passively expired; nothing to re-hold
			}
			token, err := led.TryHold(p.ZoneID, p.Range, 1)
			if err != nil {
				// A replay failure means stored permits exceed stored
				// capacity; refuse to start rather than oversell.
				return fmt.Errorf("re-hold permit %s: %w", p.ID, err)
			}
			if status == domain.PermitStatusActive {
				if err := led.Commit(token); err != nil {
					return fmt.Errorf("re-commit permit %s: %w", p.ID, err)
				}
			}
			if token != p.HoldToken {
				p.HoldToken = token
				if err := permits.UpdatePermit(ctx, p); err != nil {
					return fmt.Errorf("store new hold token for permit %s: %w", p.ID, err)
				}
			}
		}
	}

	if waitlist != nil {
		if err := waitlist.Rebuild(ctx, zoneIDs); err != nil {
			return fmt.Errorf("rebuild waitlist: %w", err)
		}
	}
	logger.Printf("bootstrap complete zones=%d", len(zoneList))
	return nil
}
