package domain

// ColorTier classifies a zone by its current utilization.
type ColorTier string

const (
	TierGreen ColorTier = "green"
	TierAmber ColorTier = "amber"
	TierRed   ColorTier = "red"
)

// TierFor maps a utilization fraction (held/capacity) to a color tier.
// Thresholds: under 50% green, under 80% amber, otherwise red.
func TierFor(held, capacity int) ColorTier {
	if capacity <= 0 {
		return TierRed
	}
	pct := float64(held) / float64(capacity) * 100
	switch {
	case pct < 50:
		return TierGreen
	case pct < 80:
		return TierAmber
	default:
		return TierRed
	}
}

// Zone is a sellable parking area. Capacity is per physical space, fungible
// within the zone.
type Zone struct {
	ID       string
	Name     string
	Capacity int
}
