package quota

import (
	"fmt"

	"crypto-signals/internal/model"
)

// Unlimited is the sentinel limit for plans without a delivery cap.
const Unlimited = -1

// Limits pairs the publicly advertised cap with the internally honored one.
// Actual is always >= Promised: advertised limits are conservative on purpose
// so that deliveries past the promised cap read as a bonus, never as a cut.
type Limits struct {
	Promised int
	Actual   int
}

var planLimits = map[model.PlanTier]Limits{
	model.PlanFree:       {Promised: 1, Actual: 2},
	model.PlanBasic:      {Promised: 3, Actual: 6},
	model.PlanPro:        {Promised: 10, Actual: 15},
	model.PlanEnterprise: {Promised: Unlimited, Actual: Unlimited},
}

func limitsFor(tier model.PlanTier) Limits {
	if l, ok := planLimits[tier]; ok {
		return l
	}
	// Unknown plan values degrade to the lowest tier.
	return planLimits[model.PlanFree]
}

// PromisedLimit returns the publicly advertised per-window delivery cap.
func PromisedLimit(tier model.PlanTier) int {
	return limitsFor(tier).Promised
}

// ActualLimit returns the internally honored cap. Never expose this value to
// subscribers.
func ActualLimit(tier model.PlanTier) int {
	return limitsFor(tier).Actual
}

// IsUnlimited reports whether the tier has no delivery cap.
func IsUnlimited(tier model.PlanTier) bool {
	return limitsFor(tier).Actual == Unlimited
}

// CanReceive reports whether a subscriber at the given usage may receive one
// more delivery. The denial reason quotes the promised limit so callers can
// present a plan-consistent message.
func CanReceive(tier model.PlanTier, currentUsage int) (bool, string) {
	limits := limitsFor(tier)
	if limits.Actual == Unlimited {
		return true, ""
	}
	if currentUsage < limits.Actual {
		return true, ""
	}
	return false, fmt.Sprintf("delivery limit reached: the %s plan includes %d signals per period", tier, limits.Promised)
}

// IsBonus reports whether a delivery at the given usage goes beyond what the
// plan advertises. Unlimited plans are never bonus.
func IsBonus(tier model.PlanTier, currentUsage int) bool {
	limits := limitsFor(tier)
	if limits.Actual == Unlimited {
		return false
	}
	return currentUsage >= limits.Promised
}

// UsageStats is a read-only projection for client display. For unlimited plans
// the numeric fields collapse to the Unlimited sentinel and UsagePercentage is 0.
type UsageStats struct {
	Plan               model.PlanTier `json:"plan"`
	Promised           int            `json:"promised"`
	Actual             int            `json:"actual"`
	Used               int            `json:"used"`
	Remaining          int            `json:"remaining"`
	IsBonus            bool           `json:"is_bonus"`
	BonusReceivedCount int            `json:"bonus_received_count"`
	UsagePercentage    float64        `json:"usage_percentage"`
}

// Stats projects the current usage against the plan limits. bonusReceived is
// the persisted count of bonus receipts in the window; once recorded it is
// immutable history and never recomputed.
func Stats(tier model.PlanTier, currentUsage, bonusReceived int) UsageStats {
	limits := limitsFor(tier)
	stats := UsageStats{
		Plan:               tier,
		Promised:           limits.Promised,
		Actual:             limits.Actual,
		Used:               currentUsage,
		BonusReceivedCount: bonusReceived,
	}

	if limits.Actual == Unlimited {
		stats.Remaining = Unlimited
		return stats
	}

	stats.Remaining = limits.Actual - currentUsage
	if stats.Remaining < 0 {
		stats.Remaining = 0
	}
	stats.IsBonus = currentUsage >= limits.Promised
	if limits.Actual > 0 {
		stats.UsagePercentage = float64(currentUsage) / float64(limits.Actual) * 100
	}
	return stats
}
