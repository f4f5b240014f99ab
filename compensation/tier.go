package compensation

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// TIER RESOLVER
// =============================================================================

// Productivity returns quantity / hours, the achieved rate in units per hour.
func Productivity(quantity, hours decimal.Decimal) (decimal.Decimal, error) {
	if !hours.IsPositive() {
		return decimal.Zero, &generic.InvalidInputError{Field: "hours", Value: hours.String(), Reason: "must be greater than zero"}
	}
	return quantity.Div(hours), nil
}

// ResolveTier picks the tier with the greatest MinProductivity that the
// achieved rate reaches. When the rate is below every threshold the lowest
// tier is returned: a worker always lands on some tier.
//
// The input slice is not reordered.
func ResolveTier(tiers []ActivityTier, achieved decimal.Decimal) (ActivityTier, error) {
	if len(tiers) == 0 {
		return ActivityTier{}, &generic.NotFoundError{Kind: "activity tiers", Key: ""}
	}

	sorted := make([]ActivityTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinProductivity.GreaterThan(sorted[j].MinProductivity)
	})

	for _, tier := range sorted {
		if achieved.GreaterThanOrEqual(tier.MinProductivity) {
			return tier, nil
		}
	}
	return sorted[len(sorted)-1], nil
}

// resolveActivityTier resolves against the tiers configured for name.
func resolveActivityTier(name string, tiers []ActivityTier, achieved decimal.Decimal) (ActivityTier, error) {
	if len(tiers) == 0 {
		return ActivityTier{}, &generic.NotFoundError{Kind: "activity tiers", Key: name}
	}
	return ResolveTier(tiers, achieved)
}
