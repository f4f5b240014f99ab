package compensation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// ACTIVITY VALUATOR
// =============================================================================

// ActivityResult is the valuation of every activity entry of a submission.
type ActivityResult struct {
	Details []ActivityDetail
	Gross   decimal.Decimal // Σ gross of the entries
	Net     decimal.Decimal // Σ net of the entries
}

// ValueActivity values one activity entry against its tiers:
//
//	productivity = quantity / hours
//	gross        = quantity × tier.UnitValue
//	net          = gross / 2
func ValueActivity(tiers []ActivityTier, sub ActivitySubmission) (ActivityDetail, error) {
	if err := sub.validate(0); err != nil {
		return ActivityDetail{}, err
	}
	rate, err := Productivity(sub.Quantity, sub.Hours)
	if err != nil {
		return ActivityDetail{}, err
	}
	tier, err := resolveActivityTier(sub.ActivityName, tiers, rate)
	if err != nil {
		return ActivityDetail{}, err
	}

	gross := sub.Quantity.Mul(tier.UnitValue)
	return ActivityDetail{
		ActivityName: sub.ActivityName,
		LevelLabel:   tier.LevelLabel,
		Unit:         tier.Unit,
		Quantity:     sub.Quantity,
		Hours:        sub.Hours,
		Productivity: rate,
		UnitValue:    tier.UnitValue,
		Gross:        gross,
		Net:          generic.Half(gross),
	}, nil
}

// ValueActivities values each entry independently and sums the results.
// Halving happens per entry, before summing.
//
// An entry whose activity has no tiers aborts the whole submission; no
// partial result is returned.
func ValueActivities(catalog map[string][]ActivityTier, subs []ActivitySubmission) (ActivityResult, error) {
	result := ActivityResult{
		Details: make([]ActivityDetail, 0, len(subs)),
		Gross:   decimal.Zero,
		Net:     decimal.Zero,
	}
	for i, sub := range subs {
		if err := sub.validate(i); err != nil {
			return ActivityResult{}, err
		}
		detail, err := ValueActivity(catalog[sub.ActivityName], sub)
		if err != nil {
			return ActivityResult{}, fmt.Errorf("activity %d (%s): %w", i, sub.ActivityName, err)
		}
		result.Details = append(result.Details, detail)
		result.Gross = result.Gross.Add(detail.Gross)
		result.Net = result.Net.Add(detail.Net)
	}
	return result, nil
}

func activityField(index int, name string) string {
	return fmt.Sprintf("activities[%d].%s", index, name)
}
