package compensation_test

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/variable-pay/compensation"
	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tier(activity, label, min, unitValue string) compensation.ActivityTier {
	return compensation.ActivityTier{
		ActivityName:    activity,
		LevelLabel:      label,
		MinProductivity: d(min),
		UnitValue:       d(unitValue),
		Unit:            "caixas",
	}
}

func activity(name, quantity, hours string) compensation.ActivitySubmission {
	return compensation.ActivitySubmission{ActivityName: name, Quantity: d(quantity), Hours: d(hours)}
}

func kpi(name, function string, shift compensation.Shift, weight string) compensation.KPIDefinition {
	return compensation.KPIDefinition{Name: name, FunctionName: function, Shift: shift, BonusWeight: d(weight)}
}

func taskRow(user, associated, altered string) compensation.TaskLogRow {
	return compensation.TaskLogRow{
		User:             user,
		CreatedAt:        associated,
		LastAssociatedAt: associated,
		AlteredAt:        altered,
		Status:           "Finalizada",
	}
}

func march10() generic.TimePoint {
	return generic.NewTimePoint(2025, time.March, 10)
}

// brt is a fixed UTC-3 zone so tests do not depend on the host zone.
var brt = time.FixedZone("BRT", -3*60*60)

// totalFromParts recomputes net + kpi + task value + manual extra.
func totalFromParts(r compensation.CalculationResult) decimal.Decimal {
	taskValue := decimal.Zero
	if r.ValidTaskValue != nil {
		taskValue = *r.ValidTaskValue
	}
	return r.NetActivityValue.Add(r.KPIBonusTotal).Add(taskValue).Add(r.ManualExtra)
}
