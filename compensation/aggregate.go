package compensation

import (
	"maps"

	"github.com/shopspring/decimal"
	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// COMPENSATION AGGREGATOR
// =============================================================================

// TaskValue is the task-counted pay of an operator-day.
type TaskValue struct {
	Count TaskCount
	Rate  decimal.Decimal // per valid task
	Value decimal.Decimal // Count.Valid × Rate
}

// NewTaskValue prices the valid tasks of count at rate.
func NewTaskValue(count TaskCount, rate decimal.Decimal) TaskValue {
	return TaskValue{
		Count: count,
		Rate:  rate,
		Value: decimal.NewFromInt(int64(count.Valid)).Mul(rate),
	}
}

// Aggregate combines the pay sources into the final breakdown.
//
// When tasks is non-nil the submission is task-counted and the task value
// stands in for the activity net value; activity entries must then be
// absent. The total is always
//
//	net activity + KPI bonus + task value + manual extra
func Aggregate(activity ActivityResult, kpi KPIResult, tasks *TaskValue, manualExtra decimal.Decimal) (CalculationResult, error) {
	if manualExtra.IsNegative() {
		return CalculationResult{}, &generic.InvalidInputError{Field: "manual_extra", Value: manualExtra.String(), Reason: "must not be negative"}
	}

	achieved := make([]string, len(kpi.Achieved))
	copy(achieved, kpi.Achieved)
	details := make([]ActivityDetail, len(activity.Details))
	copy(details, activity.Details)

	result := CalculationResult{
		Basis:              BasisActivity,
		GrossActivityValue: activity.Gross,
		NetActivityValue:   activity.Net,
		KPIBonusTotal:      kpi.Total,
		AchievedKPIs:       achieved,
		ManualExtra:        manualExtra,
		PerActivityDetail:  details,
	}

	source := activity.Net
	if tasks != nil {
		if len(activity.Details) > 0 {
			return CalculationResult{}, &generic.InvalidInputError{Field: "activities", Reason: "a task-counted submission cannot also carry activities"}
		}
		valid := tasks.Count.Valid
		value := tasks.Value
		summary := tasks.Count
		summary.ValidByType = maps.Clone(tasks.Count.ValidByType)
		result.Basis = BasisTasks
		result.ValidTaskCount = &valid
		result.ValidTaskValue = &value
		result.TaskSummary = &summary
		source = value
	}

	result.TotalCompensation = generic.Sum(source, kpi.Total, manualExtra)
	return result, nil
}
