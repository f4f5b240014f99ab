package compensation

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// CALCULATE - Pure entry point
// =============================================================================

// Inputs carries a request together with every catalog it needs.
type Inputs struct {
	Request CalculationRequest

	// Tiers maps activity name to its tiers. Activities missing from the
	// map have no tiers.
	Tiers map[string][]ActivityTier

	// KPIs is the KPI catalog; filtering by function and shift happens here.
	KPIs []KPIDefinition

	// PerTaskRate prices one valid task. Must be positive for task-counted
	// requests; there is no default.
	PerTaskRate decimal.Decimal

	// Location is the time zone the export timestamps are written in.
	// Defaults to time.Local.
	Location *time.Location
}

// Calculate turns one worker-day of inputs into a result. It performs no
// I/O and does not mutate its inputs.
func Calculate(in Inputs) (CalculationResult, error) {
	req := in.Request
	if err := req.Validate(); err != nil {
		return CalculationResult{}, err
	}

	kpi := ResolveBonuses(in.KPIs, req.FunctionName, req.Shift, req.ClaimedKPIs)

	if req.Basis() == BasisTasks {
		if !in.PerTaskRate.IsPositive() {
			return CalculationResult{}, generic.ErrTaskRateNotConfigured
		}
		count := CountValidTasks(req.TaskLogRows, req.OperatorName, req.Date, in.Location)
		tasks := NewTaskValue(count, in.PerTaskRate)
		return Aggregate(ActivityResult{}, kpi, &tasks, req.ManualExtra)
	}

	activity, err := ValueActivities(in.Tiers, req.Activities)
	if err != nil {
		return CalculationResult{}, err
	}
	return Aggregate(activity, kpi, nil, req.ManualExtra)
}
