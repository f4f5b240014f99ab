/*
Package compensation computes the variable daily pay of warehouse workers.

PURPOSE:
  Turns one day of raw inputs into a remuneration breakdown. Three
  independent sources feed the result:
  - Activity pay: quantity produced, priced by the productivity tier the
    worker reached, then halved (50% payout rule)
  - KPI bonuses: fixed weights for the indicators the worker claims
  - Validated tasks: operators paid per task imported from the warehouse
    management export instead of by activity

PAY BASIS:
  A submission is either activity-tiered or task-counted, never both.
  Task-counted submissions name an operator; their task value replaces the
  activity net value.

PURITY:
  Everything except service.go is a pure function of its arguments.
  Catalogs (tiers, KPI definitions) are passed in explicitly; nothing is
  looked up from package state. service.go is the only place that talks
  to collaborators and the only place that takes a context.

EXAMPLE FLOW:
  1. Worker packed 100 boxes in 10 hours: productivity 10/h
  2. Tiers for "Separação": [min 5 → 1.00/unit, min 15 → 2.00/unit]
  3. 10 >= 5 and 10 < 15: tier min 5, gross 100 × 1.00 = 100
  4. Net = 100 / 2 = 50
  5. KPI "Zero avarias" claimed on the morning shift: +15
  6. Total = 50 + 15 = 65

SEE ALSO:
  - tier.go: Tier resolution with fallback
  - activity.go: Single and multi-activity valuation
  - tasks.go: Task-log validation
  - kpi.go: KPI bonus lookup
  - aggregate.go: Final combination
  - claims.go: Daily claim limiter
  - engine.go: Calculate, the pure entry point
  - service.go: Collaborator wiring
*/
package compensation

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// SHIFT
// =============================================================================

type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftNight     Shift = "night"
	// ShiftGeneral KPI definitions apply to every shift of their function.
	ShiftGeneral Shift = "general"
)

var shiftAliases = map[string]Shift{
	"morning":   ShiftMorning,
	"manhã":     ShiftMorning,
	"manha":     ShiftMorning,
	"afternoon": ShiftAfternoon,
	"tarde":     ShiftAfternoon,
	"night":     ShiftNight,
	"noite":     ShiftNight,
	"general":   ShiftGeneral,
	"geral":     ShiftGeneral,
}

// ParseShift accepts the English names and the Portuguese labels used by
// the admin screens, in any case.
func ParseShift(s string) (Shift, error) {
	shift, ok := shiftAliases[strings.ToLower(generic.Canonical(s))]
	if !ok {
		return "", &generic.InvalidInputError{Field: "shift", Value: s, Reason: "unknown shift"}
	}
	return shift, nil
}

// =============================================================================
// CATALOG ENTRIES (read-only to the engine)
// =============================================================================

// ActivityTier is one productivity level of an activity.
// Tiers sharing an ActivityName are ordered by MinProductivity.
type ActivityTier struct {
	ActivityName    string
	LevelLabel      string
	MinProductivity decimal.Decimal // units per hour
	UnitValue       decimal.Decimal // currency per unit produced
	Unit            string          // e.g. "caixas", "paletes"
}

// KPIDefinition is a bonus a worker of FunctionName may claim on Shift.
type KPIDefinition struct {
	Name         string
	FunctionName string
	Shift        Shift
	BonusWeight  decimal.Decimal
}

// =============================================================================
// SUBMISSION
// =============================================================================

type ActivitySubmission struct {
	ActivityName string
	Quantity     decimal.Decimal
	Hours        decimal.Decimal
}

// TaskLogRow is one work order of the warehouse export. Timestamps keep the
// export text (DD/MM/YYYY HH:MM:SS) so the validator can classify rows that
// fail strict parsing instead of dropping them upstream.
type TaskLogRow struct {
	Line             int // source line, 0 when unknown
	User             string
	CreatedAt        string
	LastAssociatedAt string
	AlteredAt        string
	Status           string
}

type PayBasis string

const (
	BasisActivity PayBasis = "activity"
	BasisTasks    PayBasis = "tasks"
)

// ParsePayBasis reads a basis name. Empty means BasisActivity.
func ParsePayBasis(s string) (PayBasis, error) {
	switch strings.ToLower(generic.Canonical(s)) {
	case "", string(BasisActivity):
		return BasisActivity, nil
	case string(BasisTasks), "task":
		return BasisTasks, nil
	}
	return "", &generic.InvalidInputError{Field: "basis", Value: s, Reason: "use activity or tasks"}
}

// CalculationRequest is one worker-day of raw inputs.
type CalculationRequest struct {
	UserID       generic.UserID
	Date         generic.TimePoint
	FunctionName string
	Shift        Shift
	Activities   []ActivitySubmission
	OperatorName string       // set for task-counted workers
	TaskLogRows  []TaskLogRow // rows of the export, any operator, any day
	ClaimedKPIs  []string
	ManualExtra  decimal.Decimal
}

// Basis reports how the request is paid. Naming an operator selects the
// task-counted basis.
func (r CalculationRequest) Basis() PayBasis {
	if r.OperatorName != "" || len(r.TaskLogRows) > 0 {
		return BasisTasks
	}
	return BasisActivity
}

// Validate checks the request shape. It does not consult any catalog.
func (r CalculationRequest) Validate() error {
	if r.ManualExtra.IsNegative() {
		return &generic.InvalidInputError{Field: "manual_extra", Value: r.ManualExtra.String(), Reason: "must not be negative"}
	}
	if r.Basis() == BasisTasks {
		if len(r.Activities) > 0 {
			return &generic.InvalidInputError{Field: "activities", Reason: "a task-counted submission cannot also carry activities"}
		}
		if r.OperatorName == "" {
			return &generic.InvalidInputError{Field: "operator_name", Reason: "required when task rows are supplied"}
		}
		if r.Date.IsZero() {
			return &generic.InvalidInputError{Field: "date", Reason: "required to select task rows"}
		}
	}
	for i, a := range r.Activities {
		if err := a.validate(i); err != nil {
			return err
		}
	}
	if len(r.ClaimedKPIs) > 0 && r.FunctionName == "" {
		return &generic.InvalidInputError{Field: "function_name", Reason: "required when KPIs are claimed"}
	}
	return nil
}

func (a ActivitySubmission) validate(index int) error {
	if a.ActivityName == "" {
		return &generic.InvalidInputError{Field: activityField(index, "activity_name"), Reason: "required"}
	}
	if a.Quantity.IsNegative() {
		return &generic.InvalidInputError{Field: activityField(index, "quantity"), Value: a.Quantity.String(), Reason: "must not be negative"}
	}
	if !a.Hours.IsPositive() {
		return &generic.InvalidInputError{Field: activityField(index, "hours"), Value: a.Hours.String(), Reason: "must be greater than zero"}
	}
	return nil
}

// =============================================================================
// RESULT
// =============================================================================

// ActivityDetail is the valuation of one activity entry.
type ActivityDetail struct {
	ActivityName string
	LevelLabel   string
	Unit         string
	Quantity     decimal.Decimal
	Hours        decimal.Decimal
	Productivity decimal.Decimal
	UnitValue    decimal.Decimal
	Gross        decimal.Decimal
	Net          decimal.Decimal
}

// CalculationResult is produced fresh per request and never mutated.
//
// INVARIANT:
//
//	TotalCompensation == NetActivityValue + KPIBonusTotal
//	                     + ValidTaskValue (0 when nil) + ManualExtra
type CalculationResult struct {
	Basis              PayBasis
	GrossActivityValue decimal.Decimal
	NetActivityValue   decimal.Decimal
	KPIBonusTotal      decimal.Decimal
	AchievedKPIs       []string
	ValidTaskCount     *int
	ValidTaskValue     *decimal.Decimal
	ManualExtra        decimal.Decimal
	TotalCompensation  decimal.Decimal
	PerActivityDetail  []ActivityDetail
	TaskSummary        *TaskCount // all-row diagnostic, task basis only
}
