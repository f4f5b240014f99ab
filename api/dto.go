/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the compensation model from the external API contract:
  - Money is written as decimal strings, never floats
  - Numbers are accepted as JSON numbers or strings ("12,5" included)
  - Shift and basis names are accepted in English or Portuguese

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Calculation:
    CalculationRequestDTO, ActivitySubmissionDTO, TaskLogRowDTO,
    CalculationResultDTO, ActivityDetailDTO, TaskCountDTO

  Task export:
    TaskValidationDTO, SkippedRowDTO

  Catalog:
    factory.ActivityJSON, factory.KPIJSON, factory.UserJSON (reused as-is)

  Launches:
    LaunchDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers and the compensation package, not in
  DTOs. DTOs are pure data carriers; toRequest only converts.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/catalog.go: Catalog document types and Number
*/
package api

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/variable-pay/compensation"
	"github.com/warp/variable-pay/factory"
	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// CALCULATION
// =============================================================================

// CalculationRequestDTO is the body of POST /api/calculations.
type CalculationRequestDTO struct {
	UserID       string                  `json:"user_id"`
	Date         string                  `json:"date"` // YYYY-MM-DD
	FunctionName string                  `json:"function_name"`
	Shift        string                  `json:"shift"`
	Activities   []ActivitySubmissionDTO `json:"activities"`
	OperatorName string                  `json:"operator_name,omitempty"`
	TaskLogRows  []TaskLogRowDTO         `json:"task_log_rows,omitempty"`
	ClaimedKPIs  []string                `json:"claimed_kpis"`
	ManualExtra  factory.Number          `json:"manual_extra"`
}

// ActivitySubmissionDTO is one activity entry of a calculation.
type ActivitySubmissionDTO struct {
	ActivityName string         `json:"activity_name"`
	Quantity     factory.Number `json:"quantity"`
	Hours        factory.Number `json:"hours"`
}

// TaskLogRowDTO is one row of the warehouse export sent inline.
type TaskLogRowDTO struct {
	User             string `json:"user"`
	CreatedAt        string `json:"created_at"`
	LastAssociatedAt string `json:"last_associated_at"`
	AlteredAt        string `json:"altered_at"`
	Status           string `json:"status,omitempty"`
}

// toRequest converts the DTO into a compensation request. Text fields are
// canonicalized; numbers and enums are parsed.
func (dto CalculationRequestDTO) toRequest() (compensation.CalculationRequest, error) {
	req := compensation.CalculationRequest{
		UserID:       generic.UserID(generic.Canonical(dto.UserID)),
		FunctionName: generic.Canonical(dto.FunctionName),
		OperatorName: generic.Canonical(dto.OperatorName),
		ClaimedKPIs:  generic.CanonicalAll(dto.ClaimedKPIs),
	}

	if strings.TrimSpace(dto.Date) != "" {
		day, err := generic.ParseDay(strings.TrimSpace(dto.Date))
		if err != nil {
			return req, err
		}
		req.Date = day
	}

	if strings.TrimSpace(dto.Shift) != "" {
		shift, err := compensation.ParseShift(dto.Shift)
		if err != nil {
			return req, err
		}
		req.Shift = shift
	}

	extra, err := optionalDecimal("manual_extra", dto.ManualExtra)
	if err != nil {
		return req, err
	}
	req.ManualExtra = extra

	for i, a := range dto.Activities {
		quantity, err := requiredDecimal(indexed("activities", i, "quantity"), a.Quantity)
		if err != nil {
			return req, err
		}
		hours, err := requiredDecimal(indexed("activities", i, "hours"), a.Hours)
		if err != nil {
			return req, err
		}
		req.Activities = append(req.Activities, compensation.ActivitySubmission{
			ActivityName: generic.Canonical(a.ActivityName),
			Quantity:     quantity,
			Hours:        hours,
		})
	}

	for i, row := range dto.TaskLogRows {
		req.TaskLogRows = append(req.TaskLogRows, compensation.TaskLogRow{
			Line:             i + 1,
			User:             generic.Canonical(row.User),
			CreatedAt:        strings.TrimSpace(row.CreatedAt),
			LastAssociatedAt: strings.TrimSpace(row.LastAssociatedAt),
			AlteredAt:        strings.TrimSpace(row.AlteredAt),
			Status:           generic.Canonical(row.Status),
		})
	}

	return req, nil
}

// DecodeCalculationRequest reads a calculation request in the JSON format
// accepted by POST /api/calculations.
func DecodeCalculationRequest(r io.Reader) (compensation.CalculationRequest, error) {
	var dto CalculationRequestDTO
	if err := json.NewDecoder(r).Decode(&dto); err != nil {
		return compensation.CalculationRequest{}, &generic.InvalidInputError{Field: "body", Reason: err.Error()}
	}
	return dto.toRequest()
}

// requiredDecimal parses n and rejects an absent, null or blank value.
// An explicit zero is kept.
func requiredDecimal(field string, n factory.Number) (decimal.Decimal, error) {
	if strings.TrimSpace(string(n)) == "" {
		return decimal.Zero, &generic.InvalidInputError{Field: field, Reason: "required"}
	}
	return optionalDecimal(field, n)
}

// optionalDecimal parses n, reading an absent value as zero. Range checks
// belong to the compensation package.
func optionalDecimal(field string, n factory.Number) (decimal.Decimal, error) {
	if strings.TrimSpace(string(n)) == "" {
		return decimal.Zero, nil
	}
	d, err := generic.ParseDecimal(string(n))
	if err != nil {
		return decimal.Zero, &generic.InvalidInputError{Field: field, Value: string(n), Reason: "not a decimal number"}
	}
	return d, nil
}

// CalculationResultDTO is the breakdown returned for a calculation.
type CalculationResultDTO struct {
	Basis              string              `json:"basis"`
	GrossActivityValue string              `json:"gross_activity_value"`
	NetActivityValue   string              `json:"net_activity_value"`
	KPIBonusTotal      string              `json:"kpi_bonus_total"`
	AchievedKPIs       []string            `json:"achieved_kpis"`
	ValidTaskCount     *int                `json:"valid_task_count,omitempty"`
	ValidTaskValue     *string             `json:"valid_task_value,omitempty"`
	ManualExtra        string              `json:"manual_extra"`
	TotalCompensation  string              `json:"total_compensation"`
	PerActivityDetail  []ActivityDetailDTO `json:"per_activity_detail"`
	TaskSummary        *TaskCountDTO       `json:"task_summary,omitempty"`
}

// ActivityDetailDTO is the valuation of one activity entry.
type ActivityDetailDTO struct {
	ActivityName string `json:"activity_name"`
	LevelLabel   string `json:"level_label"`
	Unit         string `json:"unit,omitempty"`
	Quantity     string `json:"quantity"`
	Hours        string `json:"hours"`
	Productivity string `json:"productivity"`
	UnitValue    string `json:"unit_value"`
	Gross        string `json:"gross"`
	Net          string `json:"net"`
}

// TaskCountDTO is the classification of the rows of an export.
type TaskCountDTO struct {
	Valid        int            `json:"valid"`
	Invalid      int            `json:"invalid"`
	Unparsable   int            `json:"unparsable"`
	Total        int            `json:"total"`
	Unattributed int            `json:"unattributed"`
	ValidByType  map[string]int `json:"valid_by_type,omitempty"`
}

// NewCalculationResultDTO renders a result as the API returns it.
func NewCalculationResultDTO(r compensation.CalculationResult) CalculationResultDTO {
	dto := CalculationResultDTO{
		Basis:              string(r.Basis),
		GrossActivityValue: r.GrossActivityValue.String(),
		NetActivityValue:   r.NetActivityValue.String(),
		KPIBonusTotal:      r.KPIBonusTotal.String(),
		AchievedKPIs:       nonNilStrings(r.AchievedKPIs),
		ValidTaskCount:     r.ValidTaskCount,
		ManualExtra:        r.ManualExtra.String(),
		TotalCompensation:  r.TotalCompensation.String(),
		PerActivityDetail:  make([]ActivityDetailDTO, len(r.PerActivityDetail)),
	}
	if r.ValidTaskValue != nil {
		v := r.ValidTaskValue.String()
		dto.ValidTaskValue = &v
	}
	if r.TaskSummary != nil {
		summary := NewTaskCountDTO(*r.TaskSummary)
		dto.TaskSummary = &summary
	}
	for i, d := range r.PerActivityDetail {
		dto.PerActivityDetail[i] = ActivityDetailDTO{
			ActivityName: d.ActivityName,
			LevelLabel:   d.LevelLabel,
			Unit:         d.Unit,
			Quantity:     d.Quantity.String(),
			Hours:        d.Hours.String(),
			Productivity: d.Productivity.String(),
			UnitValue:    d.UnitValue.String(),
			Gross:        d.Gross.String(),
			Net:          d.Net.String(),
		}
	}
	return dto
}

// NewTaskCountDTO renders a task count as the API returns it.
func NewTaskCountDTO(c compensation.TaskCount) TaskCountDTO {
	return TaskCountDTO{
		Valid:        c.Valid,
		Invalid:      c.Invalid,
		Unparsable:   c.Unparsable,
		Total:        c.Total,
		Unattributed: c.Unattributed,
		ValidByType:  c.ValidByType,
	}
}

// =============================================================================
// TASK EXPORT
// =============================================================================

// TaskValidationDTO is the response of POST /api/tasklogs/validate.
type TaskValidationDTO struct {
	Operator string          `json:"operator"`
	Date     string          `json:"date"`
	Rows     int             `json:"rows"` // rows read from the file, any operator
	Count    TaskCountDTO    `json:"count"`
	Skipped  []SkippedRowDTO `json:"skipped"`
}

// SkippedRowDTO is a record of the export that could not be read.
type SkippedRowDTO struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// =============================================================================
// LAUNCHES
// =============================================================================

// LaunchDTO represents a recorded calculation.
type LaunchDTO struct {
	ID                string   `json:"id"`
	UserID            string   `json:"user_id"`
	Date              string   `json:"date"`
	FunctionName      string   `json:"function_name"`
	Shift             string   `json:"shift"`
	Basis             string   `json:"basis"`
	ClaimedKPIs       []string `json:"claimed_kpis"`
	AchievedKPIs      []string `json:"achieved_kpis"`
	NetActivityValue  string   `json:"net_activity_value"`
	KPIBonusTotal     string   `json:"kpi_bonus_total"`
	ValidTaskCount    int      `json:"valid_task_count"`
	ValidTaskValue    string   `json:"valid_task_value"`
	ManualExtra       string   `json:"manual_extra"`
	TotalCompensation string   `json:"total_compensation"`
	CreatedAt         string   `json:"created_at"`
}

// LaunchListResponse wraps the launches of a user with their period total.
type LaunchListResponse struct {
	UserID   string      `json:"user_id"`
	From     string      `json:"from"`
	To       string      `json:"to"`
	Total    string      `json:"total"`
	Launches []LaunchDTO `json:"launches"`
}

func toLaunchDTO(l compensation.Launch) LaunchDTO {
	return LaunchDTO{
		ID:                l.ID,
		UserID:            string(l.UserID),
		Date:              l.Date.String(),
		FunctionName:      l.FunctionName,
		Shift:             string(l.Shift),
		Basis:             string(l.Basis),
		ClaimedKPIs:       nonNilStrings(l.ClaimedKPIs),
		AchievedKPIs:      nonNilStrings(l.AchievedKPIs),
		NetActivityValue:  l.NetActivityValue.String(),
		KPIBonusTotal:     l.KPIBonusTotal.String(),
		ValidTaskCount:    l.ValidTaskCount,
		ValidTaskValue:    l.ValidTaskValue.String(),
		ManualExtra:       l.ManualExtra.String(),
		TotalCompensation: l.TotalCompensation.String(),
		CreatedAt:         l.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`
}

func nonNilStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func indexed(list string, i int, field string) string {
	return list + "[" + strconv.Itoa(i) + "]." + field
}
