package compensation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// COLLABORATORS - Implemented by store/sqlite and store/memory
// =============================================================================

// TierCatalog returns the tiers of an activity. Unknown activities yield an
// empty slice, not an error.
type TierCatalog interface {
	GetTiers(ctx context.Context, activityName string) ([]ActivityTier, error)
}

// KPICatalog returns the definitions of a function that apply on shift,
// including ShiftGeneral ones.
type KPICatalog interface {
	GetKPIs(ctx context.Context, functionName string, shift Shift) ([]KPIDefinition, error)
}

// ClaimCounter counts the KPI-bearing launches of a user on a day.
type ClaimCounter interface {
	GetClaimCount(ctx context.Context, userID generic.UserID, day generic.TimePoint) (int, error)
}

// LaunchRecorder persists a completed calculation.
type LaunchRecorder interface {
	RecordLaunch(ctx context.Context, launch Launch) error
}

// User is the worker profile a calculation is made for. Stores own it; the
// engine only sees the fields copied into a CalculationRequest.
type User struct {
	ID           generic.UserID
	Name         string
	FunctionName string
	Shift        Shift
	Basis        PayBasis
	OperatorName string // login in the task export, task-counted users only
}

// ApplyTo fills the function, shift and operator of req from the profile
// where the request left them empty. The operator is only filled for a
// task-counted user whose request carries export rows.
func (u User) ApplyTo(req *CalculationRequest) {
	if req.FunctionName == "" {
		req.FunctionName = u.FunctionName
	}
	if req.Shift == "" {
		req.Shift = u.Shift
	}
	if req.OperatorName == "" && u.Basis == BasisTasks && len(req.TaskLogRows) > 0 {
		req.OperatorName = u.OperatorName
	}
}

// Launch is the persisted trace of one calculation. Launches with claimed
// KPIs are what ClaimCounter counts.
type Launch struct {
	ID                string
	UserID            generic.UserID
	Date              generic.TimePoint
	FunctionName      string
	Shift             Shift
	Basis             PayBasis
	ClaimedKPIs       []string
	AchievedKPIs      []string
	NetActivityValue  decimal.Decimal
	KPIBonusTotal     decimal.Decimal
	ValidTaskCount    int
	ValidTaskValue    decimal.Decimal
	ManualExtra       decimal.Decimal
	TotalCompensation decimal.Decimal
	CreatedAt         time.Time
}

// IsKPIBearing reports whether the launch counts against the claim limit.
func (l Launch) IsKPIBearing() bool { return len(l.ClaimedKPIs) > 0 }

// NewLaunch builds the launch record for a request and its result.
func NewLaunch(req CalculationRequest, result CalculationResult) Launch {
	claimed := make([]string, len(req.ClaimedKPIs))
	copy(claimed, req.ClaimedKPIs)

	launch := Launch{
		ID:                uuid.New().String(),
		UserID:            req.UserID,
		Date:              req.Date,
		FunctionName:      req.FunctionName,
		Shift:             req.Shift,
		Basis:             result.Basis,
		ClaimedKPIs:       claimed,
		AchievedKPIs:      result.AchievedKPIs,
		NetActivityValue:  result.NetActivityValue,
		KPIBonusTotal:     result.KPIBonusTotal,
		ValidTaskValue:    decimal.Zero,
		ManualExtra:       result.ManualExtra,
		TotalCompensation: result.TotalCompensation,
		CreatedAt:         time.Now().UTC(),
	}
	if result.ValidTaskCount != nil {
		launch.ValidTaskCount = *result.ValidTaskCount
	}
	if result.ValidTaskValue != nil {
		launch.ValidTaskValue = *result.ValidTaskValue
	}
	return launch
}

// =============================================================================
// SERVICE - Fetches catalogs, applies the claim limit, records the launch
// =============================================================================

// Service is the I/O-facing side of the engine. Collaborator errors are
// wrapped and returned as-is; retrying is the caller's decision.
type Service struct {
	Tiers    TierCatalog
	KPIs     KPICatalog
	Claims   ClaimCounter
	Launches LaunchRecorder // optional

	ClaimLimit int            // < 1 means DefaultClaimLimit
	Location   *time.Location // export time zone, defaults to time.Local

	mu          sync.RWMutex
	perTaskRate decimal.Decimal

	userDays claimLocks // serializes KPI-bearing calculations per user-day
}

// NewService wires a service whose collaborators are all backed by one
// store, which is the usual setup.
func NewService(store interface {
	TierCatalog
	KPICatalog
	ClaimCounter
	LaunchRecorder
}, perTaskRate decimal.Decimal, loc *time.Location) *Service {
	return &Service{
		Tiers:       store,
		KPIs:        store,
		Claims:      store,
		Launches:    store,
		ClaimLimit:  DefaultClaimLimit,
		Location:    loc,
		perTaskRate: perTaskRate,
	}
}

// SetPerTaskRate replaces the configured rate, e.g. after a config reload.
func (s *Service) SetPerTaskRate(rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perTaskRate = rate
}

// PerTaskRate returns the rate currently in effect.
func (s *Service) PerTaskRate() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.perTaskRate
}

// Calculate runs one request end to end:
//  1. validate the request shape
//  2. when KPIs are claimed, consult the daily claim limiter; the user-day
//     stays locked until the launch is recorded
//  3. load tiers for each distinct activity and the KPI catalog
//  4. compute the result with Calculate
//  5. record the launch, when a recorder is configured
func (s *Service) Calculate(ctx context.Context, req CalculationRequest) (CalculationResult, error) {
	if err := req.Validate(); err != nil {
		return CalculationResult{}, err
	}

	if len(req.ClaimedKPIs) > 0 {
		if err := requireClaimant(req); err != nil {
			return CalculationResult{}, err
		}
		defer s.userDays.lock(req.UserID, req.Date)()

		if err := s.checkClaimLimit(ctx, req); err != nil {
			return CalculationResult{}, err
		}
	}

	tiers := make(map[string][]ActivityTier)
	for _, a := range req.Activities {
		if _, ok := tiers[a.ActivityName]; ok {
			continue
		}
		found, err := s.Tiers.GetTiers(ctx, a.ActivityName)
		if err != nil {
			return CalculationResult{}, fmt.Errorf("load tiers for %q: %w", a.ActivityName, err)
		}
		tiers[a.ActivityName] = found
	}

	var kpis []KPIDefinition
	if len(req.ClaimedKPIs) > 0 {
		found, err := s.KPIs.GetKPIs(ctx, req.FunctionName, req.Shift)
		if err != nil {
			return CalculationResult{}, fmt.Errorf("load KPIs for %q: %w", req.FunctionName, err)
		}
		kpis = found
	}

	result, err := Calculate(Inputs{
		Request:     req,
		Tiers:       tiers,
		KPIs:        kpis,
		PerTaskRate: s.PerTaskRate(),
		Location:    s.Location,
	})
	if err != nil {
		return CalculationResult{}, err
	}

	if s.Launches != nil {
		launch := NewLaunch(req, result)
		if err := s.Launches.RecordLaunch(ctx, launch); err != nil {
			return CalculationResult{}, fmt.Errorf("record launch: %w", err)
		}
		zap.L().Debug("launch recorded",
			zap.String("launch_id", launch.ID),
			zap.String("user_id", string(req.UserID)),
			zap.String("date", req.Date.String()),
			zap.String("total", result.TotalCompensation.String()),
		)
	}
	return result, nil
}

// requireClaimant checks that a KPI-bearing request names who and when.
func requireClaimant(req CalculationRequest) error {
	if req.UserID == "" {
		return &generic.InvalidInputError{Field: "user_id", Reason: "required when KPIs are claimed"}
	}
	if req.Date.IsZero() {
		return &generic.InvalidInputError{Field: "date", Reason: "required when KPIs are claimed"}
	}
	return nil
}

func (s *Service) checkClaimLimit(ctx context.Context, req CalculationRequest) error {
	existing, err := s.Claims.GetClaimCount(ctx, req.UserID, req.Date)
	if err != nil {
		return fmt.Errorf("count claims: %w", err)
	}
	limit := s.ClaimLimit
	if limit < 1 {
		limit = DefaultClaimLimit
	}
	if !CanClaim(existing, limit) {
		return &generic.ClaimLimitError{UserID: req.UserID, Date: req.Date, Existing: existing, Limit: limit}
	}
	return nil
}
