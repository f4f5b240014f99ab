package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/variable-pay/compensation"
	"github.com/warp/variable-pay/generic"
	"github.com/warp/variable-pay/store/sqlite"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(n int) generic.TimePoint { return generic.NewTimePoint(2025, time.March, n) }

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func tier(activity, label, min, value string) compensation.ActivityTier {
	return compensation.ActivityTier{
		ActivityName:    activity,
		LevelLabel:      label,
		MinProductivity: d(min),
		UnitValue:       d(value),
		Unit:            "caixas",
	}
}

// =============================================================================
// TIERS
// =============================================================================

func TestStore_TiersRoundTripOrderedByThreshold(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveTier(ctx, tier("Separação", "Ouro", "20", "1.50")))
	require.NoError(t, store.SaveTier(ctx, tier("Separação", "Bronze", "0", "0.50")))
	require.NoError(t, store.SaveTier(ctx, tier("Separação", "Prata", "8", "1.00")))
	require.NoError(t, store.SaveTier(ctx, tier("Conferência", "Bronze", "0", "0.80")))

	tiers, err := store.GetTiers(ctx, "Separação")
	require.NoError(t, err)
	require.Len(t, tiers, 3)
	assert.Equal(t, "Bronze", tiers[0].LevelLabel)
	assert.Equal(t, "Prata", tiers[1].LevelLabel)
	assert.Equal(t, "Ouro", tiers[2].LevelLabel)
	assert.True(t, tiers[2].UnitValue.Equal(d("1.5")))
	assert.Equal(t, "caixas", tiers[2].Unit)

	all, err := store.ListTiers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "Conferência", all[0].ActivityName)

	unknown, err := store.GetTiers(ctx, "Paletização")
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestStore_SaveTierUpsertsByLabel(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveTier(ctx, tier("Separação", "Bronze", "0", "0.50")))
	require.NoError(t, store.SaveTier(ctx, tier("Separação", "Bronze", "0", "0.75")))

	tiers, err := store.GetTiers(ctx, "Separação")
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	assert.True(t, tiers[0].UnitValue.Equal(d("0.75")))
}

func TestStore_DuplicateThresholdRejected(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveTier(ctx, tier("Separação", "Bronze", "5", "0.50")))
	err := store.SaveTier(ctx, tier("Separação", "Prata", "5", "1.00"))

	var inputErr *generic.InvalidInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "min_productivity", inputErr.Field)
}

func TestStore_ReplaceActivityTiers(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveTier(ctx, tier("Separação", "Bronze", "0", "0.50")))
	require.NoError(t, store.SaveTier(ctx, tier("Separação", "Prata", "8", "1.00")))

	err := store.ReplaceActivityTiers(ctx, "Separação", []compensation.ActivityTier{
		tier("", "Único", "0", "0.90"),
	})
	require.NoError(t, err)

	tiers, err := store.GetTiers(ctx, "Separação")
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	assert.Equal(t, "Único", tiers[0].LevelLabel)
	assert.Equal(t, "Separação", tiers[0].ActivityName)
}

func TestStore_ReplaceActivityTiersRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveTier(ctx, tier("Separação", "Bronze", "0", "0.50")))

	err := store.ReplaceActivityTiers(ctx, "Separação", []compensation.ActivityTier{
		tier("", "A", "3", "1"),
		tier("", "B", "3", "2"),
	})
	assert.True(t, errors.Is(err, generic.ErrInvalidInput))

	tiers, err := store.GetTiers(ctx, "Separação")
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	assert.Equal(t, "Bronze", tiers[0].LevelLabel)
}

func TestStore_DeleteTiers(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveTier(ctx, tier("Separação", "Bronze", "0", "0.50")))
	require.NoError(t, store.DeleteTiers(ctx, "Separação"))

	tiers, err := store.GetTiers(ctx, "Separação")
	require.NoError(t, err)
	assert.Empty(t, tiers)

	err = store.DeleteTiers(ctx, "Separação")
	assert.True(t, generic.IsNotFound(err))
}

// =============================================================================
// KPIS
// =============================================================================

func TestStore_GetKPIsIncludesGeneralShift(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	for _, def := range []compensation.KPIDefinition{
		{Name: "Zero avarias", FunctionName: "Conferente", Shift: compensation.ShiftMorning, BonusWeight: d("15")},
		{Name: "Pontualidade", FunctionName: "Conferente", Shift: compensation.ShiftGeneral, BonusWeight: d("10")},
		{Name: "Organização", FunctionName: "Conferente", Shift: compensation.ShiftNight, BonusWeight: d("8")},
		{Name: "Zero avarias", FunctionName: "Operador", Shift: compensation.ShiftMorning, BonusWeight: d("30")},
	} {
		require.NoError(t, store.SaveKPI(ctx, def))
	}

	defs, err := store.GetKPIs(ctx, "Conferente", compensation.ShiftMorning)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "Pontualidade", defs[0].Name)
	assert.Equal(t, "Zero avarias", defs[1].Name)
	assert.True(t, defs[1].BonusWeight.Equal(d("15")))

	all, err := store.ListKPIs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	require.NoError(t, store.DeleteKPI(ctx, "Organização", "Conferente", compensation.ShiftNight))
	assert.True(t, generic.IsNotFound(store.DeleteKPI(ctx, "Organização", "Conferente", compensation.ShiftNight)))
}

func TestStore_ReplaceCatalog(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveTier(ctx, tier("Antiga", "A", "0", "1")))
	require.NoError(t, store.SaveKPI(ctx, compensation.KPIDefinition{Name: "Antigo", FunctionName: "F", Shift: compensation.ShiftGeneral, BonusWeight: d("1")}))

	err := store.ReplaceCatalog(ctx,
		[]compensation.ActivityTier{tier("Separação", "Bronze", "0", "0.50")},
		[]compensation.KPIDefinition{{Name: "Pontualidade", FunctionName: "F", Shift: compensation.ShiftGeneral, BonusWeight: d("10")}},
	)
	require.NoError(t, err)

	tiers, err := store.ListTiers(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	assert.Equal(t, "Separação", tiers[0].ActivityName)

	kpis, err := store.ListKPIs(ctx)
	require.NoError(t, err)
	require.Len(t, kpis, 1)
	assert.Equal(t, "Pontualidade", kpis[0].Name)
}

// =============================================================================
// USERS
// =============================================================================

func TestStore_Users(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	missing, err := store.GetUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.SaveUser(ctx, compensation.User{ID: "u-2", Name: "Bruno", FunctionName: "Conferente"}))
	require.NoError(t, store.SaveUser(ctx, compensation.User{
		ID: "u-1", Name: "Ana", FunctionName: "Operador de Empilhadeira",
		Shift: compensation.ShiftNight, Basis: compensation.BasisTasks, OperatorName: "ana.lima",
	}))

	u, err := store.GetUser(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, compensation.BasisTasks, u.Basis)
	assert.Equal(t, "ana.lima", u.OperatorName)
	assert.Equal(t, compensation.ShiftNight, u.Shift)

	bruno, err := store.GetUser(ctx, "u-2")
	require.NoError(t, err)
	assert.Equal(t, compensation.BasisActivity, bruno.Basis, "basis defaults to activity")

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Ana", users[0].Name)
}

// =============================================================================
// LAUNCHES
// =============================================================================

func TestStore_ClaimCountOnlyCountsKPIBearingLaunches(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.RecordLaunch(ctx, compensation.Launch{ID: "1", UserID: "u-1", Date: day(10), Basis: compensation.BasisActivity, ClaimedKPIs: []string{"A"}}))
	require.NoError(t, store.RecordLaunch(ctx, compensation.Launch{ID: "2", UserID: "u-1", Date: day(10), Basis: compensation.BasisActivity}))
	require.NoError(t, store.RecordLaunch(ctx, compensation.Launch{ID: "3", UserID: "u-1", Date: day(11), Basis: compensation.BasisActivity, ClaimedKPIs: []string{"A"}}))
	require.NoError(t, store.RecordLaunch(ctx, compensation.Launch{ID: "4", UserID: "u-2", Date: day(10), Basis: compensation.BasisActivity, ClaimedKPIs: []string{"A"}}))

	count, err := store.GetClaimCount(ctx, "u-1", day(10))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.GetClaimCount(ctx, "u-1", day(12))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_LaunchRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	createdAt := time.Date(2025, time.March, 10, 18, 30, 0, 0, time.UTC)

	want := compensation.Launch{
		ID:                "l-1",
		UserID:            "u-1",
		Date:              day(10),
		FunctionName:      "Operador de Empilhadeira",
		Shift:             compensation.ShiftAfternoon,
		Basis:             compensation.BasisTasks,
		ClaimedKPIs:       []string{"Pontualidade", "Inexistente"},
		AchievedKPIs:      []string{"Pontualidade"},
		NetActivityValue:  d("0"),
		KPIBonusTotal:     d("5"),
		ValidTaskCount:    2,
		ValidTaskValue:    d("2.5"),
		ManualExtra:       d("10.25"),
		TotalCompensation: d("17.75"),
		CreatedAt:         createdAt,
	}
	require.NoError(t, store.RecordLaunch(ctx, want))

	launches, err := store.Launches(ctx, "u-1", generic.Period{Start: day(1), End: day(31)})
	require.NoError(t, err)
	require.Len(t, launches, 1)

	got := launches[0]
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, got.Date.Equal(day(10)))
	assert.Equal(t, want.Shift, got.Shift)
	assert.Equal(t, want.Basis, got.Basis)
	assert.Equal(t, want.ClaimedKPIs, got.ClaimedKPIs)
	assert.Equal(t, want.AchievedKPIs, got.AchievedKPIs)
	assert.Equal(t, 2, got.ValidTaskCount)
	assert.True(t, got.ValidTaskValue.Equal(d("2.5")))
	assert.True(t, got.ManualExtra.Equal(d("10.25")))
	assert.True(t, got.TotalCompensation.Equal(d("17.75")))
	assert.True(t, got.CreatedAt.Equal(createdAt))
}

func TestStore_CorruptLaunchTimestampIsAnError(t *testing.T) {
	// GIVEN: A recorded launch whose created_at was damaged on disk
	// WHEN: Listing the launches
	// THEN: The read fails instead of returning a zero timestamp

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "pay.db")

	store, err := sqlite.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.RecordLaunch(ctx, compensation.Launch{
		ID:     "l-1",
		UserID: "u-1",
		Date:   day(10),
		Basis:  compensation.BasisActivity,
	}))
	require.NoError(t, store.Close())

	raw, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = raw.Exec(`UPDATE launches SET created_at = 'yesterday' WHERE id = 'l-1'`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	store, err = sqlite.New(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Launches(ctx, "u-1", generic.Period{Start: day(1), End: day(31)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created_at")
}

func TestStore_LaunchesOrderedAndFilteredByPeriod(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	now := time.Now()

	for _, l := range []compensation.Launch{
		{ID: "late", Date: day(12), CreatedAt: now},
		{ID: "b", Date: day(10), CreatedAt: now.Add(time.Minute)},
		{ID: "a", Date: day(10), CreatedAt: now},
		{ID: "out", Date: day(20), CreatedAt: now},
	} {
		l.UserID = "u-1"
		l.Basis = compensation.BasisActivity
		require.NoError(t, store.RecordLaunch(ctx, l))
	}

	launches, err := store.Launches(ctx, "u-1", generic.Period{Start: day(1), End: day(15)})
	require.NoError(t, err)

	var ids []string
	for _, l := range launches {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"a", "b", "late"}, ids)
}

// =============================================================================
// SERVICE INTEGRATION
// =============================================================================

func TestStore_BacksTheService(t *testing.T) {
	// GIVEN: A store with one tier and a KPI
	// WHEN: The same user claims KPIs twice on one day
	// THEN: The first succeeds and is persisted, the second hits the limit

	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.SaveTier(ctx, tier("Separação", "Bronze", "0", "0.50")))
	require.NoError(t, store.SaveKPI(ctx, compensation.KPIDefinition{
		Name: "Pontualidade", FunctionName: "Conferente", Shift: compensation.ShiftGeneral, BonusWeight: d("10"),
	}))

	svc := compensation.NewService(store, decimal.Zero, time.UTC)
	req := compensation.CalculationRequest{
		UserID:       "u-1",
		Date:         day(10),
		FunctionName: "Conferente",
		Shift:        compensation.ShiftMorning,
		Activities:   []compensation.ActivitySubmission{{ActivityName: "Separação", Quantity: d("20"), Hours: d("4")}},
		ClaimedKPIs:  []string{"Pontualidade"},
	}

	result, err := svc.Calculate(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.TotalCompensation.Equal(d("15")), "total %s", result.TotalCompensation)

	_, err = svc.Calculate(ctx, req)
	assert.True(t, generic.IsConflict(err))

	launches, err := store.Launches(ctx, "u-1", generic.Period{Start: day(10), End: day(10)})
	require.NoError(t, err)
	assert.Len(t, launches, 1)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.SaveTier(ctx, tier("Separação", "Bronze", "0", "0.50")))
	require.NoError(t, store.SaveUser(ctx, compensation.User{ID: "u-1"}))
	require.NoError(t, store.RecordLaunch(ctx, compensation.Launch{ID: "1", UserID: "u-1", Date: day(10), Basis: compensation.BasisActivity}))

	require.NoError(t, store.Reset(ctx))

	tiers, _ := store.ListTiers(ctx)
	users, _ := store.ListUsers(ctx)
	launches, _ := store.Launches(ctx, "u-1", generic.Period{Start: day(1), End: day(31)})
	assert.Empty(t, tiers)
	assert.Empty(t, users)
	assert.Empty(t, launches)
}
