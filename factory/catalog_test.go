package factory_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/variable-pay/compensation"
	"github.com/warp/variable-pay/factory"
	"github.com/warp/variable-pay/generic"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

const catalogYAML = `
activities:
  - name: Separação
    unit: caixas
    tiers:
      - {label: Bronze, min_productivity: 0, unit_value: "0,50"}
      - {label: Prata, min_productivity: 8, unit_value: 1.00}
kpis:
  - name: Zero avarias
    function: Ajudante de Armazém
    shift: manhã
    bonus_weight: 15
  - name: Pontualidade
    function: Ajudante de Armazém
    shift: Geral
    bonus_weight: "10,5"
users:
  - id: u-1
    name: Ana
    function: Ajudante de Armazém
    shift: morning
`

func TestParseYAML(t *testing.T) {
	catalog, err := factory.NewCatalogFactory().ParseYAML([]byte(catalogYAML))
	require.NoError(t, err)

	require.Len(t, catalog.Tiers, 2)
	assert.Equal(t, "Separação", catalog.Tiers[0].ActivityName)
	assert.Equal(t, "caixas", catalog.Tiers[0].Unit)
	assert.True(t, catalog.Tiers[0].UnitValue.Equal(d("0.5")))
	assert.True(t, catalog.Tiers[1].MinProductivity.Equal(d("8")))

	require.Len(t, catalog.KPIs, 2)
	assert.Equal(t, compensation.ShiftMorning, catalog.KPIs[0].Shift)
	assert.Equal(t, compensation.ShiftGeneral, catalog.KPIs[1].Shift)
	assert.True(t, catalog.KPIs[1].BonusWeight.Equal(d("10.5")))

	require.Len(t, catalog.Users, 1)
	assert.Equal(t, generic.UserID("u-1"), catalog.Users[0].ID)
	assert.Equal(t, compensation.BasisActivity, catalog.Users[0].Basis)
}

func TestParseJSON_NumbersAsNumbersOrStrings(t *testing.T) {
	doc := `{
		"activities": [{"name": "Conferência", "tiers": [
			{"label": "A", "min_productivity": 0, "unit_value": 0.8},
			{"label": "B", "min_productivity": "12", "unit_value": "1,20"}
		]}],
		"kpis": []
	}`

	catalog, err := factory.NewCatalogFactory().ParseJSON([]byte(doc))
	require.NoError(t, err)
	require.Len(t, catalog.Tiers, 2)
	assert.True(t, catalog.Tiers[0].UnitValue.Equal(d("0.8")))
	assert.True(t, catalog.Tiers[1].UnitValue.Equal(d("1.2")))
}

func TestParseJSON_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{
			"activity without tiers",
			`{"activities": [{"name": "Separação", "tiers": []}]}`,
			"activities[0].tiers",
		},
		{
			"negative unit value",
			`{"activities": [{"name": "Separação", "tiers": [{"label": "A", "min_productivity": 0, "unit_value": -1}]}]}`,
			"activities[0].tiers[0].unit_value",
		},
		{
			"duplicate threshold",
			`{"activities": [{"name": "Separação", "tiers": [
				{"label": "A", "min_productivity": 5, "unit_value": 1},
				{"label": "B", "min_productivity": "5.0", "unit_value": 2}]}]}`,
			"activities[0].tiers[1].min_productivity",
		},
		{
			"missing tier label",
			`{"activities": [{"name": "Separação", "tiers": [{"min_productivity": 0, "unit_value": 1}]}]}`,
			"activities[0].tiers[0].label",
		},
		{
			"unknown shift",
			`{"kpis": [{"name": "X", "function": "F", "shift": "madrugada", "bonus_weight": 1}]}`,
			"kpis[0].shift",
		},
		{
			"duplicate kpi",
			`{"kpis": [
				{"name": "X", "function": "F", "shift": "general", "bonus_weight": 1},
				{"name": "X", "function": "F", "shift": "geral", "bonus_weight": 2}]}`,
			"kpis[1]",
		},
		{
			"task user without operator",
			`{"users": [{"id": "u", "basis": "tasks"}]}`,
			"users[0].operator_name",
		},
		{
			"malformed json",
			`{"activities": [`,
			"catalog",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.NewCatalogFactory().ParseJSON([]byte(tt.doc))

			var inputErr *generic.InvalidInputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
			assert.True(t, errors.Is(err, generic.ErrInvalidInput))
		})
	}
}

func tierKeys(tiers []compensation.ActivityTier) []string {
	keys := make([]string, len(tiers))
	for i, t := range tiers {
		keys[i] = t.ActivityName + "|" + t.LevelLabel + "|" + t.MinProductivity.String() + "|" + t.UnitValue.String() + "|" + t.Unit
	}
	return keys
}

func kpiKeys(kpis []compensation.KPIDefinition) []string {
	keys := make([]string, len(kpis))
	for i, k := range kpis {
		keys[i] = k.Name + "|" + k.FunctionName + "|" + string(k.Shift) + "|" + k.BonusWeight.String()
	}
	return keys
}

func TestToJSON_RoundTripsThroughParse(t *testing.T) {
	f := factory.NewCatalogFactory()
	original, err := f.ParseJSON([]byte(factory.WarehouseHelperJSON()))
	require.NoError(t, err)

	again, err := f.FromJSON(f.ToJSON(*original))
	require.NoError(t, err)

	assert.ElementsMatch(t, tierKeys(original.Tiers), tierKeys(again.Tiers))
	assert.Equal(t, kpiKeys(original.KPIs), kpiKeys(again.KPIs))
	assert.Equal(t, original.Users, again.Users)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "catalog.yml")
	jsonPath := filepath.Join(dir, "catalog.json")
	txtPath := filepath.Join(dir, "catalog.txt")
	require.NoError(t, os.WriteFile(yamlPath, []byte(catalogYAML), 0o600))
	require.NoError(t, os.WriteFile(jsonPath, []byte(factory.CheckerJSON()), 0o600))
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o600))

	f := factory.NewCatalogFactory()

	fromYAML, err := f.LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Len(t, fromYAML.Tiers, 2)

	fromJSON, err := f.LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Len(t, fromJSON.KPIs, 2)

	_, err = f.LoadFile(txtPath)
	assert.Error(t, err)

	_, err = f.LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

// =============================================================================
// PRESETS
// =============================================================================

func TestPresetsAreValid(t *testing.T) {
	f := factory.NewCatalogFactory()
	for name, doc := range map[string]string{
		"helper":   factory.WarehouseHelperJSON(),
		"forklift": factory.ForkliftOperatorJSON(),
		"checker":  factory.CheckerJSON(),
	} {
		_, err := f.ParseJSON([]byte(doc))
		assert.NoError(t, err, name)
	}
}

func TestPresets_DriveTheEngine(t *testing.T) {
	// GIVEN: The warehouse helper preset
	// WHEN: A helper picks 50 boxes in 5h and claims both morning KPIs
	// THEN: Prata tier, net 25, bonus 25

	catalog, err := factory.NewCatalogFactory().ParseJSON([]byte(factory.WarehouseHelperJSON()))
	require.NoError(t, err)

	result, err := compensation.Calculate(compensation.Inputs{
		Request: compensation.CalculationRequest{
			FunctionName: factory.FunctionWarehouseHelper,
			Shift:        compensation.ShiftMorning,
			Activities:   []compensation.ActivitySubmission{{ActivityName: "Separação", Quantity: d("50"), Hours: d("5")}},
			ClaimedKPIs:  []string{"Zero avarias", "Pontualidade"},
		},
		Tiers: catalog.TiersByActivity(),
		KPIs:  catalog.KPIs,
	})
	require.NoError(t, err)
	assert.True(t, result.TotalCompensation.Equal(d("50")), "total %s", result.TotalCompensation)
}

func TestMerge(t *testing.T) {
	f := factory.NewCatalogFactory()
	a, err := f.ParseJSON([]byte(factory.WarehouseHelperJSON()))
	require.NoError(t, err)
	b, err := f.ParseJSON([]byte(factory.ForkliftOperatorJSON()))
	require.NoError(t, err)

	merged := factory.Merge(a, nil, b)
	assert.Len(t, merged.Tiers, len(a.Tiers)+len(b.Tiers))
	assert.Len(t, merged.KPIs, len(a.KPIs)+len(b.KPIs))
	assert.Len(t, merged.Users, 2)
}
