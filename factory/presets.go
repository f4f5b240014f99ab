package factory

import (
	"encoding/json"
)

// =============================================================================
// PRESET CATALOGS
// =============================================================================
//
// Ready-made catalog documents for demos, tests and first-run seeding. They
// are built as JSON so they go through the same validation as files edited
// by operations.

const (
	FunctionWarehouseHelper  = "Ajudante de Armazém"
	FunctionForkliftOperator = "Operador de Empilhadeira"
	FunctionChecker          = "Conferente"
)

// WarehouseHelperJSON returns the activities and KPIs of warehouse helpers:
// picking and checking, both tiered by boxes per hour.
func WarehouseHelperJSON() string {
	doc := map[string]interface{}{
		"activities": []map[string]interface{}{
			{
				"name": "Separação",
				"unit": "caixas",
				"tiers": []map[string]interface{}{
					{"label": "Bronze", "min_productivity": "0", "unit_value": "0.50"},
					{"label": "Prata", "min_productivity": "8", "unit_value": "1.00"},
					{"label": "Ouro", "min_productivity": "20", "unit_value": "1.50"},
				},
			},
			{
				"name": "Conferência",
				"unit": "caixas",
				"tiers": []map[string]interface{}{
					{"label": "Bronze", "min_productivity": "0", "unit_value": "0.80"},
					{"label": "Prata", "min_productivity": "12", "unit_value": "1.20"},
				},
			},
		},
		"kpis": []map[string]interface{}{
			{"name": "Zero avarias", "function": FunctionWarehouseHelper, "shift": "morning", "bonus_weight": "15"},
			{"name": "Zero avarias", "function": FunctionWarehouseHelper, "shift": "afternoon", "bonus_weight": "15"},
			{"name": "Pontualidade", "function": FunctionWarehouseHelper, "shift": "general", "bonus_weight": "10"},
			{"name": "Organização do setor", "function": FunctionWarehouseHelper, "shift": "night", "bonus_weight": "12"},
		},
		"users": []map[string]interface{}{
			{"id": "ajudante-1", "name": "Ana Lima", "function": FunctionWarehouseHelper, "shift": "morning", "basis": "activity"},
		},
	}
	b, _ := json.MarshalIndent(doc, "", "  ")
	return string(b)
}

// ForkliftOperatorJSON returns the KPIs of forklift operators, who are paid
// per validated task of the management export instead of by activity.
func ForkliftOperatorJSON() string {
	doc := map[string]interface{}{
		"activities": []map[string]interface{}{},
		"kpis": []map[string]interface{}{
			{"name": "Checklist diário", "function": FunctionForkliftOperator, "shift": "general", "bonus_weight": "8"},
			{"name": "Zero avarias", "function": FunctionForkliftOperator, "shift": "general", "bonus_weight": "20"},
			{"name": "Zero avarias", "function": FunctionForkliftOperator, "shift": "night", "bonus_weight": "25"},
		},
		"users": []map[string]interface{}{
			{
				"id":            "operador-1",
				"name":          "Carlos Souza",
				"function":      FunctionForkliftOperator,
				"shift":         "night",
				"basis":         "tasks",
				"operator_name": "carlos.souza",
			},
		},
	}
	b, _ := json.MarshalIndent(doc, "", "  ")
	return string(b)
}

// CheckerJSON returns a single-activity catalog for checkers, with a
// shift-specific KPI overriding its general weight.
func CheckerJSON() string {
	doc := map[string]interface{}{
		"activities": []map[string]interface{}{
			{
				"name": "Conferência de paletes",
				"unit": "paletes",
				"tiers": []map[string]interface{}{
					{"label": "Nível 1", "min_productivity": "5", "unit_value": "1.00"},
					{"label": "Nível 2", "min_productivity": "15", "unit_value": "2.00"},
				},
			},
		},
		"kpis": []map[string]interface{}{
			{"name": "Acuracidade 100%", "function": FunctionChecker, "shift": "general", "bonus_weight": "10"},
			{"name": "Acuracidade 100%", "function": FunctionChecker, "shift": "night", "bonus_weight": "18"},
		},
		"users": []map[string]interface{}{
			{"id": "conferente-1", "name": "Beatriz Rocha", "function": FunctionChecker, "shift": "night"},
		},
	}
	b, _ := json.MarshalIndent(doc, "", "  ")
	return string(b)
}

// Merge concatenates catalogs in order.
func Merge(catalogs ...*Catalog) *Catalog {
	merged := &Catalog{}
	for _, c := range catalogs {
		if c == nil {
			continue
		}
		merged.Tiers = append(merged.Tiers, c.Tiers...)
		merged.KPIs = append(merged.KPIs, c.KPIs...)
		merged.Users = append(merged.Users, c.Users...)
	}
	return merged
}
