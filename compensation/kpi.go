package compensation

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// KPI BONUS RESOLVER
// =============================================================================

// KPIResult lists the honored claims and their summed weight.
type KPIResult struct {
	Achieved []string        // in first-claim order
	Total    decimal.Decimal // Σ BonusWeight of Achieved
}

// ResolveBonuses honors each distinct claimed name that has a definition for
// functionName on shift or on ShiftGeneral. Names without a definition are
// dropped silently; stale selections from the UI are expected.
//
// When a name is defined for both the shift and ShiftGeneral, the
// shift-specific weight wins. A name is never paid twice.
func ResolveBonuses(catalog []KPIDefinition, functionName string, shift Shift, claimed []string) KPIResult {
	result := KPIResult{Achieved: []string{}, Total: decimal.Zero}
	if len(claimed) == 0 {
		return result
	}

	specific := make(map[string]decimal.Decimal)
	general := make(map[string]decimal.Decimal)
	for _, def := range catalog {
		if def.FunctionName != functionName {
			continue
		}
		switch def.Shift {
		case shift:
			specific[def.Name] = def.BonusWeight
		case ShiftGeneral:
			general[def.Name] = def.BonusWeight
		}
	}

	seen := make(map[string]bool, len(claimed))
	for _, name := range claimed {
		if seen[name] {
			continue
		}
		seen[name] = true

		weight, ok := specific[name]
		if !ok {
			weight, ok = general[name]
		}
		if !ok {
			continue
		}
		result.Achieved = append(result.Achieved, name)
		result.Total = result.Total.Add(weight)
	}
	return result
}
