/*
Package generic provides the domain-agnostic building blocks shared by the
compensation engine and its collaborators.

PURPOSE:
  Everything in here is free of pay rules. It holds the numeric helpers
  used for money and rates, the calendar abstraction used to attribute
  records to a working day, the error taxonomy, and the text
  canonicalization applied at ingestion boundaries.

KEY CONCEPTS IN THIS FILE (types.go):
  - decimal.Decimal is the only numeric type used for money and rates
  - UserID: type-safe identifier for the worker a calculation belongs to
  - ParseDecimal: accepts both "12.5" and the export style "12,5"

DESIGN PRINCIPLES:
  1. Precision: money never goes through float64 arithmetic
  2. Type Safety: identifiers are distinct string types
  3. Boundaries: parsing and canonicalization happen at the edges, never
     inside the calculation core

SEE ALSO:
  - errors.go: Sentinel and structured errors
  - time.go: TimePoint and Period
  - text.go: Unicode canonicalization
*/
package generic

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var two = decimal.NewFromInt(2)

// Half returns d / 2. Used for the fixed 50% payout rule.
func Half(d decimal.Decimal) decimal.Decimal {
	return d.Div(two)
}

// Sum adds all values, returning zero for an empty list.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// ParseDecimal parses a decimal written either with a dot or with a comma
// as the decimal separator. Thousands separators are not accepted.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &InvalidInputError{Field: "number", Value: s, Reason: "not a decimal number"}
	}
	return d, nil
}
