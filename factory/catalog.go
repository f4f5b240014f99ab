/*
Package factory provides JSON/YAML to Go catalog conversion.

PURPOSE:
  Converts catalog documents into validated compensation.ActivityTier,
  compensation.KPIDefinition and compensation.User values. Operations can
  maintain tiers and KPI weights in a file (or through the admin API) and
  the factory produces the structs the engine consumes.

DOCUMENT SCHEMA (JSON shown; YAML uses the same keys):
  {
    "activities": [
      {
        "name": "Separação",
        "unit": "caixas",
        "tiers": [
          {"label": "Bronze", "min_productivity": 0,  "unit_value": "0,50"},
          {"label": "Prata",  "min_productivity": 8,  "unit_value": 1.00}
        ]
      }
    ],
    "kpis": [
      {"name": "Zero avarias", "function": "Ajudante de Armazém",
       "shift": "manhã", "bonus_weight": 15}
    ],
    "users": [
      {"id": "u-1", "name": "Ana", "function": "Ajudante de Armazém",
       "shift": "morning", "basis": "activity"}
    ]
  }

NUMBERS:
  Numeric fields accept JSON/YAML numbers or strings, with either a dot
  or a comma as the decimal separator. They are parsed straight into
  decimal.Decimal, never through float64.

VALIDATION:
  - Activity and tier labels are required; every activity has a tier
  - Thresholds and unit values are non-negative
  - Two tiers of one activity never share a threshold
  - KPI shift must be a known shift; weights are non-negative
  - A KPI is defined at most once per (name, function, shift)
  Text fields are NFC-canonicalized.

USAGE:
  f := factory.NewCatalogFactory()
  catalog, err := f.LoadFile("catalog.yaml")
  store.ReplaceCatalog(ctx, catalog.Tiers, catalog.KPIs)

SEE ALSO:
  - presets.go: Demo warehouse catalogs
  - store/sqlite: Persists the parsed catalog
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/variable-pay/compensation"
	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// DOCUMENT SCHEMA TYPES
// =============================================================================

// CatalogJSON is the document representation of a catalog.
type CatalogJSON struct {
	Activities []ActivityJSON `json:"activities" yaml:"activities"`
	KPIs       []KPIJSON      `json:"kpis" yaml:"kpis"`
	Users      []UserJSON     `json:"users,omitempty" yaml:"users,omitempty"`
}

// ActivityJSON groups the tiers of one activity.
type ActivityJSON struct {
	Name  string     `json:"name" yaml:"name"`
	Unit  string     `json:"unit,omitempty" yaml:"unit,omitempty"`
	Tiers []TierJSON `json:"tiers" yaml:"tiers"`
}

// TierJSON is one productivity level.
type TierJSON struct {
	Label           string `json:"label" yaml:"label"`
	MinProductivity Number `json:"min_productivity" yaml:"min_productivity"`
	UnitValue       Number `json:"unit_value" yaml:"unit_value"`
}

// KPIJSON is one KPI definition.
type KPIJSON struct {
	Name        string `json:"name" yaml:"name"`
	Function    string `json:"function" yaml:"function"`
	Shift       string `json:"shift" yaml:"shift"`
	BonusWeight Number `json:"bonus_weight" yaml:"bonus_weight"`
}

// UserJSON is one worker profile.
type UserJSON struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Function     string `json:"function" yaml:"function"`
	Shift        string `json:"shift" yaml:"shift"`
	Basis        string `json:"basis,omitempty" yaml:"basis,omitempty"`
	OperatorName string `json:"operator_name,omitempty" yaml:"operator_name,omitempty"`
}

// Number is a decimal kept as text until validation. It decodes from a
// number or a string in both JSON and YAML.
type Number string

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	}
	if string(b) == "null" {
		*n = ""
		return nil
	}
	*n = Number(b)
	return nil
}

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	*n = Number(node.Value)
	return nil
}

// MarshalJSON writes the number as a JSON number.
func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("0"), nil
	}
	d, err := generic.ParseDecimal(string(n))
	if err != nil {
		return nil, err
	}
	return []byte(d.String()), nil
}

func numberOf(d decimal.Decimal) Number {
	return Number(d.String())
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is a validated set of tiers, KPI definitions and users.
type Catalog struct {
	Tiers []compensation.ActivityTier
	KPIs  []compensation.KPIDefinition
	Users []compensation.User
}

// TiersByActivity groups the tiers by activity name, in document order.
func (c Catalog) TiersByActivity() map[string][]compensation.ActivityTier {
	grouped := make(map[string][]compensation.ActivityTier)
	for _, t := range c.Tiers {
		grouped[t.ActivityName] = append(grouped[t.ActivityName], t)
	}
	return grouped
}

// =============================================================================
// CATALOG FACTORY
// =============================================================================

// CatalogFactory converts catalog documents to Go structs.
type CatalogFactory struct{}

// NewCatalogFactory creates a new catalog factory.
func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{}
}

// ParseJSON parses and validates a JSON catalog document.
func (f *CatalogFactory) ParseJSON(data []byte) (*Catalog, error) {
	var cj CatalogJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return nil, &generic.InvalidInputError{Field: "catalog", Reason: "malformed JSON: " + err.Error()}
	}
	return f.FromJSON(cj)
}

// ParseYAML parses and validates a YAML catalog document.
func (f *CatalogFactory) ParseYAML(data []byte) (*Catalog, error) {
	var cj CatalogJSON
	if err := yaml.Unmarshal(data, &cj); err != nil {
		return nil, &generic.InvalidInputError{Field: "catalog", Reason: "malformed YAML: " + err.Error()}
	}
	return f.FromJSON(cj)
}

// LoadFile reads a catalog document, choosing the format by extension
// (.yaml/.yml or .json).
func (f *CatalogFactory) LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "factory: read catalog %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return f.ParseYAML(data)
	case ".json":
		return f.ParseJSON(data)
	default:
		return nil, eris.Errorf("factory: unsupported catalog extension %q", filepath.Ext(path))
	}
}

// FromJSON validates a decoded document and converts it.
func (f *CatalogFactory) FromJSON(cj CatalogJSON) (*Catalog, error) {
	catalog := &Catalog{}

	for i, aj := range cj.Activities {
		tiers, err := parseActivity(i, aj)
		if err != nil {
			return nil, err
		}
		catalog.Tiers = append(catalog.Tiers, tiers...)
	}

	seen := make(map[[3]string]bool)
	for i, kj := range cj.KPIs {
		def, err := parseKPI(i, kj)
		if err != nil {
			return nil, err
		}
		key := [3]string{def.Name, def.FunctionName, string(def.Shift)}
		if seen[key] {
			return nil, &generic.InvalidInputError{Field: fmt.Sprintf("kpis[%d]", i), Value: def.Name, Reason: "defined twice for the same function and shift"}
		}
		seen[key] = true
		catalog.KPIs = append(catalog.KPIs, def)
	}

	for i, uj := range cj.Users {
		user, err := parseUser(i, uj)
		if err != nil {
			return nil, err
		}
		catalog.Users = append(catalog.Users, user)
	}

	return catalog, nil
}

// ToJSON converts a catalog back to its document form. Tiers are grouped by
// activity; activities are sorted by name.
func (f *CatalogFactory) ToJSON(c Catalog) CatalogJSON {
	cj := CatalogJSON{}

	grouped := c.TiersByActivity()
	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tiers := grouped[name]
		aj := ActivityJSON{Name: name, Unit: tiers[0].Unit}
		for _, t := range tiers {
			aj.Tiers = append(aj.Tiers, TierJSON{
				Label:           t.LevelLabel,
				MinProductivity: numberOf(t.MinProductivity),
				UnitValue:       numberOf(t.UnitValue),
			})
		}
		cj.Activities = append(cj.Activities, aj)
	}

	for _, k := range c.KPIs {
		cj.KPIs = append(cj.KPIs, KPIJSON{
			Name:        k.Name,
			Function:    k.FunctionName,
			Shift:       string(k.Shift),
			BonusWeight: numberOf(k.BonusWeight),
		})
	}

	for _, u := range c.Users {
		cj.Users = append(cj.Users, UserJSON{
			ID:           string(u.ID),
			Name:         u.Name,
			Function:     u.FunctionName,
			Shift:        string(u.Shift),
			Basis:        string(u.Basis),
			OperatorName: u.OperatorName,
		})
	}
	return cj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseActivity(index int, aj ActivityJSON) ([]compensation.ActivityTier, error) {
	field := fmt.Sprintf("activities[%d]", index)
	name := generic.Canonical(aj.Name)
	if name == "" {
		return nil, &generic.InvalidInputError{Field: field + ".name", Reason: "required"}
	}
	if len(aj.Tiers) == 0 {
		return nil, &generic.InvalidInputError{Field: field + ".tiers", Value: name, Reason: "an activity needs at least one tier"}
	}

	tiers := make([]compensation.ActivityTier, 0, len(aj.Tiers))
	thresholds := make(map[string]bool, len(aj.Tiers))
	for j, tj := range aj.Tiers {
		tier, err := ParseTier(name, generic.Canonical(aj.Unit), tj)
		if err != nil {
			return nil, prefixField(fmt.Sprintf("%s.tiers[%d]", field, j), err)
		}
		key := tier.MinProductivity.String()
		if thresholds[key] {
			return nil, &generic.InvalidInputError{Field: fmt.Sprintf("%s.tiers[%d].min_productivity", field, j), Value: key, Reason: "duplicate threshold"}
		}
		thresholds[key] = true
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

// ParseTier validates one tier of activity. Errors name the tier field
// relative to the tier ("label", "min_productivity", "unit_value").
func ParseTier(activity, unit string, tj TierJSON) (compensation.ActivityTier, error) {
	label := generic.Canonical(tj.Label)
	if label == "" {
		return compensation.ActivityTier{}, &generic.InvalidInputError{Field: "label", Reason: "required"}
	}
	minProductivity, err := nonNegative("min_productivity", tj.MinProductivity)
	if err != nil {
		return compensation.ActivityTier{}, err
	}
	unitValue, err := nonNegative("unit_value", tj.UnitValue)
	if err != nil {
		return compensation.ActivityTier{}, err
	}
	return compensation.ActivityTier{
		ActivityName:    activity,
		LevelLabel:      label,
		MinProductivity: minProductivity,
		UnitValue:       unitValue,
		Unit:            unit,
	}, nil
}

func parseKPI(index int, kj KPIJSON) (compensation.KPIDefinition, error) {
	def, err := ParseKPI(kj)
	if err != nil {
		return compensation.KPIDefinition{}, prefixField(fmt.Sprintf("kpis[%d]", index), err)
	}
	return def, nil
}

// ParseKPI validates one KPI definition.
func ParseKPI(kj KPIJSON) (compensation.KPIDefinition, error) {
	name := generic.Canonical(kj.Name)
	if name == "" {
		return compensation.KPIDefinition{}, &generic.InvalidInputError{Field: "name", Reason: "required"}
	}
	function := generic.Canonical(kj.Function)
	if function == "" {
		return compensation.KPIDefinition{}, &generic.InvalidInputError{Field: "function", Reason: "required"}
	}
	shift, err := compensation.ParseShift(kj.Shift)
	if err != nil {
		return compensation.KPIDefinition{}, err
	}
	weight, err := nonNegative("bonus_weight", kj.BonusWeight)
	if err != nil {
		return compensation.KPIDefinition{}, err
	}
	return compensation.KPIDefinition{Name: name, FunctionName: function, Shift: shift, BonusWeight: weight}, nil
}

func parseUser(index int, uj UserJSON) (compensation.User, error) {
	user, err := ParseUser(uj)
	if err != nil {
		return compensation.User{}, prefixField(fmt.Sprintf("users[%d]", index), err)
	}
	return user, nil
}

// ParseUser validates one worker profile. Shift is optional.
func ParseUser(uj UserJSON) (compensation.User, error) {
	id := generic.Canonical(uj.ID)
	if id == "" {
		return compensation.User{}, &generic.InvalidInputError{Field: "id", Reason: "required"}
	}
	var shift compensation.Shift
	if strings.TrimSpace(uj.Shift) != "" {
		s, err := compensation.ParseShift(uj.Shift)
		if err != nil {
			return compensation.User{}, err
		}
		shift = s
	}
	basis, err := compensation.ParsePayBasis(uj.Basis)
	if err != nil {
		return compensation.User{}, err
	}
	operator := generic.Canonical(uj.OperatorName)
	if basis == compensation.BasisTasks && operator == "" {
		return compensation.User{}, &generic.InvalidInputError{Field: "operator_name", Reason: "required for task-counted users"}
	}
	return compensation.User{
		ID:           generic.UserID(id),
		Name:         generic.Canonical(uj.Name),
		FunctionName: generic.Canonical(uj.Function),
		Shift:        shift,
		Basis:        basis,
		OperatorName: operator,
	}, nil
}

func nonNegative(field string, n Number) (decimal.Decimal, error) {
	if strings.TrimSpace(string(n)) == "" {
		return decimal.Zero, &generic.InvalidInputError{Field: field, Reason: "required"}
	}
	d, err := generic.ParseDecimal(string(n))
	if err != nil {
		return decimal.Zero, &generic.InvalidInputError{Field: field, Value: string(n), Reason: "not a decimal number"}
	}
	if d.IsNegative() {
		return decimal.Zero, &generic.InvalidInputError{Field: field, Value: string(n), Reason: "must not be negative"}
	}
	return d, nil
}

// prefixField qualifies the field of an InvalidInputError with its
// position in the document.
func prefixField(prefix string, err error) error {
	if inputErr, ok := err.(*generic.InvalidInputError); ok {
		qualified := *inputErr
		qualified.Field = prefix + "." + inputErr.Field
		return &qualified
	}
	return err
}
