/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	catalogs and worker profiles for demos. Each scenario replaces the
	tier and KPI catalog and registers the users of the preset.

AVAILABLE SCENARIOS:

	warehouse-helper:   Picking and checking tiers, shift KPIs
	forklift-operator:  Task-counted operator with shift-specific KPI weight
	checker:            Pallet checking tiers, night KPI override
	full-warehouse:     All of the above

HOW SCENARIOS WORK:
 1. Reset database (clear catalog, users and launches)
 2. Parse preset catalog documents via factory
 3. Replace the catalog in one transaction
 4. Save the preset users

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "full-warehouse"}

ADDING NEW SCENARIOS:
 1. Add a preset builder to factory/presets.go
 2. Add to 'scenarios' slice with ID, name, description
 3. Map the ID to its documents in scenarioDocuments

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler context
  - factory/presets.go: Catalog documents
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/warp/variable-pay/factory"
	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "warehouse-helper",
		Name:        "Warehouse Helper",
		Description: "Picking and checking paid by productivity tier, morning and afternoon KPIs",
		Category:    "activity",
	},
	{
		ID:          "forklift-operator",
		Name:        "Forklift Operator",
		Description: "Paid per validated task of the management export, night KPI overrides the general weight",
		Category:    "tasks",
	},
	{
		ID:          "checker",
		Name:        "Pallet Checker",
		Description: "Single activity tiered by pallets per hour",
		Category:    "activity",
	},
	{
		ID:          "full-warehouse",
		Name:        "Full Warehouse",
		Description: "Every function of the warehouse in one catalog",
		Category:    "mixed",
	},
}

// scenarioDocuments maps a scenario to the catalog documents it loads.
func scenarioDocuments(id string) ([]string, bool) {
	switch id {
	case "warehouse-helper":
		return []string{factory.WarehouseHelperJSON()}, true
	case "forklift-operator":
		return []string{factory.ForkliftOperatorJSON()}, true
	case "checker":
		return []string{factory.CheckerJSON()}, true
	case "full-warehouse":
		return []string{factory.WarehouseHelperJSON(), factory.ForkliftOperatorJSON(), factory.CheckerJSON()}, true
	}
	return nil, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if _, ok := scenarioDocuments(req.ScenarioID); !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", &generic.InvalidInputError{Field: "scenario_id", Value: req.ScenarioID, Reason: "unknown scenario"})
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		h.writeServiceError(w, r, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"scenario": req.ScenarioID,
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadScenario resets the store and loads the catalogs of scenario id.
func (h *Handler) loadScenario(ctx context.Context, id string) error {
	docs, ok := scenarioDocuments(id)
	if !ok {
		return &generic.InvalidInputError{Field: "scenario_id", Value: id, Reason: "unknown scenario"}
	}

	parts := make([]*factory.Catalog, 0, len(docs))
	for _, doc := range docs {
		catalog, err := h.CatalogFactory.ParseJSON([]byte(doc))
		if err != nil {
			return eris.Wrapf(err, "scenario %s", id)
		}
		parts = append(parts, catalog)
	}
	catalog := factory.Merge(parts...)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return eris.Wrap(err, "reset database")
	}
	h.currentScenario = ""

	if err := h.Store.ReplaceCatalog(ctx, catalog.Tiers, catalog.KPIs); err != nil {
		return eris.Wrap(err, "replace catalog")
	}
	for _, u := range catalog.Users {
		if err := h.Store.SaveUser(ctx, u); err != nil {
			return eris.Wrapf(err, "save user %s", u.ID)
		}
	}

	h.currentScenario = id
	zap.L().Info("scenario loaded",
		zap.String("scenario", id),
		zap.Int("tiers", len(catalog.Tiers)),
		zap.Int("kpis", len(catalog.KPIs)),
		zap.Int("users", len(catalog.Users)),
	)
	return nil
}
