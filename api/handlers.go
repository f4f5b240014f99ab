/*
handlers.go - HTTP API handlers for the variable pay engine

PURPOSE:
  Exposes the compensation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the
  compensation service, the task export reader and the catalog store.

ENDPOINTS:
  Calculations:
    POST   /api/calculations            Calculate a worker-day (records a launch)

  Task export:
    POST   /api/tasklogs/validate       Count valid tasks of an operator in an export

  Catalog:
    GET    /api/tiers                   List activities with their tiers
    POST   /api/tiers                   Create or replace the tiers of an activity
    GET    /api/tiers/{activity}        Tiers of one activity
    DELETE /api/tiers/{activity}        Remove an activity
    GET    /api/kpis                    List KPI definitions
    POST   /api/kpis                    Create or update a KPI definition

  Users:
    GET    /api/users                   List worker profiles
    POST   /api/users                   Create or update a profile
    GET    /api/users/{id}              Get one profile
    GET    /api/users/{id}/launches     Launch history (?from=&to=)

  Scenarios:
    GET    /api/scenarios               List demo scenarios
    POST   /api/scenarios/load          Load a demo scenario

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (catalog, users, launches)
  - Service: Calculation pipeline with the daily claim limiter
  - CatalogFactory: JSON documents to validated catalog entries

REQUEST FLOW:
  1. Parse HTTP request
  2. Canonicalize text (NFC + trim) and parse numbers
  3. Call the compensation service or the store
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: ErrInvalidInput (bad numbers, shape errors, malformed exports)
  - 404: ErrNotFound (activity without tiers, unknown user)
  - 409: ErrClaimLimitReached
  - 500: Internal errors, including ErrTaskRateNotConfigured

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/variable-pay/compensation"
	"github.com/warp/variable-pay/factory"
	"github.com/warp/variable-pay/generic"
	"github.com/warp/variable-pay/store/sqlite"
	"github.com/warp/variable-pay/tasklog"
)

// MaxUploadBytes bounds task export uploads.
const MaxUploadBytes = 32 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store          *sqlite.Store
	Service        *compensation.Service
	CatalogFactory *factory.CatalogFactory

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler over store and the service reading it.
func NewHandler(store *sqlite.Store, svc *compensation.Service) *Handler {
	return &Handler{
		Store:          store,
		Service:        svc,
		CatalogFactory: factory.NewCatalogFactory(),
	}
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// Calculate runs one worker-day through the engine.
// POST /api/calculations
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var dto CalculationRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req, err := dto.toRequest()
	if err != nil {
		h.writeServiceError(w, r, "Invalid calculation request", err)
		return
	}

	if err := h.applyProfile(r, &req); err != nil {
		h.writeServiceError(w, r, "Failed to load user profile", err)
		return
	}

	result, err := h.Service.Calculate(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, "Calculation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, NewCalculationResultDTO(result))
}

// applyProfile fills the function, shift and operator of a request from the
// stored profile of its user, when the client left them out.
func (h *Handler) applyProfile(r *http.Request, req *compensation.CalculationRequest) error {
	if req.UserID == "" {
		return nil
	}
	user, err := h.Store.GetUser(r.Context(), req.UserID)
	if err != nil || user == nil {
		return err
	}
	user.ApplyTo(req)
	return nil
}

// =============================================================================
// TASK EXPORT HANDLERS
// =============================================================================

// ValidateTaskLog reads an uploaded export and counts the valid tasks of one
// operator on one day. The file is sent either as the "file" field of a
// multipart form or as the raw body. XLSX is detected from its content.
// POST /api/tasklogs/validate?operator=joao.silva&date=2025-03-10[&charset=latin1&delimiter=,]
func (h *Handler) ValidateTaskLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	operator := generic.Canonical(q.Get("operator"))
	if operator == "" {
		writeError(w, http.StatusBadRequest, "operator is required", nil)
		return
	}
	day, err := generic.ParseDay(strings.TrimSpace(q.Get("date")))
	if err != nil {
		h.writeServiceError(w, r, "Invalid date", err)
		return
	}

	data, filename, err := readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload", err)
		return
	}

	var result tasklog.Result
	if isXLSX(data, filename) {
		result, err = tasklog.ReadXLSX(data)
	} else {
		opts := tasklog.Options{Charset: q.Get("charset")}
		if delim := q.Get("delimiter"); delim != "" {
			opts.Delimiter = []rune(delim)[0]
		}
		result, err = tasklog.ReadCSV(bytes.NewReader(data), opts)
	}
	if err != nil {
		h.writeServiceError(w, r, "Failed to read task export", err)
		return
	}

	rows := result.Rows()
	count := compensation.CountValidTasks(rows, operator, day, h.Service.Location)

	resp := TaskValidationDTO{
		Operator: operator,
		Date:     day.String(),
		Rows:     len(rows),
		Count:    NewTaskCountDTO(count),
		Skipped:  []SkippedRowDTO{},
	}
	for _, s := range result.Skipped() {
		resp.Skipped = append(resp.Skipped, SkippedRowDTO{Line: s.Line, Error: s.Err.Error()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		return data, header.Filename, err
	}

	data, err := io.ReadAll(r.Body)
	return data, "", err
}

// isXLSX reports whether an upload is a workbook: by extension when the
// client named the file, otherwise by the zip signature.
func isXLSX(data []byte, filename string) bool {
	if filename != "" {
		return strings.EqualFold(filepath.Ext(filename), ".xlsx")
	}
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

// =============================================================================
// TIER HANDLERS
// =============================================================================

// ListTiers returns every activity with its tiers.
// GET /api/tiers
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.Store.ListTiers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tiers", err)
		return
	}

	doc := h.CatalogFactory.ToJSON(factory.Catalog{Tiers: tiers})
	if doc.Activities == nil {
		doc.Activities = []factory.ActivityJSON{}
	}
	writeJSON(w, http.StatusOK, doc.Activities)
}

// GetActivityTiers returns the tiers of one activity.
// GET /api/tiers/{activity}
func (h *Handler) GetActivityTiers(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "activity")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid activity name", err)
		return
	}

	tiers, err := h.Store.GetTiers(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get tiers", err)
		return
	}
	if len(tiers) == 0 {
		writeError(w, http.StatusNotFound, "Activity not found", &generic.NotFoundError{Kind: "activity tiers", Key: name})
		return
	}

	doc := h.CatalogFactory.ToJSON(factory.Catalog{Tiers: tiers})
	writeJSON(w, http.StatusOK, doc.Activities[0])
}

// SaveActivityTiers creates an activity or replaces all of its tiers.
// POST /api/tiers
func (h *Handler) SaveActivityTiers(w http.ResponseWriter, r *http.Request) {
	var aj factory.ActivityJSON
	if err := json.NewDecoder(r.Body).Decode(&aj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	catalog, err := h.CatalogFactory.FromJSON(factory.CatalogJSON{Activities: []factory.ActivityJSON{aj}})
	if err != nil {
		h.writeServiceError(w, r, "Invalid activity", err)
		return
	}

	name := catalog.Tiers[0].ActivityName
	if err := h.Store.ReplaceActivityTiers(r.Context(), name, catalog.Tiers); err != nil {
		h.writeServiceError(w, r, "Failed to save tiers", err)
		return
	}

	zap.L().Info("activity tiers saved", zap.String("activity", name), zap.Int("tiers", len(catalog.Tiers)))
	writeJSON(w, http.StatusCreated, h.CatalogFactory.ToJSON(*catalog).Activities[0])
}

// DeleteActivityTiers removes an activity from the catalog.
// DELETE /api/tiers/{activity}
func (h *Handler) DeleteActivityTiers(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "activity")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid activity name", err)
		return
	}

	if err := h.Store.DeleteTiers(r.Context(), name); err != nil {
		h.writeServiceError(w, r, "Failed to delete tiers", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// KPI HANDLERS
// =============================================================================

// ListKPIs returns all KPI definitions.
// GET /api/kpis
func (h *Handler) ListKPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.Store.ListKPIs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list KPIs", err)
		return
	}

	doc := h.CatalogFactory.ToJSON(factory.Catalog{KPIs: kpis})
	if doc.KPIs == nil {
		doc.KPIs = []factory.KPIJSON{}
	}
	writeJSON(w, http.StatusOK, doc.KPIs)
}

// SaveKPI creates or updates a KPI definition.
// POST /api/kpis
func (h *Handler) SaveKPI(w http.ResponseWriter, r *http.Request) {
	var kj factory.KPIJSON
	if err := json.NewDecoder(r.Body).Decode(&kj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	def, err := factory.ParseKPI(kj)
	if err != nil {
		h.writeServiceError(w, r, "Invalid KPI definition", err)
		return
	}
	if err := h.Store.SaveKPI(r.Context(), def); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save KPI", err)
		return
	}

	writeJSON(w, http.StatusCreated, h.CatalogFactory.ToJSON(factory.Catalog{KPIs: []compensation.KPIDefinition{def}}).KPIs[0])
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all worker profiles.
// GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	doc := h.CatalogFactory.ToJSON(factory.Catalog{Users: users})
	if doc.Users == nil {
		doc.Users = []factory.UserJSON{}
	}
	writeJSON(w, http.StatusOK, doc.Users)
}

// GetUser returns one worker profile.
// GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.CatalogFactory.ToJSON(factory.Catalog{Users: []compensation.User{*user}}).Users[0])
}

// SaveUser creates or updates a worker profile.
// POST /api/users
func (h *Handler) SaveUser(w http.ResponseWriter, r *http.Request) {
	var uj factory.UserJSON
	if err := json.NewDecoder(r.Body).Decode(&uj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := factory.ParseUser(uj)
	if err != nil {
		h.writeServiceError(w, r, "Invalid user", err)
		return
	}
	if err := h.Store.SaveUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save user", err)
		return
	}

	writeJSON(w, http.StatusCreated, h.CatalogFactory.ToJSON(factory.Catalog{Users: []compensation.User{user}}).Users[0])
}

// ListLaunches returns the launches of a user within a period, which
// defaults to the current month.
// GET /api/users/{id}/launches?from=2025-03-01&to=2025-03-31
func (h *Handler) ListLaunches(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID", err)
		return
	}

	period, err := h.periodFromQuery(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, r, "Invalid period", err)
		return
	}

	launches, err := h.Store.Launches(r.Context(), generic.UserID(id), period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list launches", err)
		return
	}

	resp := LaunchListResponse{
		UserID:   id,
		From:     period.Start.String(),
		To:       period.End.String(),
		Launches: make([]LaunchDTO, len(launches)),
	}
	total := decimal.Zero
	for i, l := range launches {
		resp.Launches[i] = toLaunchDTO(l)
		total = total.Add(l.TotalCompensation)
	}
	resp.Total = total.String()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) periodFromQuery(q url.Values) (generic.Period, error) {
	today := generic.Today(h.Service.Location)
	period := generic.Period{
		Start: generic.NewTimePoint(today.Year(), today.Month(), 1),
		End:   generic.NewTimePoint(today.Year(), today.Month()+1, 1).AddDays(-1),
	}

	if from := strings.TrimSpace(q.Get("from")); from != "" {
		start, err := generic.ParseDay(from)
		if err != nil {
			return period, err
		}
		period.Start = start
	}
	if to := strings.TrimSpace(q.Get("to")); to != "" {
		end, err := generic.ParseDay(to)
		if err != nil {
			return period, err
		}
		period.End = end
	}
	return period, period.Validate()
}

func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request) (*compensation.User, bool) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID", err)
		return nil, false
	}
	user, err := h.Store.GetUser(r.Context(), generic.UserID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return nil, false
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", &generic.NotFoundError{Kind: "user", Key: id})
		return nil, false
	}
	return user, true
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports whether the database answers.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":        "ok",
		"per_task_rate": h.Service.PerTaskRate().String(),
		"time":          time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
		var inputErr *generic.InvalidInputError
		if errors.As(err, &inputErr) {
			resp.Field = inputErr.Field
		}
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps the error taxonomy onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error(message,
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case generic.IsClientError(err):
		return http.StatusBadRequest
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// pathParam returns a URL parameter unescaped and canonicalized.
func pathParam(r *http.Request, name string) (string, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		return "", err
	}
	return generic.Canonical(raw), nil
}
