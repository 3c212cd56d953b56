/*
handlers.go - HTTP API handlers for the weekly performance engine

PURPOSE:
  Exposes the recalculation engine via REST. Handles HTTP request/response
  and JSON serialization, delegating all computation to the engine.

ENDPOINTS:
  Jobs:
    POST   /api/jobs/weekly-recalculation  Trigger the rollover job
    GET    /api/jobs/runs                  Recent run audit rows

  Read-only views:
    GET    /api/tenants                    Active tenants
    GET    /api/tenants/{id}/weeks         A tenant's weekly records

ARCHITECTURE:
  Handler holds injected dependencies - the store and the orchestrator are
  constructed per process in main and passed in; no package-level state.

ERROR HANDLING:
  Every failure payload carries success:false, the error string, and a
  timestamp. The trigger endpoint reports per-tenant outcomes even when
  the overall call succeeds, so operators can see exactly which tenants
  closed their week.

SECURITY NOTE:
  No authentication. The trigger is meant to be reachable only by the
  scheduler inside the private network.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - engine/rollover.go: the job itself
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zykor/performance-engine/engine"
	"github.com/zykor/performance-engine/store/sqlite"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        *sqlite.Store
	Orchestrator *engine.Orchestrator
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(store *sqlite.Store, orch *engine.Orchestrator) *Handler {
	return &Handler{Store: store, Orchestrator: orch}
}

// TriggerRecalculation runs the weekly rollover across all active tenants.
// POST /api/jobs/weekly-recalculation
func (h *Handler) TriggerRecalculation(w http.ResponseWriter, r *http.Request) {
	result, err := h.Orchestrator.Run(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrNoActiveTenants) {
			status = http.StatusConflict
		}
		writeFailure(w, status, err)
		return
	}

	resp := RecalculationResponse{
		Success:       true,
		Message:       "weekly recalculation completed",
		WeekProcessed: result.Week.Number,
		Year:          result.Week.Year,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	for _, tr := range result.Results {
		resp.PerTenantResults = append(resp.PerTenantResults, TenantResultDTO{
			TenantID:      tr.TenantID,
			TenantName:    tr.TenantName,
			WeekProcessed: tr.Week.Number,
			PreviousWeek:  tr.PreviousWeek.Number,
			Year:          tr.Week.Year,
			Succeeded:     tr.Succeeded,
			Data:          toWeeklyRecordDTO(tr.Record),
			Error:         tr.Err,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListRuns returns recent recalculation runs.
// GET /api/jobs/runs?limit=20
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toRunDTO(run))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListTenants returns the active tenants.
// GET /api/tenants
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Store.ListActiveTenants(r.Context())
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]TenantDTO, 0, len(tenants))
	for _, t := range tenants {
		dtos = append(dtos, TenantDTO{ID: t.ID, Name: t.Name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListTenantWeeks returns a tenant's stored weekly records, newest first.
// GET /api/tenants/{id}/weeks?year=2025
func (h *Handler) ListTenantWeeks(w http.ResponseWriter, r *http.Request) {
	tenantID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, errors.New("invalid tenant id"))
		return
	}
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))

	records, err := h.Store.ListWeeks(r.Context(), tenantID, year)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]WeeklyRecordDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, *toWeeklyRecordDTO(&records[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeFailure(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{
		Success:   false,
		Error:     err.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
