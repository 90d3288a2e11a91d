package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appmigration "github.com/turtacn/datamigrate/internal/application/migration"
	appreporting "github.com/turtacn/datamigrate/internal/application/reporting"
	"github.com/turtacn/datamigrate/internal/application/workflow"
	"github.com/turtacn/datamigrate/internal/domain/report"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// RunHandler manages migration runs: enqueue, status, reports.
type RunHandler struct {
	migration    appmigration.Service
	reporting    appreporting.Service
	orchestrator *workflow.Orchestrator
}

// NewRunHandler wires the run endpoints.
func NewRunHandler(migration appmigration.Service, reporting appreporting.Service, orchestrator *workflow.Orchestrator) *RunHandler {
	return &RunHandler{
		migration:    migration,
		reporting:    reporting,
		orchestrator: orchestrator,
	}
}

// Create serves POST /api/v1/runs.  The run is queued for the worker and
// answered with 202 before it executes.
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input appmigration.MigrateInput
	if err := decodeJSON(r, &input); err != nil {
		writeAppError(w, err)
		return
	}
	if input.SourcePath == "" {
		writeAppError(w, errors.New(errors.ErrCodeValidation, "source_path is required"))
		return
	}

	run, err := h.migration.Enqueue(r.Context(), &input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

// Get serves GET /api/v1/runs/{runID}, answering from the status cache when
// it holds a fresh snapshot.
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	status, err := h.orchestrator.Status(r.Context(), runID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ListReports serves GET /api/v1/runs/{runID}/reports.
func (h *RunHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	recs, err := h.reporting.ListReports(r.Context(), runID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if recs == nil {
		recs = []*report.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": recs})
}

// GetReport serves GET /api/v1/runs/{runID}/report, streaming the newest
// rendered report for the run.
func (h *RunHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	recs, err := h.reporting.ListReports(r.Context(), runID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if len(recs) == 0 {
		writeAppError(w, errors.Newf(errors.ErrCodeReportNotFound, "no reports for run %s", runID))
		return
	}

	rec := recs[0]
	content, err := h.reporting.ReadReport(r.Context(), rec)
	if err != nil {
		writeAppError(w, err)
		return
	}

	contentType := "text/markdown; charset=utf-8"
	if rec.Format == report.FormatHTML {
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}
