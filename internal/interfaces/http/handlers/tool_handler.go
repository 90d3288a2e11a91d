package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	appcleaning "github.com/turtacn/datamigrate/internal/application/cleaning"
	appmapping "github.com/turtacn/datamigrate/internal/application/mapping"
	appmigration "github.com/turtacn/datamigrate/internal/application/migration"
	appprofiling "github.com/turtacn/datamigrate/internal/application/profiling"
	appreporting "github.com/turtacn/datamigrate/internal/application/reporting"
	"github.com/turtacn/datamigrate/internal/application/workflow"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// ToolInfo describes one tool in the catalog.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AgentInfo groups the tools one agent exposes.
type AgentInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Tools       []ToolInfo `json:"tools"`
}

// ToolHandler serves the tool catalog and dispatches tool invocations to the
// agent services.
type ToolHandler struct {
	profiling    appprofiling.Service
	cleaning     appcleaning.Service
	mapping      appmapping.Service
	migration    appmigration.Service
	reporting    appreporting.Service
	orchestrator *workflow.Orchestrator
	logger       logging.Logger

	tools map[string]map[string]toolFunc
}

type toolFunc func(ctx context.Context, r *http.Request) (interface{}, error)

// NewToolHandler wires the dispatch table for every agent.
func NewToolHandler(
	profiling appprofiling.Service,
	cleaning appcleaning.Service,
	mapping appmapping.Service,
	migration appmigration.Service,
	reporting appreporting.Service,
	orchestrator *workflow.Orchestrator,
	logger logging.Logger,
) *ToolHandler {
	h := &ToolHandler{
		profiling:    profiling,
		cleaning:     cleaning,
		mapping:      mapping,
		migration:    migration,
		reporting:    reporting,
		orchestrator: orchestrator,
		logger:       logger,
	}
	h.tools = map[string]map[string]toolFunc{
		workflow.AgentProfiler: {
			"analyze_csv":          h.runAnalyzeCSV,
			"identify_key_columns": h.runIdentifyKeyColumns,
		},
		workflow.AgentCleaner: {
			"find_exact_duplicates":      h.runFindExactDuplicates,
			"find_fuzzy_duplicates":      h.runFindFuzzyDuplicates,
			"remove_duplicates":          h.runRemoveDuplicates,
			"handle_missing_values":      h.runHandleMissingValues,
			"standardize_capitalization": h.runStandardizeCapitalization,
		},
		workflow.AgentMapper: {
			"generate_field_map_template": h.runGenerateFieldMapTemplate,
			"apply_field_map":             h.runApplyFieldMap,
			"apply_value_map":             h.runApplyValueMap,
		},
		workflow.AgentMigrator: {
			"check_duplicates": h.runCheckDuplicates,
			"migrate":          h.runMigrate,
		},
		workflow.AgentReporter: {
			"generate_migration_report": h.runGenerateMigrationReport,
		},
		workflow.AgentLead: {
			"run_pipeline": h.runPipeline,
		},
	}
	return h
}

// catalog is served in a stable order so clients can render it directly.
var catalog = []AgentInfo{
	{
		Name:        workflow.AgentProfiler,
		Description: "Profiles CSV files: column types, null rates, key columns",
		Tools: []ToolInfo{
			{Name: "analyze_csv", Description: "Full statistical profile of a CSV file"},
			{Name: "identify_key_columns", Description: "Classify columns and suggest dedup keys"},
		},
	},
	{
		Name:        workflow.AgentCleaner,
		Description: "Cleans data: duplicates, missing values, capitalization",
		Tools: []ToolInfo{
			{Name: "find_exact_duplicates", Description: "Scan for exact duplicate rows on key columns"},
			{Name: "find_fuzzy_duplicates", Description: "Scan for similar rows above a threshold"},
			{Name: "remove_duplicates", Description: "Write unique and duplicate row files"},
			{Name: "handle_missing_values", Description: "Fill or drop rows with missing values"},
			{Name: "standardize_capitalization", Description: "Unify the casing of text columns"},
		},
	},
	{
		Name:        workflow.AgentMapper,
		Description: "Maps source fields and values onto the target schema",
		Tools: []ToolInfo{
			{Name: "generate_field_map_template", Description: "Write a field map template for a CSV"},
			{Name: "apply_field_map", Description: "Rename and drop columns per a field map"},
			{Name: "apply_value_map", Description: "Rewrite cell values per a value map"},
		},
	},
	{
		Name:        workflow.AgentMigrator,
		Description: "Migrates cleaned data into the target file",
		Tools: []ToolInfo{
			{Name: "check_duplicates", Description: "Compare source rows against the target"},
			{Name: "migrate", Description: "Run a migration with a duplicate handling mode"},
		},
	},
	{
		Name:        workflow.AgentReporter,
		Description: "Renders migration reports",
		Tools: []ToolInfo{
			{Name: "generate_migration_report", Description: "Render a markdown or HTML report for a run"},
		},
	},
	{
		Name:        workflow.AgentLead,
		Description: "Coordinates the full profile-clean-map-migrate-report pipeline",
		Tools: []ToolInfo{
			{Name: "run_pipeline", Description: "Drive one file through every stage"},
		},
	},
}

// List serves GET /api/v1/tools.
func (h *ToolHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"agents": catalog})
}

// Run serves POST /api/v1/tools/{agent}/{tool}/run.
func (h *ToolHandler) Run(w http.ResponseWriter, r *http.Request) {
	agent := chi.URLParam(r, "agent")
	tool := chi.URLParam(r, "tool")

	agentTools, ok := h.tools[agent]
	if !ok {
		writeAppError(w, errors.Newf(errors.ErrCodeAgentNotFound, "unknown agent %q", agent))
		return
	}
	fn, ok := agentTools[tool]
	if !ok {
		writeAppError(w, errors.Newf(errors.ErrCodeToolNotFound, "agent %q has no tool %q", agent, tool))
		return
	}

	result, err := fn(r.Context(), r)
	if err != nil {
		h.logger.Warn("Tool invocation failed",
			logging.String("agent", agent),
			logging.String("tool", tool),
			logging.Err(err),
		)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agent":  agent,
		"tool":   tool,
		"result": result,
	})
}

// pathRequest is the body shape of the single-file tools.
type pathRequest struct {
	Path string `json:"path"`
}

func (h *ToolHandler) runAnalyzeCSV(ctx context.Context, r *http.Request) (interface{}, error) {
	var req pathRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	return h.profiling.AnalyzeCSV(ctx, req.Path)
}

func (h *ToolHandler) runIdentifyKeyColumns(ctx context.Context, r *http.Request) (interface{}, error) {
	var req pathRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	return h.profiling.IdentifyKeyColumns(ctx, req.Path)
}

func (h *ToolHandler) runFindExactDuplicates(ctx context.Context, r *http.Request) (interface{}, error) {
	var input appcleaning.ExactInput
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}
	return h.cleaning.FindExactDuplicates(ctx, &input)
}

func (h *ToolHandler) runFindFuzzyDuplicates(ctx context.Context, r *http.Request) (interface{}, error) {
	var input appcleaning.FuzzyInput
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}
	return h.cleaning.FindFuzzyDuplicates(ctx, &input)
}

func (h *ToolHandler) runRemoveDuplicates(ctx context.Context, r *http.Request) (interface{}, error) {
	var input appcleaning.RemoveInput
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}
	return h.cleaning.RemoveDuplicates(ctx, &input)
}

func (h *ToolHandler) runHandleMissingValues(ctx context.Context, r *http.Request) (interface{}, error) {
	var input appcleaning.MissingInput
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}
	return h.cleaning.HandleMissingValues(ctx, &input)
}

func (h *ToolHandler) runStandardizeCapitalization(ctx context.Context, r *http.Request) (interface{}, error) {
	var input appcleaning.CapitalizeInput
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}
	return h.cleaning.StandardizeCapitalization(ctx, &input)
}

func (h *ToolHandler) runGenerateFieldMapTemplate(ctx context.Context, r *http.Request) (interface{}, error) {
	var input appmapping.TemplateInput
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}
	return h.mapping.GenerateFieldMapTemplate(ctx, &input)
}

func (h *ToolHandler) runApplyFieldMap(ctx context.Context, r *http.Request) (interface{}, error) {
	var input appmapping.ApplyFieldInput
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}
	return h.mapping.ApplyFieldMap(ctx, &input)
}

func (h *ToolHandler) runApplyValueMap(ctx context.Context, r *http.Request) (interface{}, error) {
	var input appmapping.ApplyValueInput
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}
	return h.mapping.ApplyValueMap(ctx, &input)
}

func (h *ToolHandler) runCheckDuplicates(ctx context.Context, r *http.Request) (interface{}, error) {
	var input appmigration.CheckInput
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}
	return h.migration.CheckDuplicatesAgainstTarget(ctx, &input)
}

func (h *ToolHandler) runMigrate(ctx context.Context, r *http.Request) (interface{}, error) {
	var input appmigration.MigrateInput
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}
	return h.migration.Migrate(ctx, &input)
}

func (h *ToolHandler) runGenerateMigrationReport(ctx context.Context, r *http.Request) (interface{}, error) {
	var input appreporting.GenerateInput
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}
	return h.reporting.GenerateMigrationReport(ctx, &input)
}

func (h *ToolHandler) runPipeline(ctx context.Context, r *http.Request) (interface{}, error) {
	if h.orchestrator == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "orchestrator is not configured")
	}
	var input workflow.PipelineInput
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}
	return h.orchestrator.RunPipeline(ctx, &input)
}
