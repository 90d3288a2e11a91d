package workflow

import (
	"context"

	appcleaning "github.com/turtacn/datamigrate/internal/application/cleaning"
	appmapping "github.com/turtacn/datamigrate/internal/application/mapping"
	appmigration "github.com/turtacn/datamigrate/internal/application/migration"
	appprofiling "github.com/turtacn/datamigrate/internal/application/profiling"
	appreporting "github.com/turtacn/datamigrate/internal/application/reporting"
	domainMigration "github.com/turtacn/datamigrate/internal/domain/migration"
	"github.com/turtacn/datamigrate/internal/domain/profile"
	"github.com/turtacn/datamigrate/internal/domain/report"
	"github.com/turtacn/datamigrate/internal/infrastructure/database/redis"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// Orchestrator chains the agents into one pipeline: profile, clean, map,
// migrate, report.
type Orchestrator struct {
	profiling appprofiling.Service
	cleaning  appcleaning.Service
	mapping   appmapping.Service
	migration appmigration.Service
	reporting appreporting.Service
	cache     appmigration.StatusCache
	runs      appmigration.RunStore
	logger    logging.Logger
}

// NewOrchestrator wires the five services.  cache and runs may be nil for
// CLI pipelines; Status then has nothing to answer from.
func NewOrchestrator(
	profiling appprofiling.Service,
	cleaning appcleaning.Service,
	mapping appmapping.Service,
	migration appmigration.Service,
	reporting appreporting.Service,
	cache appmigration.StatusCache,
	runs appmigration.RunStore,
	logger logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		profiling: profiling,
		cleaning:  cleaning,
		mapping:   mapping,
		migration: migration,
		reporting: reporting,
		cache:     cache,
		runs:      runs,
		logger:    logger,
	}
}

// PipelineInput configures a full migration pipeline.
type PipelineInput struct {
	SourcePath      string   `json:"source_path"`
	TargetPath      string   `json:"target_path,omitempty"`
	FieldMapPath    string   `json:"field_map_path,omitempty"`
	ValueMapPath    string   `json:"value_map_path,omitempty"`
	KeyColumns      []string `json:"key_columns,omitempty"`
	MissingStrategy string   `json:"missing_strategy,omitempty"`
	Threshold       float64  `json:"threshold,omitempty"`
	Mode            string   `json:"mode,omitempty"`
	ReportFormat    string   `json:"report_format,omitempty"`
}

// PipelineResult collects every stage's output.
type PipelineResult struct {
	Profile   *profile.TableProfile        `json:"profile"`
	Cleaning  *appcleaning.MissingOutput   `json:"cleaning,omitempty"`
	Dedup     *appcleaning.RemoveOutput    `json:"dedup"`
	Mapping   *appmapping.ApplyOutput      `json:"mapping,omitempty"`
	Migration *appmigration.MigrateOutput  `json:"migration"`
	Report    *appreporting.GenerateOutput `json:"report,omitempty"`
}

// RunPipeline drives one file through every stage.  Key columns default to
// the profiled ID and name columns.
func (o *Orchestrator) RunPipeline(ctx context.Context, input *PipelineInput) (*PipelineResult, error) {
	result := &PipelineResult{}
	current := input.SourcePath

	// Profile, and derive dedup keys when the caller gave none.
	keys, err := o.profiling.IdentifyKeyColumns(ctx, current)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePipelineFailed, "profiling stage failed")
	}
	analyzed, err := o.profiling.AnalyzeCSV(ctx, current)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePipelineFailed, "profiling stage failed")
	}
	result.Profile = analyzed.Profile

	keyColumns := input.KeyColumns
	if len(keyColumns) == 0 {
		keyColumns = keys.DedupKeys
	}

	// Clean missing values.
	cleaned, err := o.cleaning.HandleMissingValues(ctx, &appcleaning.MissingInput{
		Path:     current,
		Strategy: input.MissingStrategy,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePipelineFailed, "cleaning stage failed")
	}
	result.Cleaning = cleaned
	current = cleaned.CleanedPath

	// Remove duplicates.
	deduped, err := o.cleaning.RemoveDuplicates(ctx, &appcleaning.RemoveInput{
		Path:       current,
		KeyColumns: keyColumns,
		Threshold:  input.Threshold,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePipelineFailed, "dedup stage failed")
	}
	result.Dedup = deduped
	current = deduped.UniquePath

	// Map fields onto the target schema.
	if input.FieldMapPath != "" {
		mapped, err := o.mapping.ApplyFieldMap(ctx, &appmapping.ApplyFieldInput{
			Path:    current,
			MapPath: input.FieldMapPath,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodePipelineFailed, "mapping stage failed")
		}
		result.Mapping = mapped
		current = mapped.MappedPath
	}
	if input.ValueMapPath != "" {
		mapped, err := o.mapping.ApplyValueMap(ctx, &appmapping.ApplyValueInput{
			Path:    current,
			MapPath: input.ValueMapPath,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodePipelineFailed, "mapping stage failed")
		}
		result.Mapping = mapped
		current = mapped.MappedPath
	}

	// Migrate into the target.
	migrated, err := o.migration.Migrate(ctx, &appmigration.MigrateInput{
		SourcePath: current,
		TargetPath: input.TargetPath,
		KeyColumns: keyColumns,
		Mode:       input.Mode,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePipelineFailed, "migration stage failed")
	}
	result.Migration = migrated

	// Report.
	if o.reporting != nil {
		generated, err := o.reporting.GenerateMigrationReport(ctx, &appreporting.GenerateInput{
			RunID:  migrated.Run.ID,
			Format: input.ReportFormat,
		})
		if err != nil {
			o.logger.Warn("Report stage failed", logging.Err(err))
		} else {
			result.Report = generated
		}
	}

	o.logger.Info("Pipeline finished",
		logging.String("run_id", migrated.Run.ID),
		logging.Int("source_records", migrated.Run.Stats.TotalSourceRecords),
		logging.Int("migrated", migrated.Run.Stats.MigratedRecords),
	)
	return result, nil
}

// RunStatus is the answer to a status query.
type RunStatus struct {
	RunID   string                     `json:"run_id"`
	Status  domainMigration.RunStatus  `json:"status"`
	Stats   domainMigration.Statistics `json:"stats"`
	Error   string                     `json:"error,omitempty"`
	Source  string                     `json:"source"`
	Reports []*report.Record           `json:"reports,omitempty"`
}

// Status answers from the redis snapshot when it is fresh, falling back to
// postgres.
func (o *Orchestrator) Status(ctx context.Context, runID string) (*RunStatus, error) {
	status, err := o.lookup(ctx, runID)
	if err != nil {
		return nil, err
	}
	if o.reporting != nil {
		if recs, err := o.reporting.ListReports(ctx, runID); err == nil {
			status.Reports = recs
		}
	}
	return status, nil
}

func (o *Orchestrator) lookup(ctx context.Context, runID string) (*RunStatus, error) {
	if o.cache != nil {
		var snapshot appmigration.StatusSnapshot
		if err := o.cache.Get(ctx, redis.RunStatusKey(runID), &snapshot); err == nil {
			return &RunStatus{
				RunID:  snapshot.RunID,
				Status: snapshot.Status,
				Stats:  snapshot.Stats,
				Error:  snapshot.Error,
				Source: "cache",
			}, nil
		}
	}

	if o.runs == nil {
		return nil, errors.Newf(errors.ErrCodeRunNotFound, "run %s not found", runID)
	}
	run, err := o.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return nil, errors.Newf(errors.ErrCodeRunNotFound, "run %s not found", runID)
		}
		return nil, err
	}
	return &RunStatus{
		RunID:  run.ID,
		Status: run.Status,
		Stats:  run.Stats,
		Error:  run.Error,
		Source: "database",
	}, nil
}
