// Package migration provides the application-level service that executes
// migration runs: duplicate checks against the target, mode-aware
// resolution, run persistence, and lifecycle events.
package migration

import (
	"context"
	"path/filepath"
	"time"

	"github.com/turtacn/datamigrate/internal/domain/dataset"
	domain "github.com/turtacn/datamigrate/internal/domain/migration"
	"github.com/turtacn/datamigrate/internal/infrastructure/database/redis"
	"github.com/turtacn/datamigrate/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// statusTTL bounds how long a cached run snapshot outlives its last update.
const statusTTL = time.Hour

// RunStore persists migration runs.  Implemented by the postgres
// repositories.
type RunStore interface {
	Save(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id string) (*domain.Run, error)
}

// EventPublisher emits job and lifecycle messages.  Implemented by the
// kafka producer.
type EventPublisher interface {
	PublishEnvelope(ctx context.Context, topic, key string, envelope *kafka.EventEnvelope) error
}

// StatusCache holds the live status snapshot of each run.  Implemented by
// the redis cache.
type StatusCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
}

// StatusSnapshot is the cached view of a run, served without touching
// postgres.
type StatusSnapshot struct {
	RunID     string            `json:"run_id"`
	Status    domain.RunStatus  `json:"status"`
	Stats     domain.Statistics `json:"stats"`
	Error     string            `json:"error,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Service defines the migration operations exposed over HTTP, CLI, and the
// worker.
type Service interface {
	CheckDuplicatesAgainstTarget(ctx context.Context, input *CheckInput) (*CheckOutput, error)
	Migrate(ctx context.Context, input *MigrateInput) (*MigrateOutput, error)
	Enqueue(ctx context.Context, input *MigrateInput) (*domain.Run, error)
	ExecuteJob(ctx context.Context, job *kafka.MigrationJobPayload) error
	GetRun(ctx context.Context, id string) (*domain.Run, error)
}

// CheckInput selects source, target, and the key columns to compare on.
// Threshold below 100 switches the comparison to fuzzy key matching;
// 0 means exact.
type CheckInput struct {
	SourcePath string   `json:"source_path"`
	TargetPath string   `json:"target_path"`
	KeyColumns []string `json:"key_columns,omitempty"`
	Threshold  float64  `json:"similarity_threshold,omitempty"`
}

// CheckOutput reports the conflicts between source and target.
type CheckOutput struct {
	SourceRows    int               `json:"source_rows"`
	TargetRows    int               `json:"target_rows"`
	ConflictCount int               `json:"conflict_count"`
	Conflicts     []domain.Conflict `json:"conflicts,omitempty"`
}

// MigrateInput configures one migration run.
type MigrateInput struct {
	SourcePath string   `json:"source_path"`
	TargetPath string   `json:"target_path"`
	KeyColumns []string `json:"key_columns,omitempty"`
	Mode       string   `json:"mode,omitempty"`
}

// MigrateOutput reports a finished run and its artifacts.
type MigrateOutput struct {
	Run                *domain.Run `json:"run"`
	FinalPath          string      `json:"final_path,omitempty"`
	TransferReportPath string      `json:"transfer_report_path"`
}

type serviceImpl struct {
	runs    RunStore
	events  EventPublisher
	cache   StatusCache
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

// NewService constructs the migration service.  events, cache, and metrics
// may be nil for CLI use.
func NewService(runs RunStore, events EventPublisher, cache StatusCache, metrics *prometheus.AppMetrics, logger logging.Logger) Service {
	return &serviceImpl{
		runs:    runs,
		events:  events,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Duplicate check
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) CheckDuplicatesAgainstTarget(ctx context.Context, input *CheckInput) (*CheckOutput, error) {
	source, _, err := dataset.NewReader(input.SourcePath).ReadAll()
	if err != nil {
		return nil, err
	}
	target, _, err := dataset.NewReader(input.TargetPath).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTargetUnreadable, "failed to read target file").WithDetail(input.TargetPath)
	}

	result, err := domain.CheckAgainstTarget(source, target, input.KeyColumns, input.Threshold)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Checked source against target",
		logging.String("source", input.SourcePath),
		logging.String("target", input.TargetPath),
		logging.Int("conflicts", len(result.Conflicts)),
	)
	return &CheckOutput{
		SourceRows:    source.RowCount(),
		TargetRows:    target.RowCount(),
		ConflictCount: len(result.Conflicts),
		Conflicts:     result.Conflicts,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Synchronous migration
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) Migrate(ctx context.Context, input *MigrateInput) (*MigrateOutput, error) {
	mode, err := domain.ParseMode(orDefault(input.Mode, string(domain.ModeAsk)))
	if err != nil {
		return nil, err
	}

	run := domain.NewRun(input.SourcePath, input.TargetPath, mode, input.KeyColumns)
	if s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			return nil, err
		}
	}
	return s.execute(ctx, run)
}

// Enqueue persists a pending run and hands it to a worker via kafka.
func (s *serviceImpl) Enqueue(ctx context.Context, input *MigrateInput) (*domain.Run, error) {
	mode, err := domain.ParseMode(orDefault(input.Mode, string(domain.ModeAsk)))
	if err != nil {
		return nil, err
	}
	if s.events == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "job queue is not configured")
	}

	run := domain.NewRun(input.SourcePath, input.TargetPath, mode, input.KeyColumns)
	if s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			return nil, err
		}
	}

	job := &kafka.MigrationJobPayload{
		RunID:      run.ID,
		SourcePath: run.SourcePath,
		TargetPath: run.TargetPath,
		KeyColumns: run.KeyColumns,
		Mode:       run.Mode.String(),
		EnqueuedAt: time.Now().UTC(),
	}
	envelope, err := kafka.NewEventEnvelope(kafka.EventRunQueued, "apiserver", job)
	if err != nil {
		return nil, err
	}
	if err := s.events.PublishEnvelope(ctx, kafka.TopicMigrationJobs, run.ID, envelope); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, kafka.EventRunQueued, run)
	s.cacheStatus(ctx, run)

	s.logger.Info("Enqueued migration run",
		logging.String("run_id", run.ID),
		logging.String("mode", run.Mode.String()),
	)
	return run, nil
}

// ExecuteJob runs a queued migration on a worker.
func (s *serviceImpl) ExecuteJob(ctx context.Context, job *kafka.MigrationJobPayload) error {
	var run *domain.Run
	if s.runs != nil {
		loaded, err := s.runs.GetByID(ctx, job.RunID)
		if err != nil {
			return err
		}
		run = loaded
	} else {
		mode, err := domain.ParseMode(job.Mode)
		if err != nil {
			return err
		}
		run = domain.NewRun(job.SourcePath, job.TargetPath, mode, job.KeyColumns)
		run.ID = job.RunID
	}

	_, err := s.execute(ctx, run)
	return err
}

func (s *serviceImpl) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	if s.runs == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "run store is not configured")
	}
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return nil, errors.Newf(errors.ErrCodeRunNotFound, "run %s not found", id)
		}
		return nil, err
	}
	return run, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Execution
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) execute(ctx context.Context, run *domain.Run) (*MigrateOutput, error) {
	if err := run.Start(); err != nil {
		return nil, err
	}
	s.persist(ctx, run)
	s.publishEvent(ctx, kafka.EventRunStarted, run)
	s.cacheStatus(ctx, run)

	out, err := s.migrate(ctx, run)
	if err != nil {
		_ = run.Fail(err)
		s.persist(ctx, run)
		s.publishEvent(ctx, kafka.EventRunFailed, run)
		s.cacheStatus(ctx, run)
		s.record(run)
		return nil, err
	}

	s.persist(ctx, run)
	s.publishEvent(ctx, kafka.EventRunCompleted, run)
	s.cacheStatus(ctx, run)
	s.record(run)

	s.logger.Info("Migration run completed",
		logging.String("run_id", run.ID),
		logging.Int("source_records", run.Stats.TotalSourceRecords),
		logging.Int("duplicates", run.Stats.DuplicatesFound),
		logging.Int("migrated", run.Stats.MigratedRecords),
	)
	return out, nil
}

func (s *serviceImpl) migrate(ctx context.Context, run *domain.Run) (*MigrateOutput, error) {
	source, delim, err := dataset.NewReader(run.SourcePath).ReadAll()
	if err != nil {
		return nil, err
	}

	var target *dataset.Table
	if run.TargetPath != "" {
		target, _, err = dataset.NewReader(run.TargetPath).ReadAll()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTargetUnreadable, "failed to read target file").WithDetail(run.TargetPath)
		}
	} else {
		target = dataset.NewTable(source.Header, nil)
	}

	check, err := domain.CheckAgainstTarget(source, target, run.KeyColumns, 100)
	if err != nil {
		return nil, err
	}

	stats := domain.NewStatistics(source.RowCount(), len(check.Conflicts))
	out := &MigrateOutput{Run: run}

	if run.Mode != domain.ModeAsk {
		final, err := check.Resolve(source, target, run.Mode)
		if err != nil {
			return nil, err
		}
		finalPath := dataset.FinalPath(run.SourcePath)
		if err := dataset.WriteTable(finalPath, final, delim); err != nil {
			return nil, err
		}
		out.FinalPath = finalPath
	}

	if err := run.Complete(stats); err != nil {
		return nil, err
	}

	reportPath := domain.TransferReportPath(filepath.Dir(run.SourcePath), time.Now().UTC())
	report := &domain.TransferReport{
		RunID:       run.ID,
		SourcePath:  run.SourcePath,
		TargetPath:  run.TargetPath,
		Mode:        run.Mode,
		Stats:       stats,
		GeneratedAt: time.Now().UTC(),
	}
	if err := domain.WriteTransferReport(reportPath, report); err != nil {
		return nil, err
	}
	out.TransferReportPath = reportPath
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Side channels
// ─────────────────────────────────────────────────────────────────────────────

func (s *serviceImpl) persist(ctx context.Context, run *domain.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Update(ctx, run); err != nil {
		s.logger.Warn("Failed to persist run state",
			logging.String("run_id", run.ID), logging.Err(err))
	}
}

func (s *serviceImpl) publishEvent(ctx context.Context, eventType string, run *domain.Run) {
	if s.events == nil {
		return
	}
	payload := &kafka.RunEventPayload{
		RunID:         run.ID,
		Status:        string(run.Status),
		RowsProcessed: run.Stats.TotalSourceRecords,
		Duplicates:    run.Stats.DuplicatesFound,
		Migrated:      run.Stats.MigratedRecords,
		Error:         run.Error,
	}
	envelope, err := kafka.NewEventEnvelope(eventType, "migration", payload)
	if err != nil {
		s.logger.Warn("Failed to build run event", logging.Err(err))
		return
	}
	if err := s.events.PublishEnvelope(ctx, kafka.TopicMigrationEvents, run.ID, envelope); err != nil {
		s.logger.Warn("Failed to publish run event",
			logging.String("run_id", run.ID),
			logging.String("event", eventType),
			logging.Err(err),
		)
	}
}

func (s *serviceImpl) cacheStatus(ctx context.Context, run *domain.Run) {
	if s.cache == nil {
		return
	}
	snapshot := &StatusSnapshot{
		RunID:     run.ID,
		Status:    run.Status,
		Stats:     run.Stats,
		Error:     run.Error,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.cache.Set(ctx, redis.RunStatusKey(run.ID), snapshot, statusTTL); err != nil {
		s.logger.Warn("Failed to cache run status",
			logging.String("run_id", run.ID), logging.Err(err))
	}
}

func (s *serviceImpl) record(run *domain.Run) {
	if s.metrics == nil {
		return
	}
	prometheus.RecordRun(s.metrics, run.Mode.String(), string(run.Status), run.Duration(),
		int64(run.Stats.TotalSourceRecords), int64(run.Stats.DuplicatesFound))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
