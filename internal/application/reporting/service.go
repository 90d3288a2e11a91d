// Package reporting provides the application-level service that renders
// migration reports and stores them in object storage.
package reporting

import (
	"context"
	"path/filepath"
	"time"

	"github.com/turtacn/datamigrate/internal/domain/dataset"
	domainMigration "github.com/turtacn/datamigrate/internal/domain/migration"
	"github.com/turtacn/datamigrate/internal/domain/profile"
	"github.com/turtacn/datamigrate/internal/domain/report"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// RunSource loads finished runs.  Implemented by the migration service and
// the postgres run repository.
type RunSource interface {
	GetByID(ctx context.Context, id string) (*domainMigration.Run, error)
}

// RecordStore persists report records.  Implemented by the postgres report
// repository.
type RecordStore interface {
	Save(ctx context.Context, rec *report.Record) error
	ListByRun(ctx context.Context, runID string) ([]*report.Record, error)
}

// ArtifactStore holds the rendered documents.  Implemented by the minio
// object store.
type ArtifactStore interface {
	UploadBytes(ctx context.Context, bucket, object string, data []byte, contentType string) error
	ReadBytes(ctx context.Context, bucket, object string) ([]byte, error)
}

// Service defines the reporting operations exposed over HTTP and CLI.
type Service interface {
	GenerateMigrationReport(ctx context.Context, input *GenerateInput) (*GenerateOutput, error)
	ListReports(ctx context.Context, runID string) ([]*report.Record, error)
	ReadReport(ctx context.Context, rec *report.Record) (string, error)
}

// GenerateInput selects the run and output format.
type GenerateInput struct {
	RunID  string `json:"run_id"`
	Format string `json:"format,omitempty"`
	Title  string `json:"title,omitempty"`
}

// GenerateOutput carries the stored record and the rendered content.
type GenerateOutput struct {
	Record  *report.Record `json:"record"`
	Content string         `json:"content"`
}

type serviceImpl struct {
	runs    RunSource
	records RecordStore
	store   ArtifactStore
	bucket  string
	logger  logging.Logger
}

// NewService constructs the reporting service.  bucket is the object
// storage bucket rendered reports land in.
func NewService(runs RunSource, records RecordStore, store ArtifactStore, bucket string, logger logging.Logger) Service {
	return &serviceImpl{
		runs:    runs,
		records: records,
		store:   store,
		bucket:  bucket,
		logger:  logger,
	}
}

func (s *serviceImpl) GenerateMigrationReport(ctx context.Context, input *GenerateInput) (*GenerateOutput, error) {
	format := report.FormatMarkdown
	if input.Format != "" {
		parsed, err := report.ParseFormat(input.Format)
		if err != nil {
			return nil, err
		}
		format = parsed
	}

	run, err := s.runs.GetByID(ctx, input.RunID)
	if err != nil {
		return nil, err
	}
	if run.Status != domainMigration.RunCompleted {
		return nil, errors.Newf(errors.ErrCodeValidation,
			"run %s is %s, reports need a completed run", run.ID, run.Status)
	}

	doc := s.buildReport(run, input.Title)
	content, err := doc.Render(format)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	objectKey := report.Path("", format, now)
	if s.store != nil {
		if err := s.store.UploadBytes(ctx, s.bucket, objectKey, []byte(content), contentType(format)); err != nil {
			return nil, err
		}
	}

	rec := report.NewRecord(run.ID, format, s.bucket, objectKey, now)
	if s.records != nil {
		if err := s.records.Save(ctx, rec); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Generated migration report",
		logging.String("run_id", run.ID),
		logging.String("format", string(format)),
		logging.String("object", objectKey),
	)
	return &GenerateOutput{Record: rec, Content: content}, nil
}

func (s *serviceImpl) ListReports(ctx context.Context, runID string) ([]*report.Record, error) {
	if s.records == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "report store is not configured")
	}
	return s.records.ListByRun(ctx, runID)
}

func (s *serviceImpl) ReadReport(ctx context.Context, rec *report.Record) (string, error) {
	if s.store == nil {
		return "", errors.New(errors.ErrCodeServiceUnavailable, "object storage is not configured")
	}
	data, err := s.store.ReadBytes(ctx, rec.Bucket, rec.ObjectKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// buildReport assembles the document model from the run and whatever
// artifacts of it are still on disk.
func (s *serviceImpl) buildReport(run *domainMigration.Run, title string) *report.MigrationReport {
	doc := report.New(title)
	doc.Stats = run.Stats

	if summary, ok := summarize(run.SourcePath); ok {
		doc.Source = append(doc.Source, summary)
		doc.Stages.SourceFiles++
	}
	countMappingArtifacts(run.SourcePath, &doc.Stages)
	if run.TargetPath != "" {
		if summary, ok := summarize(run.TargetPath); ok {
			doc.Target = append(doc.Target, summary)
			doc.Stages.TargetFiles++
		}
	}
	if summary, ok := summarize(dataset.UniquePath(run.SourcePath)); ok {
		pct := 0.0
		if run.Stats.TotalSourceRecords > 0 {
			pct = float64(summary.Records) / float64(run.Stats.TotalSourceRecords) * 100
		}
		doc.Unique = append(doc.Unique, report.UniqueSummary{
			File:          summary.File,
			UniqueCount:   summary.Records,
			SourcePercent: pct,
		})
		doc.Stages.UniqueFiles++
	}
	if summary, ok := summarize(dataset.FinalPath(run.SourcePath)); ok {
		pct := 0.0
		if run.Stats.TotalSourceRecords > 0 {
			pct = float64(summary.Records) / float64(run.Stats.TotalSourceRecords) * 100
		}
		doc.Final = append(doc.Final, report.FinalSummary{
			File:          summary.File,
			Handling:      run.Mode.String(),
			Records:       summary.Records,
			SourcePercent: pct,
			SizeKB:        summary.SizeKB,
		})
		doc.Stages.FinalFiles++
	}
	if summary, ok := summarize(dataset.DuplicatesPath(run.SourcePath, 90)); ok {
		doc.Duplicates = append(doc.Duplicates, report.DuplicateSummary{
			File:           summary.File,
			Threshold:      90,
			DuplicateCount: summary.Records,
		})
		doc.Stages.DuplicateFiles++
	}

	status := "completed"
	if run.FinishedAt != nil {
		doc.Process = append(doc.Process, report.ProcessEntry{
			Timestamp:  run.FinishedAt.Format("2006-01-02 15:04:05"),
			Status:     status,
			SourceFile: filepath.Base(run.SourcePath),
			TargetFile: filepath.Base(run.TargetPath),
			Handling:   run.Mode.String(),
			Records:    run.Stats.MigratedRecords,
		})
		doc.Stages.ProcessReports++
	}
	return doc
}

// countMappingArtifacts scans the run's directory for mapping tables and
// mapped outputs left behind by earlier pipeline stages.
func countMappingArtifacts(sourcePath string, stages *report.StageCounts) {
	dir := filepath.Dir(sourcePath)
	if dir == "" {
		return
	}
	stages.FieldMappings += countGlobs(dir, "*_field_mapping*.json", "*_field_mapping*.csv")
	stages.ValueMappings += countGlobs(dir, "*_value_mapping*.json", "*_value_mapping*.csv")
	stages.MappedFiles += countGlobs(dir, "*_mapped.csv")
}

func countGlobs(dir string, patterns ...string) int {
	n := 0
	for _, p := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, p))
		if err != nil {
			continue
		}
		n += len(matches)
	}
	return n
}

// summarize profiles an artifact file if it exists.
func summarize(path string) (report.TableSummary, bool) {
	if path == "" {
		return report.TableSummary{}, false
	}
	size, err := dataset.FileSizeBytes(path)
	if err != nil {
		return report.TableSummary{}, false
	}
	table, _, err := dataset.NewReader(path).ReadAll()
	if err != nil {
		return report.TableSummary{}, false
	}
	return report.TableSummary{
		File:    filepath.Base(path),
		Records: table.RowCount(),
		Columns: len(table.Header),
		SizeKB:  profile.RoundKB(size),
	}, true
}

func contentType(format report.Format) string {
	if format == report.FormatHTML {
		return "text/html"
	}
	return "text/markdown"
}
