// Package profiling provides the application-level service for CSV data
// profiling: column statistics, outlier detection, and key-column
// identification.
package profiling

import (
	"context"
	"path/filepath"

	"github.com/turtacn/datamigrate/internal/domain/dataset"
	"github.com/turtacn/datamigrate/internal/domain/profile"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
)

// Service defines the profiling operations exposed over HTTP and CLI.
type Service interface {
	AnalyzeCSV(ctx context.Context, path string) (*AnalyzeOutput, error)
	IdentifyKeyColumns(ctx context.Context, path string) (*KeyColumnsOutput, error)
}

// AnalyzeOutput is the full profile of one CSV file.
type AnalyzeOutput struct {
	Profile   *profile.TableProfile `json:"profile"`
	Delimiter string                `json:"delimiter"`
}

// KeyColumnsOutput classifies columns for deduplication.
type KeyColumnsOutput struct {
	Keys      profile.KeyColumns `json:"key_columns"`
	DedupKeys []string           `json:"dedup_keys"`
	RowCount  int                `json:"row_count"`
}

type serviceImpl struct {
	logger logging.Logger
}

// NewService constructs the profiling service.
func NewService(logger logging.Logger) Service {
	return &serviceImpl{logger: logger}
}

func (s *serviceImpl) AnalyzeCSV(ctx context.Context, path string) (*AnalyzeOutput, error) {
	table, delim, err := dataset.NewReader(path).ReadAll()
	if err != nil {
		return nil, err
	}

	size, err := dataset.FileSizeBytes(path)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	p := profile.Build(name, path, table, size)

	s.logger.Info("Profiled CSV file",
		logging.String("file", name),
		logging.Int("rows", p.RowCount),
		logging.Int("columns", p.ColumnCount),
	)
	return &AnalyzeOutput{Profile: p, Delimiter: string(delim)}, nil
}

func (s *serviceImpl) IdentifyKeyColumns(ctx context.Context, path string) (*KeyColumnsOutput, error) {
	analyzed, err := s.AnalyzeCSV(ctx, path)
	if err != nil {
		return nil, err
	}

	keys := profile.IdentifyKeyColumns(analyzed.Profile)
	return &KeyColumnsOutput{
		Keys:      keys,
		DedupKeys: keys.DedupKeys(),
		RowCount:  analyzed.Profile.RowCount,
	}, nil
}
