// Package mapping provides the application-level service for field and
// value mapping: renaming source columns onto a target schema and
// rewriting cell values by rule.
package mapping

import (
	"context"

	"github.com/turtacn/datamigrate/internal/domain/dataset"
	domainMapping "github.com/turtacn/datamigrate/internal/domain/mapping"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
)

// Service defines the mapping operations exposed over HTTP and CLI.
type Service interface {
	GenerateFieldMapTemplate(ctx context.Context, input *TemplateInput) (*TemplateOutput, error)
	ApplyFieldMap(ctx context.Context, input *ApplyFieldInput) (*ApplyOutput, error)
	ApplyValueMap(ctx context.Context, input *ApplyValueInput) (*ApplyOutput, error)
}

// TemplateInput names the source CSV and where to write the template.
type TemplateInput struct {
	Path         string `json:"path"`
	TemplatePath string `json:"template_path"`
}

// TemplateOutput reports the generated template.
type TemplateOutput struct {
	TemplatePath string   `json:"template_path"`
	Fields       []string `json:"fields"`
}

// ApplyFieldInput applies a field map file to a source CSV.
type ApplyFieldInput struct {
	Path    string `json:"path"`
	MapPath string `json:"map_path"`
}

// ApplyValueInput applies a value map file to a source CSV.
type ApplyValueInput struct {
	Path    string `json:"path"`
	MapPath string `json:"map_path"`
}

// ApplyOutput names the written artifact.
type ApplyOutput struct {
	MappedPath    string `json:"mapped_path"`
	Rows          int    `json:"rows"`
	ValuesChanged int    `json:"values_changed,omitempty"`
}

type serviceImpl struct {
	logger logging.Logger
}

// NewService constructs the mapping service.
func NewService(logger logging.Logger) Service {
	return &serviceImpl{logger: logger}
}

func (s *serviceImpl) GenerateFieldMapTemplate(ctx context.Context, input *TemplateInput) (*TemplateOutput, error) {
	table, _, err := dataset.NewReader(input.Path).ReadAll()
	if err != nil {
		return nil, err
	}

	tmpl := domainMapping.GenerateTemplate(table.Header)
	if err := domainMapping.SaveTemplate(input.TemplatePath, tmpl); err != nil {
		return nil, err
	}

	s.logger.Info("Generated field map template",
		logging.String("template", input.TemplatePath),
		logging.Int("fields", len(table.Header)),
	)
	return &TemplateOutput{TemplatePath: input.TemplatePath, Fields: table.Header}, nil
}

func (s *serviceImpl) ApplyFieldMap(ctx context.Context, input *ApplyFieldInput) (*ApplyOutput, error) {
	fieldMap, err := domainMapping.LoadFieldMap(input.MapPath)
	if err != nil {
		return nil, err
	}

	table, delim, err := dataset.NewReader(input.Path).ReadAll()
	if err != nil {
		return nil, err
	}

	mapped, err := fieldMap.Apply(table)
	if err != nil {
		return nil, err
	}

	mappedPath := dataset.MappedPath(input.Path)
	if err := dataset.WriteTable(mappedPath, mapped, delim); err != nil {
		return nil, err
	}

	s.logger.Info("Applied field map",
		logging.String("source", input.Path),
		logging.String("mapped", mappedPath),
		logging.Int("fields", len(mapped.Header)),
	)
	return &ApplyOutput{MappedPath: mappedPath, Rows: mapped.RowCount()}, nil
}

func (s *serviceImpl) ApplyValueMap(ctx context.Context, input *ApplyValueInput) (*ApplyOutput, error) {
	valueMap, err := domainMapping.LoadValueMap(input.MapPath)
	if err != nil {
		return nil, err
	}

	table, delim, err := dataset.NewReader(input.Path).ReadAll()
	if err != nil {
		return nil, err
	}

	mapped, changed, err := valueMap.Apply(table)
	if err != nil {
		return nil, err
	}

	mappedPath := dataset.MappedPath(input.Path)
	if err := dataset.WriteTable(mappedPath, mapped, delim); err != nil {
		return nil, err
	}

	s.logger.Info("Applied value map",
		logging.String("source", input.Path),
		logging.String("mapped", mappedPath),
		logging.Int("values_changed", changed),
	)
	return &ApplyOutput{MappedPath: mappedPath, Rows: mapped.RowCount(), ValuesChanged: changed}, nil
}
