// Package report assembles and renders migration reports: per-stage file
// summaries, duplicate breakdowns, and the migration statistics table.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/turtacn/datamigrate/internal/domain/migration"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// Format selects the rendered output flavor.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat validates a report format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatMarkdown, FormatHTML:
		return f, nil
	}
	return "", errors.Newf(errors.ErrCodeReportFormatUnsupported, "unsupported report format %q", s)
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	if f == FormatHTML {
		return ".html"
	}
	return ".md"
}

// TableSummary describes one file in a pipeline stage.
type TableSummary struct {
	File    string  `json:"file"`
	Records int     `json:"records"`
	Columns int     `json:"columns"`
	SizeKB  float64 `json:"size_kb"`
}

// DuplicateSummary is one duplicate extraction at a threshold.
type DuplicateSummary struct {
	File           string  `json:"file"`
	Threshold      float64 `json:"threshold"`
	DuplicateCount int     `json:"duplicate_count"`
}

// UniqueSummary reports the rows that survived deduplication.
type UniqueSummary struct {
	File          string  `json:"file"`
	UniqueCount   int     `json:"unique_count"`
	SourcePercent float64 `json:"source_percent"`
}

// FinalSummary is one migrated output file including its duplicate
// handling mode.
type FinalSummary struct {
	File          string  `json:"file"`
	Handling      string  `json:"handling"`
	Records       int     `json:"records"`
	SourcePercent float64 `json:"source_percent"`
	SizeKB        float64 `json:"size_kb"`
}

// ProcessEntry is one transfer-report line in the process log.
type ProcessEntry struct {
	Timestamp  string `json:"timestamp"`
	Status     string `json:"status"`
	SourceFile string `json:"source_file,omitempty"`
	TargetFile string `json:"target_file,omitempty"`
	Handling   string `json:"handling"`
	Records    int    `json:"records"`
	Message    string `json:"message,omitempty"`
}

// StageCounts tallies artifact files per pipeline stage.
type StageCounts struct {
	SourceFiles    int `json:"source_files"`
	FieldMappings  int `json:"field_mappings"`
	ValueMappings  int `json:"value_mappings"`
	MappedFiles    int `json:"mapped_files"`
	DuplicateFiles int `json:"duplicate_files"`
	UniqueFiles    int `json:"unique_files"`
	FinalFiles     int `json:"final_files"`
	TargetFiles    int `json:"target_files"`
	ProcessReports int `json:"process_reports"`
}

// MigrationReport is the full document model rendered to Markdown or HTML.
type MigrationReport struct {
	Title       string               `json:"title"`
	GeneratedAt time.Time            `json:"generated_at"`
	Stages      StageCounts          `json:"stages"`
	Stats       migration.Statistics `json:"stats"`
	Source      []TableSummary       `json:"source,omitempty"`
	Duplicates  []DuplicateSummary   `json:"duplicates,omitempty"`
	Unique      []UniqueSummary      `json:"unique,omitempty"`
	Target      []TableSummary       `json:"target,omitempty"`
	Final       []FinalSummary       `json:"final,omitempty"`
	Process     []ProcessEntry       `json:"process,omitempty"`
}

// DefaultTitle is used when no report title is supplied.
const DefaultTitle = "Data Migration Report"

// New creates a report shell with title and timestamp filled in.
func New(title string) *MigrationReport {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	return &MigrationReport{
		Title:       title,
		GeneratedAt: time.Now().UTC(),
	}
}

// Validate checks the statistics arithmetic before rendering.
func (r *MigrationReport) Validate() error {
	if err := r.Stats.Validate(); err != nil {
		return err
	}
	return nil
}

const fileTimestampLayout = "20060102_150405"

// Path names a rendered report inside dir: migration_report_{timestamp}
// with the format's extension.
func Path(dir string, format Format, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("migration_report_%s%s", at.Format(fileTimestampLayout), format.Ext()))
}

// Render produces the report in the requested format.
func (r *MigrationReport) Render(format Format) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	switch format {
	case FormatMarkdown:
		return renderMarkdown(r), nil
	case FormatHTML:
		return renderHTML(r)
	default:
		return "", errors.Newf(errors.ErrCodeReportFormatUnsupported, "unsupported report format %q", format)
	}
}
