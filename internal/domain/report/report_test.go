package report

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/datamigrate/internal/domain/migration"
	"github.com/turtacn/datamigrate/pkg/errors"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" Markdown ")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	f, err = ParseFormat("html")
	require.NoError(t, err)
	assert.Equal(t, FormatHTML, f)

	_, err = ParseFormat("pdf")
	assert.True(t, errors.IsCode(err, errors.ErrCodeReportFormatUnsupported))
}

func TestPath(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join("/out", "migration_report_20240315_103000.md"), Path("/out", FormatMarkdown, at))
	assert.Equal(t, filepath.Join("/out", "migration_report_20240315_103000.html"), Path("/out", FormatHTML, at))
}

func TestNewDefaultsTitle(t *testing.T) {
	r := New("  ")
	assert.Equal(t, DefaultTitle, r.Title)
	assert.False(t, r.GeneratedAt.IsZero())
}

func sampleReport() *MigrationReport {
	r := New("Customer Migration")
	r.GeneratedAt = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	r.Stats = migration.NewStatistics(1007, 35)
	r.Stages = StageCounts{FieldMappings: 1, MappedFiles: 1, DuplicateFiles: 1, UniqueFiles: 1, FinalFiles: 1}
	r.Source = []TableSummary{{File: "customers.csv", Records: 1007, Columns: 8, SizeKB: 152.4}}
	r.Duplicates = []DuplicateSummary{{File: "customers_duplicates_90pct.csv", Threshold: 90, DuplicateCount: 35}}
	r.Unique = []UniqueSummary{{File: "customers_unique.csv", UniqueCount: 972, SourcePercent: 96.5}}
	r.Final = []FinalSummary{{File: "customers_final.csv", Handling: "skip", Records: 972, SourcePercent: 96.5, SizeKB: 147.1}}
	r.Process = []ProcessEntry{{Timestamp: "2024-03-15 10:29:00", Status: "completed", Handling: "skip", Records: 972}}
	return r
}

func TestRenderMarkdown(t *testing.T) {
	out, err := sampleReport().Render(FormatMarkdown)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Customer Migration\n"))
	assert.Contains(t, out, "| Total source records | 1007 |")
	assert.Contains(t, out, "| Total duplicates | 35 |")
	assert.Contains(t, out, "| Total migrated records | 972 |")
	assert.Contains(t, out, "| Migration rate | 96.5% |")
	assert.Contains(t, out, "| Duplicate rate | 3.5% |")
	assert.Contains(t, out, "### Source Data")
	assert.Contains(t, out, "| customers.csv | 1007 | 8 | 152.40 |")
	assert.Contains(t, out, "| customers_duplicates_90pct.csv | 90% | 35 |")
	assert.Contains(t, out, "### Unique Records")
	assert.Contains(t, out, "| customers_unique.csv | 972 | 96.5% |")
	assert.Contains(t, out, "### Final Data")
	assert.Contains(t, out, "### Process Reports")
	assert.Contains(t, out, "- Transferred records: 972")
}

func TestRenderMarkdownOmitsEmptySections(t *testing.T) {
	r := New("Minimal")
	r.Stats = migration.NewStatistics(0, 0)

	out, err := r.Render(FormatMarkdown)
	require.NoError(t, err)
	assert.NotContains(t, out, "### Source Data")
	assert.NotContains(t, out, "| Migration rate")
	assert.Contains(t, out, "### Migration Process Overview")
}

func TestRenderHTML(t *testing.T) {
	out, err := sampleReport().Render(FormatHTML)
	require.NoError(t, err)

	assert.Contains(t, out, "<title>Customer Migration</title>")
	assert.Contains(t, out, "<td>Total migrated records</td><td>972</td>")
	assert.Contains(t, out, "96.5%")
	assert.Contains(t, out, "<h3>Source Data</h3>")
	assert.Contains(t, out, "<td>customers.csv</td>")
}

func TestRenderRejectsInconsistentStats(t *testing.T) {
	r := New("Broken")
	r.Stats = migration.Statistics{TotalSourceRecords: 10, DuplicatesFound: 1, MigratedRecords: 10}

	_, err := r.Render(FormatMarkdown)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStatsInconsistent))
}
