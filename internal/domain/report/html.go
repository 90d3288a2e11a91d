package report

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/turtacn/datamigrate/pkg/errors"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"kb":  func(f float64) string { return fmt.Sprintf("%.2f", f) },
	"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 1200px; margin: 0 auto; padding: 20px; }
table { border-collapse: collapse; width: 100%; margin-bottom: 20px; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
tr:nth-child(even) { background-color: #f9f9f9; }
h1, h2, h3 { color: #333; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Generated at: {{.GeneratedAt.Format "02.01.2006 15:04:05"}}</p>

<h2>Summary</h2>

<h3>Migration Statistics</h3>
<table>
<tr><th>Metric</th><th>Value</th></tr>
<tr><td>Total source records</td><td>{{.Stats.TotalSourceRecords}}</td></tr>
<tr><td>Total duplicates</td><td>{{.Stats.DuplicatesFound}}</td></tr>
<tr><td>Total migrated records</td><td>{{.Stats.MigratedRecords}}</td></tr>
{{if gt .Stats.TotalSourceRecords 0}}<tr><td>Duplicate rate</td><td>{{pct .Stats.DuplicateRate}}</td></tr>
<tr><td>Migration rate</td><td>{{pct .Stats.MigrationRate}}</td></tr>
{{end}}</table>

<h3>Migration Process Overview</h3>
<table>
<tr><th>Process step</th><th>File count</th></tr>
<tr><td>Source files</td><td>{{.Stages.SourceFiles}}</td></tr>
<tr><td>Field mappings</td><td>{{.Stages.FieldMappings}}</td></tr>
<tr><td>Value mappings</td><td>{{.Stages.ValueMappings}}</td></tr>
<tr><td>Mapped files</td><td>{{.Stages.MappedFiles}}</td></tr>
<tr><td>Duplicate files</td><td>{{.Stages.DuplicateFiles}}</td></tr>
<tr><td>Unique record files</td><td>{{.Stages.UniqueFiles}}</td></tr>
<tr><td>Final files</td><td>{{.Stages.FinalFiles}}</td></tr>
<tr><td>Target files</td><td>{{.Stages.TargetFiles}}</td></tr>
<tr><td>Process reports</td><td>{{.Stages.ProcessReports}}</td></tr>
</table>

{{if .Source}}<h3>Source Data</h3>
<table>
<tr><th>File</th><th>Records</th><th>Columns</th><th>File size (KB)</th></tr>
{{range .Source}}<tr><td>{{.File}}</td><td>{{.Records}}</td><td>{{.Columns}}</td><td>{{kb .SizeKB}}</td></tr>
{{end}}</table>
{{end}}
{{if .Duplicates}}<h3>Duplicates</h3>
<table>
<tr><th>File</th><th>Threshold</th><th>Duplicate count</th></tr>
{{range .Duplicates}}<tr><td>{{.File}}</td><td>{{pct .Threshold}}</td><td>{{.DuplicateCount}}</td></tr>
{{end}}</table>
{{end}}
{{if .Unique}}<h3>Unique Records</h3>
<table>
<tr><th>File</th><th>Unique records</th><th>% of source</th></tr>
{{range .Unique}}<tr><td>{{.File}}</td><td>{{.UniqueCount}}</td><td>{{pct .SourcePercent}}</td></tr>
{{end}}</table>
{{end}}
{{if .Target}}<h3>Target Data</h3>
<table>
<tr><th>File</th><th>Records</th><th>Columns</th><th>File size (KB)</th></tr>
{{range .Target}}<tr><td>{{.File}}</td><td>{{.Records}}</td><td>{{.Columns}}</td><td>{{kb .SizeKB}}</td></tr>
{{end}}</table>
{{end}}
{{if .Final}}<h3>Final Data</h3>
<table>
<tr><th>File</th><th>Handling</th><th>Records</th><th>% of source</th><th>File size (KB)</th></tr>
{{range .Final}}<tr><td>{{.File}}</td><td>{{.Handling}}</td><td>{{.Records}}</td><td>{{pct .SourcePercent}}</td><td>{{kb .SizeKB}}</td></tr>
{{end}}</table>
{{end}}
{{if .Process}}<h3>Process Reports</h3>
{{range .Process}}<p><strong>Report from {{.Timestamp}}</strong></p>
<ul>
<li>Status: {{.Status}}</li>
{{if .SourceFile}}<li>Source file: {{.SourceFile}}</li>
{{end}}{{if .TargetFile}}<li>Target file: {{.TargetFile}}</li>
{{end}}<li>Handling option: {{.Handling}}</li>
<li>Transferred records: {{.Records}}</li>
{{if .Message}}<li>Message: {{.Message}}</li>
{{end}}</ul>
{{end}}{{end}}
</body>
</html>
`))

func renderHTML(r *MigrationReport) (string, error) {
	var b strings.Builder
	if err := htmlTemplate.Execute(&b, r); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeReportRenderFailed, "failed to render HTML report")
	}
	return b.String(), nil
}
