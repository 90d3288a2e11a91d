package report

import (
	"fmt"
	"strings"
)

func renderMarkdown(r *MigrationReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", r.Title)
	fmt.Fprintf(&b, "Generated at: %s\n\n", r.GeneratedAt.Format("02.01.2006 15:04:05"))

	b.WriteString("## Summary\n\n")

	b.WriteString("### Migration Statistics\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Total source records | %d |\n", r.Stats.TotalSourceRecords)
	fmt.Fprintf(&b, "| Total duplicates | %d |\n", r.Stats.DuplicatesFound)
	fmt.Fprintf(&b, "| Total migrated records | %d |\n", r.Stats.MigratedRecords)
	if r.Stats.TotalSourceRecords > 0 {
		fmt.Fprintf(&b, "| Duplicate rate | %.1f%% |\n", r.Stats.DuplicateRate)
		fmt.Fprintf(&b, "| Migration rate | %.1f%% |\n", r.Stats.MigrationRate)
	}
	b.WriteString("\n")

	b.WriteString("### Migration Process Overview\n\n")
	b.WriteString("| Process step | File count |\n")
	b.WriteString("|--------------|------------|\n")
	fmt.Fprintf(&b, "| Source files | %d |\n", r.Stages.SourceFiles)
	fmt.Fprintf(&b, "| Field mappings | %d |\n", r.Stages.FieldMappings)
	fmt.Fprintf(&b, "| Value mappings | %d |\n", r.Stages.ValueMappings)
	fmt.Fprintf(&b, "| Mapped files | %d |\n", r.Stages.MappedFiles)
	fmt.Fprintf(&b, "| Duplicate files | %d |\n", r.Stages.DuplicateFiles)
	fmt.Fprintf(&b, "| Unique record files | %d |\n", r.Stages.UniqueFiles)
	fmt.Fprintf(&b, "| Final files | %d |\n", r.Stages.FinalFiles)
	fmt.Fprintf(&b, "| Target files | %d |\n", r.Stages.TargetFiles)
	fmt.Fprintf(&b, "| Process reports | %d |\n", r.Stages.ProcessReports)
	b.WriteString("\n")

	if len(r.Source) > 0 {
		b.WriteString("### Source Data\n\n")
		b.WriteString("| File | Records | Columns | File size (KB) |\n")
		b.WriteString("|------|---------|---------|----------------|\n")
		for _, s := range r.Source {
			fmt.Fprintf(&b, "| %s | %d | %d | %.2f |\n", s.File, s.Records, s.Columns, s.SizeKB)
		}
		b.WriteString("\n")
	}

	if len(r.Duplicates) > 0 {
		b.WriteString("### Duplicates\n\n")
		b.WriteString("| File | Threshold | Duplicate count |\n")
		b.WriteString("|------|-----------|------------------|\n")
		for _, d := range r.Duplicates {
			fmt.Fprintf(&b, "| %s | %.0f%% | %d |\n", d.File, d.Threshold, d.DuplicateCount)
		}
		b.WriteString("\n")
	}

	if len(r.Unique) > 0 {
		b.WriteString("### Unique Records\n\n")
		b.WriteString("| File | Unique records | % of source |\n")
		b.WriteString("|------|----------------|-------------|\n")
		for _, u := range r.Unique {
			fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", u.File, u.UniqueCount, u.SourcePercent)
		}
		b.WriteString("\n")
	}

	if len(r.Target) > 0 {
		b.WriteString("### Target Data\n\n")
		b.WriteString("| File | Records | Columns | File size (KB) |\n")
		b.WriteString("|------|---------|---------|----------------|\n")
		for _, s := range r.Target {
			fmt.Fprintf(&b, "| %s | %d | %d | %.2f |\n", s.File, s.Records, s.Columns, s.SizeKB)
		}
		b.WriteString("\n")
	}

	if len(r.Final) > 0 {
		b.WriteString("### Final Data\n\n")
		b.WriteString("| File | Handling | Records | % of source | File size (KB) |\n")
		b.WriteString("|------|----------|---------|-------------|----------------|\n")
		for _, f := range r.Final {
			fmt.Fprintf(&b, "| %s | %s | %d | %.1f%% | %.2f |\n", f.File, f.Handling, f.Records, f.SourcePercent, f.SizeKB)
		}
		b.WriteString("\n")
	}

	if len(r.Process) > 0 {
		b.WriteString("### Process Reports\n\n")
		for _, p := range r.Process {
			fmt.Fprintf(&b, "**Report from %s**\n\n", p.Timestamp)
			fmt.Fprintf(&b, "- Status: %s\n", p.Status)
			if p.SourceFile != "" {
				fmt.Fprintf(&b, "- Source file: %s\n", p.SourceFile)
			}
			if p.TargetFile != "" {
				fmt.Fprintf(&b, "- Target file: %s\n", p.TargetFile)
			}
			fmt.Fprintf(&b, "- Handling option: %s\n", p.Handling)
			fmt.Fprintf(&b, "- Transferred records: %d\n", p.Records)
			if p.Message != "" {
				fmt.Fprintf(&b, "- Message: %s\n", p.Message)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}
