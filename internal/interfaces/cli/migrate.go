package cli

import (
	"github.com/spf13/cobra"

	appmigration "github.com/turtacn/datamigrate/internal/application/migration"
	appreporting "github.com/turtacn/datamigrate/internal/application/reporting"
)

func newMigrateCmd() *cobra.Command {
	var (
		targetPath   string
		keyColumns   []string
		mode         string
		checkOnly    bool
		threshold    float64
		withReport   bool
		reportFormat string
	)

	cmd := &cobra.Command{
		Use:   "migrate <source.csv>",
		Short: "Migrate a CSV file into the target, handling duplicates by mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			if checkOnly {
				out, err := cliCtx.Migration.CheckDuplicatesAgainstTarget(cmd.Context(), &appmigration.CheckInput{
					SourcePath: args[0],
					TargetPath: targetPath,
					KeyColumns: keyColumns,
					Threshold:  threshold,
				})
				if err != nil {
					return err
				}
				return cliCtx.printResult(out)
			}

			out, err := cliCtx.Migration.Migrate(cmd.Context(), &appmigration.MigrateInput{
				SourcePath: args[0],
				TargetPath: targetPath,
				KeyColumns: keyColumns,
				Mode:       mode,
			})
			if err != nil {
				return err
			}

			if withReport {
				generated, err := cliCtx.Reporting.GenerateMigrationReport(cmd.Context(), &appreporting.GenerateInput{
					RunID:  out.Run.ID,
					Format: reportFormat,
				})
				if err != nil {
					return err
				}
				return cliCtx.printResult(map[string]interface{}{
					"migration": out,
					"report":    generated.Record,
				})
			}
			return cliCtx.printResult(out)
		},
	}

	cmd.Flags().StringVar(&targetPath, "target", "", "target CSV file (default: migrate into a new empty target)")
	cmd.Flags().StringSliceVar(&keyColumns, "keys", nil, "key columns for duplicate checks")
	cmd.Flags().StringVar(&mode, "mode", "ask", "duplicate handling mode: ask, skip, overwrite, append")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "only report conflicts, do not migrate")
	cmd.Flags().Float64Var(&threshold, "threshold", 100, "similarity threshold for --check, below 100 matches fuzzily")
	cmd.Flags().BoolVar(&withReport, "report", false, "render a migration report after the run")
	cmd.Flags().StringVar(&reportFormat, "report-format", "markdown", "report format: markdown, html")
	return cmd
}
