package cli

import (
	"github.com/spf13/cobra"

	"github.com/turtacn/datamigrate/internal/application/workflow"
)

func newPipelineCmd() *cobra.Command {
	var input workflow.PipelineInput

	cmd := &cobra.Command{
		Use:   "pipeline <source.csv>",
		Short: "Run the full pipeline: profile, clean, dedup, map, migrate, report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			input.SourcePath = args[0]
			result, err := cliCtx.Orchestrator.RunPipeline(cmd.Context(), &input)
			if err != nil {
				return err
			}
			return cliCtx.printResult(result)
		},
	}

	cmd.Flags().StringVar(&input.TargetPath, "target", "", "target CSV file")
	cmd.Flags().StringVar(&input.FieldMapPath, "field-map", "", "field map file")
	cmd.Flags().StringVar(&input.ValueMapPath, "value-map", "", "value map file")
	cmd.Flags().StringSliceVar(&input.KeyColumns, "keys", nil, "key columns (default: profiled ID and name columns)")
	cmd.Flags().StringVar(&input.MissingStrategy, "missing", "auto", "missing-value strategy")
	cmd.Flags().Float64Var(&input.Threshold, "threshold", 0, "similarity threshold in percent (default 90)")
	cmd.Flags().StringVar(&input.Mode, "mode", "skip", "duplicate handling mode: ask, skip, overwrite, append")
	cmd.Flags().StringVar(&input.ReportFormat, "report-format", "markdown", "report format: markdown, html")
	return cmd
}
