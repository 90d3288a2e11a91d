package cli

import (
	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	var keysOnly bool

	cmd := &cobra.Command{
		Use:   "profile <file.csv>",
		Short: "Profile a CSV file: column types, null rates, key columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			if keysOnly {
				out, err := cliCtx.Profiling.IdentifyKeyColumns(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return cliCtx.printResult(out)
			}

			out, err := cliCtx.Profiling.AnalyzeCSV(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cliCtx.printResult(out)
		},
	}

	cmd.Flags().BoolVar(&keysOnly, "keys", false, "only classify columns and suggest dedup keys")
	return cmd
}
