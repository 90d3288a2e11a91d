package cli

import (
	"github.com/spf13/cobra"

	appcleaning "github.com/turtacn/datamigrate/internal/application/cleaning"
)

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean a CSV file: duplicates, missing values, capitalization",
	}
	cmd.AddCommand(
		newCleanDuplicatesCmd(),
		newCleanMissingCmd(),
		newCleanCapitalizeCmd(),
	)
	return cmd
}

func newCleanDuplicatesCmd() *cobra.Command {
	var (
		keyColumns []string
		threshold  float64
		exact      bool
		remove     bool
	)

	cmd := &cobra.Command{
		Use:   "duplicates <file.csv>",
		Short: "Find duplicate records, optionally writing unique and duplicate files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			if remove {
				out, err := cliCtx.Cleaning.RemoveDuplicates(cmd.Context(), &appcleaning.RemoveInput{
					Path:       args[0],
					KeyColumns: keyColumns,
					Threshold:  threshold,
					Exact:      exact,
				})
				if err != nil {
					return err
				}
				return cliCtx.printResult(out)
			}

			if exact {
				out, err := cliCtx.Cleaning.FindExactDuplicates(cmd.Context(), &appcleaning.ExactInput{
					Path:       args[0],
					KeyColumns: keyColumns,
				})
				if err != nil {
					return err
				}
				return cliCtx.printResult(out)
			}

			out, err := cliCtx.Cleaning.FindFuzzyDuplicates(cmd.Context(), &appcleaning.FuzzyInput{
				Path:       args[0],
				KeyColumns: keyColumns,
				Threshold:  threshold,
			})
			if err != nil {
				return err
			}
			return cliCtx.printResult(out)
		},
	}

	cmd.Flags().StringSliceVar(&keyColumns, "keys", nil, "key columns to match on (default: profiled ID and name columns)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "similarity threshold in percent (default 90)")
	cmd.Flags().BoolVar(&exact, "exact", false, "exact matching instead of fuzzy")
	cmd.Flags().BoolVar(&remove, "remove", false, "write unique and duplicate row files")
	return cmd
}

func newCleanMissingCmd() *cobra.Command {
	var (
		strategy string
		columns  []string
	)

	cmd := &cobra.Command{
		Use:   "missing <file.csv>",
		Short: "Fill or drop rows with missing values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			out, err := cliCtx.Cleaning.HandleMissingValues(cmd.Context(), &appcleaning.MissingInput{
				Path:     args[0],
				Strategy: strategy,
				Columns:  columns,
			})
			if err != nil {
				return err
			}
			return cliCtx.printResult(out)
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "auto", "strategy: auto, remove, mean, median, mode, zero")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to treat (default: all columns with nulls)")
	return cmd
}

func newCleanCapitalizeCmd() *cobra.Command {
	var columns []string

	cmd := &cobra.Command{
		Use:   "capitalize <file.csv>",
		Short: "Unify the casing of text columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			out, err := cliCtx.Cleaning.StandardizeCapitalization(cmd.Context(), &appcleaning.CapitalizeInput{
				Path:    args[0],
				Columns: columns,
			})
			if err != nil {
				return err
			}
			return cliCtx.printResult(out)
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to standardize (default: every text column)")
	return cmd
}
