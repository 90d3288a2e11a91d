package cli

import (
	"github.com/spf13/cobra"

	appmapping "github.com/turtacn/datamigrate/internal/application/mapping"
)

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map source fields and values onto the target schema",
	}
	cmd.AddCommand(
		newMapTemplateCmd(),
		newMapFieldsCmd(),
		newMapValuesCmd(),
	)
	return cmd
}

func newMapTemplateCmd() *cobra.Command {
	var templatePath string

	cmd := &cobra.Command{
		Use:   "template <file.csv>",
		Short: "Write a field map template for a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			out, err := cliCtx.Mapping.GenerateFieldMapTemplate(cmd.Context(), &appmapping.TemplateInput{
				Path:         args[0],
				TemplatePath: templatePath,
			})
			if err != nil {
				return err
			}
			return cliCtx.printResult(out)
		},
	}

	cmd.Flags().StringVar(&templatePath, "out", "", "template path (default: alongside the source file)")
	return cmd
}

func newMapFieldsCmd() *cobra.Command {
	var mapPath string

	cmd := &cobra.Command{
		Use:   "fields <file.csv>",
		Short: "Rename and drop columns per a field map file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			out, err := cliCtx.Mapping.ApplyFieldMap(cmd.Context(), &appmapping.ApplyFieldInput{
				Path:    args[0],
				MapPath: mapPath,
			})
			if err != nil {
				return err
			}
			return cliCtx.printResult(out)
		},
	}

	cmd.Flags().StringVar(&mapPath, "map", "", "field map file (required)")
	_ = cmd.MarkFlagRequired("map")
	return cmd
}

func newMapValuesCmd() *cobra.Command {
	var mapPath string

	cmd := &cobra.Command{
		Use:   "values <file.csv>",
		Short: "Rewrite cell values per a value map file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			out, err := cliCtx.Mapping.ApplyValueMap(cmd.Context(), &appmapping.ApplyValueInput{
				Path:    args[0],
				MapPath: mapPath,
			})
			if err != nil {
				return err
			}
			return cliCtx.printResult(out)
		},
	}

	cmd.Flags().StringVar(&mapPath, "map", "", "value map file (required)")
	_ = cmd.MarkFlagRequired("map")
	return cmd
}
