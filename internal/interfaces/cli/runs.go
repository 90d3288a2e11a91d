package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/datamigrate/pkg/client"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage migration runs on a datamigrate API server",
	}
	cmd.AddCommand(
		newRunsCreateCmd(),
		newRunsStatusCmd(),
		newRunsReportCmd(),
	)
	return cmd
}

func newRunsCreateCmd() *cobra.Command {
	var req client.RunRequest

	cmd := &cobra.Command{
		Use:   "create <source.csv>",
		Short: "Queue a migration run on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			req.SourcePath = args[0]
			run, err := cliCtx.Client.CreateRun(cmd.Context(), &req)
			if err != nil {
				return err
			}
			return cliCtx.printResult(run)
		},
	}

	cmd.Flags().StringVar(&req.TargetPath, "target", "", "target CSV file on the server")
	cmd.Flags().StringSliceVar(&req.KeyColumns, "keys", nil, "key columns for duplicate checks")
	cmd.Flags().StringVar(&req.Mode, "mode", "skip", "duplicate handling mode: ask, skip, overwrite, append")
	return cmd
}

func newRunsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show the live status of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			status, err := cliCtx.Client.GetRunStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cliCtx.printResult(status)
		},
	}
}

func newRunsReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <run-id>",
		Short: "Download the newest rendered report of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			content, err := cliCtx.Client.GetReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Print(content)
			return nil
		},
	}
}
