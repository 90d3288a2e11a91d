package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/datamigrate/internal/application/workflow"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <free-text request>",
		Short: "Route a free-text request to an agent and tool",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}

			router := workflow.NewRouter(cliCtx.Logger)
			route, err := router.Route(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return cliCtx.printResult(route)
		},
	}
}
