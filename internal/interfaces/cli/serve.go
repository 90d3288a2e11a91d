package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appcleaning "github.com/turtacn/datamigrate/internal/application/cleaning"
	appmapping "github.com/turtacn/datamigrate/internal/application/mapping"
	appmigration "github.com/turtacn/datamigrate/internal/application/migration"
	appprofiling "github.com/turtacn/datamigrate/internal/application/profiling"
	appreporting "github.com/turtacn/datamigrate/internal/application/reporting"
	"github.com/turtacn/datamigrate/internal/application/workflow"
	"github.com/turtacn/datamigrate/internal/config"
	httpserver "github.com/turtacn/datamigrate/internal/interfaces/http"
	"github.com/turtacn/datamigrate/internal/interfaces/http/handlers"
)

// newServeCmd runs the tool API on this machine with in-memory stores,
// the way the full apiserver does with postgres, redis, and kafka.  Useful
// for local work against files on disk.
func newServeCmd() *cobra.Command {
	var (
		port      int
		reportDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent tool API locally, no external infrastructure needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			logger := cliCtx.Logger

			runs := newMemoryRunStore()
			hub := handlers.NewEventHub(logger)
			artifacts := newFileArtifactStore(reportDir)

			profilingSvc := appprofiling.NewService(logger)
			cleaningSvc := appcleaning.NewService(logger)
			mappingSvc := appmapping.NewService(logger)
			migrationSvc := appmigration.NewService(runs, hub, nil, nil, logger)
			reportingSvc := appreporting.NewService(runs, newMemoryRecordStore(), artifacts, reportDir, logger)

			orchestrator := workflow.NewOrchestrator(
				profilingSvc, cleaningSvc, mappingSvc, migrationSvc, reportingSvc,
				nil, runs, logger,
			)

			router := httpserver.NewRouter(httpserver.RouterConfig{
				HealthHandler:  handlers.NewHealthHandler(Version),
				ToolHandler:    handlers.NewToolHandler(profilingSvc, cleaningSvc, mappingSvc, migrationSvc, reportingSvc, orchestrator, logger),
				MessageHandler: handlers.NewMessageHandler(workflow.NewRouter(logger)),
				RunHandler:     handlers.NewRunHandler(migrationSvc, reportingSvc, orchestrator),
				EventHub:       hub,
				Logger:         logger,
			})

			srv := httpserver.NewServer(config.ServerConfig{Port: port}, router, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			cmd.Printf("serving on :%d\n", port)

			select {
			case <-ctx.Done():
			case err := <-errCh:
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "directory rendered reports are written to")
	return cmd
}
