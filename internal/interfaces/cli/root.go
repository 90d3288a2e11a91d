// Package cli implements the datamigrate command line interface.  The data
// commands run the agent services in-process against local files; the runs
// command group talks to a running API server through pkg/client.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	appcleaning "github.com/turtacn/datamigrate/internal/application/cleaning"
	appmapping "github.com/turtacn/datamigrate/internal/application/mapping"
	appmigration "github.com/turtacn/datamigrate/internal/application/migration"
	appprofiling "github.com/turtacn/datamigrate/internal/application/profiling"
	appreporting "github.com/turtacn/datamigrate/internal/application/reporting"
	"github.com/turtacn/datamigrate/internal/application/workflow"
	"github.com/turtacn/datamigrate/internal/config"
	domainMigration "github.com/turtacn/datamigrate/internal/domain/migration"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/client"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds the global CLI flags.
type RootOptions struct {
	LogLevel   string
	Output     string
	ServerAddr string
	Timeout    time.Duration
	ReportDir  string
}

// CLIContext carries the initialized services through the command tree.
type CLIContext struct {
	Logger       logging.Logger
	Profiling    appprofiling.Service
	Cleaning     appcleaning.Service
	Mapping      appmapping.Service
	Migration    appmigration.Service
	Reporting    appreporting.Service
	Orchestrator *workflow.Orchestrator
	Client       *client.Client
	Output       string
}

type cliContextKey struct{}

// NewRootCommand builds the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "datamigrate",
		Short:   "CSV data migration toolkit: profile, clean, map, migrate, report",
		Long:    "datamigrate profiles CSV files, finds and removes duplicate records,\nmaps fields and values onto a target schema, migrates the cleaned data,\nand renders migration reports.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initContext(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.Output, "output", "o", "json", "output format (json, text)")
	pf.StringVar(&opts.ServerAddr, "server", "http://localhost:8080", "API server address for the runs commands")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "request timeout for the runs commands")
	pf.StringVar(&opts.ReportDir, "report-dir", "", "directory reports are written to (default: alongside the source file)")

	cmd.AddCommand(
		newProfileCmd(),
		newCleanCmd(),
		newMapCmd(),
		newMigrateCmd(),
		newPipelineCmd(),
		newAskCmd(),
		newRunsCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return cmd
}

// initContext builds the services and stores them on the command context.
func initContext(cmd *cobra.Command, opts *RootOptions) error {
	logger, err := logging.NewLogger(config.LogConfig{
		Level:  opts.LogLevel,
		Format: "text",
	})
	if err != nil {
		return err
	}

	runs := newMemoryRunStore()
	reportDir := opts.ReportDir
	artifacts := newFileArtifactStore(reportDir)

	cleaningSvc := appcleaning.NewService(logger)
	mappingSvc := appmapping.NewService(logger)
	profilingSvc := appprofiling.NewService(logger)
	migrationSvc := appmigration.NewService(runs, nil, nil, nil, logger)
	reportingSvc := appreporting.NewService(runs, newMemoryRecordStore(), artifacts, reportDir, logger)

	apiClient, err := client.New(opts.ServerAddr, client.WithTimeout(opts.Timeout))
	if err != nil {
		return err
	}

	cliCtx := &CLIContext{
		Logger:    logger,
		Profiling: profilingSvc,
		Cleaning:  cleaningSvc,
		Mapping:   mappingSvc,
		Migration: migrationSvc,
		Reporting: reportingSvc,
		Orchestrator: workflow.NewOrchestrator(
			profilingSvc, cleaningSvc, mappingSvc, migrationSvc, reportingSvc,
			nil, runs, logger,
		),
		Client: apiClient,
		Output: opts.Output,
	}

	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// getCLIContext extracts the CLIContext placed by the root pre-run.
func getCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	cliCtx, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLI context not initialized")
	}
	return cliCtx, nil
}

// printResult renders a command result to stdout.
func (c *CLIContext) printResult(v interface{}) error {
	if c.Output == "text" {
		fmt.Printf("%+v\n", v)
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode result")
	}
	fmt.Println(string(data))
	return nil
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// memoryRunStore keeps runs for the lifetime of one CLI invocation, long
// enough to migrate and render the report in the same process.
type memoryRunStore struct {
	mu   sync.Mutex
	runs map[string]*domainMigration.Run
}

func newMemoryRunStore() *memoryRunStore {
	return &memoryRunStore{runs: make(map[string]*domainMigration.Run)}
}

func (s *memoryRunStore) Save(_ context.Context, run *domainMigration.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *run
	s.runs[run.ID] = &clone
	return nil
}

func (s *memoryRunStore) Update(ctx context.Context, run *domainMigration.Run) error {
	return s.Save(ctx, run)
}

func (s *memoryRunStore) GetByID(_ context.Context, id string) (*domainMigration.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "run %s not found", id)
	}
	clone := *run
	return &clone, nil
}
