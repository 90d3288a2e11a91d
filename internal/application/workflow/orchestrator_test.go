package workflow

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcleaning "github.com/turtacn/datamigrate/internal/application/cleaning"
	appmapping "github.com/turtacn/datamigrate/internal/application/mapping"
	appmigration "github.com/turtacn/datamigrate/internal/application/migration"
	appprofiling "github.com/turtacn/datamigrate/internal/application/profiling"
	appreporting "github.com/turtacn/datamigrate/internal/application/reporting"
	domainMigration "github.com/turtacn/datamigrate/internal/domain/migration"
	"github.com/turtacn/datamigrate/internal/domain/report"
	"github.com/turtacn/datamigrate/internal/infrastructure/database/redis"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

type runStoreStub struct {
	mu   sync.Mutex
	runs map[string]*domainMigration.Run
}

func newRunStoreStub() *runStoreStub {
	return &runStoreStub{runs: make(map[string]*domainMigration.Run)}
}

func (s *runStoreStub) Save(_ context.Context, run *domainMigration.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *run
	s.runs[run.ID] = &clone
	return nil
}

func (s *runStoreStub) Update(ctx context.Context, run *domainMigration.Run) error {
	return s.Save(ctx, run)
}

func (s *runStoreStub) GetByID(_ context.Context, id string) (*domainMigration.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "run %s not found", id)
	}
	clone := *run
	return &clone, nil
}

type cacheStub struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newCacheStub() *cacheStub {
	return &cacheStub{entries: make(map[string][]byte)}
}

func (c *cacheStub) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

func (c *cacheStub) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return errors.Newf(errors.ErrCodeCacheError, "key %s not cached", key)
	}
	return json.Unmarshal(data, dest)
}

type recordStoreStub struct {
	mu      sync.Mutex
	records []*report.Record
}

func (s *recordStoreStub) Save(_ context.Context, rec *report.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *recordStoreStub) ListByRun(_ context.Context, runID string) ([]*report.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*report.Record
	for _, rec := range s.records {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type artifactStoreStub struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newArtifactStoreStub() *artifactStoreStub {
	return &artifactStoreStub{objects: make(map[string][]byte)}
}

func (s *artifactStoreStub) UploadBytes(_ context.Context, bucket, object string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+object] = data
	return nil
}

func (s *artifactStoreStub) ReadBytes(_ context.Context, bucket, object string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+object]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "object %s not found", object)
	}
	return data, nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *runStoreStub, *cacheStub) {
	t.Helper()
	log := logging.NewNopLogger()
	runs := newRunStoreStub()
	cache := newCacheStub()
	records := &recordStoreStub{}
	artifacts := newArtifactStoreStub()

	migrationSvc := appmigration.NewService(runs, nil, cache, nil, log)
	reportingSvc := appreporting.NewService(runs, records, artifacts, "reports", log)
	orc := NewOrchestrator(
		appprofiling.NewService(log),
		appcleaning.NewService(log),
		appmapping.NewService(log),
		migrationSvc,
		reportingSvc,
		cache,
		runs,
		log,
	)
	return orc, runs, cache
}

func writeSourceCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customers.csv")
	content := strings.Join([]string{
		"customer_id,full_name,email",
		"1,Alice Smith,alice@example.com",
		"2,Bob Jones,bob@example.com",
		"2,Bob Jones,bob@example.com",
		"3,Carol White,carol@example.com",
	}, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOrchestratorRunPipeline(t *testing.T) {
	orc, runs, _ := newTestOrchestrator(t)
	source := writeSourceCSV(t)

	result, err := orc.RunPipeline(context.Background(), &PipelineInput{
		SourcePath: source,
	})
	require.NoError(t, err)

	require.NotNil(t, result.Profile)
	assert.Equal(t, 4, result.Profile.RowCount)

	require.NotNil(t, result.Cleaning)
	assert.FileExists(t, result.Cleaning.CleanedPath)

	require.NotNil(t, result.Dedup)
	assert.Equal(t, 1, result.Dedup.DuplicateRows)
	assert.Equal(t, 3, result.Dedup.UniqueRows)

	require.NotNil(t, result.Migration)
	run := result.Migration.Run
	assert.Equal(t, domainMigration.RunCompleted, run.Status)
	assert.Equal(t, 3, run.Stats.TotalSourceRecords)
	assert.Equal(t, 3, run.Stats.MigratedRecords)

	require.NotNil(t, result.Report)
	assert.Contains(t, result.Report.Content, "Data Migration Report")

	stored, err := runs.GetByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domainMigration.RunCompleted, stored.Status)
}

func TestOrchestratorRunPipelineMissingSource(t *testing.T) {
	orc, _, _ := newTestOrchestrator(t)

	_, err := orc.RunPipeline(context.Background(), &PipelineInput{
		SourcePath: filepath.Join(t.TempDir(), "missing.csv"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePipelineFailed))
}

func TestOrchestratorStatusFromCache(t *testing.T) {
	cache := newCacheStub()
	snapshot := appmigration.StatusSnapshot{
		RunID:  "run-1",
		Status: domainMigration.RunRunning,
	}
	require.NoError(t, cache.Set(context.Background(), redis.RunStatusKey("run-1"), snapshot, time.Minute))

	orc := NewOrchestrator(nil, nil, nil, nil, nil, cache, nil, logging.NewNopLogger())
	status, err := orc.Status(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "cache", status.Source)
	assert.Equal(t, domainMigration.RunRunning, status.Status)
}

func TestOrchestratorStatusFallsBackToStore(t *testing.T) {
	runs := newRunStoreStub()
	run := domainMigration.NewRun("a.csv", "", domainMigration.ModeSkip, []string{"id"})
	run.Start()
	require.NoError(t, runs.Save(context.Background(), run))

	orc := NewOrchestrator(nil, nil, nil, nil, nil, newCacheStub(), runs, logging.NewNopLogger())
	status, err := orc.Status(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "database", status.Source)
	assert.Equal(t, domainMigration.RunRunning, status.Status)
}

func TestOrchestratorStatusNotFound(t *testing.T) {
	orc := NewOrchestrator(nil, nil, nil, nil, nil, newCacheStub(), newRunStoreStub(), logging.NewNopLogger())

	_, err := orc.Status(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRunNotFound))
}
