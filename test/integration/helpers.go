// Shared test infrastructure for integration tests: in-memory stores
// standing in for postgres, redis, and minio, plus a fully wired HTTP
// stack served over httptest.
package integration

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/turtacn/datamigrate/internal/application/cleaning"
	"github.com/turtacn/datamigrate/internal/application/mapping"
	"github.com/turtacn/datamigrate/internal/application/migration"
	"github.com/turtacn/datamigrate/internal/application/profiling"
	"github.com/turtacn/datamigrate/internal/application/reporting"
	"github.com/turtacn/datamigrate/internal/application/workflow"
	domainMigration "github.com/turtacn/datamigrate/internal/domain/migration"
	"github.com/turtacn/datamigrate/internal/domain/report"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/datamigrate/internal/interfaces/http"
	"github.com/turtacn/datamigrate/internal/interfaces/http/handlers"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// ---------------------------------------------------------------------------
// In-memory infrastructure
// ---------------------------------------------------------------------------

type memRunStore struct {
	mu   sync.Mutex
	runs map[string]*domainMigration.Run
}

func newMemRunStore() *memRunStore {
	return &memRunStore{runs: make(map[string]*domainMigration.Run)}
}

func (s *memRunStore) Save(_ context.Context, run *domainMigration.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *run
	s.runs[run.ID] = &clone
	return nil
}

func (s *memRunStore) Update(ctx context.Context, run *domainMigration.Run) error {
	return s.Save(ctx, run)
}

func (s *memRunStore) GetByID(_ context.Context, id string) (*domainMigration.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "run %s not found", id)
	}
	clone := *run
	return &clone, nil
}

type memRecordStore struct {
	mu      sync.Mutex
	records []*report.Record
}

func (s *memRecordStore) Save(_ context.Context, rec *report.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memRecordStore) ListByRun(_ context.Context, runID string) ([]*report.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*report.Record
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].RunID == runID {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

type memArtifactStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemArtifactStore() *memArtifactStore {
	return &memArtifactStore{objects: make(map[string][]byte)}
}

func (s *memArtifactStore) UploadBytes(_ context.Context, bucket, object string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+object] = data
	return nil
}

func (s *memArtifactStore) ReadBytes(_ context.Context, bucket, object string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+object]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "object %s/%s not found", bucket, object)
	}
	return data, nil
}

// ---------------------------------------------------------------------------
// Stack bootstrap
// ---------------------------------------------------------------------------

// stack is one fully wired API deployment backed by in-memory stores.
type stack struct {
	server *httptest.Server
	hub    *handlers.EventHub
	runs   *memRunStore
}

func newStack(t *testing.T) *stack {
	t.Helper()

	log := logging.NewNopLogger()
	runs := newMemRunStore()
	hub := handlers.NewEventHub(log)

	profilingSvc := profiling.NewService(log)
	cleaningSvc := cleaning.NewService(log)
	mappingSvc := mapping.NewService(log)
	migrationSvc := migration.NewService(runs, hub, nil, nil, log)
	reportingSvc := reporting.NewService(runs, &memRecordStore{}, newMemArtifactStore(), "reports", log)

	orchestrator := workflow.NewOrchestrator(
		profilingSvc, cleaningSvc, mappingSvc, migrationSvc, reportingSvc,
		nil, runs, log,
	)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:  handlers.NewHealthHandler("test"),
		ToolHandler:    handlers.NewToolHandler(profilingSvc, cleaningSvc, mappingSvc, migrationSvc, reportingSvc, orchestrator, log),
		MessageHandler: handlers.NewMessageHandler(workflow.NewRouter(log)),
		RunHandler:     handlers.NewRunHandler(migrationSvc, reportingSvc, orchestrator),
		EventHub:       hub,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &stack{server: srv, hub: hub, runs: runs}
}

// writeCSV drops a file into a fresh temp dir and returns its path.
func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// decodeBody unmarshals a response body into dest.
func decodeBody(t *testing.T, data []byte, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, data)
	}
}
