package reporting

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainMigration "github.com/turtacn/datamigrate/internal/domain/migration"
	"github.com/turtacn/datamigrate/internal/domain/report"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

type fakeRunSource struct {
	runs map[string]*domainMigration.Run
}

func (f *fakeRunSource) GetByID(ctx context.Context, id string) (*domainMigration.Run, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeRunNotFound, "run %s not found", id)
	}
	return run, nil
}

type fakeRecordStore struct {
	mu   sync.Mutex
	recs []*report.Record
}

func (f *fakeRecordStore) Save(ctx context.Context, rec *report.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeRecordStore) ListByRun(ctx context.Context, runID string) ([]*report.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*report.Record
	for _, r := range f.recs {
		if r.RunID == runID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeArtifactStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{objects: make(map[string][]byte)}
}

func (f *fakeArtifactStore) UploadBytes(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+object] = data
	return nil
}

func (f *fakeArtifactStore) ReadBytes(ctx context.Context, bucket, object string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+object]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "object not found")
	}
	return data, nil
}

func completedRun(t *testing.T, dir string) *domainMigration.Run {
	t.Helper()
	source := filepath.Join(dir, "customers.csv")
	require.NoError(t, os.WriteFile(source,
		[]byte("name,email\nAlice,a@x.com\nBob,b@x.com\nCarol,c@x.com\n"), 0o644))

	run := domainMigration.NewRun(source, "", domainMigration.ModeSkip, []string{"email"})
	require.NoError(t, run.Start())
	require.NoError(t, run.Complete(domainMigration.NewStatistics(3, 1)))
	return run
}

func TestGenerateMigrationReportMarkdown(t *testing.T) {
	dir := t.TempDir()
	run := completedRun(t, dir)

	runs := &fakeRunSource{runs: map[string]*domainMigration.Run{run.ID: run}}
	records := &fakeRecordStore{}
	store := newFakeArtifactStore()
	svc := NewService(runs, records, store, "reports", logging.NewNopLogger())

	out, err := svc.GenerateMigrationReport(context.Background(), &GenerateInput{RunID: run.ID})
	require.NoError(t, err)

	assert.Contains(t, out.Content, "# Data Migration Report")
	assert.Contains(t, out.Content, "customers.csv")
	assert.Contains(t, out.Content, "3")

	rec := out.Record
	assert.Equal(t, report.FormatMarkdown, rec.Format)
	assert.Equal(t, "reports", rec.Bucket)
	assert.True(t, strings.HasPrefix(rec.ObjectKey, "migration_report_"))
	assert.True(t, strings.HasSuffix(rec.ObjectKey, ".md"))

	// The rendered document was uploaded and the record persisted.
	stored, err := svc.ReadReport(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, out.Content, stored)

	listed, err := svc.ListReports(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestGenerateMigrationReportStageCounts(t *testing.T) {
	dir := t.TempDir()
	run := completedRun(t, dir)

	// Mapping artifacts alongside the source count toward their own stages;
	// the source file itself is not a process report.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customers_field_mapping.csv"),
		[]byte("source_field,target_field\nname,full_name\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customers_value_mapping.csv"),
		[]byte("field,source_value,target_value\ncity,Köln,Cologne\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customers_mapped.csv"),
		[]byte("full_name,email\nAlice,a@x.com\n"), 0o644))

	runs := &fakeRunSource{runs: map[string]*domainMigration.Run{run.ID: run}}
	svc := NewService(runs, &fakeRecordStore{}, newFakeArtifactStore(), "reports", logging.NewNopLogger())

	out, err := svc.GenerateMigrationReport(context.Background(), &GenerateInput{RunID: run.ID})
	require.NoError(t, err)

	assert.Contains(t, out.Content, "| Source files | 1 |")
	assert.Contains(t, out.Content, "| Field mappings | 1 |")
	assert.Contains(t, out.Content, "| Value mappings | 1 |")
	assert.Contains(t, out.Content, "| Mapped files | 1 |")
	assert.Contains(t, out.Content, "| Process reports | 1 |")
}

func TestGenerateMigrationReportHTML(t *testing.T) {
	dir := t.TempDir()
	run := completedRun(t, dir)

	runs := &fakeRunSource{runs: map[string]*domainMigration.Run{run.ID: run}}
	svc := NewService(runs, &fakeRecordStore{}, newFakeArtifactStore(), "reports", logging.NewNopLogger())

	out, err := svc.GenerateMigrationReport(context.Background(), &GenerateInput{RunID: run.ID, Format: "html"})
	require.NoError(t, err)
	assert.Contains(t, out.Content, "<html")
	assert.True(t, strings.HasSuffix(out.Record.ObjectKey, ".html"))
}

func TestGenerateMigrationReportUnknownFormat(t *testing.T) {
	svc := NewService(&fakeRunSource{}, nil, nil, "reports", logging.NewNopLogger())

	_, err := svc.GenerateMigrationReport(context.Background(), &GenerateInput{RunID: "x", Format: "pdf"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeReportFormatUnsupported))
}

func TestGenerateMigrationReportPendingRun(t *testing.T) {
	run := domainMigration.NewRun("a.csv", "", domainMigration.ModeAsk, nil)
	runs := &fakeRunSource{runs: map[string]*domainMigration.Run{run.ID: run}}
	svc := NewService(runs, nil, nil, "reports", logging.NewNopLogger())

	_, err := svc.GenerateMigrationReport(context.Background(), &GenerateInput{RunID: run.ID})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}
