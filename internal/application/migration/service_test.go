package migration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/turtacn/datamigrate/internal/domain/migration"
	"github.com/turtacn/datamigrate/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeRunStore struct {
	mu   sync.Mutex
	runs map[string]*domain.Run
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: make(map[string]*domain.Run)}
}

func (s *fakeRunStore) Save(ctx context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *run
	s.runs[run.ID] = &clone
	return nil
}

func (s *fakeRunStore) Update(ctx context.Context, run *domain.Run) error {
	return s.Save(ctx, run)
}

func (s *fakeRunStore) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "run %s not found", id)
	}
	clone := *run
	return &clone, nil
}

type publishedEvent struct {
	topic    string
	key      string
	envelope *kafka.EventEnvelope
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishEnvelope(ctx context.Context, topic, key string, envelope *kafka.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, key: key, envelope: envelope})
	return nil
}

func (p *fakePublisher) eventTypes(topic string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, e := range p.events {
		if e.topic == topic {
			types = append(types, e.envelope.EventType)
		}
	}
	return types
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return errors.Newf(errors.ErrCodeNotFound, "key %s not cached", key)
	}
	return json.Unmarshal(data, dest)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestCheckDuplicatesAgainstTarget(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "name,email\nAlice,a@x.com\nBob,b@x.com\nCarol,c@x.com\n")
	target := writeCSV(t, dir, "target.csv", "name,email\nBob,b@x.com\n")
	svc := NewService(nil, nil, nil, nil, logging.NewNopLogger())

	out, err := svc.CheckDuplicatesAgainstTarget(context.Background(), &CheckInput{
		SourcePath: source,
		TargetPath: target,
		KeyColumns: []string{"email"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.SourceRows)
	assert.Equal(t, 1, out.TargetRows)
	assert.Equal(t, 1, out.ConflictCount)
}

func TestCheckDuplicatesAgainstTargetFuzzyThreshold(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "name\nBen Hamburg\nCarol Bremen\n")
	target := writeCSV(t, dir, "target.csv", "name\nBen Hamburgh\n")
	svc := NewService(nil, nil, nil, nil, logging.NewNopLogger())

	exact, err := svc.CheckDuplicatesAgainstTarget(context.Background(), &CheckInput{
		SourcePath: source,
		TargetPath: target,
		KeyColumns: []string{"name"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, exact.ConflictCount)

	fuzzy, err := svc.CheckDuplicatesAgainstTarget(context.Background(), &CheckInput{
		SourcePath: source,
		TargetPath: target,
		KeyColumns: []string{"name"},
		Threshold:  85,
	})
	require.NoError(t, err)
	require.Equal(t, 1, fuzzy.ConflictCount)
	assert.Greater(t, fuzzy.Conflicts[0].Score, 85.0)
}

func TestMigrateSkipMode(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "name,email\nAlice,a@x.com\nBob,b@x.com\nCarol,c@x.com\n")
	target := writeCSV(t, dir, "target.csv", "name,email\nBob,b@x.com\n")

	store := newFakeRunStore()
	pub := &fakePublisher{}
	cache := newFakeCache()
	svc := NewService(store, pub, cache, nil, logging.NewNopLogger())

	out, err := svc.Migrate(context.Background(), &MigrateInput{
		SourcePath: source,
		TargetPath: target,
		KeyColumns: []string{"email"},
		Mode:       "skip",
	})
	require.NoError(t, err)

	run := out.Run
	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, 3, run.Stats.TotalSourceRecords)
	assert.Equal(t, 1, run.Stats.DuplicatesFound)
	assert.Equal(t, 2, run.Stats.MigratedRecords)

	// Final file holds the old target row plus the two new source rows.
	data, err := os.ReadFile(out.FinalPath)
	require.NoError(t, err)
	final := string(data)
	assert.Contains(t, final, "Alice")
	assert.Contains(t, final, "Carol")
	assert.Equal(t, 4, countLines(final)) // header + 3 rows

	// Transfer report was written.
	report, err := os.ReadFile(out.TransferReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), run.ID)

	// Run state persisted and events published.
	saved, err := store.GetByID(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, saved.Status)
	assert.Equal(t, []string{kafka.EventRunStarted, kafka.EventRunCompleted},
		pub.eventTypes(kafka.TopicMigrationEvents))

	// The cached snapshot reflects the terminal state.
	var snapshot StatusSnapshot
	require.NoError(t, cache.Get(context.Background(), "run:"+run.ID+":status", &snapshot))
	assert.Equal(t, domain.RunCompleted, snapshot.Status)
}

func countLines(s string) int {
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}

func TestMigrateAskModeWritesNoFinal(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "name\nAlice\nBob\n")
	target := writeCSV(t, dir, "target.csv", "name\nBob\n")
	svc := NewService(newFakeRunStore(), nil, nil, nil, logging.NewNopLogger())

	out, err := svc.Migrate(context.Background(), &MigrateInput{
		SourcePath: source,
		TargetPath: target,
	})
	require.NoError(t, err)
	assert.Empty(t, out.FinalPath)
	assert.Equal(t, domain.RunCompleted, out.Run.Status)
	assert.Equal(t, 1, out.Run.Stats.DuplicatesFound)
}

func TestMigrateInvalidMode(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, logging.NewNopLogger())

	_, err := svc.Migrate(context.Background(), &MigrateInput{
		SourcePath: "x.csv",
		Mode:       "merge",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDuplicateModeInvalid))
}

func TestMigrateMissingSourceFailsRun(t *testing.T) {
	store := newFakeRunStore()
	pub := &fakePublisher{}
	svc := NewService(store, pub, nil, nil, logging.NewNopLogger())

	_, err := svc.Migrate(context.Background(), &MigrateInput{
		SourcePath: filepath.Join(t.TempDir(), "missing.csv"),
		Mode:       "append",
	})
	require.Error(t, err)

	types := pub.eventTypes(kafka.TopicMigrationEvents)
	assert.Equal(t, []string{kafka.EventRunStarted, kafka.EventRunFailed}, types)
}

func TestEnqueueAndExecuteJob(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "name\nAlice\nBob\n")
	target := writeCSV(t, dir, "target.csv", "name\nBob\n")

	store := newFakeRunStore()
	pub := &fakePublisher{}
	svc := NewService(store, pub, newFakeCache(), nil, logging.NewNopLogger())

	run, err := svc.Enqueue(context.Background(), &MigrateInput{
		SourcePath: source,
		TargetPath: target,
		Mode:       "skip",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RunPending, run.Status)

	jobs := pub.eventTypes(kafka.TopicMigrationJobs)
	require.Equal(t, []string{kafka.EventRunQueued}, jobs)

	// Decode the job the worker would receive and execute it.
	var job kafka.MigrationJobPayload
	require.NoError(t, pub.events[0].envelope.DecodePayload(&job))
	assert.Equal(t, run.ID, job.RunID)

	require.NoError(t, svc.ExecuteJob(context.Background(), &job))

	finished, err := svc.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, finished.Status)
	assert.Equal(t, 1, finished.Stats.MigratedRecords)
}

func TestGetRunNotFound(t *testing.T) {
	svc := NewService(newFakeRunStore(), nil, nil, nil, logging.NewNopLogger())

	_, err := svc.GetRun(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRunNotFound))
}
