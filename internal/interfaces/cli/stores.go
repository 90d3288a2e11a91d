package cli

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/turtacn/datamigrate/internal/domain/report"
	"github.com/turtacn/datamigrate/pkg/errors"
)

// memoryRecordStore keeps report records for one CLI invocation.
type memoryRecordStore struct {
	mu      sync.Mutex
	records []*report.Record
}

func newMemoryRecordStore() *memoryRecordStore {
	return &memoryRecordStore{}
}

func (s *memoryRecordStore) Save(_ context.Context, rec *report.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memoryRecordStore) ListByRun(_ context.Context, runID string) ([]*report.Record, error) {
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

// fileArtifactStore writes reports to the local filesystem instead of
// object storage.  The bucket argument is a directory; when empty,
// objects land relative to the working directory.
type fileArtifactStore struct {
	baseDir string
}

func newFileArtifactStore(baseDir string) *fileArtifactStore {
	return &fileArtifactStore{baseDir: baseDir}
}

func (s *fileArtifactStore) path(bucket, object string) string {
	dir := s.baseDir
	if dir == "" {
		dir = bucket
	}
	return filepath.Join(dir, object)
}

func (s *fileArtifactStore) UploadBytes(_ context.Context, bucket, object string, data []byte, _ string) error {
	path := s.path(bucket, object)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, errors.ErrCodeStorageError, "failed to create report directory %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageError, "failed to write report %s", path)
	}
	return nil
}

func (s *fileArtifactStore) ReadBytes(_ context.Context, bucket, object string) ([]byte, error) {
	path := s.path(bucket, object)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrCodeNotFound, "report %s not found", path)
		}
		return nil, errors.Wrapf(err, errors.ErrCodeStorageError, "failed to read report %s", path)
	}
	return data, nil
}
