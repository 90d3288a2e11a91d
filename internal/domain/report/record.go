package report

import (
	"time"

	"github.com/google/uuid"
)

// Record points at a rendered report stored in object storage.
type Record struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	Format      Format    `json:"format"`
	Bucket      string    `json:"bucket"`
	ObjectKey   string    `json:"object_key"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewRecord builds a record for a report just written to storage.
func NewRecord(runID string, format Format, bucket, objectKey string, generatedAt time.Time) *Record {
	return &Record{
		ID:          uuid.NewString(),
		RunID:       runID,
		Format:      format,
		Bucket:      bucket,
		ObjectKey:   objectKey,
		GeneratedAt: generatedAt,
	}
}
