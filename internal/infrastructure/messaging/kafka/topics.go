// Package kafka carries migration jobs from the API server to workers and
// streams run lifecycle events back out.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/datamigrate/pkg/errors"
)

// Topics.
const (
	// TopicMigrationJobs carries queued migration runs to workers.
	TopicMigrationJobs = "migration.jobs"
	// TopicMigrationEvents carries run lifecycle events for the SSE stream.
	TopicMigrationEvents = "migration.events"
	// TopicDeadLetter receives jobs that exhausted their retries.
	TopicDeadLetter = "migration.dead_letter"
)

// Event types on TopicMigrationEvents.
const (
	EventRunQueued    = "run.queued"
	EventRunStarted   = "run.started"
	EventRunProgress  = "run.progress"
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)

// EventEnvelope is the wire format of every message on both topics.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// MigrationJobPayload enqueues one migration run for a worker.
type MigrationJobPayload struct {
	RunID      string   `json:"run_id"`
	SourcePath string   `json:"source_path"`
	TargetPath string   `json:"target_path"`
	KeyColumns []string `json:"key_columns,omitempty"`
	Mode       string   `json:"mode"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// RunEventPayload reports a run lifecycle change.
type RunEventPayload struct {
	RunID         string  `json:"run_id"`
	Status        string  `json:"status"`
	RowsProcessed int     `json:"rows_processed,omitempty"`
	Duplicates    int     `json:"duplicates,omitempty"`
	Migrated      int     `json:"migrated,omitempty"`
	Progress      float64 `json:"progress,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// NewEventEnvelope wraps a payload for publishing.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeSerialization, "event payload is empty")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}

// Encode serializes the envelope for the wire.
func (e *EventEnvelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event envelope")
	}
	return data, nil
}

// DecodeEnvelope parses an envelope off the wire.
func DecodeEnvelope(data []byte) (*EventEnvelope, error) {
	var e EventEnvelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal event envelope")
	}
	return &e, nil
}
