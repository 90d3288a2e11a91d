// Package migration models migration runs: their lifecycle, duplicate
// handling mode, and the record-count statistics every run must satisfy.
package migration

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/datamigrate/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mode
// ─────────────────────────────────────────────────────────────────────────────

// Mode decides what happens to source rows that already exist in the
// target.
type Mode string

const (
	// ModeAsk reports the conflict set without writing anything.
	ModeAsk Mode = "ask"
	// ModeSkip drops conflicting source rows.
	ModeSkip Mode = "skip"
	// ModeOverwrite replaces the matching target rows.
	ModeOverwrite Mode = "overwrite"
	// ModeAppend keeps both rows.
	ModeAppend Mode = "append"
)

func (m Mode) String() string { return string(m) }

func (m Mode) IsValid() bool {
	switch m {
	case ModeAsk, ModeSkip, ModeOverwrite, ModeAppend:
		return true
	}
	return false
}

// ParseMode validates and normalizes a duplicate-handling mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", errors.Newf(errors.ErrCodeDuplicateModeInvalid, "unknown duplicate mode %q", s)
	}
	return m, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Run
// ─────────────────────────────────────────────────────────────────────────────

// RunStatus is the lifecycle state of a migration run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// IsTerminal reports whether the run can change state again.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed
}

// Run is one migration of a source CSV into a target CSV.
type Run struct {
	ID         string     `json:"id"`
	SourcePath string     `json:"source_path"`
	TargetPath string     `json:"target_path"`
	KeyColumns []string   `json:"key_columns,omitempty"`
	Mode       Mode       `json:"mode"`
	Status     RunStatus  `json:"status"`
	Stats      Statistics `json:"stats"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewRun creates a pending run.
func NewRun(sourcePath, targetPath string, mode Mode, keyColumns []string) *Run {
	return &Run{
		ID:         uuid.NewString(),
		SourcePath: sourcePath,
		TargetPath: targetPath,
		KeyColumns: keyColumns,
		Mode:       mode,
		Status:     RunPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// Start transitions a pending run to running.
func (r *Run) Start() error {
	if r.Status.IsTerminal() {
		return errors.Newf(errors.ErrCodeRunAlreadyFinished, "run %s already %s", r.ID, r.Status)
	}
	now := time.Now().UTC()
	r.Status = RunRunning
	r.StartedAt = &now
	return nil
}

// Complete finishes the run with its final statistics.  Statistics must be
// internally consistent.
func (r *Run) Complete(stats Statistics) error {
	if r.Status.IsTerminal() {
		return errors.Newf(errors.ErrCodeRunAlreadyFinished, "run %s already %s", r.ID, r.Status)
	}
	if err := stats.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	r.Status = RunCompleted
	r.Stats = stats
	r.FinishedAt = &now
	return nil
}

// Fail finishes the run with an error message.
func (r *Run) Fail(cause error) error {
	if r.Status.IsTerminal() {
		return errors.Newf(errors.ErrCodeRunAlreadyFinished, "run %s already %s", r.ID, r.Status)
	}
	now := time.Now().UTC()
	r.Status = RunFailed
	if cause != nil {
		r.Error = cause.Error()
	}
	r.FinishedAt = &now
	return nil
}

// Duration is the wall time of a started run, zero otherwise.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	end := time.Now().UTC()
	if r.FinishedAt != nil {
		end = *r.FinishedAt
	}
	return end.Sub(*r.StartedAt)
}
