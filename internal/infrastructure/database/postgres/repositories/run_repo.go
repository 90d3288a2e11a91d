// Package repositories provides PostgreSQL-backed persistence for migration
// runs and report records, built on pgx.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/datamigrate/internal/domain/migration"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/datamigrate/pkg/errors"
)

// Querier is the pgx surface the repositories use.  Satisfied by
// *pgxpool.Pool and pgx.Tx, and by fakes in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const pgUniqueViolation = "23505"

// ─────────────────────────────────────────────────────────────────────────────
// RunRepository
// ─────────────────────────────────────────────────────────────────────────────

// RunRepository persists migration runs.
type RunRepository struct {
	db     Querier
	logger logging.Logger
}

// NewRunRepository builds the repository over a connection pool.
func NewRunRepository(pool *pgxpool.Pool, log logging.Logger) *RunRepository {
	return &RunRepository{db: pool, logger: log}
}

// NewRunRepositoryWithQuerier wires an arbitrary querier, used by tests and
// transactional callers.
func NewRunRepositoryWithQuerier(db Querier, log logging.Logger) *RunRepository {
	return &RunRepository{db: db, logger: log}
}

const runColumns = `id, source_path, target_path, key_columns, mode, status,
	total_source_records, duplicates_found, migrated_records,
	duplicate_rate, migration_rate, error_message,
	created_at, started_at, finished_at`

// Save inserts a new run.
func (r *RunRepository) Save(ctx context.Context, run *migration.Run) error {
	query := `
		INSERT INTO migration_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Exec(ctx, query,
		run.ID, run.SourcePath, run.TargetPath, run.KeyColumns,
		run.Mode.String(), string(run.Status),
		run.Stats.TotalSourceRecords, run.Stats.DuplicatesFound, run.Stats.MigratedRecords,
		run.Stats.DuplicateRate, run.Stats.MigrationRate, nullableString(run.Error),
		run.CreatedAt, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperrors.Newf(apperrors.ErrCodeConflict, "run %s already exists", run.ID)
		}
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to save run").WithDetail(run.ID)
	}

	r.logger.Debug("Saved migration run", logging.String("run_id", run.ID))
	return nil
}

// Update persists the current state of an existing run.
func (r *RunRepository) Update(ctx context.Context, run *migration.Run) error {
	query := `
		UPDATE migration_runs
		SET status = $2,
		    total_source_records = $3,
		    duplicates_found = $4,
		    migrated_records = $5,
		    duplicate_rate = $6,
		    migration_rate = $7,
		    error_message = $8,
		    started_at = $9,
		    finished_at = $10
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		run.ID, string(run.Status),
		run.Stats.TotalSourceRecords, run.Stats.DuplicatesFound, run.Stats.MigratedRecords,
		run.Stats.DuplicateRate, run.Stats.MigrationRate, nullableString(run.Error),
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to update run").WithDetail(run.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Newf(apperrors.ErrCodeNotFound, "run %s not found", run.ID)
	}
	return nil
}

// GetByID loads a single run.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*migration.Run, error) {
	query := `SELECT ` + runColumns + ` FROM migration_runs WHERE id = $1`
	run, err := scanRun(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Newf(apperrors.ErrCodeNotFound, "run %s not found", id)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to load run").WithDetail(id)
	}
	return run, nil
}

// List returns runs newest first, optionally filtered by status.
func (r *RunRepository) List(ctx context.Context, status migration.RunStatus, limit, offset int) ([]*migration.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + runColumns + ` FROM migration_runs`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to list runs")
	}
	defer rows.Close()

	var runs []*migration.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to scan run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to iterate runs")
	}
	return runs, nil
}

// CountByStatus aggregates runs per lifecycle state.
func (r *RunRepository) CountByStatus(ctx context.Context) (map[migration.RunStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM migration_runs GROUP BY status`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to count runs")
	}
	defer rows.Close()

	counts := make(map[migration.RunStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to scan run count")
		}
		counts[migration.RunStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to iterate run counts")
	}
	return counts, nil
}

// scanRun maps one row onto a Run.  The column order must match runColumns.
func scanRun(row pgx.Row) (*migration.Run, error) {
	var (
		run        migration.Run
		mode       string
		status     string
		errMsg     *string
		startedAt  *time.Time
		finishedAt *time.Time
	)
	err := row.Scan(
		&run.ID, &run.SourcePath, &run.TargetPath, &run.KeyColumns, &mode, &status,
		&run.Stats.TotalSourceRecords, &run.Stats.DuplicatesFound, &run.Stats.MigratedRecords,
		&run.Stats.DuplicateRate, &run.Stats.MigrationRate, &errMsg,
		&run.CreatedAt, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Mode = migration.Mode(mode)
	run.Status = migration.RunStatus(status)
	if errMsg != nil {
		run.Error = *errMsg
	}
	run.StartedAt = startedAt
	run.FinishedAt = finishedAt
	return &run, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
