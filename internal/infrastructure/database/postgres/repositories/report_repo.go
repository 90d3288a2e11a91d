package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/datamigrate/internal/domain/report"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/datamigrate/pkg/errors"
)

// ReportRepository persists references to reports stored in object storage.
type ReportRepository struct {
	db     Querier
	logger logging.Logger
}

func NewReportRepository(pool *pgxpool.Pool, log logging.Logger) *ReportRepository {
	return &ReportRepository{db: pool, logger: log}
}

func NewReportRepositoryWithQuerier(db Querier, log logging.Logger) *ReportRepository {
	return &ReportRepository{db: db, logger: log}
}

const reportColumns = `id, run_id, format, bucket, object_key, generated_at`

// Save inserts a report record.
func (r *ReportRepository) Save(ctx context.Context, rec *report.Record) error {
	query := `
		INSERT INTO report_records (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		rec.ID, rec.RunID, string(rec.Format), rec.Bucket, rec.ObjectKey, rec.GeneratedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to save report record").WithDetail(rec.ID)
	}
	r.logger.Debug("Saved report record",
		logging.String("report_id", rec.ID),
		logging.String("run_id", rec.RunID),
	)
	return nil
}

// GetByID loads one report record.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*report.Record, error) {
	query := `SELECT ` + reportColumns + ` FROM report_records WHERE id = $1`
	rec, err := scanReport(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Newf(apperrors.ErrCodeNotFound, "report %s not found", id)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to load report record").WithDetail(id)
	}
	return rec, nil
}

// ListByRun returns all reports generated for a run, newest first.
func (r *ReportRepository) ListByRun(ctx context.Context, runID string) ([]*report.Record, error) {
	query := `SELECT ` + reportColumns + ` FROM report_records WHERE run_id = $1 ORDER BY generated_at DESC`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to list report records").WithDetail(runID)
	}
	defer rows.Close()

	var recs []*report.Record
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to scan report record")
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to iterate report records")
	}
	return recs, nil
}

func scanReport(row pgx.Row) (*report.Record, error) {
	var (
		rec    report.Record
		format string
	)
	if err := row.Scan(&rec.ID, &rec.RunID, &format, &rec.Bucket, &rec.ObjectKey, &rec.GeneratedAt); err != nil {
		return nil, err
	}
	rec.Format = report.Format(format)
	return &rec, nil
}
