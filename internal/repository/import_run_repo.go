package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// ImportRunRepository persists batch reports so past imports can be audited.
type ImportRunRepository struct {
	db *sqlx.DB
}

// NewImportRunRepository creates a new ImportRunRepository.
func NewImportRunRepository(db *sqlx.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

// importRunRow is the table shape of a BatchReport.
type importRunRow struct {
	domain.BatchReport
	Samples pq.StringArray `db:"error_samples"`
}

// Save records one finished batch.
func (r *ImportRunRepository) Save(ctx context.Context, rep domain.BatchReport) error {
	row := importRunRow{BatchReport: rep, Samples: pq.StringArray(rep.ErrorSamples)}
	query := `
		INSERT INTO import_runs
			(id, source, rows_total, inserted, updated, unchanged, skipped, errors,
			 unknown_status, low_confidence, error_samples, failed, failure_reason,
			 started_at, finished_at)
		VALUES
			(:id, :source, :rows_total, :inserted, :updated, :unchanged, :skipped, :errors,
			 :unknown_status, :low_confidence, :error_samples, :failed, :failure_reason,
			 :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("import_run_repo.Save: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first. An empty src lists all sources.
func (r *ImportRunRepository) Recent(ctx context.Context, src domain.Source, limit int) ([]domain.BatchReport, error) {
	var rows []importRunRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, source, rows_total, inserted, updated, unchanged, skipped, errors,
		       unknown_status, low_confidence, error_samples, failed, failure_reason,
		       started_at, finished_at
		FROM import_runs
		WHERE ($1 = '' OR source = $1)
		ORDER BY started_at DESC
		LIMIT $2`,
		string(src), limit)
	if err != nil {
		return nil, fmt.Errorf("import_run_repo.Recent: %w", err)
	}
	out := make([]domain.BatchReport, len(rows))
	for i, row := range rows {
		out[i] = row.BatchReport
		out[i].ErrorSamples = []string(row.Samples)
	}
	return out, nil
}
