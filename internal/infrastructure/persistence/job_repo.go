package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ilramdhan/formula-solver/internal/domain/entity"
	"github.com/ilramdhan/formula-solver/internal/domain/repository"
	"github.com/ilramdhan/formula-solver/pkg/database"
)

const jobColumns = "id, job_type, status, total_records, processed_records, failed_records, metadata, error_message, started_at, finished_at, created_at"

// batchJobRepo implements repository.BatchJobRepository
type batchJobRepo struct {
	db database.DB
}

// NewBatchJobRepository creates a new batch job repository
func NewBatchJobRepository(db database.DB) repository.BatchJobRepository {
	return &batchJobRepo{db: db}
}

func (r *batchJobRepo) Create(ctx context.Context, job *entity.BatchJob) error {
	query := `
		INSERT INTO batch_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		job.ID, job.JobType, job.Status, job.TotalRecords, job.ProcessedRecords, job.FailedRecords, job.Metadata, job.ErrorMessage, job.StartedAt, job.FinishedAt, job.CreatedAt)
	return err
}

func (r *batchJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.BatchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM batch_jobs WHERE id = $1`
	return scanJob(r.db.QueryRow(ctx, query, id))
}

// Start only moves a pending job, so two workers polling the same queue
// cannot both run it
func (r *batchJobRepo) Start(ctx context.Context, id uuid.UUID, total int64) error {
	query := `
		UPDATE batch_jobs SET status = $2, total_records = $3, started_at = $4
		WHERE id = $1 AND status = $5
	`
	tag, err := r.db.Exec(ctx, query, id, entity.JobStatusRunning, total, time.Now(), entity.JobStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *batchJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.JobStatus, processed, failed int64) error {
	query := `
		UPDATE batch_jobs SET status = $2, processed_records = $3, failed_records = $4,
			finished_at = CASE WHEN $5 THEN $6 ELSE finished_at END
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, status, processed, failed, status.Terminal(), time.Now())
	return err
}

func (r *batchJobRepo) UpdateProgress(ctx context.Context, id uuid.UUID, processed, failed int64) error {
	query := `
		UPDATE batch_jobs SET processed_records = processed_records + $2, failed_records = failed_records + $3
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, processed, failed)
	return err
}

func (r *batchJobRepo) Complete(ctx context.Context, id uuid.UUID) error {
	return r.finish(ctx, id, entity.JobStatusCompleted, nil)
}

func (r *batchJobRepo) Fail(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.finish(ctx, id, entity.JobStatusFailed, &errorMsg)
}

// finish stamps a terminal status; a nil message keeps the stored one
func (r *batchJobRepo) finish(ctx context.Context, id uuid.UUID, status entity.JobStatus, errorMsg *string) error {
	query := `
		UPDATE batch_jobs SET status = $2, error_message = COALESCE($3, error_message), finished_at = $4
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, status, errorMsg, time.Now())
	return err
}

func (r *batchJobRepo) ListRecent(ctx context.Context, limit int) ([]*entity.BatchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM batch_jobs ORDER BY created_at DESC LIMIT $1`
	return r.list(ctx, query, limit)
}

func (r *batchJobRepo) ListPending(ctx context.Context, limit int) ([]*entity.BatchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM batch_jobs WHERE status = $2 ORDER BY created_at LIMIT $1`
	return r.list(ctx, query, limit, entity.JobStatusPending)
}

func (r *batchJobRepo) list(ctx context.Context, query string, args ...any) ([]*entity.BatchJob, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*entity.BatchJob, error) {
		return scanJob(row)
	})
}

func scanJob(row pgx.Row) (*entity.BatchJob, error) {
	var job entity.BatchJob
	var errorMessage *string
	err := row.Scan(&job.ID, &job.JobType, &job.Status, &job.TotalRecords, &job.ProcessedRecords, &job.FailedRecords, &job.Metadata, &errorMessage, &job.StartedAt, &job.FinishedAt, &job.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if errorMessage != nil {
		job.ErrorMessage = *errorMessage
	}
	return &job, nil
}
