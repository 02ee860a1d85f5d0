package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"descriptai/internal/domain"
	"descriptai/internal/infra"
	"descriptai/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job in processing state with zeroed counters. The
// identifier is generated when the caller did not set one.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = domain.JobStatusProcessing
	job.ProcessedItems = 0
	job.FailedItems = 0
	row := r.sql.QueryRow(ctx, sqlinline.QInsertBulkJob, job.ID, job.UserID, string(job.Kind), job.TotalItems, job.VoiceID)
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("insert bulk job: %w", err)
	}
	return nil
}

// GetForUser returns the job only when it belongs to userID.
func (r *JobRepositoryPG) GetForUser(ctx context.Context, jobID, userID string) (*domain.Job, error) {
	if !validUUID(jobID) || !validUUID(userID) {
		return nil, domain.ErrNotFound
	}
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectBulkJobForUser, jobID, userID))
}

// RecordItem advances the counters atomically.
func (r *JobRepositoryPG) RecordItem(ctx context.Context, jobID string, failed bool) (*domain.Job, error) {
	if !validUUID(jobID) {
		return nil, domain.ErrNotFound
	}
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QRecordBulkJobItem, jobID, failed))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	// The guard rejected the update: the job is full or does not exist.
	return scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectBulkJob, jobID))
}

// Finalize sets the terminal status. Repeating it is harmless.
func (r *JobRepositoryPG) Finalize(ctx context.Context, jobID, userID string, status domain.JobStatus, errMsg *string) error {
	if !validUUID(jobID) || !validUUID(userID) {
		return domain.ErrNotFound
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QFinalizeBulkJob, jobID, userID, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("finalize bulk job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job    domain.Job
		kind   string
		status string
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&kind,
		&status,
		&job.TotalItems,
		&job.ProcessedItems,
		&job.FailedItems,
		&job.ErrorMessage,
		&job.VoiceID,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	return &job, nil
}

func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
