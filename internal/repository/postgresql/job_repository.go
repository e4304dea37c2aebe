package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"document-worker-service/internal/entity"
	"document-worker-service/internal/repository"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

const jobColumns = `id, company_name, cin, status, claimed_by, progress, attempt_count,
total_documents, uploaded_documents, error, created_at, claimed_at, completed_at`

func (r *JobRepository) Create(ctx context.Context, companyName, cin string) (uuid.UUID, error) {
	const q = `
INSERT INTO jobs (company_name, cin, status)
VALUES ($1, $2, 'pending')
RETURNING id;
`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, q, companyName, cin).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1;`

	job, err := scanJob(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListPending returns pending jobs oldest first, which is the candidate order
// of the claim protocol (oldest created_at bounds starvation).
func (r *JobRepository) ListPending(ctx context.Context, limit int) ([]entity.Job, error) {
	if limit <= 0 {
		limit = 10
	}
	q := `SELECT ` + jobColumns + `
FROM jobs
WHERE status = 'pending'
ORDER BY created_at ASC
LIMIT $1;`

	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []entity.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// CountPending is the scaling signal: a cheap partial-index count, no scan of
// historical jobs and no mutation.
func (r *JobRepository) CountPending(ctx context.Context) (int64, error) {
	const q = `SELECT count(*) FROM jobs WHERE status = 'pending';`

	var n int64
	if err := r.pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CompareAndTransition changes the job's status to next only if it currently
// equals expected, applying mut in the same statement. It is the sole mutation
// primitive; all claim and lifecycle correctness rests on its atomicity, which
// here is a single conditional UPDATE.
func (r *JobRepository) CompareAndTransition(ctx context.Context, id uuid.UUID, expected, next entity.JobStatus, mut entity.JobMutation) error {
	if !entity.CanTransition(expected, next) {
		return fmt.Errorf("illegal transition %s -> %s", expected, next)
	}

	set := []string{"status = $3"}
	args := []any{id, string(expected), string(next)}
	add := func(column string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if mut.ClaimedBy != nil {
		add("claimed_by", *mut.ClaimedBy)
	}
	if mut.ClaimedAt != nil {
		add("claimed_at", *mut.ClaimedAt)
	}
	if mut.CompletedAt != nil {
		add("completed_at", *mut.CompletedAt)
	}
	if mut.Progress != nil {
		add("progress", *mut.Progress)
	}
	if mut.Error != nil {
		add("error", *mut.Error)
	}
	if mut.TotalDocuments != nil {
		add("total_documents", *mut.TotalDocuments)
	}
	if mut.UploadedDocuments != nil {
		add("uploaded_documents", *mut.UploadedDocuments)
	}
	if mut.IncrementAttempt {
		set = append(set, "attempt_count = attempt_count + 1")
	}
	if mut.ClearClaim {
		set = append(set, "claimed_by = ''", "claimed_at = NULL")
	}
	if mut.ClearError {
		set = append(set, "error = NULL")
	}

	q := fmt.Sprintf("UPDATE jobs SET %s WHERE id = $1 AND status = $2;", strings.Join(set, ", "))

	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// missing row and lost race look the same to the UPDATE
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1);`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	return nil
}

// ReclaimStale reverts jobs whose claim lease expired back to pending so a
// fresh worker can pick them up. attempt_count is kept: a crashed worker still
// consumed an attempt.
func (r *JobRepository) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	const q = `
UPDATE jobs
SET status = 'pending', claimed_by = '', claimed_at = NULL, progress = 0
WHERE status IN ('claimed', 'processing', 'uploading')
  AND claimed_at < $1;
`
	tag, err := r.pool.Exec(ctx, q, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*entity.Job, error) {
	var (
		job         entity.Job
		statusText  string
		errText     *string
		claimedAt   *time.Time
		completedAt *time.Time
	)
	if err := row.Scan(
		&job.ID,
		&job.CompanyName,
		&job.CIN,
		&statusText,
		&job.ClaimedBy,
		&job.Progress,
		&job.AttemptCount,
		&job.TotalDocuments,
		&job.UploadedDocuments,
		&errText,
		&job.CreatedAt,
		&claimedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}
	job.Status = entity.JobStatus(statusText)
	job.Error = errText
	job.ClaimedAt = claimedAt
	job.CompletedAt = completedAt
	return &job, nil
}
