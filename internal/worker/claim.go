package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"document-worker-service/internal/entity"
	"document-worker-service/internal/repository"
)

// Store is the job store port of the worker (implementations:
// postgresql.JobRepository, memory.Store).
type Store interface {
	ListPending(ctx context.Context, limit int) ([]entity.Job, error)
	CompareAndTransition(ctx context.Context, id uuid.UUID, expected, next entity.JobStatus, mut entity.JobMutation) error
}

// ErrNoJob means no pending job could be claimed. Expected whenever the
// scaling controller over-provisions: its queue-depth observation and the
// claim are not atomic, so extra workers must exit cheaply.
var ErrNoJob = errors.New("no pending job available")

// Claimer acquires exclusive ownership of one pending job.
type Claimer struct {
	store    Store
	workerID string
	batch    int
}

func NewClaimer(store Store, workerID string, batch int) *Claimer {
	if batch <= 0 {
		batch = 10
	}
	return &Claimer{store: store, workerID: workerID, batch: batch}
}

// Claim walks the pending jobs oldest first and compare-and-transitions each
// candidate pending -> claimed. A conflict means another worker won that job;
// the candidate is discarded and never retried within the pass.
func (c *Claimer) Claim(ctx context.Context) (*entity.Job, error) {
	candidates, err := c.store.ListPending(ctx, c.batch)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		job := candidates[i]
		now := time.Now().UTC()
		zero := 0
		mut := entity.JobMutation{
			ClaimedBy:        &c.workerID,
			ClaimedAt:        &now,
			Progress:         &zero,
			IncrementAttempt: true,
			ClearError:       true,
		}

		err := c.store.CompareAndTransition(ctx, job.ID, entity.StatusPending, entity.StatusClaimed, mut)
		if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		job.Status = entity.StatusClaimed
		mut.Apply(&job)
		log.Printf("[worker] worker_id=%s claimed job_id=%s company=%s attempt=%d",
			c.workerID, job.ID, job.CompanyName, job.AttemptCount)
		return &job, nil
	}
	return nil, ErrNoJob
}
