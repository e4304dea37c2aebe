package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"document-worker-service/internal/entity"
	"document-worker-service/internal/metrics"
	"document-worker-service/internal/repository"
)

// Outcome is the three-way result the launching controller reads off the
// process exit status.
type Outcome int

const (
	OutcomeProcessed Outcome = iota
	OutcomeNoJob
	OutcomeFailed
)

func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeProcessed:
		return 0
	case OutcomeNoJob:
		return 2
	default:
		return 1
	}
}

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeNoJob:
		return "no_job"
	default:
		return "failed"
	}
}

// MetricsPusher is the bridge port (implementation: metrics.Bridge).
type MetricsPusher interface {
	Push(ctx context.Context, workerID string, c metrics.Counters) error
}

// Runner drives the one-shot worker lifecycle: claim at most one job, walk it
// through processing and uploading, record the terminal state, push metrics,
// return. It never loops for a second job.
type Runner struct {
	store       Store
	claimer     *Claimer
	processor   *Processor
	bridge      MetricsPusher
	workerID    string
	maxAttempts int
}

func NewRunner(store Store, claimer *Claimer, processor *Processor, bridge MetricsPusher, workerID string, maxAttempts int) *Runner {
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	return &Runner{
		store:       store,
		claimer:     claimer,
		processor:   processor,
		bridge:      bridge,
		workerID:    workerID,
		maxAttempts: maxAttempts,
	}
}

func (r *Runner) Run(ctx context.Context) Outcome {
	var counters metrics.Counters
	outcome := r.run(ctx, &counters)

	// the push must complete before the process exits, including when ctx is
	// already cancelled, so it gets its own deadline
	pushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.bridge.Push(pushCtx, r.workerID, counters); err != nil {
		log.Printf("[worker] worker_id=%s push_metrics error=%v", r.workerID, err)
	}

	log.Printf("[worker] worker_id=%s outcome=%s", r.workerID, outcome)
	return outcome
}

func (r *Runner) run(ctx context.Context, counters *metrics.Counters) Outcome {
	start := time.Now()

	job, err := r.claimer.Claim(ctx)
	if errors.Is(err, ErrNoJob) {
		log.Printf("[worker] worker_id=%s no pending jobs", r.workerID)
		return OutcomeNoJob
	}
	if err != nil {
		log.Printf("[worker] worker_id=%s claim error=%v", r.workerID, err)
		return OutcomeFailed
	}

	if err := r.store.CompareAndTransition(ctx, job.ID, entity.StatusClaimed, entity.StatusProcessing, entity.JobMutation{}); err != nil {
		return r.abort(ctx, counters, job, entity.StatusClaimed, err)
	}

	total := r.processor.Plan(job)
	if err := r.store.CompareAndTransition(ctx, job.ID, entity.StatusProcessing, entity.StatusProcessing, entity.JobMutation{TotalDocuments: &total}); err != nil {
		return r.abort(ctx, counters, job, entity.StatusProcessing, err)
	}

	// transformation covers 0..50 of the progress scale, upload 50..100;
	// both report through the same atomic primitive as real transitions
	blobs, err := r.processor.Transform(ctx, job, total, func(done int) error {
		counters.DocumentsDownloaded++
		p := done * 50 / total
		return r.store.CompareAndTransition(ctx, job.ID, entity.StatusProcessing, entity.StatusProcessing, entity.JobMutation{Progress: &p})
	})
	if err != nil {
		return r.abort(ctx, counters, job, entity.StatusProcessing, err)
	}

	half := 50
	if err := r.store.CompareAndTransition(ctx, job.ID, entity.StatusProcessing, entity.StatusUploading, entity.JobMutation{Progress: &half}); err != nil {
		return r.abort(ctx, counters, job, entity.StatusProcessing, err)
	}

	_, err = r.processor.Upload(ctx, job, blobs, func(done int) error {
		counters.DocumentsUploaded++
		n := done
		p := 50 + done*50/total
		return r.store.CompareAndTransition(ctx, job.ID, entity.StatusUploading, entity.StatusUploading, entity.JobMutation{Progress: &p, UploadedDocuments: &n})
	})
	if err != nil {
		counters.UploadFailures++
		return r.abort(ctx, counters, job, entity.StatusUploading, err)
	}

	now := time.Now().UTC()
	full := 100
	if err := r.store.CompareAndTransition(ctx, job.ID, entity.StatusUploading, entity.StatusCompleted, entity.JobMutation{Progress: &full, CompletedAt: &now}); err != nil {
		return r.abort(ctx, counters, job, entity.StatusUploading, err)
	}

	counters.JobsProcessed++
	log.Printf("[worker] worker_id=%s job_id=%s status=completed documents=%d duration_ms=%d",
		r.workerID, job.ID, total, time.Since(start).Milliseconds())
	return OutcomeProcessed
}

// abort records the failure on the job and, when attempts remain, hands the
// job back to the pending pool for a fresh worker. If ownership was lost
// (conflict), the job is left strictly alone.
func (r *Runner) abort(ctx context.Context, counters *metrics.Counters, job *entity.Job, from entity.JobStatus, cause error) Outcome {
	counters.JobsFailed++

	if errors.Is(cause, repository.ErrConflict) || errors.Is(cause, repository.ErrNotFound) {
		log.Printf("[worker] worker_id=%s job_id=%s lost ownership: %v", r.workerID, job.ID, cause)
		return OutcomeFailed
	}

	msg := cause.Error()
	if err := r.store.CompareAndTransition(ctx, job.ID, from, entity.StatusFailed, entity.JobMutation{Error: &msg}); err != nil {
		log.Printf("[worker] worker_id=%s job_id=%s mark_failed error=%v", r.workerID, job.ID, err)
		return OutcomeFailed
	}
	log.Printf("[worker] worker_id=%s job_id=%s status=failed attempt=%d error=%s",
		r.workerID, job.ID, job.AttemptCount, msg)

	if job.AttemptCount < r.maxAttempts {
		zero := 0
		requeue := entity.JobMutation{ClearClaim: true, ClearError: true, Progress: &zero}
		if err := r.store.CompareAndTransition(ctx, job.ID, entity.StatusFailed, entity.StatusPending, requeue); err != nil {
			log.Printf("[worker] worker_id=%s job_id=%s requeue error=%v", r.workerID, job.ID, err)
		} else {
			log.Printf("[worker] worker_id=%s job_id=%s requeued attempt=%d max_attempts=%d",
				r.workerID, job.ID, job.AttemptCount, r.maxAttempts)
		}
	}
	return OutcomeFailed
}
