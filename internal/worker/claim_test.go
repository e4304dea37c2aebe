package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"document-worker-service/internal/entity"
	"document-worker-service/internal/repository"
	"document-worker-service/internal/repository/memory"
	"document-worker-service/internal/worker"
)

func TestClaimer_TwoWorkersOneJob(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	id, _ := store.Create(ctx, "Acme Ltd", "CIN1")

	w1 := worker.NewClaimer(store, "worker-1", 10)
	w2 := worker.NewClaimer(store, "worker-2", 10)

	type result struct {
		job *entity.Job
		err error
	}
	results := make(chan result, 2)
	var start sync.WaitGroup
	start.Add(1)
	for _, c := range []*worker.Claimer{w1, w2} {
		go func(c *worker.Claimer) {
			start.Wait()
			job, err := c.Claim(ctx)
			results <- result{job, err}
		}(c)
	}
	start.Done()

	var wins, noJob int
	var winner *entity.Job
	for i := 0; i < 2; i++ {
		res := <-results
		switch {
		case res.err == nil:
			wins++
			winner = res.job
		case errors.Is(res.err, worker.ErrNoJob):
			noJob++
		default:
			t.Fatalf("unexpected claim error: %v", res.err)
		}
	}

	if wins != 1 || noJob != 1 {
		t.Fatalf("expected exactly one winner and one no-job, got wins=%d no_job=%d", wins, noJob)
	}
	if winner.ID != id || winner.Status != entity.StatusClaimed {
		t.Fatalf("bad claimed job: %+v", winner)
	}

	stored, _ := store.GetByID(ctx, id)
	if stored.ClaimedBy != winner.ClaimedBy {
		t.Fatalf("store claimed_by=%q does not match winner %q", stored.ClaimedBy, winner.ClaimedBy)
	}
	if stored.AttemptCount != 1 {
		t.Fatalf("expected attempt_count=1, got %d", stored.AttemptCount)
	}
}

// conflictingStore loses the race for one specific job, as if another worker
// claimed it between the list and the compare-and-transition.
type conflictingStore struct {
	*memory.Store
	conflictID uuid.UUID
}

func (s *conflictingStore) CompareAndTransition(ctx context.Context, id uuid.UUID, expected, next entity.JobStatus, mut entity.JobMutation) error {
	if id == s.conflictID && expected == entity.StatusPending {
		return repository.ErrConflict
	}
	return s.Store.CompareAndTransition(ctx, id, expected, next, mut)
}

func TestClaimer_MovesToNextCandidateOnConflict(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()

	lost, _ := mem.Create(ctx, "First", "CIN1")
	second, _ := mem.Create(ctx, "Second", "CIN2")

	claimer := worker.NewClaimer(&conflictingStore{Store: mem, conflictID: lost}, "worker-1", 10)

	job, err := claimer.Claim(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if job.ID != second {
		t.Fatalf("expected the next candidate %s, got %s", second, job.ID)
	}
}

func TestClaimer_EmptyQueue(t *testing.T) {
	claimer := worker.NewClaimer(memory.NewStore(), "worker-1", 10)

	_, err := claimer.Claim(context.Background())
	if !errors.Is(err, worker.ErrNoJob) {
		t.Fatalf("expected ErrNoJob, got %v", err)
	}
}

func TestClaimer_ClaimResetsRetryState(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	id, _ := store.Create(ctx, "Acme Ltd", "CIN1")

	// simulate a prior failed attempt that went back to pending
	who := "worker-0"
	msg := "boom"
	nowMut := entity.JobMutation{ClaimedBy: &who, IncrementAttempt: true}
	if err := store.CompareAndTransition(ctx, id, entity.StatusPending, entity.StatusClaimed, nowMut); err != nil {
		t.Fatalf("setup claim: %v", err)
	}
	if err := store.CompareAndTransition(ctx, id, entity.StatusClaimed, entity.StatusFailed, entity.JobMutation{Error: &msg}); err != nil {
		t.Fatalf("setup fail: %v", err)
	}
	if err := store.CompareAndTransition(ctx, id, entity.StatusFailed, entity.StatusPending, entity.JobMutation{ClearClaim: true}); err != nil {
		t.Fatalf("setup requeue: %v", err)
	}

	claimer := worker.NewClaimer(store, "worker-1", 10)
	job, err := claimer.Claim(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if job.AttemptCount != 2 {
		t.Fatalf("expected attempt_count=2 on re-claim, got %d", job.AttemptCount)
	}
	if job.Progress != 0 {
		t.Fatalf("expected progress reset on re-claim, got %d", job.Progress)
	}
	if job.Error != nil {
		t.Fatalf("expected error cleared on re-claim, got %q", *job.Error)
	}
	if job.ClaimedBy != "worker-1" {
		t.Fatalf("expected claimed_by=worker-1, got %q", job.ClaimedBy)
	}
}
