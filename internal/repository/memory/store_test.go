package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"document-worker-service/internal/entity"
	"document-worker-service/internal/repository"
	"document-worker-service/internal/repository/memory"
)

func TestStore_CreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	id, err := store.Create(ctx, "Acme Ltd", "U12345MH2020PTC000001")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	job, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.ID != id {
		t.Fatalf("expected id %s, got %s", id, job.ID)
	}
	if job.Status != entity.StatusPending {
		t.Fatalf("expected initial status pending, got %s", job.Status)
	}
	if job.AttemptCount != 0 || job.ClaimedBy != "" || job.Progress != 0 {
		t.Fatalf("expected zeroed claim fields, got %+v", job)
	}
}

func TestStore_GetUnknownID(t *testing.T) {
	store := memory.NewStore()

	_, err := store.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListPendingOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	first, _ := store.Create(ctx, "First", "CIN1")
	second, _ := store.Create(ctx, "Second", "CIN2")
	third, _ := store.Create(ctx, "Third", "CIN3")

	jobs, err := store.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 pending jobs, got %d", len(jobs))
	}
	if jobs[0].ID != first || jobs[1].ID != second || jobs[2].ID != third {
		t.Fatalf("expected creation order, got %v %v %v", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}
}

func TestStore_CompareAndTransition_ExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	id, _ := store.Create(ctx, "Acme Ltd", "CIN1")

	const racers = 32
	var wg sync.WaitGroup
	winners := make([]string, 0, 1)
	var mu sync.Mutex

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			who := string(rune('A' + n%26))
			now := time.Now().UTC()
			err := store.CompareAndTransition(ctx, id, entity.StatusPending, entity.StatusClaimed, entity.JobMutation{
				ClaimedBy:        &who,
				ClaimedAt:        &now,
				IncrementAttempt: true,
			})
			if err == nil {
				mu.Lock()
				winners = append(winners, who)
				mu.Unlock()
			} else if !errors.Is(err, repository.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", len(winners))
	}
	job, _ := store.GetByID(ctx, id)
	if job.Status != entity.StatusClaimed {
		t.Fatalf("expected status claimed, got %s", job.Status)
	}
	if job.ClaimedBy != winners[0] {
		t.Fatalf("claimed_by=%q does not match winner %q", job.ClaimedBy, winners[0])
	}
	if job.AttemptCount != 1 {
		t.Fatalf("expected attempt_count=1 after single successful claim, got %d", job.AttemptCount)
	}
}

func TestStore_CompareAndTransition_RejectsIllegalEdge(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	id, _ := store.Create(ctx, "Acme Ltd", "CIN1")

	err := store.CompareAndTransition(ctx, id, entity.StatusPending, entity.StatusCompleted, entity.JobMutation{})
	if err == nil {
		t.Fatal("expected illegal transition error")
	}
}

func TestStore_PendingCountDropsAfterClaim(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	id, _ := store.Create(ctx, "Acme Ltd", "CIN1")
	if _, err := store.Create(ctx, "Other Ltd", "CIN2"); err != nil {
		t.Fatalf("create: %v", err)
	}

	before, _ := store.CountPending(ctx)

	who := "worker-1"
	now := time.Now().UTC()
	if err := store.CompareAndTransition(ctx, id, entity.StatusPending, entity.StatusClaimed, entity.JobMutation{
		ClaimedBy: &who, ClaimedAt: &now, IncrementAttempt: true,
	}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	after, _ := store.CountPending(ctx)
	if after != before-1 {
		t.Fatalf("expected pending count %d, got %d", before-1, after)
	}
}

func TestStore_ReclaimStale(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	id, _ := store.Create(ctx, "Acme Ltd", "CIN1")

	who := "worker-1"
	stale := time.Now().UTC().Add(-20 * time.Minute)
	if err := store.CompareAndTransition(ctx, id, entity.StatusPending, entity.StatusClaimed, entity.JobMutation{
		ClaimedBy: &who, ClaimedAt: &stale, IncrementAttempt: true,
	}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	n, err := store.ReclaimStale(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reclaimed job, got %d", n)
	}

	job, _ := store.GetByID(ctx, id)
	if job.Status != entity.StatusPending || job.ClaimedBy != "" || job.ClaimedAt != nil {
		t.Fatalf("expected clean pending job after reclaim, got %+v", job)
	}
	if job.AttemptCount != 1 {
		t.Fatalf("reclaim must keep attempt_count, got %d", job.AttemptCount)
	}

	// a fresh claim is not touched
	now := time.Now().UTC()
	_ = store.CompareAndTransition(ctx, id, entity.StatusPending, entity.StatusClaimed, entity.JobMutation{
		ClaimedBy: &who, ClaimedAt: &now, IncrementAttempt: true,
	})
	n, _ = store.ReclaimStale(ctx, 10*time.Minute)
	if n != 0 {
		t.Fatalf("expected no reclaim of a live claim, got %d", n)
	}
}
