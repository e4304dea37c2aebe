// Package memory is an in-process job store with the same contract and error
// semantics as the postgresql implementation. It backs local runs
// (STORE_DRIVER=memory) and the concurrency tests, where the claim races need
// a real shared store rather than a stub.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"document-worker-service/internal/entity"
	"document-worker-service/internal/repository"
)

type Store struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.Job
	seq  map[uuid.UUID]int64
	docs []entity.Document

	nextSeq   int64
	nextDocID int64
}

func NewStore() *Store {
	return &Store{
		jobs: make(map[uuid.UUID]*entity.Job),
		seq:  make(map[uuid.UUID]int64),
	}
}

func (s *Store) Create(ctx context.Context, companyName, cin string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.nextSeq++
	s.seq[id] = s.nextSeq
	s.jobs[id] = &entity.Job{
		ID:          id,
		CompanyName: companyName,
		CIN:         cin,
		Status:      entity.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	return id, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *Store) ListPending(ctx context.Context, limit int) ([]entity.Job, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*entity.Job
	for _, job := range s.jobs {
		if job.Status == entity.StatusPending {
			pending = append(pending, job)
		}
	}
	// oldest first; creation sequence breaks same-timestamp ties
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return s.seq[pending[i].ID] < s.seq[pending[j].ID]
	})

	if len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]entity.Job, 0, len(pending))
	for _, job := range pending {
		out = append(out, *job)
	}
	return out, nil
}

func (s *Store) CountPending(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, job := range s.jobs {
		if job.Status == entity.StatusPending {
			n++
		}
	}
	return n, nil
}

// CompareAndTransition holds the store lock for the whole check-and-apply, so
// concurrent callers on the same expected status see exactly one winner.
func (s *Store) CompareAndTransition(ctx context.Context, id uuid.UUID, expected, next entity.JobStatus, mut entity.JobMutation) error {
	if !entity.CanTransition(expected, next) {
		return fmt.Errorf("illegal transition %s -> %s", expected, next)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if job.Status != expected {
		return repository.ErrConflict
	}

	cp := *job
	cp.Status = next
	mut.Apply(&cp)
	s.jobs[id] = &cp
	return nil
}

func (s *Store) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var reclaimed int64
	for id, job := range s.jobs {
		if !job.Status.Active() || job.ClaimedAt == nil || !job.ClaimedAt.Before(cutoff) {
			continue
		}
		cp := *job
		cp.Status = entity.StatusPending
		cp.ClaimedBy = ""
		cp.ClaimedAt = nil
		cp.Progress = 0
		s.jobs[id] = &cp
		reclaimed++
	}
	return reclaimed, nil
}

func (s *Store) InsertDocument(ctx context.Context, doc entity.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextDocID++
	doc.ID = s.nextDocID
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	s.docs = append(s.docs, doc)
	return nil
}

func (s *Store) ListByJob(ctx context.Context, jobID uuid.UUID) ([]entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entity.Document
	for _, d := range s.docs {
		if d.JobID == jobID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
