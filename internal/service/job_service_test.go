package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"document-worker-service/internal/entity"
	"document-worker-service/internal/repository"
	"document-worker-service/internal/service"
)

type fakeRepo struct {
	createCalled    int
	lastCompanyName string
	lastCIN         string

	createID  uuid.UUID
	createErr error

	pending int64
}

func (r *fakeRepo) Create(ctx context.Context, companyName, cin string) (uuid.UUID, error) {
	r.createCalled++
	r.lastCompanyName = companyName
	r.lastCIN = cin
	if r.createErr != nil {
		return uuid.Nil, r.createErr
	}
	return r.createID, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeRepo) CountPending(ctx context.Context) (int64, error) {
	return r.pending, nil
}

func TestJobService_CreateJob_OK(t *testing.T) {
	ctx := context.Background()
	id := uuid.MustParse("66666666-6666-6666-6666-666666666666")

	repo := &fakeRepo{createID: id}
	svc := service.NewJobService(repo)

	got, err := svc.CreateJob(ctx, service.CreateJobRequest{
		CompanyName: "Acme Ltd",
		CIN:         "U12345MH2020PTC000001",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != id {
		t.Fatalf("expected id=%s, got %s", id, got)
	}
	if repo.lastCompanyName != "Acme Ltd" || repo.lastCIN != "U12345MH2020PTC000001" {
		t.Fatalf("spec not passed through: %q %q", repo.lastCompanyName, repo.lastCIN)
	}
}

func TestJobService_CreateJob_MissingCompanyName(t *testing.T) {
	repo := &fakeRepo{}
	svc := service.NewJobService(repo)

	_, err := svc.CreateJob(context.Background(), service.CreateJobRequest{CIN: "CIN1"})
	if !errors.Is(err, service.ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
	if repo.createCalled != 0 {
		t.Fatalf("rejected spec must not reach the store, create called %d times", repo.createCalled)
	}
}

func TestJobService_CreateJob_MissingCIN(t *testing.T) {
	repo := &fakeRepo{}
	svc := service.NewJobService(repo)

	_, err := svc.CreateJob(context.Background(), service.CreateJobRequest{CompanyName: "Acme Ltd", CIN: "   "})
	if !errors.Is(err, service.ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
	if repo.createCalled != 0 {
		t.Fatalf("rejected spec must not reach the store, create called %d times", repo.createCalled)
	}
}

func TestJobService_PendingCount(t *testing.T) {
	repo := &fakeRepo{pending: 7}
	svc := service.NewJobService(repo)

	n, err := svc.PendingCount(context.Background())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}
}
