package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"document-worker-service/internal/entity"
)

// ErrInvalidSpec rejects a job-creation request with missing required fields.
// Nothing is written to the store in that case.
var ErrInvalidSpec = errors.New("invalid job spec")

// Store port used by the API (implementations: postgresql.JobRepository,
// memory.Store). The API reads and creates; it never mutates status after
// creation.
type JobRepository interface {
	Create(ctx context.Context, companyName, cin string) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	CountPending(ctx context.Context) (int64, error)
}

type JobService struct {
	repo JobRepository
}

func NewJobService(repo JobRepository) *JobService {
	return &JobService{repo: repo}
}

type CreateJobRequest struct {
	CompanyName string
	CIN         string
}

func (s *JobService) CreateJob(ctx context.Context, req CreateJobRequest) (uuid.UUID, error) {
	if strings.TrimSpace(req.CompanyName) == "" {
		return uuid.Nil, fmt.Errorf("%w: company_name is required", ErrInvalidSpec)
	}
	if strings.TrimSpace(req.CIN) == "" {
		return uuid.Nil, fmt.Errorf("%w: cin is required", ErrInvalidSpec)
	}
	return s.repo.Create(ctx, req.CompanyName, req.CIN)
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// PendingCount is the scaling signal: a pure count query polled by the
// external scaling controller; it mutates nothing.
func (s *JobService) PendingCount(ctx context.Context) (int64, error) {
	return s.repo.CountPending(ctx)
}
