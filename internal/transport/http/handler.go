package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"document-worker-service/internal/entity"
	"document-worker-service/internal/repository"
	"document-worker-service/internal/service"
)

// DocumentLister reads the per-document metadata rows a worker recorded.
type DocumentLister interface {
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]entity.Document, error)
}

type Handler struct {
	jobSvc *service.JobService
	docs   DocumentLister
}

func NewHandler(jobSvc *service.JobService, docs DocumentLister) *Handler {
	return &Handler{jobSvc: jobSvc, docs: docs}
}

type createJobDTO struct {
	CompanyName string `json:"company_name"`
	CIN         string `json:"cin"`
}

type createJobResp struct {
	ID string `json:"id"`
}

type jobResp struct {
	ID                string           `json:"id"`
	CompanyName       string           `json:"company_name"`
	CIN               string           `json:"cin"`
	Status            entity.JobStatus `json:"status"`
	ClaimedBy         string           `json:"claimed_by,omitempty"`
	Progress          int              `json:"progress"`
	AttemptCount      int              `json:"attempt_count"`
	TotalDocuments    int              `json:"total_documents"`
	UploadedDocuments int              `json:"uploaded_documents"`
	Error             *string          `json:"error,omitempty"`
	CreatedAt         string           `json:"created_at"`
	ClaimedAt         string           `json:"claimed_at,omitempty"`
	CompletedAt       string           `json:"completed_at,omitempty"`
}

type queueStatsResp struct {
	Pending int64 `json:"pending"`
}

// CreateJob godoc
// @Summary Create a document download job
// @Description Registers a pending job; workers are scaled up against the pending count and claim jobs on their own.
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body createJobDTO true "job spec (company_name and cin are required)"
// @Success 201 {object} createJobResp
// @Failure 400 {object} apiError
// @Failure 503 {object} apiError
// @Router /jobs [post]
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var dto createJobDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	id, err := h.jobSvc.CreateJob(r.Context(), service.CreateJobRequest{
		CompanyName: dto.CompanyName,
		CIN:         dto.CIN,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidSpec) {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		writeErr(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}

	writeJSON(w, http.StatusCreated, createJobResp{ID: id.String()})
}

// GetJob godoc
// @Summary Get job by id
// @Tags jobs
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} jobResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	job, err := h.jobSvc.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, toJobResp(job))
}

// ListJobDocuments godoc
// @Summary List uploaded documents of a job
// @Tags jobs
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {array} entity.Document
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /jobs/{id}/documents [get]
func (h *Handler) ListJobDocuments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	// 404 for unknown jobs, empty list for known jobs without documents
	if _, err := h.jobSvc.GetJob(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}

	docs, err := h.docs.ListByJob(r.Context(), id)
	if err != nil {
		writeErr(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	if docs == nil {
		docs = []entity.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// QueueStats godoc
// @Summary Current queue depth
// @Description Pending-job count polled by the worker-pool scaling controller. Read-only.
// @Tags queue
// @Produce json
// @Success 200 {object} queueStatsResp
// @Failure 503 {object} apiError
// @Router /queue/stats [get]
func (h *Handler) QueueStats(w http.ResponseWriter, r *http.Request) {
	pending, err := h.jobSvc.PendingCount(r.Context())
	if err != nil {
		writeErr(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, queueStatsResp{Pending: pending})
}

func toJobResp(j *entity.Job) jobResp {
	resp := jobResp{
		ID:                j.ID.String(),
		CompanyName:       j.CompanyName,
		CIN:               j.CIN,
		Status:            j.Status,
		ClaimedBy:         j.ClaimedBy,
		Progress:          j.Progress,
		AttemptCount:      j.AttemptCount,
		TotalDocuments:    j.TotalDocuments,
		UploadedDocuments: j.UploadedDocuments,
		Error:             j.Error,
		CreatedAt:         j.CreatedAt.Format(time.RFC3339),
	}
	if j.ClaimedAt != nil {
		resp.ClaimedAt = j.ClaimedAt.Format(time.RFC3339)
	}
	if j.CompletedAt != nil {
		resp.CompletedAt = j.CompletedAt.Format(time.RFC3339)
	}
	return resp
}
