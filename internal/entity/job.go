package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusClaimed    JobStatus = "claimed"
	StatusProcessing JobStatus = "processing"
	StatusUploading  JobStatus = "uploading"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Active reports whether a worker currently owns the job.
func (s JobStatus) Active() bool {
	switch s {
	case StatusClaimed, StatusProcessing, StatusUploading:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further forward transition.
// failed is terminal only once retries are exhausted; that bound is enforced
// by the caller, not here.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted
}

var transitions = map[JobStatus][]JobStatus{
	StatusPending:    {StatusClaimed},
	StatusClaimed:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusUploading, StatusFailed},
	StatusUploading:  {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusPending},
}

// CanTransition reports whether from -> to is a legal status edge.
// A self-transition on an active status is allowed: that is how progress
// updates travel through the same atomic primitive as real transitions.
func CanTransition(from, to JobStatus) bool {
	if from == to {
		return from.Active()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Job struct {
	ID                uuid.UUID  `json:"id"`
	CompanyName       string     `json:"company_name"`
	CIN               string     `json:"cin"`
	Status            JobStatus  `json:"status"`
	ClaimedBy         string     `json:"claimed_by,omitempty"`
	Progress          int        `json:"progress"`
	AttemptCount      int        `json:"attempt_count"`
	TotalDocuments    int        `json:"total_documents"`
	UploadedDocuments int        `json:"uploaded_documents"`
	Error             *string    `json:"error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	ClaimedAt         *time.Time `json:"claimed_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// JobMutation is the set of field changes applied together with a status
// transition. Nil pointers leave the field untouched.
type JobMutation struct {
	ClaimedBy         *string
	ClaimedAt         *time.Time
	CompletedAt       *time.Time
	Progress          *int
	Error             *string
	TotalDocuments    *int
	UploadedDocuments *int
	IncrementAttempt  bool
	ClearClaim        bool
	ClearError        bool
}

// Apply mutates j in place. The status change itself is the store's job;
// Apply only covers the side fields.
func (m JobMutation) Apply(j *Job) {
	if m.IncrementAttempt {
		j.AttemptCount++
	}
	if m.ClaimedBy != nil {
		j.ClaimedBy = *m.ClaimedBy
	}
	if m.ClaimedAt != nil {
		t := *m.ClaimedAt
		j.ClaimedAt = &t
	}
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		j.CompletedAt = &t
	}
	if m.Progress != nil {
		j.Progress = *m.Progress
	}
	if m.Error != nil {
		e := *m.Error
		j.Error = &e
	}
	if m.TotalDocuments != nil {
		j.TotalDocuments = *m.TotalDocuments
	}
	if m.UploadedDocuments != nil {
		j.UploadedDocuments = *m.UploadedDocuments
	}
	if m.ClearClaim {
		j.ClaimedBy = ""
		j.ClaimedAt = nil
	}
	if m.ClearError {
		j.Error = nil
	}
}
