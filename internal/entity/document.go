package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is the metadata row written for every uploaded document of a job.
type Document struct {
	ID        int64     `json:"id"`
	JobID     uuid.UUID `json:"job_id"`
	Number    int       `json:"number"`
	FileName  string    `json:"file_name"`
	BlobURL   string    `json:"blob_url"`
	CreatedAt time.Time `json:"created_at"`
}
