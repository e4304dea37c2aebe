package worker

import (
	"context"
	"fmt"
	"math/rand"
	"path"
	"time"

	"document-worker-service/internal/entity"
	"document-worker-service/internal/storage"
)

// DocumentWriter records per-document metadata rows.
type DocumentWriter interface {
	InsertDocument(ctx context.Context, doc entity.Document) error
}

// BlobDocument is one transformed document waiting for upload.
type BlobDocument struct {
	Number  int
	Name    string
	Content []byte
}

type ProcessorConfig struct {
	// MinDocuments/MaxDocuments bound the simulated batch size when the job
	// does not dictate one.
	MinDocuments int
	MaxDocuments int
	// StepDelay simulates the per-document fetch; zero in tests.
	StepDelay time.Duration
}

// Processor holds the document transformation and upload stages. The actual
// transformation is simulated; the interesting parts are the store writes and
// the progress reporting around it.
type Processor struct {
	docs     DocumentWriter
	uploader storage.Uploader
	cfg      ProcessorConfig
}

func NewProcessor(docs DocumentWriter, uploader storage.Uploader, cfg ProcessorConfig) *Processor {
	if cfg.MinDocuments <= 0 {
		cfg.MinDocuments = 10
	}
	if cfg.MaxDocuments < cfg.MinDocuments {
		cfg.MaxDocuments = cfg.MinDocuments
	}
	return &Processor{docs: docs, uploader: uploader, cfg: cfg}
}

// Plan decides how many documents the job covers.
func (p *Processor) Plan(job *entity.Job) int {
	if job.TotalDocuments > 0 {
		return job.TotalDocuments
	}
	if p.cfg.MaxDocuments == p.cfg.MinDocuments {
		return p.cfg.MinDocuments
	}
	return p.cfg.MinDocuments + rand.Intn(p.cfg.MaxDocuments-p.cfg.MinDocuments+1)
}

// Transform produces the document batch, reporting after each one. A non-nil
// error from report aborts the stage.
func (p *Processor) Transform(ctx context.Context, job *entity.Job, total int, report func(done int) error) ([]BlobDocument, error) {
	docs := make([]BlobDocument, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.cfg.StepDelay > 0 {
			time.Sleep(p.cfg.StepDelay)
		}
		content := fmt.Sprintf("Document %d for %s (%s)\n", i, job.CompanyName, job.CIN)
		docs = append(docs, BlobDocument{
			Number:  i,
			Name:    fmt.Sprintf("jobs/%s/document_%d.txt", job.ID, i),
			Content: []byte(content),
		})
		if err := report(i); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// Upload pushes each document through the blob boundary and records its
// metadata row, reporting after each success. It returns how many documents
// made it, also on error.
func (p *Processor) Upload(ctx context.Context, job *entity.Job, docs []BlobDocument, report func(done int) error) (int, error) {
	uploaded := 0
	for _, doc := range docs {
		url, err := p.uploader.Upload(ctx, doc.Name, doc.Content)
		if err != nil {
			return uploaded, fmt.Errorf("upload document %d: %w", doc.Number, err)
		}
		if err := p.docs.InsertDocument(ctx, entity.Document{
			JobID:    job.ID,
			Number:   doc.Number,
			FileName: path.Base(doc.Name),
			BlobURL:  url,
		}); err != nil {
			return uploaded, fmt.Errorf("record document %d: %w", doc.Number, err)
		}
		uploaded++
		if err := report(uploaded); err != nil {
			return uploaded, err
		}
	}
	return uploaded, nil
}
