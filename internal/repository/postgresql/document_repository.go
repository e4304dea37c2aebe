package postgresql

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"document-worker-service/internal/entity"
)

type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

func (r *DocumentRepository) InsertDocument(ctx context.Context, doc entity.Document) error {
	const q = `
INSERT INTO documents (job_id, number, file_name, blob_url)
VALUES ($1, $2, $3, $4);
`
	_, err := r.pool.Exec(ctx, q, doc.JobID, doc.Number, doc.FileName, doc.BlobURL)
	return err
}

func (r *DocumentRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]entity.Document, error) {
	const q = `
SELECT id, job_id, number, file_name, blob_url, created_at
FROM documents
WHERE job_id = $1
ORDER BY number ASC;
`
	rows, err := r.pool.Query(ctx, q, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []entity.Document
	for rows.Next() {
		var d entity.Document
		if err := rows.Scan(&d.ID, &d.JobID, &d.Number, &d.FileName, &d.BlobURL, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
