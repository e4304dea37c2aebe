package postgresql

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables and indexes on startup if they are missing.
// Both binaries call it, so whichever comes up first wins.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const q = `
CREATE TABLE IF NOT EXISTS jobs (
    id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    company_name       TEXT NOT NULL,
    cin                TEXT NOT NULL,
    status             TEXT NOT NULL DEFAULT 'pending',
    claimed_by         TEXT NOT NULL DEFAULT '',
    progress           INT  NOT NULL DEFAULT 0,
    attempt_count      INT  NOT NULL DEFAULT 0,
    total_documents    INT  NOT NULL DEFAULT 0,
    uploaded_documents INT  NOT NULL DEFAULT 0,
    error              TEXT,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    claimed_at         TIMESTAMPTZ,
    completed_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS jobs_pending_created_idx
    ON jobs (created_at) WHERE status = 'pending';

CREATE INDEX IF NOT EXISTS jobs_claimed_at_idx
    ON jobs (claimed_at) WHERE claimed_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS documents (
    id         BIGSERIAL PRIMARY KEY,
    job_id     UUID NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
    number     INT  NOT NULL,
    file_name  TEXT NOT NULL,
    blob_url   TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS documents_job_idx ON documents (job_id, number);
`
	_, err := pool.Exec(ctx, q)
	return err
}
