package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

type TranscriptRepository struct {
	db *sql.DB
}

func NewTranscriptRepository(db *sql.DB) *TranscriptRepository {
	return &TranscriptRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *TranscriptRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS transcripts (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	transcript_id TEXT NOT NULL REFERENCES transcripts(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	text TEXT NOT NULL,
	topics JSONB NOT NULL DEFAULT '[]'::jsonb,
	embedding BYTEA NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcripts_status ON transcripts(status);
CREATE INDEX IF NOT EXISTS idx_chunks_transcript ON chunks(transcript_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *TranscriptRepository) Create(ctx context.Context, t *domain.Transcript) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO transcripts (
	id, filename, mime_type, storage_path, status, chunk_count, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		t.ID, t.Filename, t.MimeType, t.StoragePath, string(t.Status), t.ChunkCount, t.Error, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

func (r *TranscriptRepository) GetByID(ctx context.Context, id string) (*domain.Transcript, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, status, chunk_count, error_message, created_at, updated_at
FROM transcripts
WHERE id = $1
`, id)

	var t domain.Transcript
	var status string

	err := row.Scan(
		&t.ID, &t.Filename, &t.MimeType, &t.StoragePath, &status, &t.ChunkCount, &t.Error, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTranscriptNotFound, "get transcript", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	t.Status = domain.TranscriptStatus(status)
	return &t, nil
}

func (r *TranscriptRepository) UpdateStatus(ctx context.Context, id string, status domain.TranscriptStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE transcripts
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update transcript status: %w", err)
	}
	return requireRow(res, "update transcript status", id)
}

func (r *TranscriptRepository) SetChunkCount(ctx context.Context, id string, count int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE transcripts
SET chunk_count = $2, updated_at = $3
WHERE id = $1
`, id, count, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set chunk count: %w", err)
	}
	return requireRow(res, "set chunk count", id)
}

func requireRow(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrTranscriptNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}
