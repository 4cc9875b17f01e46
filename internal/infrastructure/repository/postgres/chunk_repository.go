package postgres

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

// ChunkRepository is the durable side of the vector index: (chunk, vector)
// tuples survive restarts here and the in-memory index is rebuilt from this
// table at bootstrap.
type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// ReplaceForTranscript atomically retires a transcript's prior chunks and
// writes the new set. Re-ingestion therefore never leaves stale neighbors.
func (r *ChunkRepository) ReplaceForTranscript(
	ctx context.Context,
	transcriptID string,
	chunks []domain.Chunk,
	vectors [][]float32,
) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE transcript_id = $1`, transcriptID); err != nil {
		return fmt.Errorf("delete prior chunks: %w", err)
	}

	for i, chunk := range chunks {
		topicsJSON, err := json.Marshal(emptyIfNil(chunk.Topics))
		if err != nil {
			return fmt.Errorf("marshal topics: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO chunks (id, transcript_id, ordinal, text, topics, embedding)
VALUES ($1,$2,$3,$4,$5,$6)
`, chunk.ID, chunk.TranscriptID, chunk.Ordinal, chunk.Text, topicsJSON, encodeVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

// LoadAll streams every persisted (chunk, vector) tuple in chunk-id order.
func (r *ChunkRepository) LoadAll(ctx context.Context, fn func(chunk domain.Chunk, vector []float32) error) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, transcript_id, ordinal, text, topics, embedding
FROM chunks
ORDER BY id
`)
	if err != nil {
		return fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunk domain.Chunk
		var topicsRaw, embeddingRaw []byte
		if err := rows.Scan(&chunk.ID, &chunk.TranscriptID, &chunk.Ordinal, &chunk.Text, &topicsRaw, &embeddingRaw); err != nil {
			return fmt.Errorf("scan chunk: %w", err)
		}
		if err := json.Unmarshal(topicsRaw, &chunk.Topics); err != nil {
			return fmt.Errorf("unmarshal topics: %w", err)
		}
		vector, err := decodeVector(embeddingRaw)
		if err != nil {
			return fmt.Errorf("decode embedding for %s: %w", chunk.ID, err)
		}
		if err := fn(chunk, vector); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *ChunkRepository) DeleteForTranscript(ctx context.Context, transcriptID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chunks WHERE transcript_id = $1`, transcriptID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// encodeVector packs float32 components little-endian. Lossless: decodeVector
// restores bit-identical values.
func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(x))
	}
	return out
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
