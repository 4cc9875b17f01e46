package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
	"github.com/uxlab/synthetic-merchant/internal/core/ports"
)

// ProcessTranscriptUseCase runs the offline ingestion path for one transcript:
// extract text, scrub PII, chunk, embed, persist, index. A failure marks only
// that transcript failed; other queued transcripts proceed independently.
type ProcessTranscriptUseCase struct {
	repo      ports.TranscriptRepository
	chunkRepo ports.ChunkRepository
	extractor ports.TextExtractor
	sanitizer ports.Sanitizer
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.VectorIndex
}

func NewProcessTranscriptUseCase(
	repo ports.TranscriptRepository,
	chunkRepo ports.ChunkRepository,
	extractor ports.TextExtractor,
	sanitizer ports.Sanitizer,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
) *ProcessTranscriptUseCase {
	return &ProcessTranscriptUseCase{
		repo:      repo,
		chunkRepo: chunkRepo,
		extractor: extractor,
		sanitizer: sanitizer,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
	}
}

func (uc *ProcessTranscriptUseCase) ProcessByID(ctx context.Context, transcriptID string) error {
	if err := uc.repo.UpdateStatus(ctx, transcriptID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	count, err := uc.processPipeline(ctx, transcriptID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, transcriptID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetChunkCount(ctx, transcriptID, count); err != nil {
		return fmt.Errorf("save chunk count: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, transcriptID, domain.StatusIndexed, ""); err != nil {
		return fmt.Errorf("set status=indexed: %w", err)
	}
	return nil
}

func (uc *ProcessTranscriptUseCase) processPipeline(ctx context.Context, transcriptID string) (int, error) {
	t, err := uc.repo.GetByID(ctx, transcriptID)
	if err != nil {
		return 0, fmt.Errorf("fetch transcript by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("extract dialogue text: %w", err)
	}
	text = uc.sanitizer.Scrub(text)

	pieces, err := uc.chunker.Split(text)
	if err != nil {
		return 0, fmt.Errorf("chunk dialogue: %w", err)
	}

	vectors, err := uc.embedder.Embed(ctx, pieces)
	if err != nil {
		return 0, domain.WrapError(domain.ErrEmbedding, "embed chunks", err)
	}
	if len(vectors) != len(pieces) {
		return 0, domain.WrapError(
			domain.ErrEmbedding,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(pieces)),
		)
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			ID:           fmt.Sprintf("%s:%04d", t.ID, i),
			TranscriptID: t.ID,
			Ordinal:      i,
			Text:         piece,
		}
	}

	// Persist first: the durable store is the source of truth the index is
	// rebuilt from. Dimension mismatches are config corruption and must halt
	// before anything hits the index.
	if err := uc.chunkRepo.ReplaceForTranscript(ctx, t.ID, chunks, vectors); err != nil {
		return 0, fmt.Errorf("persist chunks: %w", err)
	}
	// Re-ingestion may produce fewer chunks than before; retire the old set so
	// no stale neighbor outlives its source.
	uc.index.DeleteTranscript(t.ID)
	for i := range chunks {
		if err := uc.index.Insert(chunks[i], vectors[i]); err != nil {
			if errors.Is(err, domain.ErrDimensionMismatch) {
				return 0, err
			}
			return 0, fmt.Errorf("index chunk %s: %w", chunks[i].ID, err)
		}
	}
	return len(chunks), nil
}

// RebuildIndex reloads every persisted (chunk, vector) tuple into the
// in-memory index. Called once at bootstrap before queries are served.
func RebuildIndex(ctx context.Context, chunkRepo ports.ChunkRepository, index ports.VectorIndex) (int, error) {
	loaded := 0
	err := chunkRepo.LoadAll(ctx, func(chunk domain.Chunk, vector []float32) error {
		if err := index.Insert(chunk, vector); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
		loaded++
		return nil
	})
	if err != nil {
		return loaded, fmt.Errorf("rebuild vector index: %w", err)
	}
	return loaded, nil
}
