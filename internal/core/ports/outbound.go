package ports

import (
	"context"
	"io"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

// TranscriptRepository persists transcript lifecycle state.
type TranscriptRepository interface {
	Create(ctx context.Context, t *domain.Transcript) error
	GetByID(ctx context.Context, id string) (*domain.Transcript, error)
	UpdateStatus(ctx context.Context, id string, status domain.TranscriptStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, count int) error
}

// ChunkRepository persists (chunk, vector) tuples losslessly so the in-memory
// index can be rebuilt after a restart. Replace semantics: re-ingesting a
// transcript retires its prior chunks.
type ChunkRepository interface {
	ReplaceForTranscript(ctx context.Context, transcriptID string, chunks []domain.Chunk, vectors [][]float32) error
	LoadAll(ctx context.Context, fn func(chunk domain.Chunk, vector []float32) error) error
	DeleteForTranscript(ctx context.Context, transcriptID string) error
}

// ObjectStorage stores raw uploaded dialogue files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes transcript ingestion events.
type MessageQueue interface {
	PublishTranscriptIngested(ctx context.Context, transcriptID string) error
	SubscribeTranscriptIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor pulls plain dialogue text out of a stored transcript file.
type TextExtractor interface {
	Extract(ctx context.Context, t *domain.Transcript) (string, error)
}

// Sanitizer scrubs PII from dialogue text before it is chunked and indexed.
type Sanitizer interface {
	Scrub(text string) string
}

// Chunker splits sanitized dialogue into bounded segments.
type Chunker interface {
	Split(text string) ([]string, error)
}

// Embedder maps text to fixed-dimension vectors. Batched for ingestion,
// single-call for query-time embedding.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex holds (chunk, vector) entries and answers nearest-neighbor
// queries. In-process and read-mostly: queries may run concurrently,
// insertion is exclusive.
type VectorIndex interface {
	Insert(chunk domain.Chunk, vector []float32) error
	Query(vector []float32, k int) ([]domain.ScoredChunk, error)
	DeleteTranscript(transcriptID string) int
	Len() int
}

// GenerationCapability invokes the externally hosted generative model with a
// composed prompt, requesting schema-conforming JSON output.
type GenerationCapability interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// PersonaRegistry is the immutable persona catalog loaded at process start.
type PersonaRegistry interface {
	Get(id string) (domain.Persona, bool)
	All() []domain.Persona
}

// PrincipleRegistry serves the UX principles that frame a generation request.
type PrincipleRegistry interface {
	ForFlow(flow domain.FlowType) []domain.UXPrinciple
}
