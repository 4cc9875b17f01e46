package ports

import (
	"context"
	"io"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

// TranscriptIngestor is the inbound contract for dialogue upload orchestration.
type TranscriptIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Transcript, error)
}

// TranscriptProcessor runs the offline path for one transcript: extract,
// sanitize, chunk, embed, index, persist.
type TranscriptProcessor interface {
	ProcessByID(ctx context.Context, transcriptID string) error
}

// TranscriptReader is the inbound read model for transcript state.
type TranscriptReader interface {
	GetByID(ctx context.Context, id string) (*domain.Transcript, error)
}

// FeatureEvaluator is the single synchronous entry point the UI invokes after
// the user triggers an analysis run.
type FeatureEvaluator interface {
	Evaluate(ctx context.Context, req domain.FeatureRequest) (*domain.AggregateReport, error)
}

// KnowledgeSearcher exposes raw grounding retrieval without generation, used
// by the MCP adapter.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, flow domain.FlowType, k int) (domain.RetrievedContext, error)
}
