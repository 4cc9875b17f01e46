package domain

// Chunk is an immutable bounded segment of ingested dialogue text. Chunks are
// created once during ingestion and retired only by re-ingesting the source
// transcript.
type Chunk struct {
	ID           string   `json:"id"`
	TranscriptID string   `json:"transcript_id"`
	Ordinal      int      `json:"ordinal"`
	Text         string   `json:"text"`
	Topics       []string `json:"topics,omitempty"`
}

// ScoredChunk pairs a chunk with its cosine similarity to a query vector.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// RetrievedContext is the ordered grounding material for one feature request:
// descending score, ties broken by chunk id. Grounded is false when the index
// held nothing to retrieve (or retrieval was skipped by fallback policy).
type RetrievedContext struct {
	Chunks   []ScoredChunk `json:"chunks"`
	Grounded bool          `json:"grounded"`
}
