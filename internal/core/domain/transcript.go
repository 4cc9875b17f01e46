package domain

import "time"

type TranscriptStatus string

const (
	StatusUploaded   TranscriptStatus = "uploaded"
	StatusProcessing TranscriptStatus = "processing"
	StatusIndexed    TranscriptStatus = "indexed"
	StatusFailed     TranscriptStatus = "failed"
)

// Transcript is an uploaded merchant dialogue document moving through the
// ingestion pipeline. The raw file lives in object storage; only metadata
// and lifecycle state are kept here.
type Transcript struct {
	ID          string           `json:"id"`
	Filename    string           `json:"filename"`
	MimeType    string           `json:"mime_type"`
	StoragePath string           `json:"storage_path"`
	Status      TranscriptStatus `json:"status"`
	ChunkCount  int              `json:"chunk_count"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
