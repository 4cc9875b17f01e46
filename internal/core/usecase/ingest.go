package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
	"github.com/uxlab/synthetic-merchant/internal/core/ports"
)

type IngestTranscriptUseCase struct {
	repo    ports.TranscriptRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestTranscriptUseCase(
	repo ports.TranscriptRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestTranscriptUseCase {
	return &IngestTranscriptUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Upload stores the raw dialogue file, records transcript metadata, and
// publishes an ingestion event for the worker. Processing is asynchronous;
// callers poll transcript status.
func (uc *IngestTranscriptUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Transcript, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	t := &domain.Transcript{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create transcript metadata: %w", err)
	}

	if err := uc.queue.PublishTranscriptIngested(ctx, t.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return t, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "transcript.bin"
	}
	return base
}
