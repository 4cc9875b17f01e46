// Package plaintext extracts dialogue text from UTF-8 transcript uploads.
package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
	"github.com/uxlab/synthetic-merchant/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, t *domain.Transcript) (string, error) {
	reader, err := e.storage.Open(ctx, t.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open transcript file: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read transcript file: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrIngest, "extract plaintext",
			fmt.Errorf("%s is not valid UTF-8", t.Filename))
	}

	return strings.TrimSpace(string(raw)), nil
}
