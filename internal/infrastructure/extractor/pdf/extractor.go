// Package pdf extracts dialogue text from PDF transcript uploads.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

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

	// The pdf parser needs random access, so the upload is buffered in full.
	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read transcript file: %w", err)
	}

	doc, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrIngest, "parse pdf",
			fmt.Errorf("%s: %w", t.Filename, err))
	}

	plain, err := doc.GetPlainText()
	if err != nil {
		return "", domain.WrapError(domain.ErrIngest, "extract pdf text",
			fmt.Errorf("%s: %w", t.Filename, err))
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", fmt.Errorf("collect pdf text: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}
