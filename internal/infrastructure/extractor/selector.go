// Package extractor routes a stored transcript to the text extractor that
// understands its format.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
	"github.com/uxlab/synthetic-merchant/internal/core/ports"
)

// Selector picks an extractor by MIME type, falling back to the filename
// extension when the upload arrived with a generic content type.
type Selector struct {
	byMime      map[string]ports.TextExtractor
	byExtension map[string]ports.TextExtractor
	fallback    ports.TextExtractor
}

func NewSelector(plain, pdf, xlsx ports.TextExtractor) *Selector {
	return &Selector{
		byMime: map[string]ports.TextExtractor{
			"text/plain":      plain,
			"text/markdown":   plain,
			"application/pdf": pdf,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": xlsx,
		},
		byExtension: map[string]ports.TextExtractor{
			".txt":  plain,
			".md":   plain,
			".pdf":  pdf,
			".xlsx": xlsx,
		},
		fallback: plain,
	}
}

func (s *Selector) Extract(ctx context.Context, t *domain.Transcript) (string, error) {
	ext := s.pick(t)
	if ext == nil {
		return "", domain.WrapError(domain.ErrIngest, "select extractor",
			fmt.Errorf("unsupported format %q for %s", t.MimeType, t.Filename))
	}
	return ext.Extract(ctx, t)
}

func (s *Selector) pick(t *domain.Transcript) ports.TextExtractor {
	mime := strings.ToLower(strings.TrimSpace(t.MimeType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if ext, ok := s.byMime[mime]; ok {
		return ext
	}
	if ext, ok := s.byExtension[strings.ToLower(filepath.Ext(t.Filename))]; ok {
		return ext
	}
	if mime == "" || mime == "application/octet-stream" {
		return s.fallback
	}
	return nil
}
