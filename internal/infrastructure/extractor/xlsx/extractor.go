// Package xlsx extracts dialogue text from spreadsheet transcript exports.
// Support tooling commonly exports chat logs as one utterance per row.
package xlsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

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

	book, err := excelize.OpenReader(reader)
	if err != nil {
		return "", domain.WrapError(domain.ErrIngest, "parse xlsx",
			fmt.Errorf("%s: %w", t.Filename, err))
	}
	defer book.Close()

	var sb strings.Builder
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return "", domain.WrapError(domain.ErrIngest, "read xlsx sheet",
				fmt.Errorf("%s sheet %s: %w", t.Filename, sheet, err))
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
