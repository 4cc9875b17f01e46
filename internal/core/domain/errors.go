package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrIngest             = errors.New("ingest failed")
	ErrEmbedding          = errors.New("embedding capability failed")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrGenerationParse    = errors.New("generation output not parseable")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
