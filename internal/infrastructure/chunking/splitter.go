// Package chunking splits sanitized dialogue text into bounded segments for
// embedding. Splits land on sentence boundaries when possible; a single
// sentence longer than the bound is hard-truncated into pieces.
package chunking

import (
	"errors"
	"strings"
	"unicode"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

type Splitter struct {
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int
	// MaxDocumentSize caps accepted input length in runes; 0 disables the cap.
	MaxDocumentSize int
}

func NewSplitter(chunkSize, maxDocumentSize int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	return &Splitter{
		ChunkSize:       chunkSize,
		MaxDocumentSize: maxDocumentSize,
	}
}

// Split produces ordered segments whose concatenation reconstructs the input.
// Empty or oversized input fails with ErrIngest.
func (s *Splitter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrIngest, "split text", errors.New("empty document"))
	}
	runes := []rune(text)
	if s.MaxDocumentSize > 0 && len(runes) > s.MaxDocumentSize {
		return nil, domain.WrapError(domain.ErrIngest, "split text", errors.New("document exceeds maximum size"))
	}

	var out []string
	var current []rune
	for _, sentence := range splitSentences(runes) {
		if len(current)+len(sentence) <= s.ChunkSize {
			current = append(current, sentence...)
			continue
		}
		if len(current) > 0 {
			out = append(out, string(current))
			current = nil
		}
		// Sentence alone exceeds the bound: fall back to hard truncation.
		for len(sentence) > s.ChunkSize {
			out = append(out, string(sentence[:s.ChunkSize]))
			sentence = sentence[s.ChunkSize:]
		}
		current = append(current, sentence...)
	}
	if len(current) > 0 {
		out = append(out, string(current))
	}
	return out, nil
}

// splitSentences cuts after terminal punctuation followed by whitespace.
// Trailing whitespace stays attached to its sentence so concatenation is
// lossless.
func splitSentences(runes []rune) [][]rune {
	var sentences [][]rune
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && unicode.IsSpace(runes[end]) {
			end++
		}
		if end == i+1 && end < len(runes) {
			// Terminal rune not followed by whitespace (e.g. "3.5"): not a
			// sentence boundary.
			continue
		}
		sentences = append(sentences, runes[start:end])
		start = end
		i = end - 1
	}
	if start < len(runes) {
		sentences = append(sentences, runes[start:])
	}
	return sentences
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	default:
		return false
	}
}
