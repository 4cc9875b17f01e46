// Package vector provides an in-process exact-search index over chunk
// embeddings. Brute-force cosine scan is deliberate: at the catalog sizes
// this system ingests (thousands of chunks) a linear scan stays well inside
// interactive latency, and the contract leaves room to swap in an
// approximate structure later without touching callers.
package vector

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

type entry struct {
	chunk  domain.Chunk
	vector []float32
	norm   float64
}

// Index is safe for concurrent use: queries share a read lock, insertion
// takes the write lock so no query ever observes a half-written entry.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]*entry
}

func NewIndex() *Index {
	return &Index{entries: make(map[string]*entry)}
}

// Insert adds or replaces the entry for chunk.ID. The first insert pins the
// index-wide dimension; any later mismatch is a config/programming error and
// fails with ErrDimensionMismatch.
func (idx *Index) Insert(chunk domain.Chunk, vector []float32) error {
	if len(vector) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "index insert", fmt.Errorf("empty vector for chunk %s", chunk.ID))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension == 0 {
		idx.dimension = len(vector)
	} else if len(vector) != idx.dimension {
		return domain.WrapError(domain.ErrDimensionMismatch, "index insert",
			fmt.Errorf("chunk %s has dimension %d, index has %d", chunk.ID, len(vector), idx.dimension))
	}

	idx.entries[chunk.ID] = &entry{
		chunk:  chunk,
		vector: vector,
		norm:   norm(vector),
	}
	return nil
}

// Query returns up to k nearest neighbors by cosine similarity, descending
// score, ties broken by chunk id so results are deterministic.
func (idx *Index) Query(vector []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.entries) == 0 {
		return nil, nil
	}
	if len(vector) != idx.dimension {
		return nil, domain.WrapError(domain.ErrDimensionMismatch, "index query",
			fmt.Errorf("query has dimension %d, index has %d", len(vector), idx.dimension))
	}

	queryNorm := norm(vector)
	scored := make([]domain.ScoredChunk, 0, len(idx.entries))
	for _, e := range idx.entries {
		scored = append(scored, domain.ScoredChunk{
			Chunk: e.chunk,
			Score: cosine(vector, queryNorm, e.vector, e.norm),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// DeleteTranscript drops every entry belonging to a transcript. Used when a
// source document is re-ingested.
func (idx *Index) DeleteTranscript(transcriptID string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	removed := 0
	for id, e := range idx.entries {
		if e.chunk.TranscriptID == transcriptID {
			delete(idx.entries, id)
			removed++
		}
	}
	return removed
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
