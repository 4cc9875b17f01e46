package vector

import (
	"testing"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

func mustInsert(t *testing.T, idx *Index, id, transcriptID string, vector []float32) {
	t.Helper()
	if err := idx.Insert(domain.Chunk{ID: id, TranscriptID: transcriptID}, vector); err != nil {
		t.Fatalf("Insert(%s) error = %v", id, err)
	}
}

func TestIndexSelfRetrieval(t *testing.T) {
	idx := NewIndex()
	mustInsert(t, idx, "tr-1:0000", "tr-1", []float32{1, 0, 0})
	mustInsert(t, idx, "tr-1:0001", "tr-1", []float32{0, 1, 0})
	mustInsert(t, idx, "tr-2:0000", "tr-2", []float32{0, 0, 1})

	got, err := idx.Query([]float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Chunk.ID != "tr-1:0001" || got[0].Score < 0.999 {
		t.Fatalf("expected exact match first, got %+v", got[0])
	}
	if got[1].Score >= got[0].Score {
		t.Fatalf("results not in descending score order: %+v", got)
	}
}

func TestIndexTieBreaksByChunkID(t *testing.T) {
	idx := NewIndex()
	// Same direction, different magnitude: identical cosine score.
	mustInsert(t, idx, "tr-2:0000", "tr-2", []float32{2, 0})
	mustInsert(t, idx, "tr-1:0000", "tr-1", []float32{1, 0})

	got, err := idx.Query([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got[0].Chunk.ID != "tr-1:0000" || got[1].Chunk.ID != "tr-2:0000" {
		t.Fatalf("expected lexicographic tie-break, got %+v", got)
	}
}

func TestIndexReinsertReplaces(t *testing.T) {
	idx := NewIndex()
	mustInsert(t, idx, "tr-1:0000", "tr-1", []float32{1, 0})
	mustInsert(t, idx, "tr-1:0000", "tr-1", []float32{0, 1})

	if idx.Len() != 1 {
		t.Fatalf("expected 1 entry after reinsert, got %d", idx.Len())
	}
	got, err := idx.Query([]float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got[0].Score < 0.999 {
		t.Fatalf("expected the replacement vector to win, got %+v", got[0])
	}
}

func TestIndexDimensionPinnedByFirstInsert(t *testing.T) {
	idx := NewIndex()
	mustInsert(t, idx, "tr-1:0000", "tr-1", []float32{1, 0, 0})

	err := idx.Insert(domain.Chunk{ID: "tr-1:0001", TranscriptID: "tr-1"}, []float32{1, 0})
	if !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch on insert, got %v", err)
	}
	if _, err := idx.Query([]float32{1, 0}, 1); !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch on query, got %v", err)
	}
	if idx.Dimension() != 3 {
		t.Fatalf("expected pinned dimension 3, got %d", idx.Dimension())
	}
}

func TestIndexRejectsEmptyVector(t *testing.T) {
	idx := NewIndex()
	err := idx.Insert(domain.Chunk{ID: "tr-1:0000"}, nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestIndexEmptyQueryReturnsNothing(t *testing.T) {
	idx := NewIndex()
	got, err := idx.Query([]float32{1, 0}, 4)
	if err != nil || got != nil {
		t.Fatalf("expected nil results from empty index, got %v, %v", got, err)
	}
}

func TestIndexDeleteTranscript(t *testing.T) {
	idx := NewIndex()
	mustInsert(t, idx, "tr-1:0000", "tr-1", []float32{1, 0})
	mustInsert(t, idx, "tr-1:0001", "tr-1", []float32{0, 1})
	mustInsert(t, idx, "tr-2:0000", "tr-2", []float32{1, 1})

	if removed := idx.DeleteTranscript("tr-1"); removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	if idx.Len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", idx.Len())
	}
	got, err := idx.Query([]float32{1, 0}, 4)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 || got[0].Chunk.ID != "tr-2:0000" {
		t.Fatalf("unexpected survivors: %+v", got)
	}
}

func TestIndexQueryNonPositiveK(t *testing.T) {
	idx := NewIndex()
	mustInsert(t, idx, "tr-1:0000", "tr-1", []float32{1, 0})

	got, err := idx.Query([]float32{1, 0}, 0)
	if err != nil || got != nil {
		t.Fatalf("expected no results for k=0, got %v, %v", got, err)
	}
}
