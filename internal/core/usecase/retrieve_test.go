package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

func TestSearchEmptyIndexReturnsUngrounded(t *testing.T) {
	engine := NewRetrievalEngine(&embedFake{}, &indexFake{size: 0}, 4)

	got, err := engine.Search(context.Background(), "bulk refunds", domain.FlowPayment, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got.Grounded || len(got.Chunks) != 0 {
		t.Fatalf("expected empty ungrounded context, got %+v", got)
	}
}

func TestSearchBiasesQueryWithFlowKeywords(t *testing.T) {
	embed := &embedFake{query: []float32{1, 0}}
	index := &indexFake{
		size:    2,
		results: []domain.ScoredChunk{{Chunk: domain.Chunk{ID: "tr-1:0000", Text: "settlement delays"}, Score: 0.9}},
	}
	engine := NewRetrievalEngine(embed, index, 4)

	got, err := engine.Search(context.Background(), "bulk refunds", domain.FlowPayment, 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !strings.HasPrefix(embed.lastQuery, "bulk refunds") {
		t.Fatalf("query text must lead the embedded input, got %q", embed.lastQuery)
	}
	if !strings.Contains(embed.lastQuery, "settlement") {
		t.Fatalf("expected payment flow keywords appended, got %q", embed.lastQuery)
	}
	if !got.Grounded || len(got.Chunks) != 1 {
		t.Fatalf("unexpected context: %+v", got)
	}
}

func TestSearchGeneralFlowLeavesQueryUnbiased(t *testing.T) {
	embed := &embedFake{query: []float32{1, 0}}
	engine := NewRetrievalEngine(embed, &indexFake{size: 1}, 4)

	if _, err := engine.Search(context.Background(), "a feature", domain.FlowGeneral, 0); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if embed.lastQuery != "a feature" {
		t.Fatalf("expected untouched query for general flow, got %q", embed.lastQuery)
	}
}

func TestSearchWrapsEmbedFailure(t *testing.T) {
	embed := &embedFake{err: context.DeadlineExceeded}
	engine := NewRetrievalEngine(embed, &indexFake{size: 1}, 4)

	_, err := engine.Search(context.Background(), "a feature", domain.FlowGeneral, 0)
	if !domain.IsKind(err, domain.ErrEmbedding) {
		t.Fatalf("expected embedding error kind, got %v", err)
	}
}
