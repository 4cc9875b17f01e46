package usecase

import (
	"context"
	"strings"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
	"github.com/uxlab/synthetic-merchant/internal/core/ports"
)

const defaultTopK = 4

// flowKeywords bias the query embedding toward vocabulary merchants use when
// talking about each flow.
var flowKeywords = map[domain.FlowType]string{
	domain.FlowCheckout:   "checkout cart conversion payment page abandonment",
	domain.FlowPayment:    "payment gateway settlement refund transaction failure",
	domain.FlowOnboarding: "onboarding signup KYC activation first use setup",
	domain.FlowDashboard:  "dashboard overview navigation daily operations",
	domain.FlowAnalytics:  "analytics reports metrics insights data export",
}

// RetrievalEngine turns a feature description into grounding context by
// embedding it and querying the vector index.
type RetrievalEngine struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	topK     int
}

func NewRetrievalEngine(embedder ports.Embedder, index ports.VectorIndex, topK int) *RetrievalEngine {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &RetrievalEngine{
		embedder: embedder,
		index:    index,
		topK:     topK,
	}
}

// Search embeds the query (biased by flow keywords) and returns the top-k
// nearest chunks. An empty index yields an empty, ungrounded context rather
// than an error; an embedding failure is surfaced as ErrEmbedding.
func (e *RetrievalEngine) Search(ctx context.Context, query string, flow domain.FlowType, k int) (domain.RetrievedContext, error) {
	if k <= 0 {
		k = e.topK
	}
	if e.index.Len() == 0 {
		return domain.RetrievedContext{Grounded: false}, nil
	}

	vector, err := e.embedder.EmbedQuery(ctx, biasQuery(query, flow))
	if err != nil {
		return domain.RetrievedContext{}, domain.WrapError(domain.ErrEmbedding, "embed feature description", err)
	}

	chunks, err := e.index.Query(vector, k)
	if err != nil {
		return domain.RetrievedContext{}, err
	}
	return domain.RetrievedContext{
		Chunks:   chunks,
		Grounded: len(chunks) > 0,
	}, nil
}

func biasQuery(query string, flow domain.FlowType) string {
	keywords, ok := flowKeywords[flow]
	if !ok || keywords == "" {
		return query
	}
	return strings.TrimSpace(query) + "\n" + keywords
}
