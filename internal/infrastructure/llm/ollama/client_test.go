package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

func TestEmbedReturnsVectorsInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if payload["model"] != "embed" {
			t.Errorf("unexpected model %v", payload["model"])
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1,0],[0,1]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", Options{}))
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestEmbedCountMismatchIsEmbeddingError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,0]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", Options{}))
	_, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if !domain.IsKind(err, domain.ErrEmbedding) {
		t.Fatalf("expected embedding error kind, got %v", err)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadRequest)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", Options{}))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestGenerateJSONSendsPromptAndTrimsResponse(t *testing.T) {
	var capturedPrompt string
	var capturedFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		capturedPrompt, _ = payload["prompt"].(string)
		capturedFormat, _ = payload["format"].(string)
		_, _ = w.Write([]byte(`{"response":"  {\"score\": 4.0}  "}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed", Options{}))
	got, err := gen.GenerateJSON(context.Background(), "evaluate this feature")
	if err != nil {
		t.Fatalf("GenerateJSON() error = %v", err)
	}
	if got != `{"score": 4.0}` {
		t.Fatalf("expected trimmed response, got %q", got)
	}
	if capturedPrompt != "evaluate this feature" || capturedFormat != "json" {
		t.Fatalf("unexpected request: prompt=%q format=%q", capturedPrompt, capturedFormat)
	}
}

func TestGenerateJSONWrapsServerErrorsAsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed", Options{}))
	_, err := gen.GenerateJSON(context.Background(), "prompt")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error kind, got %v", err)
	}
}

func TestEmbedEmptyInputSkipsNetwork(t *testing.T) {
	embedder := NewEmbedder(New("http://127.0.0.1:1", "gen", "embed", Options{}))
	vectors, err := embedder.Embed(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("expected nil result for empty input, got %v, %v", vectors, err)
	}
}
