// Package ollama adapts an Ollama server into the core's embedding and
// generation capabilities. Calls run through a shared rate limiter and the
// resilience executor (retry + circuit breaker).
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	Timeout time.Duration
	// RequestsPerSecond throttles outbound capability calls; <=0 disables
	// throttling.
	RequestsPerSecond float64
	Executor          *resilience.Executor
}

func New(baseURL, genModel, embedModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	var limiter *rate.Limiter
	if options.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSecond), 1)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		executor:   options.Executor,
	}
}

// Embedder implements ports.Embedder over /api/embed.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "embed", "/api/embed", request, &response); err != nil {
		return nil, domain.WrapError(domain.ErrEmbedding, "ollama embed", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbedding, "ollama embed",
			fmt.Errorf("got %d embeddings for %d inputs", len(response.Embeddings), len(texts)))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, domain.WrapError(domain.ErrEmbedding, "ollama embed", fmt.Errorf("empty embedding result"))
	}
	return vectors[0], nil
}

// Generator implements ports.GenerationCapability over /api/generate with
// JSON output format requested from the model.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	request := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	var response struct {
		Response string `json:"response"`
	}
	if err := g.client.call(ctx, "generate", "/api/generate", request, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	fn := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, fn, classifyOllamaError)
	} else {
		err = fn(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}
