// Package bootstrap wires infrastructure into the core use cases for both the
// api and worker processes.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uxlab/synthetic-merchant/internal/config"
	"github.com/uxlab/synthetic-merchant/internal/core/composer"
	"github.com/uxlab/synthetic-merchant/internal/core/ports"
	"github.com/uxlab/synthetic-merchant/internal/core/usecase"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/catalog"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/chunking"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/extractor"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/extractor/pdf"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/extractor/plaintext"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/extractor/xlsx"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/llm/ollama"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/queue/nats"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/repository/postgres"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/resilience"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/sanitize"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/storage/localfs"
	"github.com/uxlab/synthetic-merchant/internal/infrastructure/vector"
)

type App struct {
	Config config.Config

	Queue       ports.MessageQueue
	Transcripts ports.TranscriptRepository
	Personas    ports.PersonaRegistry

	IngestUC   *usecase.IngestTranscriptUseCase
	ProcessUC  *usecase.ProcessTranscriptUseCase
	EvaluateUC *usecase.EvaluateUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	transcripts := postgres.NewTranscriptRepository(db)
	if err := transcripts.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	chunkRepo := postgres.NewChunkRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		RequestsPerSecond: cfg.OllamaRPS,
		Executor:          executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	personas, err := catalog.LoadPersonas(cfg.PersonaCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load persona catalog: %w", err)
	}
	principles, err := catalog.LoadPrinciples(cfg.PrincipleCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load principle catalog: %w", err)
	}

	index := vector.NewIndex()
	loaded, err := usecase.RebuildIndex(ctx, chunkRepo, index)
	if err != nil {
		return nil, fmt.Errorf("rebuild vector index: %w", err)
	}
	slog.Info("vector_index_rebuilt", "chunks", loaded)

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.MaxDocumentSize)
	scrubber := sanitize.NewScrubber()
	extract := extractor.NewSelector(
		plaintext.NewExtractor(storage),
		pdf.NewExtractor(storage),
		xlsx.NewExtractor(storage),
	)

	ingestUC := usecase.NewIngestTranscriptUseCase(transcripts, storage, queue)
	processUC := usecase.NewProcessTranscriptUseCase(transcripts, chunkRepo, extract, scrubber, chunker, embedder, index)
	retrieval := usecase.NewRetrievalEngine(embedder, index, cfg.RetrievalTopK)
	evaluateUC := usecase.NewEvaluateUseCase(
		retrieval,
		personas,
		principles,
		composer.New(cfg.PromptTokenBudget),
		generator,
		usecase.EvaluateConfig{
			TopK:               cfg.RetrievalTopK,
			PersonaConcurrency: cfg.PersonaConcurrency,
			PersonaTimeout:     time.Duration(cfg.PersonaTimeoutSeconds) * time.Second,
			FallbackUngrounded: cfg.FallbackUngrounded,
		},
	)

	return &App{
		Config: cfg,

		Queue:       queue,
		Transcripts: transcripts,
		Personas:    personas,

		IngestUC:   ingestUC,
		ProcessUC:  processUC,
		EvaluateUC: evaluateUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
