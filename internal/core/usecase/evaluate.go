package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/uxlab/synthetic-merchant/internal/core/composer"
	"github.com/uxlab/synthetic-merchant/internal/core/domain"
	"github.com/uxlab/synthetic-merchant/internal/core/ports"
)

const strictRetryInstruction = "\nIMPORTANT: your previous answer was not valid JSON. " +
	"Return ONLY the JSON object described above. No prose before or after it, " +
	"no markdown fences, double-quoted keys, \"score\" as a plain number."

// EvaluateConfig bounds the per-request fan-out.
type EvaluateConfig struct {
	TopK int
	// PersonaConcurrency caps parallel generation calls; <=0 means 2.
	PersonaConcurrency int
	// PersonaTimeout bounds one persona's generation work; exceeding it is
	// that persona's failure, never a whole-request abort.
	PersonaTimeout time.Duration
	// FallbackUngrounded degrades a failed query-time embedding to an
	// ungrounded prompt instead of failing the request.
	FallbackUngrounded bool
}

func (c EvaluateConfig) normalize() EvaluateConfig {
	out := c
	if out.PersonaConcurrency <= 0 {
		out.PersonaConcurrency = 2
	}
	if out.PersonaTimeout <= 0 {
		out.PersonaTimeout = 90 * time.Second
	}
	return out
}

// EvaluateUseCase orchestrates one feature evaluation: retrieve grounding,
// compose a prompt per selected persona, invoke the generative capability
// concurrently, parse, and aggregate. One persona's failure never blocks the
// others; the report always includes every selected persona.
type EvaluateUseCase struct {
	retrieval  *RetrievalEngine
	personas   ports.PersonaRegistry
	principles ports.PrincipleRegistry
	composer   *composer.Composer
	generator  ports.GenerationCapability
	cfg        EvaluateConfig
}

func NewEvaluateUseCase(
	retrieval *RetrievalEngine,
	personas ports.PersonaRegistry,
	principles ports.PrincipleRegistry,
	comp *composer.Composer,
	generator ports.GenerationCapability,
	cfg EvaluateConfig,
) *EvaluateUseCase {
	return &EvaluateUseCase{
		retrieval:  retrieval,
		personas:   personas,
		principles: principles,
		composer:   comp,
		generator:  generator,
		cfg:        cfg.normalize(),
	}
}

func (uc *EvaluateUseCase) Evaluate(ctx context.Context, req domain.FeatureRequest) (*domain.AggregateReport, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "evaluate feature", errors.New("empty feature description"))
	}
	if len(req.PersonaIDs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "evaluate feature", errors.New("no personas selected"))
	}

	retrieved, err := uc.retrieval.Search(ctx, req.Description, req.FlowType, uc.cfg.TopK)
	if err != nil {
		if !uc.cfg.FallbackUngrounded {
			return nil, err
		}
		slog.Warn("retrieval_degraded_to_ungrounded", "error", err)
		retrieved = domain.RetrievedContext{Grounded: false}
	}

	principles := uc.principles.ForFlow(req.FlowType)

	records := make([]domain.FeedbackRecord, len(req.PersonaIDs))
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.PersonaConcurrency)
	for i, personaID := range req.PersonaIDs {
		g.Go(func() error {
			records[i] = uc.evaluatePersona(groupCtx, req, personaID, retrieved, principles)
			return nil
		})
	}
	// Join-all: every persona task returns nil, failures degrade to failed
	// records, so this wait cannot abort early.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &domain.AggregateReport{
		FeatureName:   featureName(req.Description),
		FlowType:      req.FlowType,
		Records:       records,
		Stats:         AggregateScores(records),
		Grounded:      retrieved.Grounded,
		ContextChunks: len(retrieved.Chunks),
	}, nil
}

// Search exposes raw grounding retrieval for the MCP adapter.
func (uc *EvaluateUseCase) Search(ctx context.Context, query string, flow domain.FlowType, k int) (domain.RetrievedContext, error) {
	return uc.retrieval.Search(ctx, query, flow, k)
}

func (uc *EvaluateUseCase) evaluatePersona(
	ctx context.Context,
	req domain.FeatureRequest,
	personaID string,
	retrieved domain.RetrievedContext,
	principles []domain.UXPrinciple,
) domain.FeedbackRecord {
	persona, ok := uc.personas.Get(personaID)
	if !ok {
		return failedRecord(personaID, retrieved.Grounded, "persona not in catalog")
	}

	taskCtx, cancel := context.WithTimeout(ctx, uc.cfg.PersonaTimeout)
	defer cancel()

	genReq := uc.composer.Compose(req, persona, retrieved, principles)

	record, err := uc.generateOnce(taskCtx, genReq.Prompt, personaID)
	if err != nil && domain.IsKind(err, domain.ErrGenerationParse) {
		// One retry with a stricter formatting instruction before giving up
		// on this persona.
		record, err = uc.generateOnce(taskCtx, genReq.Prompt+strictRetryInstruction, personaID)
	}
	if err != nil {
		reason := "generation failed"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			reason = "generation timed out"
		case domain.IsKind(err, domain.ErrGenerationParse):
			reason = "response did not match the feedback schema"
		}
		slog.Warn("persona_feedback_failed", "persona_id", personaID, "reason", reason, "error", err)
		return failedRecord(personaID, retrieved.Grounded, reason)
	}

	record.Grounded = retrieved.Grounded
	return record
}

func (uc *EvaluateUseCase) generateOnce(ctx context.Context, prompt, personaID string) (domain.FeedbackRecord, error) {
	raw, err := uc.generator.GenerateJSON(ctx, prompt)
	if err != nil {
		return domain.FeedbackRecord{}, fmt.Errorf("invoke generation capability: %w", err)
	}
	return parseFeedback(personaID, raw)
}

func failedRecord(personaID string, grounded bool, reason string) domain.FeedbackRecord {
	return domain.FeedbackRecord{
		PersonaID:     personaID,
		Grounded:      grounded,
		Failed:        true,
		FailureReason: reason,
	}
}

// featureName keeps the report header short: the text before the first colon,
// or the whole description when there is none.
func featureName(description string) string {
	if idx := strings.Index(description, ":"); idx > 0 {
		return strings.TrimSpace(description[:idx])
	}
	return strings.TrimSpace(description)
}
