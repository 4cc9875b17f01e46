// Package composer builds generation requests from persona attributes,
// feature descriptions, retrieved grounding chunks, and UX principles.
// Composition is a pure transformation: identical inputs always produce a
// byte-identical request.
package composer

import (
	"fmt"
	"strings"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

const defaultMaxPromptTokens = 6000

// GenerationRequest is a fully composed prompt ready for the generative
// capability.
type GenerationRequest struct {
	PersonaID string
	Prompt    string
}

type Composer struct {
	MaxPromptTokens int
}

// New creates a Composer with the given approximate token budget for the
// composed prompt. If maxPromptTokens <= 0 the default (6000) is used.
func New(maxPromptTokens int) *Composer {
	if maxPromptTokens <= 0 {
		maxPromptTokens = defaultMaxPromptTokens
	}
	return &Composer{MaxPromptTokens: maxPromptTokens}
}

// Compose assembles the prompt in fixed structural order: persona profile,
// feature under test, retrieved merchant experience, UX principles, output
// schema. When the budget is exceeded, grounding chunks are dropped lowest
// score first, then the feature description is truncated; persona text is
// never cut.
func (c *Composer) Compose(
	req domain.FeatureRequest,
	persona domain.Persona,
	retrieved domain.RetrievedContext,
	principles []domain.UXPrinciple,
) GenerationRequest {
	personaSection := buildPersonaSection(persona)
	principleSection := buildPrincipleSection(principles)

	fixed := EstimateTokens(personaSection) +
		EstimateTokens(principleSection) +
		EstimateTokens(outputSchemaSection)

	featureSection := buildFeatureSection(req)
	featureBudget := c.MaxPromptTokens - fixed
	if featureBudget < minFeatureTokens {
		featureBudget = minFeatureTokens
	}
	if EstimateTokens(featureSection) > featureBudget {
		featureSection = truncateToTokens(featureSection, featureBudget)
	}

	remaining := c.MaxPromptTokens - fixed - EstimateTokens(featureSection)
	groundingSection := buildGroundingSection(retrieved, remaining)

	var sb strings.Builder
	sb.WriteString(personaSection)
	sb.WriteString(featureSection)
	sb.WriteString(groundingSection)
	sb.WriteString(principleSection)
	sb.WriteString(outputSchemaSection)

	return GenerationRequest{
		PersonaID: persona.ID,
		Prompt:    sb.String(),
	}
}

const minFeatureTokens = 64

const outputSchemaSection = `[Required Output]
Respond with a single JSON object and nothing else. No markdown fences, no extra keys:
{
  "narrative": "first-person walkthrough of using the feature as this merchant",
  "issues": ["specific usability problems you hit"],
  "positives": ["aspects that worked well for your business"],
  "score": 3.5
}
"score" is a number from 1.0 (very poor usability) to 5.0 (excellent usability).
`

func buildPersonaSection(p domain.Persona) string {
	var sb strings.Builder
	sb.WriteString("[Merchant Persona]\n")
	fmt.Fprintf(&sb, "You are %s, %s\n", p.Name, p.Description)
	fmt.Fprintf(&sb, "Segment: %s\n", p.Segment)
	fmt.Fprintf(&sb, "Tech savviness: %d/5\n", p.TechSavviness)
	writeList(&sb, "Challenges", p.Challenges)
	writeList(&sb, "Goals", p.Goals)
	writeList(&sb, "Interface preferences", p.InterfacePreferences)
	writeList(&sb, "Behavioral traits", p.BehavioralTraits)
	sb.WriteString("\n")
	return sb.String()
}

func buildFeatureSection(req domain.FeatureRequest) string {
	var sb strings.Builder
	sb.WriteString("[Feature Under Test]\n")
	fmt.Fprintf(&sb, "Flow: %s\n", req.FlowType)
	sb.WriteString(req.Description)
	sb.WriteString("\n")
	if req.ImageSummary != "" {
		sb.WriteString("\nVisual design analysis (derived from an uploaded interface image):\n")
		sb.WriteString(req.ImageSummary)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

// buildGroundingSection renders retrieved chunks in descending score order,
// dropping from the tail (lowest score) when the token budget is exceeded.
// Chunks are labeled as illustrative prior experience, not authoritative fact.
func buildGroundingSection(retrieved domain.RetrievedContext, budget int) string {
	if len(retrieved.Chunks) == 0 {
		return "[Prior Merchant Experience]\nNo recorded merchant dialogue was available for this feature; rely on the persona profile alone.\n\n"
	}

	header := "[Prior Merchant Experience]\nIllustrative excerpts from real merchant conversations. Treat them as context for how merchants like you talk and struggle, not as facts about this feature.\n"
	remaining := budget - EstimateTokens(header)

	var entries []string
	for _, sc := range retrieved.Chunks {
		entry := fmt.Sprintf("- (relevance %.2f) %s\n", sc.Score, sc.Chunk.Text)
		cost := EstimateTokens(entry)
		if cost > remaining {
			break
		}
		entries = append(entries, entry)
		remaining -= cost
	}
	if len(entries) == 0 {
		return "[Prior Merchant Experience]\nNo recorded merchant dialogue was available for this feature; rely on the persona profile alone.\n\n"
	}

	var sb strings.Builder
	sb.WriteString(header)
	for _, e := range entries {
		sb.WriteString(e)
	}
	sb.WriteString("\n")
	return sb.String()
}

func buildPrincipleSection(principles []domain.UXPrinciple) string {
	if len(principles) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("[UX Principles to Consider]\n")
	for _, p := range principles {
		fmt.Fprintf(&sb, "- %s: %s\n", p.Name, p.Description)
	}
	sb.WriteString("\n")
	return sb.String()
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}

// EstimateTokens approximates token count with the 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

func truncateToTokens(text string, tokens int) string {
	limit := tokens * 4
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes) + "\n"
}
