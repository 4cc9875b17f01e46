package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

// feedbackPayload is the schema the generative capability is asked to emit.
type feedbackPayload struct {
	Narrative string   `json:"narrative"`
	Issues    []string `json:"issues"`
	Positives []string `json:"positives"`
	Score     float64  `json:"score"`
}

// parseFeedback validates raw model output into a well-typed record. It never
// passes partially-typed data through: any schema violation is an
// ErrGenerationParse for the caller to handle.
func parseFeedback(personaID, raw string) (domain.FeedbackRecord, error) {
	var payload feedbackPayload
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &payload); err != nil {
		return domain.FeedbackRecord{}, domain.WrapError(domain.ErrGenerationParse, "decode feedback json", err)
	}

	if strings.TrimSpace(payload.Narrative) == "" {
		return domain.FeedbackRecord{}, domain.WrapError(domain.ErrGenerationParse, "validate feedback",
			fmt.Errorf("empty narrative"))
	}
	if payload.Score < 1.0 || payload.Score > 5.0 {
		return domain.FeedbackRecord{}, domain.WrapError(domain.ErrGenerationParse, "validate feedback",
			fmt.Errorf("score %.2f outside [1.0, 5.0]", payload.Score))
	}
	if payload.Issues == nil {
		payload.Issues = []string{}
	}
	if payload.Positives == nil {
		payload.Positives = []string{}
	}

	return domain.FeedbackRecord{
		PersonaID: personaID,
		Narrative: strings.TrimSpace(payload.Narrative),
		Issues:    payload.Issues,
		Positives: payload.Positives,
		Score:     payload.Score,
		Rating:    domain.RatingFor(payload.Score),
	}, nil
}

// extractJSONObject trims any stray prose or markdown fencing around the
// first top-level JSON object in the response.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
