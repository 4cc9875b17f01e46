package domain

type FlowType string

const (
	FlowCheckout   FlowType = "checkout"
	FlowPayment    FlowType = "payment"
	FlowOnboarding FlowType = "onboarding"
	FlowDashboard  FlowType = "dashboard"
	FlowAnalytics  FlowType = "analytics"
	FlowGeneral    FlowType = "general"
)

// ParseFlowType maps free-form input to a known flow, defaulting to general.
func ParseFlowType(s string) FlowType {
	switch FlowType(s) {
	case FlowCheckout, FlowPayment, FlowOnboarding, FlowDashboard, FlowAnalytics:
		return FlowType(s)
	default:
		return FlowGeneral
	}
}

// Persona is a merchant archetype from the static catalog. Loaded once at
// startup, shared read-only by every request.
type Persona struct {
	ID                   string   `json:"id" yaml:"id"`
	Name                 string   `json:"name" yaml:"name"`
	Segment              string   `json:"segment" yaml:"segment"`
	Description          string   `json:"description" yaml:"description"`
	Challenges           []string `json:"challenges" yaml:"challenges"`
	Goals                []string `json:"goals" yaml:"goals"`
	InterfacePreferences []string `json:"interface_preferences" yaml:"interface_preferences"`
	BehavioralTraits     []string `json:"behavioral_traits" yaml:"behavioral_traits"`
	TechSavviness        int      `json:"tech_savviness" yaml:"tech_savviness"`
}

// UXPrinciple frames the evaluation the generator is asked to perform.
// Priority runs 1-5; only high-priority principles reach the prompt.
type UXPrinciple struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Category    string   `json:"category" yaml:"category"`
	Priority    int      `json:"priority" yaml:"priority"`
	Flow        FlowType `json:"flow" yaml:"flow"`
}

// FeatureRequest is the unit of evaluation work handed in by the UI after the
// user finishes the create-test step. It is never mutated by the core.
type FeatureRequest struct {
	Description  string   `json:"description"`
	ImageSummary string   `json:"image_summary,omitempty"`
	PersonaIDs   []string `json:"persona_ids"`
	FlowType     FlowType `json:"flow_type"`
}

// FeedbackRecord is the structured outcome of one persona's simulated
// usability pass. Failed records carry no score and are excluded from the
// aggregate mean.
type FeedbackRecord struct {
	PersonaID     string   `json:"persona_id"`
	Narrative     string   `json:"narrative,omitempty"`
	Issues        []string `json:"issues,omitempty"`
	Positives     []string `json:"positives,omitempty"`
	Score         float64  `json:"score,omitempty"`
	Rating        string   `json:"rating,omitempty"`
	Grounded      bool     `json:"grounded"`
	Failed        bool     `json:"failed"`
	FailureReason string   `json:"failure_reason,omitempty"`
}

// ScoreStats aggregates usability scores across personas. HasMean is false
// when every persona failed; a zero mean is never fabricated.
type ScoreStats struct {
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Scored  int     `json:"scored"`
	Failed  int     `json:"failed"`
	HasMean bool    `json:"has_mean"`
}

// AggregateReport is derived per request and never persisted by the core.
type AggregateReport struct {
	FeatureName   string           `json:"feature_name"`
	FlowType      FlowType         `json:"flow_type"`
	Records       []FeedbackRecord `json:"records"`
	Stats         ScoreStats       `json:"stats"`
	Grounded      bool             `json:"grounded"`
	ContextChunks int              `json:"context_chunks"`
}

// RatingFor converts a numeric usability score into its descriptive label.
func RatingFor(score float64) string {
	switch {
	case score >= 4.5:
		return "Excellent"
	case score >= 4.0:
		return "Very Good"
	case score >= 3.5:
		return "Good"
	case score >= 3.0:
		return "Fair"
	case score >= 2.5:
		return "Poor"
	default:
		return "Very Poor"
	}
}
