package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/davidahmann/complybus/pkg/types"
)

const (
	ConfidenceHigh     = "HIGH CONFIDENCE"
	ConfidenceModerate = "MODERATE CONFIDENCE"
	ConfidenceLow      = "LOW CONFIDENCE"
)

// MetadataRegulatoryReferences is the metadata key read for citations.
const MetadataRegulatoryReferences = "regulatory_references"

type Explanation struct {
	ExplanationID        string    `json:"explanation_id"`
	DecisionID           string    `json:"decision_id"`
	AgentName            string    `json:"agent_name"`
	Summary              string    `json:"plain_language_summary"`
	KeyFactors           []string  `json:"key_factors"`
	ConfidenceAssessment string    `json:"confidence_assessment"`
	RegulatoryReferences []string  `json:"regulatory_references"`
	GeneratedAt          time.Time `json:"generated_at"`
}

// AssessConfidence labels a confidence value: 0.8 and above is high, 0.5
// and above moderate.
func AssessConfidence(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return ConfidenceHigh
	case confidence >= 0.5:
		return ConfidenceModerate
	default:
		return ConfidenceLow
	}
}

type Explainer struct {
	now func() time.Time
}

func NewExplainer(now func() time.Time) *Explainer {
	if now == nil {
		now = time.Now
	}
	return &Explainer{now: now}
}

// ExplainDecision turns a logged decision into a summary a reviewer without
// system knowledge can follow.
func (x *Explainer) ExplainDecision(entry types.DecisionLogEntry) Explanation {
	label := AssessConfidence(entry.Confidence)
	pct := entry.Confidence * 100

	factors := []string{
		fmt.Sprintf("Agent '%s' evaluated the input and reached a '%s' outcome.", entry.AgentName, entry.Decision),
		fmt.Sprintf("Confidence level: %.0f%% (%s).", pct, label),
	}
	if entry.Reasoning != "" {
		factors = append(factors, "Reasoning: "+entry.Reasoning)
	}

	summary := fmt.Sprintf("The %s agent determined '%s' with %.0f%% confidence.", entry.AgentName, entry.Decision, pct)
	if entry.Reasoning != "" {
		summary += " " + entry.Reasoning
	}

	return Explanation{
		ExplanationID:        uuid.NewString(),
		DecisionID:           entry.DecisionID,
		AgentName:            entry.AgentName,
		Summary:              summary,
		KeyFactors:           factors,
		ConfidenceAssessment: label,
		RegulatoryReferences: regulatoryReferences(entry.Metadata),
		GeneratedAt:          x.now().UTC(),
	}
}

func regulatoryReferences(metadata map[string]any) []string {
	refs := []string{}
	switch v := metadata[MetadataRegulatoryReferences].(type) {
	case []string:
		refs = append(refs, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				refs = append(refs, s)
			}
		}
	case string:
		if v != "" {
			refs = append(refs, v)
		}
	}
	return refs
}
