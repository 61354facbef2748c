package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/davidahmann/complybus/pkg/types"
)

func TestAssessConfidence(t *testing.T) {
	tests := []struct {
		confidence float64
		want       string
	}{
		{1, ConfidenceHigh},
		{0.8, ConfidenceHigh},
		{0.79, ConfidenceModerate},
		{0.5, ConfidenceModerate},
		{0.49, ConfidenceLow},
		{0, ConfidenceLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AssessConfidence(tt.confidence), tt.confidence)
	}
}

func TestExplainDecision(t *testing.T) {
	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	x := NewExplainer(func() time.Time { return at })

	exp := x.ExplainDecision(types.DecisionLogEntry{
		DecisionID: "d-1",
		AgentName:  "remediation",
		Decision:   "ESCALATE",
		Reasoning:  "Critical fall protection gap.",
		Confidence: 0.95,
		Metadata:   map[string]any{MetadataRegulatoryReferences: []any{"OSHA 1926.501", 7}},
	})

	assert.Equal(t, "d-1", exp.DecisionID)
	assert.NotEmpty(t, exp.ExplanationID)
	assert.Equal(t, ConfidenceHigh, exp.ConfidenceAssessment)
	assert.Equal(t, "The remediation agent determined 'ESCALATE' with 95% confidence. Critical fall protection gap.", exp.Summary)
	assert.Equal(t, []string{
		"Agent 'remediation' evaluated the input and reached a 'ESCALATE' outcome.",
		"Confidence level: 95% (HIGH CONFIDENCE).",
		"Reasoning: Critical fall protection gap.",
	}, exp.KeyFactors)
	assert.Equal(t, []string{"OSHA 1926.501"}, exp.RegulatoryReferences)
	assert.Equal(t, at, exp.GeneratedAt)
}

func TestExplainDecisionWithoutReasoningOrReferences(t *testing.T) {
	exp := NewExplainer(nil).ExplainDecision(types.DecisionLogEntry{AgentName: "monitor", Decision: "PASS", Confidence: 0.3})

	assert.Len(t, exp.KeyFactors, 2)
	assert.Equal(t, "The monitor agent determined 'PASS' with 30% confidence.", exp.Summary)
	assert.Equal(t, ConfidenceLow, exp.ConfidenceAssessment)
	assert.NotNil(t, exp.RegulatoryReferences)
	assert.Empty(t, exp.RegulatoryReferences)
}
