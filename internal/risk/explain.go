package risk

import (
	"fmt"
	"strings"

	"github.com/davidahmann/complybus/pkg/types"
)

// ExplainScore renders a plain-language breakdown of score and the factors
// that produced it, one line per factor in the order given.
func ExplainScore(score float64, factors []types.RiskFactor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Risk Score: %.1f/100\n\nContributing Factors:\n", score)

	totalWeight := 0.0
	for _, f := range factors {
		totalWeight += f.Weight
	}

	if len(factors) == 0 {
		b.WriteString("  No contributing factors were recorded.\n")
	}
	for _, f := range factors {
		name := f.Name
		if name == "" {
			name = f.FactorID
		}
		share := 0.0
		if totalWeight > 0 {
			share = f.Weight * f.CurrentValue / totalWeight
		}
		fmt.Fprintf(&b, "  - %s (%s): value %.1f at weight %.2f, contributes %.2f points\n",
			name, f.Category, f.CurrentValue, f.Weight, share)
	}

	b.WriteString("\n")
	switch {
	case score >= 75:
		b.WriteString("Assessment: HIGH RISK, immediate attention required.")
	case score >= 40:
		b.WriteString("Assessment: MODERATE RISK, review recommended.")
	default:
		b.WriteString("Assessment: LOW RISK, within acceptable thresholds.")
	}
	return b.String()
}
