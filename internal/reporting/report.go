// Package reporting answers compliance.report_request events with a scored
// compliance report whose content is sealed by a canonical hash.
package reporting

import (
	"fmt"
	"slices"
	"time"

	"github.com/davidahmann/complybus/internal/crypto"
	"github.com/davidahmann/complybus/internal/risk"
)

// Deductions per violation, subtracted from a perfect score of 100.
const (
	WeightCritical = 10.0
	WeightHigh     = 5.0
	WeightMedium   = 2.0
	WeightLow      = 0.5
)

const DefaultTitle = "Compliance Report"

type Counts struct {
	Critical int
	High     int
	Medium   int
	Low      int
}

func (c Counts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low
}

type Report struct {
	ReportID         string    `json:"report_id"`
	Title            string    `json:"title"`
	GeneratedAt      time.Time `json:"generated_at"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	TotalViolations  int       `json:"total_violations"`
	CriticalCount    int       `json:"critical_count"`
	HighCount        int       `json:"high_count"`
	MediumCount      int       `json:"medium_count"`
	LowCount         int       `json:"low_count"`
	ComplianceScore  float64   `json:"compliance_score"`
	ExecutiveSummary string    `json:"executive_summary"`
	Recommendations  []string  `json:"recommendations"`
	ReportHash       string    `json:"report_hash"`
	DecisionID       string    `json:"decision_id,omitempty"`
}

func (r Report) Counts() Counts {
	return Counts{Critical: r.CriticalCount, High: r.HighCount, Medium: r.MediumCount, Low: r.LowCount}
}

// Clone copies the recommendation slice.
func (r Report) Clone() Report {
	r.Recommendations = slices.Clone(r.Recommendations)
	return r
}

// ComplianceScore deducts the severity weights from 100 and clamps the
// result to [0,100].
func ComplianceScore(c Counts) float64 {
	deduction := float64(c.Critical)*WeightCritical +
		float64(c.High)*WeightHigh +
		float64(c.Medium)*WeightMedium +
		float64(c.Low)*WeightLow
	return risk.Round(risk.Clamp(100-deduction), 2)
}

func ExecutiveSummary(c Counts, score float64) string {
	total := c.Total()
	noun, verb := "violations", "were"
	if total == 1 {
		noun, verb = "violation", "was"
	}
	summary := fmt.Sprintf("During the reporting period, %d compliance %s %s identified. Breakdown: %d critical, %d high, %d medium, %d low. The overall compliance score is %.1f/100.",
		total, noun, verb, c.Critical, c.High, c.Medium, c.Low, score)
	if c.Critical > 0 {
		summary += " Immediate attention is required for critical violations that may impact regulatory standing."
	}
	switch {
	case score >= 90:
		summary += " The project maintains a strong compliance posture."
	case score >= 70:
		summary += " Compliance posture is acceptable but improvements are recommended."
	default:
		summary += " Compliance posture is below acceptable thresholds; corrective action is urgently needed."
	}
	return summary
}

func Recommendations(c Counts) []string {
	recs := []string{}
	if c.Critical > 0 {
		recs = append(recs, "Conduct an emergency review of all critical violations and implement corrective actions within 24 hours.")
	}
	if c.High > 0 {
		recs = append(recs, "Schedule expert review sessions for high-severity findings within the next business week.")
	}
	if c.Medium > 0 {
		recs = append(recs, "Enable automated remediation playbooks for medium-severity violations to reduce manual effort.")
	}
	if c.Low > 0 {
		recs = append(recs, "Track low-severity items in the backlog and address during routine maintenance cycles.")
	}
	if len(recs) == 0 {
		recs = append(recs, "No violations detected. Continue current compliance monitoring.")
	}
	return recs
}

// ReportHash digests the report content. Identity fields (report id,
// generation time, decision id) are excluded so identical requests hash
// identically.
func ReportHash(r Report) (string, error) {
	return crypto.HashCanonical(map[string]any{
		"title":             r.Title,
		"period_start":      r.PeriodStart.UTC().Format(time.RFC3339Nano),
		"period_end":        r.PeriodEnd.UTC().Format(time.RFC3339Nano),
		"critical_count":    r.CriticalCount,
		"high_count":        r.HighCount,
		"medium_count":      r.MediumCount,
		"low_count":         r.LowCount,
		"total_violations":  r.TotalViolations,
		"compliance_score":  r.ComplianceScore,
		"executive_summary": r.ExecutiveSummary,
		"recommendations":   r.Recommendations,
	})
}

// VerifyReport recomputes the content hash of r.
func VerifyReport(r Report) error {
	want, err := ReportHash(r)
	if err != nil {
		return err
	}
	if !crypto.EqualDigests(want, r.ReportHash) {
		return ErrReportHashMismatch
	}
	return nil
}
